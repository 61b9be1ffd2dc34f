package validate

import (
	"regexp"
	"strings"
)

// Compiled once at package init.
var reScript = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)

// htmlEscaper covers the five XSS-relevant characters.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// SanitizeText strips <script> blocks, HTML-escapes what remains and trims
// surrounding whitespace. Applied to every free-text field before storage.
func SanitizeText(s string) string {
	if s == "" {
		return ""
	}
	s = reScript.ReplaceAllString(s, "")
	s = htmlEscaper.Replace(s)
	return strings.TrimSpace(s)
}

// SanitizeSkills sanitizes each element, trims, drops empties and
// deduplicates while preserving first-seen order.
func SanitizeSkills(skills []string) []string {
	if len(skills) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		clean := SanitizeText(s)
		if clean == "" || seen[clean] {
			continue
		}
		seen[clean] = true
		out = append(out, clean)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
