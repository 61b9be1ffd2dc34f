package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- SanitizeText ---

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text untouched",
			input:    "Senior Engineer",
			expected: "Senior Engineer",
		},
		{
			name:     "strips script block",
			input:    `before <script>alert("xss")</script> after`,
			expected: "before  after",
		},
		{
			name:     "strips script with attributes",
			input:    `<script type="text/javascript" src="evil.js">x</script>payload`,
			expected: "payload",
		},
		{
			name:     "strips script case-insensitively",
			input:    "<SCRIPT>bad()</SCRIPT>ok",
			expected: "ok",
		},
		{
			name:     "strips multiline script",
			input:    "a<script>\nline1\nline2\n</script>b",
			expected: "ab",
		},
		{
			name:     "escapes the five specials",
			input:    `<b>"Tom" & 'Jerry'</b>`,
			expected: "&lt;b&gt;&quot;Tom&quot; &amp; &#39;Jerry&#39;&lt;/b&gt;",
		},
		{
			name:     "trims whitespace",
			input:    "  padded  ",
			expected: "padded",
		},
		{
			name:     "empty stays empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeText(tt.input))
		})
	}
}

// --- SanitizeSkills ---

func TestSanitizeSkills(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "dedupes preserving first-seen order",
			input:    []string{"Go", "SQL", "Go", "Docker", "SQL"},
			expected: []string{"Go", "SQL", "Docker"},
		},
		{
			name:     "trims and drops empties",
			input:    []string{"  Go  ", "", "   ", "SQL"},
			expected: []string{"Go", "SQL"},
		},
		{
			name:     "sanitizes each element",
			input:    []string{`<script>x</script>Go`, "C&C++"},
			expected: []string{"Go", "C&amp;C++"},
		},
		{
			name:     "nil input stays nil",
			input:    nil,
			expected: nil,
		},
		{
			name:     "all-empty collapses to nil",
			input:    []string{"", "  "},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeSkills(tt.input))
		})
	}
}
