// Package query is the pure filtering/search/sort/pagination engine. It
// runs over the full record set returned by the active backend, so results
// are identical whether the data came from the local or the remote store.
package query

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/jobcopilot/jobstore/pkg/models"
)

// Default sort applied when the caller names no field.
const (
	DefaultSortBy    = "created_at"
	DefaultSortOrder = "desc"
)

// Run applies the engine to records in fixed order: filter, then search,
// then sort, then paginate. Sorting and pagination never run against the
// unfiltered set.
func Run(records []models.JobRecord, opts models.QueryOptions) models.QueryResult {
	opts = Normalize(opts)

	matched := Filter(records, opts.Filters)
	matched = Search(matched, opts.Search)
	Sort(matched, opts.SortBy, opts.SortOrder)
	return Paginate(matched, opts.Page, opts.PageSize)
}

// Normalize clamps pagination and fills sort defaults.
func Normalize(opts models.QueryOptions) models.QueryOptions {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = models.DefaultPageSize
	}
	if opts.PageSize > models.MaxPageSize {
		opts.PageSize = models.MaxPageSize
	}
	if opts.SortBy == "" {
		opts.SortBy = DefaultSortBy
	}
	if opts.SortOrder != "asc" && opts.SortOrder != "desc" {
		opts.SortOrder = DefaultSortOrder
	}
	return opts
}

// Filter conjoins the filter dimensions; within a dimension the allowed
// values disjoin. An empty dimension passes every record.
func Filter(records []models.JobRecord, f models.Filters) []models.JobRecord {
	out := make([]models.JobRecord, 0, len(records))
	for _, rec := range records {
		if len(f.Status) > 0 && !contains(f.Status, rec.Status) {
			continue
		}
		if f.MinMatchPercentage != nil && rec.MatchPercentage < *f.MinMatchPercentage {
			continue
		}
		if len(f.RankingLevel) > 0 && !contains(f.RankingLevel, rec.RankingLevel) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Search keeps records where the query is a case-insensitive substring of
// the title, company name, location or notes. An empty query matches all.
func Search(records []models.JobRecord, q string) []models.JobRecord {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return records
	}

	out := make([]models.JobRecord, 0, len(records))
	for _, rec := range records {
		if matchesAny(q, rec.JobTitle, rec.CompanyName, rec.Location, rec.Notes) {
			out = append(out, rec)
		}
	}
	return out
}

func matchesAny(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// Sort orders records in place, stably, by the named field. String fields
// compare with locale-aware collation; numeric and date fields compare
// numerically with nil/missing treated as zero. Unknown fields fall back
// to the default sort.
func Sort(records []models.JobRecord, field, order string) {
	desc := order == "desc"
	cmp := comparator(field)

	sort.SliceStable(records, func(i, j int) bool {
		c := cmp(records[i], records[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func comparator(field string) func(a, b models.JobRecord) int {
	switch field {
	case "job_title":
		return stringCmp(func(r models.JobRecord) string { return r.JobTitle })
	case "company_name":
		return stringCmp(func(r models.JobRecord) string { return r.CompanyName })
	case "location":
		return stringCmp(func(r models.JobRecord) string { return r.Location })
	case "status":
		return stringCmp(func(r models.JobRecord) string { return r.Status })
	case "ranking_level":
		return stringCmp(func(r models.JobRecord) string { return r.RankingLevel })
	case "match_percentage":
		return func(a, b models.JobRecord) int { return intCmp(a.MatchPercentage, b.MatchPercentage) }
	case "salary_min":
		return func(a, b models.JobRecord) int { return floatCmp(deref(a.SalaryMin), deref(b.SalaryMin)) }
	case "salary_max":
		return func(a, b models.JobRecord) int { return floatCmp(deref(a.SalaryMax), deref(b.SalaryMax)) }
	case "application_date":
		return func(a, b models.JobRecord) int {
			return timeCmp(derefTime(a.ApplicationDate), derefTime(b.ApplicationDate))
		}
	case "updated_at":
		return func(a, b models.JobRecord) int { return timeCmp(a.UpdatedAt, b.UpdatedAt) }
	default:
		return func(a, b models.JobRecord) int { return timeCmp(a.CreatedAt, b.CreatedAt) }
	}
}

func stringCmp(key func(models.JobRecord) string) func(a, b models.JobRecord) int {
	// collators are not safe for concurrent use, build one per sort
	col := collate.New(language.Und)
	return func(a, b models.JobRecord) int {
		return col.CompareString(key(a), key(b))
	}
}

func intCmp(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func floatCmp(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func timeCmp(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// derefTime maps a missing date to the zero time so it sorts as "empty".
func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// Paginate slices the sorted match set and reports pre-pagination totals.
// The caller is expected to have normalized page and pageSize already.
func Paginate(records []models.JobRecord, page, pageSize int) models.QueryResult {
	total := len(records)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	items := make([]models.JobRecord, end-start)
	copy(items, records[start:end])

	return models.QueryResult{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
