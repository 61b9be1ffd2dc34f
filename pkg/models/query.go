package models

// Pagination bounds enforced by query normalization.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filters narrows a query. Dimensions combine with AND; values inside a
// dimension combine with OR. An empty dimension passes every record.
type Filters struct {
	Status             []string `json:"status,omitempty"`
	MinMatchPercentage *int     `json:"minMatchPercentage,omitempty"`
	RankingLevel       []string `json:"rankingLevel,omitempty"`
}

// QueryOptions is a request-scoped value, never persisted.
type QueryOptions struct {
	Filters   Filters `json:"filters"`
	Search    string  `json:"search,omitempty"`
	SortBy    string  `json:"sortBy,omitempty"`
	SortOrder string  `json:"sortOrder,omitempty"`
	Page      int     `json:"page,omitempty"`
	PageSize  int     `json:"pageSize,omitempty"`
}

// QueryResult is one page of matches plus the pre-pagination totals.
type QueryResult struct {
	Items      []JobRecord `json:"items"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}
