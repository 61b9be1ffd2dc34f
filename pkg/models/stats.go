package models

// RankingCounts buckets records by ranking level.
type RankingCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Stats summarizes the full record set. ByStatus is open-ended: any status
// value present in the data gets a bucket, not just the known enumeration.
type Stats struct {
	Total                  int            `json:"total"`
	AverageMatchPercentage int            `json:"average_match_percentage"`
	ByRankingLevel         RankingCounts  `json:"by_ranking_level"`
	ByStatus               map[string]int `json:"by_status"`
	Applied                int            `json:"applied"`
}
