package cache

import "fmt"

func RecordKey(id string) string {
	return fmt.Sprintf("record:%s", id)
}

func RecordsKey() string {
	return "records:all"
}

func StatsKey() string {
	return "stats:summary"
}

// Prefix patterns for invalidation after a mutation.
const (
	RecordsPrefix = "records*"
	StatsPrefix   = "stats*"
)
