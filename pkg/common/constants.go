package common

const (
	// Rate limiter operation kinds.
	OperationRead    = "read"
	OperationRefresh = "refresh"

	// Cache key prefixes.
	CacheKeyNewsPrefix  = "news"
	CacheKeyStatsPrefix = "stats"
)
