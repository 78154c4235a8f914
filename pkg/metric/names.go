package metric

// Metric names shared across packages.
const (
	ApiRequestCount   = "api_request_count"
	ApiRequestLatency = "api_request_latency"

	ExternalApiRequestCount   = "external_api_request_count"
	ExternalApiRequestLatency = "external_api_request_latency"

	CacheHitCount      = "cache_hit_count"
	CacheMissCount     = "cache_miss_count"
	CacheHitRate       = "cache_hit_rate"
	CacheItemCount     = "cache_item_count"
	CacheEvacuateCount = "cache_evacuate_count"
	CacheExpiryCount   = "cache_expiry_count"
)
