package config

// RateLimitConfig holds per-client HTTP rate limiting configuration.
type RateLimitConfig struct {
	// RPS is the sustained requests-per-second allowance per client IP (default: 10)
	RPS float64 `mapstructure:"rps" json:"rps"`
	// Burst is the short-term burst allowance per client IP (default: 20)
	Burst int `mapstructure:"burst" json:"burst"`
}

// FetcherConfig holds article fetcher configuration for live help-center crawls.
type FetcherConfig struct {
	// Parallelism is max concurrent requests per domain (default: 2)
	Parallelism int `mapstructure:"parallelism" json:"parallelism"`
	// DelayMs is delay between requests in milliseconds (default: 500)
	DelayMs int `mapstructure:"delay_ms" json:"delay_ms"`
	// TimeoutMs is request timeout in milliseconds (default: 15000)
	TimeoutMs int `mapstructure:"timeout_ms" json:"timeout_ms"`
}
