package configs

import "github.com/spf13/viper"

// 检索后端熔断的默认值.
const (
	DefaultCBEnabled           = false
	DefaultCBFailureRate       = 0.5
	DefaultCBMinRequests       = 20
	DefaultCBIntervalSeconds   = 60
	DefaultCBTimeoutSeconds    = 30
	DefaultCBMaxRequestsInHalf = 5
)

// CircuitBreakerConfig 检索后端持续不可用（503）时的熔断参数.
type CircuitBreakerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// FailureRate 窗口内 5xx 占比达到该值即熔断.
	FailureRate     float64 `mapstructure:"failure_rate"     rule:"ratio"`
	MinRequests     uint32  `mapstructure:"min_requests"`
	IntervalSeconds int     `mapstructure:"interval_seconds" rule:"min=0"`
	// TimeoutSeconds 熔断后多久进入半开.
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"      rule:"min=1"`
	MaxRequestsInHalf uint32 `mapstructure:"max_requests_in_half" rule:"min=1"`
}

func (c *CircuitBreakerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("circuit_breaker.enabled", DefaultCBEnabled)
	v.SetDefault("circuit_breaker.failure_rate", DefaultCBFailureRate)
	v.SetDefault("circuit_breaker.min_requests", DefaultCBMinRequests)
	v.SetDefault("circuit_breaker.interval_seconds", DefaultCBIntervalSeconds)
	v.SetDefault("circuit_breaker.timeout_seconds", DefaultCBTimeoutSeconds)
	v.SetDefault("circuit_breaker.max_requests_in_half", DefaultCBMaxRequestsInHalf)
}
