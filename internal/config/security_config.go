package config

import "time"

type SecurityConfig interface {
	GetEnableRateLimiting() bool
	GetLoginRateInterval() time.Duration
	GetLoginRateBurst() int
}

type Security struct {
	values *Values
}

var _ SecurityConfig = Security{}

func (Security) GetEnableRateLimiting() bool {
	return GetEnv("FIDASH_RATE_LIMIT", "on") != "off"
}

// GetLoginRateInterval is the refill interval of the acquisition start limiter.
func (Security) GetLoginRateInterval() time.Duration {
	return 5 * time.Second
}

func (Security) GetLoginRateBurst() int {
	return 3
}
