package resilience

import (
	"time"
)

// FromRetrySecs builds a deterministic RetryConfig from whole-second config
// values. Non-positive values keep the defaults.
func FromRetrySecs(maxAttempts, initialBackoffSecs, maxBackoffSecs, attemptTimeoutSecs int) RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.JitterFraction = 0
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if initialBackoffSecs > 0 {
		cfg.InitialBackoff = time.Duration(initialBackoffSecs) * time.Second
	}
	if maxBackoffSecs > 0 {
		cfg.MaxBackoff = time.Duration(maxBackoffSecs) * time.Second
	}
	if attemptTimeoutSecs > 0 {
		cfg.AttemptTimeout = time.Duration(attemptTimeoutSecs) * time.Second
	}
	return cfg
}

// FromCircuitConfig converts config values to a CircuitBreakerConfig.
func FromCircuitConfig(failureThreshold, cooldownSecs int) CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig()
	if failureThreshold > 0 {
		cfg.FailureThreshold = failureThreshold
	}
	if cooldownSecs > 0 {
		cfg.Cooldown = time.Duration(cooldownSecs) * time.Second
	}
	return cfg
}
