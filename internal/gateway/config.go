package gateway

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AgentProfile describes how the gateway treats calls from one caller class.
type AgentProfile struct {
	// Timeout is the per-attempt deadline against a single backend.
	Timeout time.Duration

	// Critical callers (marking) never fall back to a secondary backend:
	// a silently degraded mark is worse than an explicit failure the
	// caller can surface as "try again / switch provider".
	Critical bool

	// CacheEligible callers have successful responses written to the
	// cache when the request carries a CacheKey.
	CacheEligible bool
}

// RetryConfig configures per-backend retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// BreakerConfig configures the per-backend circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	FailureThreshold int

	// Cooldown is how long an open circuit waits before admitting a
	// half-open probe.
	Cooldown time.Duration
}

// Config holds all gateway configuration.
type Config struct {
	// Backends is the fixed priority list (primary first). The gateway
	// never reorders it; only circuit state decides whether an entry is
	// skipped.
	Backends []string

	// Agents maps agent kind to its profile. Unknown kinds are rejected.
	Agents map[string]AgentProfile

	Retry   RetryConfig
	Breaker BreakerConfig

	// CacheTTL is how long successful responses stay servable from cache.
	CacheTTL time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backends: []string{"anthropic", "openai", "gemini"},
		Agents: map[string]AgentProfile{
			"marker":  {Timeout: 10 * time.Second, Critical: true},
			"teacher": {Timeout: 10 * time.Second, CacheEligible: true},
			"coach":   {Timeout: 5 * time.Second, CacheEligible: true},
			"planner": {Timeout: 10 * time.Second, CacheEligible: true},
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     8 * time.Second,
			Multiplier:  2.0,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			Cooldown:         60 * time.Second,
		},
		CacheTTL: 7 * 24 * time.Hour,
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("STUDYFLOW_BACKENDS"); v != "" {
		var backends []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				backends = append(backends, b)
			}
		}
		if len(backends) > 0 {
			cfg.Backends = backends
		}
	}

	if v := os.Getenv("STUDYFLOW_RETRY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Retry.MaxAttempts = n
		}
	}
	if v := os.Getenv("STUDYFLOW_BREAKER_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Breaker.FailureThreshold = n
		}
	}
	if v := os.Getenv("STUDYFLOW_BREAKER_COOLDOWN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Breaker.Cooldown = d
		}
	}
	if v := os.Getenv("STUDYFLOW_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CacheTTL = d
		}
	}

	return cfg
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if len(c.Backends) == 0 {
		return fmt.Errorf("at least one backend is required")
	}
	if len(c.Agents) == 0 {
		return fmt.Errorf("at least one agent profile is required")
	}
	for kind, p := range c.Agents {
		if p.Timeout <= 0 {
			return fmt.Errorf("agent %q: timeout must be positive", kind)
		}
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1")
	}
	if c.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("breaker failure threshold must be at least 1")
	}
	return nil
}
