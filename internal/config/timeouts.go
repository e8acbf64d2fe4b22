package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable operation timeout values.
// These values can be customized via environment variables.
type Timeouts struct {
	Deploy            time.Duration // Ceiling for one component apply, including retries
	Probe             time.Duration // Ceiling for one readiness probe wait
	Issuance          time.Duration // Ceiling for one certificate issuance attempt
	HealthCheck       time.Duration // Ceiling for one health check round
	ToolInvoke        time.Duration // Ceiling for one external tool invocation
	RetryMaxAttempts  int           // Maximum number of retry attempts
	RetryInitialDelay time.Duration // Initial delay between retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - HEARTH_TIMEOUT_DEPLOY (default: 10m)
//   - HEARTH_TIMEOUT_PROBE (default: 5m)
//   - HEARTH_TIMEOUT_ISSUANCE (default: 2m)
//   - HEARTH_TIMEOUT_HEALTH (default: 30s)
//   - HEARTH_TIMEOUT_TOOL (default: 5m)
//   - HEARTH_RETRY_MAX_ATTEMPTS (default: 3)
//   - HEARTH_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Deploy:            parseDuration("HEARTH_TIMEOUT_DEPLOY", 10*time.Minute),
		Probe:             parseDuration("HEARTH_TIMEOUT_PROBE", 5*time.Minute),
		Issuance:          parseDuration("HEARTH_TIMEOUT_ISSUANCE", 2*time.Minute),
		HealthCheck:       parseDuration("HEARTH_TIMEOUT_HEALTH", 30*time.Second),
		ToolInvoke:        parseDuration("HEARTH_TIMEOUT_TOOL", 5*time.Minute),
		RetryMaxAttempts:  parseInt("HEARTH_RETRY_MAX_ATTEMPTS", 3),
		RetryInitialDelay: parseDuration("HEARTH_RETRY_INITIAL_DELAY", 1*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
