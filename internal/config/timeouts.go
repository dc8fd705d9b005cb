package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds the limits of long-running CLI operations.
// These values can be customized via environment variables.
type Timeouts struct {
	Deploy            time.Duration // Timeout for stack create and update
	Destroy           time.Duration // Timeout for stack deletion
	Doctor            time.Duration // Timeout for cluster health checks
	PollInterval      time.Duration // Interval between stack event polls
	RetryMaxAttempts  int           // Maximum number of retry attempts
	RetryInitialDelay time.Duration // Initial delay between retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - MSKSTACK_DEPLOY_TIMEOUT (default: 60m)
//   - MSKSTACK_DESTROY_TIMEOUT (default: 60m)
//   - MSKSTACK_DOCTOR_TIMEOUT (default: 2m)
//   - MSKSTACK_POLL_INTERVAL (default: 10s)
//   - MSKSTACK_RETRY_MAX_ATTEMPTS (default: 5)
//   - MSKSTACK_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Deploy:            parseDuration("MSKSTACK_DEPLOY_TIMEOUT", 60*time.Minute),
		Destroy:           parseDuration("MSKSTACK_DESTROY_TIMEOUT", 60*time.Minute),
		Doctor:            parseDuration("MSKSTACK_DOCTOR_TIMEOUT", 2*time.Minute),
		PollInterval:      parseDuration("MSKSTACK_POLL_INTERVAL", 10*time.Second),
		RetryMaxAttempts:  parseInt("MSKSTACK_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("MSKSTACK_RETRY_INITIAL_DELAY", 1*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set, invalid or not positive, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
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
