package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadTimeouts_Defaults(t *testing.T) {
	for _, env := range []string{
		"MSKSTACK_DEPLOY_TIMEOUT", "MSKSTACK_DESTROY_TIMEOUT", "MSKSTACK_DOCTOR_TIMEOUT",
		"MSKSTACK_POLL_INTERVAL", "MSKSTACK_RETRY_MAX_ATTEMPTS", "MSKSTACK_RETRY_INITIAL_DELAY",
	} {
		t.Setenv(env, "")
	}

	got := LoadTimeouts()
	assert.Equal(t, &Timeouts{
		Deploy:            60 * time.Minute,
		Destroy:           60 * time.Minute,
		Doctor:            2 * time.Minute,
		PollInterval:      10 * time.Second,
		RetryMaxAttempts:  5,
		RetryInitialDelay: time.Second,
	}, got)
}

func TestLoadTimeouts_FromEnv(t *testing.T) {
	t.Setenv("MSKSTACK_DEPLOY_TIMEOUT", "90m")
	t.Setenv("MSKSTACK_DOCTOR_TIMEOUT", "30s")
	t.Setenv("MSKSTACK_POLL_INTERVAL", "2s")
	t.Setenv("MSKSTACK_RETRY_MAX_ATTEMPTS", "9")

	got := LoadTimeouts()
	assert.Equal(t, 90*time.Minute, got.Deploy)
	assert.Equal(t, 30*time.Second, got.Doctor)
	assert.Equal(t, 2*time.Second, got.PollInterval)
	assert.Equal(t, 9, got.RetryMaxAttempts)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"unset", "", time.Minute},
		{"valid", "45s", 45 * time.Second},
		{"garbage", "soon", time.Minute},
		{"zero", "0s", time.Minute},
		{"negative", "-5m", time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MSKSTACK_TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, parseDuration("MSKSTACK_TEST_DURATION", time.Minute))
		})
	}
}

func TestParseInt(t *testing.T) {
	t.Setenv("MSKSTACK_TEST_INT", "x")
	assert.Equal(t, 3, parseInt("MSKSTACK_TEST_INT", 3))
	t.Setenv("MSKSTACK_TEST_INT", "12")
	assert.Equal(t, 12, parseInt("MSKSTACK_TEST_INT", 3))
}
