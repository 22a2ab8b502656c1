package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		name        string
		args        []string
		expected    *Config
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:9090", "-d", "db", "-s", "secret", "-q", "mailq",
				"-t", "http://worker:8080", "-b", "https://example.com/activate/",
				"-m", "redis", "-r", "redis:6379", "-l", "debug", "-n", "3", "-i", "250ms",
			},
			expected: &Config{
				HTTPAddr:          "127.0.0.1:9090",
				DatabaseDSN:       "db",
				TaskSecret:        "secret",
				MailTaskQueue:     "mailq",
				TaskTargetBaseURL: "http://worker:8080",
				ActivationBaseURL: "https://example.com/activate/",
				MailTransport:     "redis",
				RedisAddr:         "redis:6379",
				LogLevel:          "debug",
				TaskMaxAttempts:   3,
				DispatchInterval:  250 * time.Millisecond,
			},
		},
		{
			name:     "foreign flags ignored",
			args:     []string{"cmd", "register", "alice", "-role", "ROLE_ADMIN", "-a", ":7000"},
			expected: &Config{HTTPAddr: ":7000"},
		},
		{
			name:        "bad int panics",
			args:        []string{"cmd", "-n", "many"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
