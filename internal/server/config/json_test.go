package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("overlays present keys only", func(t *testing.T) {
		path := writeTempJSON(t, map[string]any{
			"http_addr":           ":9000",
			"database_dsn":        "postgres://x",
			"task_secret":         "s3cr3t",
			"dispatch_interval":   "5s",
			"task_lease_duration": 1000000000,
			"task_max_attempts":   2,
			"mail_transport":      "redis",
			"redis_db":            4,
		})
		os.Args = []string{"testbin", "-config", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, ":9000", cfg.HTTPAddr)
		assert.Equal(t, "postgres://x", cfg.DatabaseDSN)
		assert.Equal(t, "s3cr3t", cfg.TaskSecret)
		assert.Equal(t, 5*time.Second, cfg.DispatchInterval)
		assert.Equal(t, time.Second, cfg.TaskLeaseDuration)
		assert.Equal(t, 2, cfg.TaskMaxAttempts)
		assert.Equal(t, MailTransportRedis, cfg.MailTransport)
		assert.Equal(t, 4, cfg.RedisDB)

		assert.Equal(t, "mail", cfg.MailTaskQueue, "untouched key keeps default")
		assert.Equal(t, 10, cfg.DispatchBatchSize)
	})

	t.Run("no config flag leaves config alone", func(t *testing.T) {
		os.Args = []string{"testbin"}
		cfg := &Config{HTTPAddr: "defaults:1234"}
		parseJson(cfg)
		assert.Equal(t, "defaults:1234", cfg.HTTPAddr)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ nope`), 0o600))
		os.Args = []string{"testbin", "-c", bad}
		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(t.TempDir(), "absent.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
