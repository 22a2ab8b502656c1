package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withDotenv(t *testing.T, files ...string) {
	t.Helper()
	orig := dotenvFiles
	dotenvFiles = files
	t.Cleanup(func() { dotenvFiles = orig })
}

func Test_parseEnv(t *testing.T) {
	withDotenv(t)

	t.Setenv("GOPHACCOUNT_HTTP_ADDR", ":7070")
	t.Setenv("GOPHACCOUNT_MAIL_TRANSPORT", "redis")
	t.Setenv("GOPHACCOUNT_RETRY_MAX_DELAY", "1h")
	t.Setenv("GOPHACCOUNT_DISPATCH_BATCH_SIZE", "25")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, MailTransportRedis, cfg.MailTransport)
	assert.Equal(t, time.Hour, cfg.RetryMaxDelay)
	assert.Equal(t, 25, cfg.DispatchBatchSize)
	assert.Equal(t, "mail", cfg.MailTaskQueue)
}

func Test_parseEnv_Dotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GOPHACCOUNT_MAIL_STREAM=notices\n"), 0o600))
	withDotenv(t, path)
	t.Cleanup(func() { _ = os.Unsetenv("GOPHACCOUNT_MAIL_STREAM") })

	cfg := &Config{}
	parseEnv(cfg)
	assert.Equal(t, "notices", cfg.MailStream)
}

func Test_parseEnv_BadValuesPanic(t *testing.T) {
	withDotenv(t)

	t.Run("duration", func(t *testing.T) {
		t.Setenv("GOPHACCOUNT_DISPATCH_INTERVAL", "often")
		require.Panics(t, func() { parseEnv(&Config{}) })
	})
	t.Run("int", func(t *testing.T) {
		t.Setenv("GOPHACCOUNT_REDIS_DB", "zero")
		require.Panics(t, func() { parseEnv(&Config{}) })
	})
}
