package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "GOPHACCOUNT_"

// dotenvFiles are loaded, when present, before the environment is read.
// godotenv never overrides variables that are already set.
var dotenvFiles = []string{".env"}

// parseEnv overlays GOPHACCOUNT_* environment variables onto config.
// Malformed numbers or durations panic, like a malformed JSON file.
func parseEnv(config *Config) {
	for _, f := range dotenvFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				panic(err)
			}
		}
	}

	envString(&config.HTTPAddr, "HTTP_ADDR")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.LogLevel, "LOG_LEVEL")
	envString(&config.TaskSecret, "TASK_SECRET")
	envString(&config.MailTaskQueue, "MAIL_TASK_QUEUE")
	envString(&config.MailTaskURL, "MAIL_TASK_URL")
	envString(&config.TaskTargetBaseURL, "TASK_TARGET_BASE_URL")
	envString(&config.ActivationBaseURL, "ACTIVATION_BASE_URL")
	envString(&config.MailTransport, "MAIL_TRANSPORT")
	envString(&config.RedisAddr, "REDIS_ADDR")
	envString(&config.RedisPassword, "REDIS_PASSWORD")
	envString(&config.MailStream, "MAIL_STREAM")

	envDuration(&config.TaskTokenValidity, "TASK_TOKEN_VALIDITY")
	envDuration(&config.DispatchInterval, "DISPATCH_INTERVAL")
	envDuration(&config.TaskLeaseDuration, "TASK_LEASE_DURATION")
	envDuration(&config.RetryBaseDelay, "RETRY_BASE_DELAY")
	envDuration(&config.RetryMaxDelay, "RETRY_MAX_DELAY")

	envInt(&config.DispatchBatchSize, "DISPATCH_BATCH_SIZE")
	envInt(&config.TaskMaxAttempts, "TASK_MAX_ATTEMPTS")
	envInt(&config.RedisDB, "REDIS_DB")
}

func envString(dst *string, name string) {
	if v, ok := os.LookupEnv(envPrefix + name); ok && v != "" {
		*dst = v
	}
}

func envDuration(dst *time.Duration, name string) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}

func envInt(dst *int, name string) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(err)
	}
	*dst = n
}
