package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophaccount/internal/flagx"
	"github.com/dmitrijs2005/gophaccount/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "30s" and integer nanoseconds are accepted. Absent
// keys leave the current value untouched.
type JsonConfig struct {
	HTTPAddr          string          `json:"http_addr"`
	DatabaseDSN       string          `json:"database_dsn"`
	LogLevel          string          `json:"log_level"`
	TaskSecret        string          `json:"task_secret"`
	TaskTokenValidity *timex.Duration `json:"task_token_validity"`
	MailTaskQueue     string          `json:"mail_task_queue"`
	MailTaskURL       string          `json:"mail_task_url"`
	TaskTargetBaseURL string          `json:"task_target_base_url"`
	DispatchInterval  *timex.Duration `json:"dispatch_interval"`
	DispatchBatchSize *int            `json:"dispatch_batch_size"`
	TaskLeaseDuration *timex.Duration `json:"task_lease_duration"`
	TaskMaxAttempts   *int            `json:"task_max_attempts"`
	RetryBaseDelay    *timex.Duration `json:"retry_base_delay"`
	RetryMaxDelay     *timex.Duration `json:"retry_max_delay"`
	ActivationBaseURL string          `json:"activation_base_url"`
	MailTransport     string          `json:"mail_transport"`
	RedisAddr         string          `json:"redis_addr"`
	RedisPassword     string          `json:"redis_password"`
	RedisDB           *int            `json:"redis_db"`
	MailStream        string          `json:"mail_stream"`
}

// parseJson overlays the file named by -c/-config onto config. Without the
// flag nothing happens; an unreadable or malformed file panics, since the
// server cannot start with a configuration it was explicitly pointed at.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.TaskSecret, c.TaskSecret)
	setString(&config.MailTaskQueue, c.MailTaskQueue)
	setString(&config.MailTaskURL, c.MailTaskURL)
	setString(&config.TaskTargetBaseURL, c.TaskTargetBaseURL)
	setString(&config.ActivationBaseURL, c.ActivationBaseURL)
	setString(&config.MailTransport, c.MailTransport)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setString(&config.MailStream, c.MailStream)

	if c.TaskTokenValidity != nil {
		config.TaskTokenValidity = c.TaskTokenValidity.Duration
	}
	if c.DispatchInterval != nil {
		config.DispatchInterval = c.DispatchInterval.Duration
	}
	if c.TaskLeaseDuration != nil {
		config.TaskLeaseDuration = c.TaskLeaseDuration.Duration
	}
	if c.RetryBaseDelay != nil {
		config.RetryBaseDelay = c.RetryBaseDelay.Duration
	}
	if c.RetryMaxDelay != nil {
		config.RetryMaxDelay = c.RetryMaxDelay.Duration
	}
	if c.DispatchBatchSize != nil {
		config.DispatchBatchSize = *c.DispatchBatchSize
	}
	if c.TaskMaxAttempts != nil {
		config.TaskMaxAttempts = *c.TaskMaxAttempts
	}
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
