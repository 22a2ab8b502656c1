package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/gophaccount/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string    HTTP bind address (e.g., ":8080")
//	-d string    PostgreSQL DSN
//	-s string    task token HMAC secret
//	-q string    activation-notice queue name
//	-t string    base URL the dispatcher delivers tasks to
//	-b string    activation link base URL
//	-m string    mail transport ("log" or "redis")
//	-r string    Redis address
//	-l string    log level
//	-n int       max delivery attempts per task
//	-i duration  dispatcher poll interval
//
// Only these flags are taken from os.Args (see flagx.FilterArgs), so
// accountctl can keep its own subcommands and flags on the same line.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-q", "-t", "-b", "-m", "-r", "-l", "-n", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.TaskSecret, "s", config.TaskSecret, "task token secret")
	fs.StringVar(&config.MailTaskQueue, "q", config.MailTaskQueue, "activation notice queue")
	fs.StringVar(&config.TaskTargetBaseURL, "t", config.TaskTargetBaseURL, "task target base URL")
	fs.StringVar(&config.ActivationBaseURL, "b", config.ActivationBaseURL, "activation link base URL")
	fs.StringVar(&config.MailTransport, "m", config.MailTransport, "mail transport (log|redis)")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.IntVar(&config.TaskMaxAttempts, "n", config.TaskMaxAttempts, "max task delivery attempts")
	fs.DurationVar(&config.DispatchInterval, "i", config.DispatchInterval, "dispatcher poll interval")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
