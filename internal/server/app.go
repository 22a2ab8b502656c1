// Package server wires the account service together: storage, the task
// queue and its dispatcher, the mail transport and the HTTP API.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophaccount/internal/logging"
	"github.com/dmitrijs2005/gophaccount/internal/server/config"
	"github.com/dmitrijs2005/gophaccount/internal/server/httpapi"
	"github.com/dmitrijs2005/gophaccount/internal/server/mail"
	"github.com/dmitrijs2005/gophaccount/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophaccount/internal/server/services"
	"github.com/dmitrijs2005/gophaccount/internal/server/taskqueue"
	"github.com/redis/go-redis/v9"
)

// mailStreamMaxLen bounds the Redis stream of outgoing notices.
const mailStreamMaxLen = 100_000

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	closers    []func() error
	server     *httpapi.Server
	dispatcher *taskqueue.Dispatcher
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	sender, closeSender, err := newMailSender(ctx, c, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mail init error: %w", err)
	}

	queue := taskqueue.NewQueue(c.MailTaskQueue, m)
	accounts := services.NewAccountService(db, m, queue, c, logger)

	handlers := &httpapi.Handlers{
		Accounts: accounts,
		Auth:     services.NewAuthenticator(accounts, logger),
		Notifier: services.NewNotificationTrigger(accounts, sender, c, logger),
		DB:       db,
		Logger:   logger,
	}
	srv := httpapi.NewServer(c.HTTPAddr, &httpapi.Deps{
		Handlers:   handlers,
		TaskSecret: []byte(c.TaskSecret),
		TaskQueue:  c.MailTaskQueue,
		TaskURL:    c.MailTaskURL,
	}, logger)

	return &App{
		config:     c,
		logger:     logger,
		db:         db,
		closers:    []func() error{closeSender, db.Close},
		server:     srv,
		dispatcher: taskqueue.NewDispatcher(db, m, c, logger),
	}, nil
}

// newMailSender builds the configured mail transport and the function that
// releases it.
func newMailSender(ctx context.Context, c *config.Config, l logging.Logger) (mail.Sender, func() error, error) {
	switch c.MailTransport {
	case config.MailTransportLog:
		return mail.NewLogSender(l), func() error { return nil }, nil
	case config.MailTransportRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", c.RedisAddr, err)
		}
		return mail.NewRedisStreamSender(client, c.MailStream, mailStreamMaxLen), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown mail transport %q", c.MailTransport)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startDispatcher(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.dispatcher.Run(ctx); err != nil {
		app.logger.Error(ctx, "dispatcher failed", "error", err)
		cancelFunc()
	}
}

// Run blocks until a termination signal arrives or one of the components
// fails, then releases the database and mail connections.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startDispatcher(ctx, cancelFunc)
	}()

	wg.Wait()

	for _, closeFn := range app.closers {
		if err := closeFn(); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	app.logger.Info(context.Background(), "App stopped")
}
