package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/dmitrijs2005/gophaccount/internal/accountctl"
	"github.com/dmitrijs2005/gophaccount/internal/flagx"
	"github.com/dmitrijs2005/gophaccount/internal/logging"
	"github.com/dmitrijs2005/gophaccount/internal/server/config"
	"github.com/dmitrijs2005/gophaccount/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophaccount/internal/server/services"
	"github.com/dmitrijs2005/gophaccount/internal/server/taskqueue"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)

	db, err := repomanager.OpenPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close()

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migrations error: %v", err)
	}

	queue := taskqueue.NewQueue(cfg.MailTaskQueue, m)
	accounts := services.NewAccountService(db, m, queue, cfg, logger)
	pending := func(ctx context.Context) (int, error) { return queue.Pending(ctx, db) }

	app := accountctl.NewApp(accounts, services.NewAuthenticator(accounts, logger), pending, os.Stdout)

	args := flagx.Positional(os.Args[1:], accountctl.ValueFlags)
	if err := app.Run(ctx, args); err != nil {
		if !errors.Is(err, accountctl.ErrUsage) {
			log.Printf("%v", err)
		}
		db.Close()
		os.Exit(1)
	}

}
