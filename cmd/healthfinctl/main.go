package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/healthfin/healthfin/cmd/healthfinctl/cli"
	"github.com/healthfin/healthfin/internal/app"
	jobmetrics "github.com/healthfin/healthfin/internal/jobs"
	"github.com/healthfin/healthfin/internal/platform/db"
	"github.com/healthfin/healthfin/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(cli.Deps{
		Config: app.LoadConfig,
		Statements: func(ctx context.Context) (cli.Generator, func(), error) {
			services, cleanup, err := openServices(ctx)
			if err != nil {
				return nil, nil, err
			}
			return services.Statements, cleanup, nil
		},
		Reconciler: func(ctx context.Context) (*jobs.StatementReconcileJob, func(), error) {
			services, cleanup, err := openServices(ctx)
			if err != nil {
				return nil, nil, err
			}
			logger := slog.Default()
			job := jobs.NewStatementReconcileJob(services.Statements, services.Directory, services.Periods, logger, jobmetrics.NewMetrics(nil))
			return job, cleanup, nil
		},
		Jobs: func() (*cli.JobsCLI, error) {
			cfg, err := app.LoadConfig()
			if err != nil {
				return nil, err
			}
			return cli.NewJobsCLI(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}), nil
		},
	})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openServices(ctx context.Context) (*app.Services, func(), error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{ConnectRetries: cfg.PGConnectRetries, Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	services, err := app.NewServices(pool, cfg, logger, nil)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return services, pool.Close, nil
}
