package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthfin/healthfin/internal/access"
	"github.com/healthfin/healthfin/internal/aggregation"
	"github.com/healthfin/healthfin/internal/dashboard"
	"github.com/healthfin/healthfin/internal/periods"
	"github.com/healthfin/healthfin/internal/records"
	"github.com/healthfin/healthfin/internal/statement"
)

// Services holds the domain services shared by the API, worker and CLI.
type Services struct {
	Periods      periods.Repository
	Records      records.Repository
	Directory    *access.PGDirectory
	Resolver     *access.Resolver
	Engine       *statement.Engine
	Statements   *statement.Service
	Orchestrator *dashboard.Orchestrator
}

// NewServices wires repositories and services on a Postgres pool. The
// observer receives dashboard component timings and may be nil.
func NewServices(pool *pgxpool.Pool, cfg *Config, logger *slog.Logger, observer dashboard.ComponentObserver) (*Services, error) {
	labelsPath := ""
	if cfg != nil {
		labelsPath = cfg.StatementLabelsPath
	}
	labels, err := statement.LoadLabels(labelsPath)
	if err != nil {
		return nil, err
	}

	periodRepo := periods.NewRepository(pool)
	recordRepo := records.NewRepository(pool)
	directory := access.NewPGDirectory(pool)
	resolver := access.NewResolver(directory)

	aggregator := aggregation.NewAggregator(aggregation.NewValueExtractor(logger), logger)
	engine := statement.NewEngine(recordRepo, aggregator, logger)
	statements := statement.NewService(resolver, periodRepo, recordRepo, engine, statement.NewHierarchyBuilder(labels), logger)

	var opts []dashboard.Option
	if observer != nil {
		opts = append(opts, dashboard.WithObserver(observer))
	}
	components := dashboard.NewComponents(recordRepo, engine, logger)
	orchestrator := dashboard.NewOrchestrator(resolver, periodRepo, components.Registry(), logger, opts...)

	return &Services{
		Periods:      periodRepo,
		Records:      recordRepo,
		Directory:    directory,
		Resolver:     resolver,
		Engine:       engine,
		Statements:   statements,
		Orchestrator: orchestrator,
	}, nil
}
