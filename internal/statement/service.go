package statement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/healthfin/healthfin/internal/access"
	"github.com/healthfin/healthfin/internal/periods"
	"github.com/healthfin/healthfin/internal/records"
)

// ErrProjectTypeRequired rejects statements without a program.
var ErrProjectTypeRequired = fmt.Errorf("%w: projectType required for statements", access.ErrInvalidFilter)

// ScopeResolver resolves the facility IDs visible to a user.
type ScopeResolver interface {
	Resolve(ctx context.Context, filter access.ScopeFilter, user access.UserContext) ([]int64, error)
}

// Request describes one statement.
type Request struct {
	Filter access.ScopeFilter
	// EntityType is planning or execution; execution when empty.
	EntityType string
}

// Statement is a rendered statement tree with its context.
type Statement struct {
	Period         periods.Period     `json:"period"`
	ProjectType    string             `json:"projectType"`
	EntityType     string             `json:"entityType"`
	Quarter        int                `json:"quarter,omitempty"`
	Facilities     []records.Facility `json:"facilities"`
	Rows           []ActivityRow      `json:"rows"`
	MissingCatalog []int64            `json:"missingCatalog,omitempty"`
	Computed       ComputedValues     `json:"-"`
	Totals         SectionTotals      `json:"-"`
}

// Service generates statements for a scope.
type Service struct {
	resolver ScopeResolver
	periods  periods.Repository
	records  records.Repository
	engine   *Engine
	builder  *HierarchyBuilder
	logger   *slog.Logger
}

// NewService wires a statement Service.
func NewService(resolver ScopeResolver, periodRepo periods.Repository, recordRepo records.Repository, engine *Engine, builder *HierarchyBuilder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = NewEngine(recordRepo, nil, logger)
	}
	if builder == nil {
		builder = NewHierarchyBuilder(DefaultLabels())
	}
	return &Service{
		resolver: resolver,
		periods:  periodRepo,
		records:  recordRepo,
		engine:   engine,
		builder:  builder,
		logger:   logger,
	}
}

// Generate resolves scope and period, aggregates the entries and builds
// the statement tree.
func (s *Service) Generate(ctx context.Context, req Request, user access.UserContext) (Statement, error) {
	if s == nil || s.resolver == nil || s.records == nil || s.periods == nil {
		return Statement{}, errors.New("statement: service not initialised")
	}
	projectType := strings.TrimSpace(req.Filter.ProjectType)
	if projectType == "" {
		return Statement{}, ErrProjectTypeRequired
	}
	entityType := req.EntityType
	if entityType == "" {
		entityType = records.EntityExecution
	}
	if !records.ValidEntityType(entityType) {
		return Statement{}, fmt.Errorf("%w: %w", access.ErrInvalidFilter, records.ErrUnknownEntityType)
	}
	if err := req.Filter.Validate(); err != nil {
		return Statement{}, err
	}

	filter := access.NarrowScope(req.Filter, user)
	ids, err := s.resolver.Resolve(ctx, filter, user)
	if err != nil {
		return Statement{}, err
	}
	period, err := periods.NewLookup(s.periods).Resolve(ctx, filter.PeriodID)
	if err != nil {
		return Statement{}, err
	}
	return s.Build(ctx, period, ids, projectType, entityType, filter.QuarterNumber())
}

// Build renders a statement for already resolved facilities and period.
func (s *Service) Build(ctx context.Context, period periods.Period, facilityIDs []int64, projectType, entityType string, quarter int) (Statement, error) {
	stmt := Statement{
		Period:      period,
		ProjectType: projectType,
		EntityType:  entityType,
		Quarter:     quarter,
	}
	facilities, err := s.records.Facilities(ctx, facilityIDs)
	if err != nil {
		return Statement{}, fmt.Errorf("load facilities: %w", err)
	}
	stmt.Facilities = facilities

	entries, err := s.records.FormEntries(ctx, records.EntryQuery{
		FacilityIDs: facilityIDs,
		PeriodID:    period.ID,
		EntityType:  entityType,
		ProjectType: projectType,
	})
	if err != nil {
		return Statement{}, fmt.Errorf("load form entries: %w", err)
	}

	res, err := s.engine.Run(ctx, projectType, entityType, facilities, entries)
	if err != nil {
		return Statement{}, err
	}
	ids := make([]int64, 0, len(facilities))
	for _, f := range facilities {
		ids = append(ids, f.ID)
	}
	stmt.Rows = s.builder.Build(HierarchyInput{
		Data:        res.Data,
		Computed:    res.Computed,
		Activities:  res.Activities,
		FacilityIDs: ids,
		Quarter:     quarter,
	})
	stmt.MissingCatalog = res.MissingCatalog
	stmt.Computed = res.Computed
	stmt.Totals = res.Totals

	s.logger.Debug("statement built",
		slog.String("project_type", projectType),
		slog.String("entity_type", entityType),
		slog.Int64("period_id", period.ID),
		slog.Int("facilities", len(facilities)),
		slog.Int("entries", len(entries)))
	return stmt, nil
}
