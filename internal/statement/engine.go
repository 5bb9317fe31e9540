package statement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/healthfin/healthfin/internal/aggregation"
	"github.com/healthfin/healthfin/internal/records"
)

// CatalogSource loads activity catalogs.
type CatalogSource interface {
	Catalog(ctx context.Context, projectType, facilityType, entityType string) ([]aggregation.ActivityDefinition, error)
}

// Result is the aggregated, computed form of one program's entries.
type Result struct {
	Activities     []aggregation.UnifiedActivity
	Data           aggregation.AggregatedData
	Computed       ComputedValues
	Totals         SectionTotals
	MissingCatalog []int64
}

// Engine runs catalog loading, aggregation and computation for a set of
// facilities and their entries.
type Engine struct {
	catalogs   CatalogSource
	aggregator *aggregation.Aggregator
	logger     *slog.Logger
}

// NewEngine wires an Engine.
func NewEngine(catalogs CatalogSource, aggregator *aggregation.Aggregator, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if aggregator == nil {
		aggregator = aggregation.NewAggregator(nil, logger)
	}
	return &Engine{catalogs: catalogs, aggregator: aggregator, logger: logger}
}

// Aggregator exposes the underlying aggregator.
func (e *Engine) Aggregator() *aggregation.Aggregator {
	return e.aggregator
}

// Run aggregates entries of one program. A single facility type uses its
// catalog directly; mixed facility types go through catalog unification.
func (e *Engine) Run(ctx context.Context, projectType, entityType string, facilities []records.Facility, entries []records.FormEntry) (Result, error) {
	facilityTypes := distinctFacilityTypes(facilities)
	catalogs := make(map[string][]aggregation.ActivityDefinition, len(facilityTypes))
	for _, ft := range facilityTypes {
		defs, err := e.catalogs.Catalog(ctx, projectType, ft, entityType)
		if err != nil {
			if errors.Is(err, records.ErrCatalogNotFound) {
				e.logger.Warn("no active catalog for facility type",
					slog.String("project_type", projectType),
					slog.String("facility_type", ft),
					slog.String("entity_type", entityType))
				continue
			}
			return Result{}, fmt.Errorf("load catalog %s/%s: %w", projectType, ft, err)
		}
		catalogs[ft] = defs
	}

	recs := records.FacilityRecords(entries, facilities, e.logger)
	var res Result
	if len(facilityTypes) == 1 && len(catalogs) == 1 {
		ft := facilityTypes[0]
		res.Activities = aggregation.Unify(ft, catalogs[ft])
		data, err := e.aggregator.AggregateSingle(ctx, res.Activities, recs)
		if err != nil {
			return Result{}, err
		}
		res.Data = data
	} else {
		res.Activities = aggregation.UnifyCatalogs(catalogs)
		multi, err := e.aggregator.AggregateMulti(ctx, res.Activities, catalogs, recs)
		if err != nil {
			return Result{}, err
		}
		res.Data = multi.Data
		res.MissingCatalog = multi.MissingCatalog
	}

	ids := make([]int64, 0, len(facilities))
	for _, f := range facilities {
		ids = append(ids, f.ID)
	}
	fillFacilities(res.Data, ids)
	res.Totals = CalculateSectionTotals(res.Data, res.Activities)
	res.Computed = computeFromTotals(res.Totals, FacilityIDs(res.Data))
	return res, nil
}

// fillFacilities adds zero rows for facilities without entries so every
// facility gets a column.
func fillFacilities(data aggregation.AggregatedData, ids []int64) {
	for _, byFacility := range data {
		for _, id := range ids {
			if _, ok := byFacility[id]; !ok {
				byFacility[id] = aggregation.QuarterlyValues{}
			}
		}
	}
}

func distinctFacilityTypes(facilities []records.Facility) []string {
	seen := make(map[string]struct{})
	for _, f := range facilities {
		seen[f.FacilityType] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for ft := range seen {
		out = append(out, ft)
	}
	sort.Strings(out)
	return out
}
