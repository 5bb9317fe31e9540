package aggregation

import (
	"context"
	"log/slog"
	"sort"
)

// AggregatedData maps activity code → facility ID → values.
type AggregatedData map[string]map[int64]QuarterlyValues

// Values returns the values of code for a facility, zero when absent.
func (d AggregatedData) Values(code string, facilityID int64) QuarterlyValues {
	if byFacility, ok := d[code]; ok {
		return byFacility[facilityID]
	}
	return QuarterlyValues{}
}

// FacilityRecord is one facility's normalised form data.
type FacilityRecord struct {
	FacilityID   int64
	FacilityType string
	Activities   ActivityIndex
}

// MultiResult is the outcome of a mixed facility-type aggregation.
type MultiResult struct {
	Data AggregatedData
	// MissingCatalog lists facilities whose type has no registered catalog;
	// they contribute zero rows.
	MissingCatalog []int64
}

// Aggregator produces per-facility quarterly values for a catalog.
type Aggregator struct {
	extractor *ValueExtractor
	logger    *slog.Logger
}

// NewAggregator wires an Aggregator. A nil extractor gets a default one.
func NewAggregator(extractor *ValueExtractor, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if extractor == nil {
		extractor = NewValueExtractor(logger)
	}
	return &Aggregator{extractor: extractor, logger: logger}
}

// Extractor exposes the value extractor used by the aggregator.
func (a *Aggregator) Extractor() *ValueExtractor {
	return a.extractor
}

// AggregateSingle aggregates records that all share one catalog, matching
// codes exactly or case-insensitively against each facility record.
func (a *Aggregator) AggregateSingle(ctx context.Context, activities []UnifiedActivity, records []FacilityRecord) (AggregatedData, error) {
	data := a.newAggregatedData(activities)
	seen := make(map[int64]struct{}, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if a.skipDuplicate(seen, rec.FacilityID) {
			continue
		}
		available := rec.Activities.Codes()
		for _, act := range activities {
			values := QuarterlyValues{}
			if code, ok := MatchActivityCode(act.Code, available); ok {
				values = a.extractor.Extract(rec.Activities, code, extractOptions(act.ActivityDefinition))
			}
			data[act.Code][rec.FacilityID] = values
		}
	}
	return data, nil
}

// AggregateMulti aggregates records of mixed facility types. For every
// unified activity the facility's own catalog definition with the same
// positional key supplies the code to read.
func (a *Aggregator) AggregateMulti(ctx context.Context, activities []UnifiedActivity, catalogs map[string][]ActivityDefinition, records []FacilityRecord) (MultiResult, error) {
	result := MultiResult{Data: a.newAggregatedData(activities)}
	seen := make(map[int64]struct{}, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return MultiResult{}, err
		}
		if a.skipDuplicate(seen, rec.FacilityID) {
			continue
		}
		catalog, ok := catalogs[rec.FacilityType]
		if !ok {
			a.logger.Warn("no catalog for facility type, using zero values",
				slog.Int64("facility_id", rec.FacilityID),
				slog.String("facility_type", rec.FacilityType))
			result.MissingCatalog = append(result.MissingCatalog, rec.FacilityID)
			for _, act := range activities {
				result.Data[act.Code][rec.FacilityID] = QuarterlyValues{}
			}
			continue
		}
		available := rec.Activities.Codes()
		for _, act := range activities {
			values := QuarterlyValues{}
			if def, found := findByKey(catalog, act.Key()); found {
				if code, ok := MatchActivityCode(def.Code, available); ok {
					values = a.extractor.Extract(rec.Activities, code, extractOptions(def))
				}
			}
			result.Data[act.Code][rec.FacilityID] = values
		}
	}
	sort.Slice(result.MissingCatalog, func(i, j int) bool { return result.MissingCatalog[i] < result.MissingCatalog[j] })
	return result, nil
}

// RecordTotal sums every activity of a record, used for planning budgets
// which carry no section structure.
func (a *Aggregator) RecordTotal(idx ActivityIndex) QuarterlyValues {
	values := make([]QuarterlyValues, 0, len(idx))
	for _, code := range idx.Codes() {
		values = append(values, a.extractor.Extract(idx, code, ExtractOptions{}))
	}
	return SumQuarterlyValues(values)
}

func (a *Aggregator) skipDuplicate(seen map[int64]struct{}, facilityID int64) bool {
	if _, dup := seen[facilityID]; dup {
		a.logger.Warn("duplicate facility record ignored", slog.Int64("facility_id", facilityID))
		return true
	}
	seen[facilityID] = struct{}{}
	return false
}

// newAggregatedData allocates one row per activity code. Activities sharing
// a code share a row; that is logged because their values overwrite each
// other.
func (a *Aggregator) newAggregatedData(activities []UnifiedActivity) AggregatedData {
	data := make(AggregatedData, len(activities))
	for _, act := range activities {
		if _, ok := data[act.Code]; ok {
			a.logger.Warn("duplicate activity code in catalog",
				slog.String("code", act.Code),
				slog.String("category", act.Category))
			continue
		}
		data[act.Code] = make(map[int64]QuarterlyValues)
	}
	return data
}

func extractOptions(def ActivityDefinition) ExtractOptions {
	return ExtractOptions{Name: def.Name, Stock: IsStockCategory(def.Category)}
}
