package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/healthfin/healthfin/internal/aggregation"
	"github.com/healthfin/healthfin/internal/records"
	"github.com/healthfin/healthfin/internal/statement"
)

var hundred = decimal.NewFromInt(100)

// Components implements the built-in dashboard blocks on top of the
// statement engine.
type Components struct {
	records records.Repository
	engine  *statement.Engine
	logger  *slog.Logger
}

// NewComponents wires the component set.
func NewComponents(repo records.Repository, engine *statement.Engine, logger *slog.Logger) *Components {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = statement.NewEngine(repo, nil, logger)
	}
	return &Components{records: repo, engine: engine, logger: logger}
}

// Registry maps component names to their implementation.
func (c *Components) Registry() map[string]Component {
	return map[string]Component{
		ComponentMetrics:             c.Metrics,
		ComponentProgramDistribution: c.ProgramDistribution,
		ComponentBudgetByDistrict:    c.BudgetByDistrict,
		ComponentBudgetByFacility:    c.BudgetByFacility,
		ComponentProvinceApprovals:   c.ProvinceApprovals,
		ComponentDistrictApprovals:   c.DistrictApprovals,
		ComponentTasks:               c.Tasks,
	}
}

// Metrics reports allocated, spent and utilisation across the scope.
func (c *Components) Metrics(ctx context.Context, req Request) (any, error) {
	snap, err := c.budget(ctx, req)
	if err != nil {
		return nil, err
	}
	allocated, spent := decimal.Zero, decimal.Zero
	for _, f := range snap.facilities {
		allocated = allocated.Add(snap.allocated[f.ID])
		spent = spent.Add(snap.spent[f.ID])
	}
	return Metrics{
		TotalAllocated:        allocated,
		TotalSpent:            spent,
		Remaining:             allocated.Sub(spent),
		UtilizationPercentage: percentage(spent, allocated),
		FacilityCount:         len(snap.facilities),
		Period:                req.Period,
	}, nil
}

// ProgramDistribution splits the allocated budget per program.
func (c *Components) ProgramDistribution(ctx context.Context, req Request) (any, error) {
	snap, err := c.budget(ctx, req)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, v := range snap.byProgram {
		total = total.Add(v)
	}
	shares := make([]ProgramShare, 0, len(snap.byProgram))
	for program, allocated := range snap.byProgram {
		shares = append(shares, ProgramShare{
			ProjectType: program,
			Allocated:   allocated,
			Percentage:  percentage(allocated, total),
		})
	}
	sort.Slice(shares, func(i, j int) bool { return shares[i].ProjectType < shares[j].ProjectType })
	return shares, nil
}

// BudgetByDistrict groups allocated and spent per district.
func (c *Components) BudgetByDistrict(ctx context.Context, req Request) (any, error) {
	snap, err := c.budget(ctx, req)
	if err != nil {
		return nil, err
	}
	lines := make(map[int64]*BudgetLine)
	for _, f := range snap.facilities {
		line, ok := lines[f.DistrictID]
		if !ok {
			line = &BudgetLine{ID: f.DistrictID, Name: f.DistrictName}
			lines[f.DistrictID] = line
		}
		line.Allocated = line.Allocated.Add(snap.allocated[f.ID])
		line.Spent = line.Spent.Add(snap.spent[f.ID])
	}
	out := make([]BudgetLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, finishLine(*line))
	}
	sortLines(out)
	return out, nil
}

// BudgetByFacility lists allocated and spent per facility.
func (c *Components) BudgetByFacility(ctx context.Context, req Request) (any, error) {
	snap, err := c.budget(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make([]BudgetLine, 0, len(snap.facilities))
	for _, f := range snap.facilities {
		out = append(out, finishLine(BudgetLine{
			ID:        f.ID,
			Name:      f.Name,
			Allocated: snap.allocated[f.ID],
			Spent:     snap.spent[f.ID],
		}))
	}
	sortLines(out)
	return out, nil
}

// ProvinceApprovals counts planning approval statuses per district.
func (c *Components) ProvinceApprovals(ctx context.Context, req Request) (any, error) {
	return c.approvals(ctx, req, func(f records.Facility) (int64, string) { return f.DistrictID, f.DistrictName })
}

// DistrictApprovals counts planning approval statuses per facility.
func (c *Components) DistrictApprovals(ctx context.Context, req Request) (any, error) {
	return c.approvals(ctx, req, func(f records.Facility) (int64, string) { return f.ID, f.Name })
}

// Tasks lists facilities missing planning or execution entries.
func (c *Components) Tasks(ctx context.Context, req Request) (any, error) {
	facilities, err := c.records.Facilities(ctx, req.FacilityIDs)
	if err != nil {
		return nil, fmt.Errorf("load facilities: %w", err)
	}
	planning, err := c.entries(ctx, req, records.EntityPlanning)
	if err != nil {
		return nil, err
	}
	execution, err := c.entries(ctx, req, records.EntityExecution)
	if err != nil {
		return nil, err
	}
	planned := facilitySet(planning)
	executed := facilitySet(execution)

	tasks := make([]Task, 0)
	for _, f := range facilities {
		_, hasPlan := planned[f.ID]
		_, hasExec := executed[f.ID]
		if hasPlan && hasExec {
			continue
		}
		tasks = append(tasks, Task{
			FacilityID:       f.ID,
			FacilityName:     f.Name,
			DistrictName:     f.DistrictName,
			MissingPlanning:  !hasPlan,
			MissingExecution: !hasExec,
		})
	}
	return tasks, nil
}

type budgetSnapshot struct {
	facilities []records.Facility
	allocated  map[int64]decimal.Decimal
	spent      map[int64]decimal.Decimal
	byProgram  map[string]decimal.Decimal
}

// budget loads planning totals and execution spend for the request scope.
// Spend is the expenditure section of each program's statement.
func (c *Components) budget(ctx context.Context, req Request) (budgetSnapshot, error) {
	snap := budgetSnapshot{
		allocated: make(map[int64]decimal.Decimal),
		spent:     make(map[int64]decimal.Decimal),
		byProgram: make(map[string]decimal.Decimal),
	}
	facilities, err := c.records.Facilities(ctx, req.FacilityIDs)
	if err != nil {
		return snap, fmt.Errorf("load facilities: %w", err)
	}
	snap.facilities = facilities
	quarter := req.Filter.QuarterNumber()

	planning, err := c.entries(ctx, req, records.EntityPlanning)
	if err != nil {
		return snap, err
	}
	agg := c.engine.Aggregator()
	for _, e := range planning {
		idx, err := aggregation.FormActivities(e.FormData)
		if err != nil {
			c.logger.Warn("unreadable planning data, skipping entry",
				slog.Int64("entry_id", e.ID),
				slog.Any("error", err))
			continue
		}
		amount := pick(agg.RecordTotal(idx), quarter)
		snap.allocated[e.FacilityID] = snap.allocated[e.FacilityID].Add(amount)
		snap.byProgram[e.ProjectType] = snap.byProgram[e.ProjectType].Add(amount)
	}

	execution, err := c.entries(ctx, req, records.EntityExecution)
	if err != nil {
		return snap, err
	}
	byProgram := make(map[string][]records.FormEntry)
	for _, e := range execution {
		byProgram[e.ProjectType] = append(byProgram[e.ProjectType], e)
	}
	programs := make([]string, 0, len(byProgram))
	for p := range byProgram {
		programs = append(programs, p)
	}
	sort.Strings(programs)
	for _, program := range programs {
		res, err := c.engine.Run(ctx, program, records.EntityExecution, facilities, byProgram[program])
		if err != nil {
			return snap, fmt.Errorf("aggregate %s execution: %w", program, err)
		}
		for _, f := range facilities {
			spent := pick(res.Totals.Section(aggregation.CategoryExpenditures, f.ID), quarter)
			snap.spent[f.ID] = snap.spent[f.ID].Add(spent)
		}
	}
	return snap, nil
}

func (c *Components) approvals(ctx context.Context, req Request, groupBy func(records.Facility) (int64, string)) (any, error) {
	facilities, err := c.records.Facilities(ctx, req.FacilityIDs)
	if err != nil {
		return nil, fmt.Errorf("load facilities: %w", err)
	}
	planning, err := c.entries(ctx, req, records.EntityPlanning)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]records.Facility, len(facilities))
	counts := make(map[int64]*ApprovalCounts)
	for _, f := range facilities {
		byID[f.ID] = f
		id, name := groupBy(f)
		if _, ok := counts[id]; !ok {
			counts[id] = &ApprovalCounts{ID: id, Name: name}
		}
	}
	for _, e := range planning {
		f, ok := byID[e.FacilityID]
		if !ok {
			continue
		}
		id, _ := groupBy(f)
		tally := counts[id]
		switch e.Approval() {
		case records.ApprovalPending:
			tally.Pending++
		case records.ApprovalApproved:
			tally.Approved++
		case records.ApprovalRejected:
			tally.Rejected++
		default:
			tally.Draft++
		}
		tally.Total++
	}
	out := make([]ApprovalCounts, 0, len(counts))
	for _, tally := range counts {
		out = append(out, *tally)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *Components) entries(ctx context.Context, req Request, entityType string) ([]records.FormEntry, error) {
	entries, err := c.records.FormEntries(ctx, records.EntryQuery{
		FacilityIDs: req.FacilityIDs,
		PeriodID:    req.Period.ID,
		EntityType:  entityType,
		ProjectType: req.Filter.ProjectType,
	})
	if err != nil {
		return nil, fmt.Errorf("load %s entries: %w", entityType, err)
	}
	return entries, nil
}

func facilitySet(entries []records.FormEntry) map[int64]struct{} {
	set := make(map[int64]struct{}, len(entries))
	for _, e := range entries {
		set[e.FacilityID] = struct{}{}
	}
	return set
}

func pick(qv aggregation.QuarterlyValues, quarter int) decimal.Decimal {
	if quarter >= 1 && quarter <= 4 {
		return qv.Quarter(quarter)
	}
	return qv.Total
}

func percentage(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole).Round(2)
}

func finishLine(line BudgetLine) BudgetLine {
	line.Remaining = line.Allocated.Sub(line.Spent)
	line.Utilization = percentage(line.Spent, line.Allocated)
	return line
}

func sortLines(lines []BudgetLine) {
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
}
