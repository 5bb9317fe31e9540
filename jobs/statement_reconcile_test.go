package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/healthfin/healthfin/internal/aggregation"
	jobmetrics "github.com/healthfin/healthfin/internal/jobs"
	"github.com/healthfin/healthfin/internal/periods"
	"github.com/healthfin/healthfin/internal/records"
	"github.com/healthfin/healthfin/internal/statement"
)

type periodStub struct{ active periods.Period }

func (p periodStub) Get(_ context.Context, id int64) (periods.Period, error) {
	if id == p.active.ID {
		return p.active, nil
	}
	return periods.Period{}, periods.ErrPeriodNotFound
}

func (p periodStub) Active(context.Context) (periods.Period, error) { return p.active, nil }

type directoryStub struct {
	districts map[int64][]int64
}

func (d directoryStub) DistrictIDs(context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(d.districts))
	for id := range d.districts {
		ids = append(ids, id)
	}
	return ids, nil
}

func (d directoryStub) FacilityIDsByDistrict(_ context.Context, id int64) ([]int64, error) {
	return d.districts[id], nil
}

type builderStub struct {
	calls  []string
	failOn string
	stmt   func(projectType string, ids []int64) statement.Statement
}

func (b *builderStub) Build(_ context.Context, _ periods.Period, ids []int64, projectType, entityType string, _ int) (statement.Statement, error) {
	b.calls = append(b.calls, projectType+":"+entityType)
	if projectType == b.failOn {
		return statement.Statement{}, errors.New("catalog query failed")
	}
	return b.stmt(projectType, ids), nil
}

func section(category string, values map[int64]string) statement.ActivityRow {
	row := statement.ActivityRow{Code: category, Category: category, IsSection: true, Values: map[int64]decimal.Decimal{}}
	for id, v := range values {
		row.Values[id] = decimal.RequireFromString(v)
	}
	return row
}

func q1(v string) aggregation.QuarterlyValues {
	d := decimal.RequireFromString(v)
	return aggregation.NewFlowValues(d, decimal.Zero, decimal.Zero, decimal.Zero)
}

func balancedStatement(projectType string, ids []int64) statement.Statement {
	stmt := statement.Statement{
		ProjectType: projectType,
		Totals: statement.SectionTotals{
			"A": {1: q1("100"), 2: q1("50")},
			"B": {1: q1("40"), 2: q1("60")},
			"D": {1: q1("30")},
			"E": {1: q1("5")},
		},
	}
	for _, id := range ids {
		stmt.Facilities = append(stmt.Facilities, records.Facility{ID: id})
	}
	stmt.Rows = []statement.ActivityRow{
		section("A", map[int64]string{1: "100", 2: "50"}),
		section("B", map[int64]string{1: "40", 2: "60"}),
		section("C", map[int64]string{1: "60", 2: "-10"}),
		section("D", map[int64]string{1: "30"}),
		section("E", map[int64]string{1: "5"}),
		section("F", map[int64]string{1: "25", 2: "0"}),
	}
	return stmt
}

func TestReconcileStatementFindsMismatches(t *testing.T) {
	stmt := balancedStatement("HIV", []int64{1, 2})
	if got := ReconcileStatement(stmt); len(got) != 0 {
		t.Fatalf("expected balanced statement got %+v", got)
	}

	stmt.Rows[2].Values[2] = decimal.RequireFromString("-9")
	stmt.Rows[5].Values[1] = decimal.RequireFromString("20")
	got := ReconcileStatement(stmt)
	if len(got) != 2 {
		t.Fatalf("expected 2 mismatches got %+v", got)
	}
	if got[0].Check != CheckSurplus || got[0].FacilityID != 2 || !got[0].Expected.Equal(decimal.RequireFromString("-10")) {
		t.Fatalf("unexpected surplus mismatch %+v", got[0])
	}
	if got[1].Check != CheckNetFinancialAssets || got[1].FacilityID != 1 || !got[1].Expected.Equal(decimal.RequireFromString("25")) {
		t.Fatalf("unexpected net financial assets mismatch %+v", got[1])
	}
}

// renderedStatement runs raw activity blobs through aggregation, computation
// and rendering for a single hospital catalog.
func renderedStatement(t *testing.T, blobs map[int64]string, quarter int) statement.Statement {
	t.Helper()
	activities := aggregation.Unify("hospital", []aggregation.ActivityDefinition{
		{Code: "A_1", Name: "Transfers", Category: "A", DisplayOrder: 1},
		{Code: "B_1", Name: "Salaries", Category: "B", DisplayOrder: 1},
		{Code: "D_1", Name: "Cash at bank", Category: "D", DisplayOrder: 1},
		{Code: "D_2", Name: "Petty cash", Category: "D", DisplayOrder: 2},
		{Code: "E_1", Name: "Payables", Category: "E", DisplayOrder: 1},
	})
	stmt := statement.Statement{ProjectType: "HIV", Quarter: quarter}
	var recs []aggregation.FacilityRecord
	var ids []int64
	for id := int64(1); id <= int64(len(blobs)); id++ {
		idx, err := aggregation.NormalizeActivities(json.RawMessage(blobs[id]))
		if err != nil {
			t.Fatalf("normalize activities: %v", err)
		}
		recs = append(recs, aggregation.FacilityRecord{FacilityID: id, FacilityType: "hospital", Activities: idx})
		stmt.Facilities = append(stmt.Facilities, records.Facility{ID: id})
		ids = append(ids, id)
	}
	data, err := aggregation.NewAggregator(nil, nil).AggregateSingle(context.Background(), activities, recs)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	stmt.Totals = statement.CalculateSectionTotals(data, activities)
	stmt.Computed = statement.CalculateComputedValues(data, activities)
	stmt.Rows = statement.NewHierarchyBuilder(statement.DefaultLabels()).Build(statement.HierarchyInput{
		Data:        data,
		Computed:    stmt.Computed,
		Activities:  activities,
		FacilityIDs: ids,
		Quarter:     quarter,
	})
	return stmt
}

func TestReconcileStatementAcceptsOverridesAndStaggeredStocks(t *testing.T) {
	blobs := map[int64]string{
		1: `[{"code":"A_1","q1":100,"cumulative_balance":900},{"code":"B_1","q1":40},{"code":"D_1","q1":100},{"code":"D_2","q2":50}]`,
		2: `[{"code":"A_1","q1":10,"q2":20},{"code":"D_1","q1":70,"q3":80},{"code":"E_1","q2":15}]`,
	}
	for _, quarter := range []int{0, 1, 2, 3} {
		stmt := renderedStatement(t, blobs, quarter)
		if got := ReconcileStatement(stmt); len(got) != 0 {
			t.Fatalf("quarter %d: expected no mismatches on valid data got %+v", quarter, got)
		}
	}

	stmt := renderedStatement(t, blobs, 0)
	for i := range stmt.Rows {
		if stmt.Rows[i].Category == "F" {
			stmt.Rows[i].Values[1] = decimal.RequireFromString("150")
		}
	}
	got := ReconcileStatement(stmt)
	if len(got) != 1 || got[0].Check != CheckNetFinancialAssets || !got[0].Expected.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("expected a single net financial assets mismatch got %+v", got)
	}
}

func TestStatementReconcileRunCollectsErrors(t *testing.T) {
	builder := &builderStub{failOn: "TB", stmt: func(projectType string, ids []int64) statement.Statement {
		stmt := balancedStatement(projectType, ids)
		if projectType == "Malaria" {
			stmt.Rows[2].Values[1] = decimal.RequireFromString("61")
		}
		return stmt
	}}
	job := NewStatementReconcileJob(builder,
		directoryStub{districts: map[int64][]int64{7: {1, 2}, 8: nil}},
		periodStub{active: periods.Period{ID: 3}},
		nil,
		jobmetrics.NewMetrics(prometheus.NewRegistry()))

	report, err := job.Run(context.Background(), StatementReconcilePayload{})
	if err == nil {
		t.Fatalf("expected build failure to be reported")
	}
	if n := len(multierr.Errors(err)); n != 1 {
		t.Fatalf("expected 1 aggregated error got %d: %v", n, err)
	}
	if report.Period.ID != 3 || report.Statements != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(report.Mismatches) != 1 || report.Mismatches[0].ProjectType != "Malaria" || report.Mismatches[0].DistrictID != 7 {
		t.Fatalf("unexpected mismatches %+v", report.Mismatches)
	}
	for _, call := range builder.calls {
		if call[len(call)-len(records.EntityExecution):] != records.EntityExecution {
			t.Fatalf("expected execution statements got %s", call)
		}
	}
}

func TestStatementReconcileHandleRejectsBadPayload(t *testing.T) {
	job := NewStatementReconcileJob(&builderStub{}, directoryStub{}, periodStub{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskStatementReconcile, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected skip retry got %v", err)
	}
}

func TestStatementReconcileUnknownPeriod(t *testing.T) {
	missing := int64(99)
	job := NewStatementReconcileJob(&builderStub{}, directoryStub{}, periodStub{active: periods.Period{ID: 3}}, nil, nil)
	_, err := job.Run(context.Background(), StatementReconcilePayload{PeriodID: &missing})
	if !errors.Is(err, periods.ErrPeriodNotFound) {
		t.Fatalf("expected period not found got %v", err)
	}
}
