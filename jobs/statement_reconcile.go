package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/healthfin/healthfin/internal/aggregation"
	jobmetrics "github.com/healthfin/healthfin/internal/jobs"
	"github.com/healthfin/healthfin/internal/periods"
	"github.com/healthfin/healthfin/internal/records"
	"github.com/healthfin/healthfin/internal/statement"
)

// Reconcile checks.
const (
	CheckSurplus            = "surplus"
	CheckNetFinancialAssets = "net_financial_assets"
)

// StatementBuilder renders a statement for resolved facilities.
type StatementBuilder interface {
	Build(ctx context.Context, period periods.Period, facilityIDs []int64, projectType, entityType string, quarter int) (statement.Statement, error)
}

// DistrictDirectory lists districts and their facilities.
type DistrictDirectory interface {
	DistrictIDs(ctx context.Context) ([]int64, error)
	FacilityIDsByDistrict(ctx context.Context, districtID int64) ([]int64, error)
}

// Mismatch is one facility column whose computed section disagrees with
// its operand sections.
type Mismatch struct {
	Check       string
	ProjectType string
	DistrictID  int64
	FacilityID  int64
	Expected    decimal.Decimal
	Actual      decimal.Decimal
}

// ReconcileReport summarises one run.
type ReconcileReport struct {
	Period     periods.Period
	Statements int
	Mismatches []Mismatch
}

// StatementReconcileJob verifies the surplus and net financial assets rows of
// every district statement of a period.
type StatementReconcileJob struct {
	Builder   StatementBuilder
	Directory DistrictDirectory
	Periods   periods.Repository
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewStatementReconcileJob initialises the reconcile handler.
func NewStatementReconcileJob(builder StatementBuilder, directory DistrictDirectory, periodRepo periods.Repository, logger *slog.Logger, metrics *jobmetrics.Metrics) *StatementReconcileJob {
	return &StatementReconcileJob{
		Builder:   builder,
		Directory: directory,
		Periods:   periodRepo,
		Logger:    logger,
		Metrics:   metrics,
	}
}

// Handle executes a reconcile task.
func (j *StatementReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("statement reconcile: handler not configured")
	}
	var payload StatementReconcilePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("statement reconcile: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	tracker := j.Metrics.Track(TaskStatementReconcile)
	_, err := j.Run(ctx, payload)
	return tracker.End(err)
}

// Run reconciles the statements selected by payload. Mismatches are logged
// and counted; build failures are collected and returned together.
func (j *StatementReconcileJob) Run(ctx context.Context, payload StatementReconcilePayload) (ReconcileReport, error) {
	start := time.Now()
	logger := j.logger()

	period, err := periods.NewLookup(j.Periods).Resolve(ctx, payload.PeriodID)
	if err != nil {
		return ReconcileReport{}, err
	}
	report := ReconcileReport{Period: period}

	districts := payload.DistrictIDs
	if len(districts) == 0 {
		if districts, err = j.Directory.DistrictIDs(ctx); err != nil {
			return report, fmt.Errorf("list districts: %w", err)
		}
	}
	projectTypes := payload.ProjectTypes
	if len(projectTypes) == 0 {
		projectTypes = DefaultProjectTypes
	}

	logger = logger.With(slog.Int64("period_id", period.ID))
	logger.Info("starting statement reconcile",
		slog.Int("districts", len(districts)),
		slog.Any("project_types", projectTypes))

	var errs error
	for _, districtID := range districts {
		if err := ctx.Err(); err != nil {
			return report, multierr.Append(errs, err)
		}
		facilityIDs, err := j.Directory.FacilityIDsByDistrict(ctx, districtID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("district %d: %w", districtID, err))
			continue
		}
		if len(facilityIDs) == 0 {
			continue
		}
		for _, projectType := range projectTypes {
			stmt, err := j.Builder.Build(ctx, period, facilityIDs, projectType, records.EntityExecution, 0)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("district %d %s: %w", districtID, projectType, err))
				continue
			}
			report.Statements++
			found := ReconcileStatement(stmt)
			for i := range found {
				found[i].DistrictID = districtID
				logger.Warn("statement mismatch",
					slog.String("check", found[i].Check),
					slog.String("project_type", projectType),
					slog.Int64("district_id", districtID),
					slog.Int64("facility_id", found[i].FacilityID),
					slog.String("expected", found[i].Expected.String()),
					slog.String("actual", found[i].Actual.String()))
				j.Metrics.AddMismatches(found[i].Check, projectType, 1)
			}
			report.Mismatches = append(report.Mismatches, found...)
		}
	}

	logger.Info("completed statement reconcile",
		slog.Int("statements", report.Statements),
		slog.Int("mismatches", len(report.Mismatches)),
		slog.Int("errors", len(multierr.Errors(errs))),
		slog.Duration("duration", time.Since(start)))
	return report, errs
}

// ReconcileStatement compares the rendered C and F rows of stmt with the
// surplus and net financial assets derived from the raw section quarters.
// Cumulative balance overrides on individual lines change the rendered
// section rows but not the derived values, so they are not mismatches.
func ReconcileStatement(stmt statement.Statement) []Mismatch {
	sections := make(map[string]statement.ActivityRow, len(stmt.Rows))
	for _, row := range stmt.Rows {
		if row.IsSection {
			sections[row.Category] = row
		}
	}
	checks := []struct {
		name                string
		result, left, right string
		stock               bool
	}{
		{CheckSurplus, aggregation.CategorySurplus, aggregation.CategoryReceipts, aggregation.CategoryExpenditures, false},
		{CheckNetFinancialAssets, aggregation.CategoryNetFinancialAssets, aggregation.CategoryFinancialAssets, aggregation.CategoryFinancialLiabilities, true},
	}

	var out []Mismatch
	for _, check := range checks {
		result, ok := sections[check.result]
		if !ok {
			continue
		}
		for _, facility := range stmt.Facilities {
			left := stmt.Totals.Section(check.left, facility.ID)
			right := stmt.Totals.Section(check.right, facility.ID)
			expected := derivedValue(left, right, check.stock, stmt.Quarter)
			actual := result.Values[facility.ID]
			if !expected.Equal(actual) {
				out = append(out, Mismatch{
					Check:       check.name,
					ProjectType: stmt.ProjectType,
					FacilityID:  facility.ID,
					Expected:    expected,
					Actual:      actual,
				})
			}
		}
	}
	return out
}

// derivedValue is left minus right for the rendered column: one quarter, the
// last reported quarter for stock sections, else the quarter sum.
func derivedValue(left, right aggregation.QuarterlyValues, stock bool, quarter int) decimal.Decimal {
	switch {
	case quarter >= 1 && quarter <= 4:
		return left.Quarter(quarter).Sub(right.Quarter(quarter))
	case stock:
		return left.LastNonZero().Sub(right.LastNonZero())
	default:
		return left.QuarterSum().Sub(right.QuarterSum())
	}
}

func (j *StatementReconcileJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
