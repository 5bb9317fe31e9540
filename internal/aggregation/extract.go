package aggregation

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// ExtractOptions tune how one activity's values are read.
type ExtractOptions struct {
	// Name is the catalog display name, used for the VAT rule. The record's
	// own name is used when empty.
	Name string
	// Stock selects balance semantics: the total is the last reported
	// quarter instead of the quarter sum.
	Stock bool
}

// IsVATApplicableExpense reports whether an expense line is recorded both
// gross and net of VAT.
func IsVATApplicableExpense(name string) bool {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "communication") && strings.Contains(n, "all"):
		return true
	case strings.Contains(n, "maintenance"):
		return true
	case strings.Contains(n, "fuel"):
		return true
	case strings.Contains(n, "office supplies"):
		return true
	}
	return false
}

// ValueExtractor reads normalised quarterly values out of a facility record.
type ValueExtractor struct {
	logger *slog.Logger
}

// NewValueExtractor constructs an extractor logging data-quality warnings to logger.
func NewValueExtractor(logger *slog.Logger) *ValueExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ValueExtractor{logger: logger}
}

// Extract returns the quarterly values for code. Missing activities and
// malformed records yield zero values; errors never escape.
func (e *ValueExtractor) Extract(idx ActivityIndex, code string, opts ExtractOptions) QuarterlyValues {
	raw, ok := idx[code]
	if !ok {
		return QuarterlyValues{}
	}
	var rec activityRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		e.log().Warn("malformed activity record, using zero values",
			slog.String("code", code),
			slog.Any("error", err))
		return QuarterlyValues{}
	}

	name := opts.Name
	if name == "" {
		name = rec.Name
	}
	quarters := rec.quarterAmounts
	if IsVATApplicableExpense(name) {
		if rec.NetAmount != nil {
			quarters = *rec.NetAmount
		} else {
			// TODO: drop once pre-VAT records are migrated to carry netAmount.
			e.log().Warn("vat expense missing netAmount, using gross values",
				slog.String("code", code),
				slog.String("name", name))
		}
	}

	qv := QuarterlyValues{
		Q1: quarters.Q1.value,
		Q2: quarters.Q2.value,
		Q3: quarters.Q3.value,
		Q4: quarters.Q4.value,
	}
	switch {
	case rec.CumulativeBalance.set:
		qv.Total = rec.CumulativeBalance.value
	case opts.Stock:
		qv.Total = qv.LastNonZero()
	default:
		qv.Total = qv.QuarterSum()
	}
	return qv
}

func (e *ValueExtractor) log() *slog.Logger {
	if e != nil && e.logger != nil {
		return e.logger
	}
	return slog.Default()
}
