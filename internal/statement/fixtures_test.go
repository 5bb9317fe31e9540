package statement

import (
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/healthfin/healthfin/internal/aggregation"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func flow(q1, q2, q3, q4 string) aggregation.QuarterlyValues {
	return aggregation.NewFlowValues(dec(q1), dec(q2), dec(q3), dec(q4))
}

func stock(q1, q2, q3, q4 string) aggregation.QuarterlyValues {
	qv := flow(q1, q2, q3, q4)
	qv.Total = qv.LastNonZero()
	return qv
}

// vals builds a facility → value map from alternating id/amount pairs.
func vals(pairs ...interface{}) map[int64]decimal.Decimal {
	out := make(map[int64]decimal.Decimal, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out[int64(pairs[i].(int))] = dec(pairs[i+1].(string))
	}
	return out
}

func sampleCatalog() []aggregation.ActivityDefinition {
	return []aggregation.ActivityDefinition{
		{Code: "SEC_A", Name: "A. Receipts", Category: "A", IsSection: true},
		{Code: "A_1", Name: "Transfers from central treasury", Category: "A", DisplayOrder: 1, Level: 1},
		{Code: "A_2", Name: "Other receipts", Category: "A", DisplayOrder: 2, Level: 1},
		{Code: "A_T", Name: "A. Total receipts", Category: "A", DisplayOrder: 99, Level: 1},
		{Code: "B_S1", Name: "Staff costs", Category: "B", Subcategory: "B-01", IsSubcategory: true},
		{Code: "B_1", Name: "Salaries", Category: "B", Subcategory: "B-01", DisplayOrder: 1, Level: 2},
		{Code: "B_2", Name: "Fuel", Category: "B", Subcategory: "B-04", DisplayOrder: 2, Level: 2},
		{Code: "B_3", Name: "Supervision", Category: "B", Subcategory: "B-02", DisplayOrder: 3, Level: 2},
		{Code: "B_4", Name: "Bank charges", Category: "B", DisplayOrder: 4, Level: 1},
		{Code: "C_1", Name: "Surplus / (Deficit)", Category: "C", IsComputed: true, ComputationFormula: "A - B"},
		{Code: "D_1", Name: "Cash at bank", Category: "D", DisplayOrder: 1, Level: 1},
		{Code: "E_1", Name: "Payables", Category: "E", DisplayOrder: 1, Level: 1},
		{Code: "G_1", Name: "Accumulated surplus", Category: "G", DisplayOrder: 1, Level: 1},
		{Code: "G_2", Name: "Surplus/deficit of the period", Category: "G", DisplayOrder: 2, Level: 1},
	}
}

func sampleData() aggregation.AggregatedData {
	return aggregation.AggregatedData{
		"A_1": {1: flow("1000", "0", "0", "0"), 2: flow("400", "0", "0", "0")},
		"A_2": {1: flow("0", "200", "0", "0"), 2: {}},
		"A_T": {1: flow("9999", "0", "0", "0"), 2: {}},
		"B_1": {1: flow("300", "0", "0", "0"), 2: flow("250", "250", "0", "0")},
		"B_2": {1: flow("100", "0", "0", "0"), 2: {}},
		"B_3": {1: flow("0", "50", "0", "0"), 2: {}},
		"B_4": {1: flow("10", "0", "0", "0"), 2: {}},
		"D_1": {1: stock("500", "600", "0", "0"), 2: {}},
		"E_1": {1: stock("100", "0", "0", "0"), 2: {}},
		"G_1": {1: flow("50", "0", "0", "0"), 2: {}},
		"G_2": {1: flow("123456", "0", "0", "0"), 2: {}},
	}
}
