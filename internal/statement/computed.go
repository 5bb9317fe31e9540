package statement

import (
	"sort"

	"github.com/healthfin/healthfin/internal/aggregation"
)

// Keys of derived values.
const (
	KeySurplus            = "surplus"
	KeyNetFinancialAssets = "netFinancialAssets"
)

// ComputedValues maps a derived key → facility ID → values. Always
// recomputed from aggregated data, never stored.
type ComputedValues map[string]map[int64]aggregation.QuarterlyValues

// Values returns the derived values for a facility and whether they exist.
func (c ComputedValues) Values(key string, facilityID int64) (aggregation.QuarterlyValues, bool) {
	byFacility, ok := c[key]
	if !ok {
		return aggregation.QuarterlyValues{}, false
	}
	v, ok := byFacility[facilityID]
	return v, ok
}

// SectionTotals maps a category → facility ID → summed raw values.
type SectionTotals map[string]map[int64]aggregation.QuarterlyValues

// Section returns the totals of a category for a facility.
func (s SectionTotals) Section(category string, facilityID int64) aggregation.QuarterlyValues {
	return s[category][facilityID]
}

var totalledSections = []string{
	aggregation.CategoryReceipts,
	aggregation.CategoryExpenditures,
	aggregation.CategoryAdjustments,
	aggregation.CategoryFinancialAssets,
	aggregation.CategoryFinancialLiabilities,
	aggregation.CategoryClosingBalance,
}

// CalculateSectionTotals sums every data row of sections A, B, X, D, E and
// G per facility.
func CalculateSectionTotals(data aggregation.AggregatedData, activities []aggregation.UnifiedActivity) SectionTotals {
	facilities := FacilityIDs(data)
	totals := make(SectionTotals, len(totalledSections))
	for _, category := range totalledSections {
		codes := dataRowCodes(activities, category)
		byFacility := make(map[int64]aggregation.QuarterlyValues, len(facilities))
		for _, id := range facilities {
			values := make([]aggregation.QuarterlyValues, 0, len(codes))
			for _, code := range codes {
				values = append(values, data.Values(code, id))
			}
			byFacility[id] = aggregation.SumQuarterlyValues(values)
		}
		totals[category] = byFacility
	}
	return totals
}

// CalculateComputedValues derives surplus (A − B) and net financial assets
// (D − E) for every facility present in data.
func CalculateComputedValues(data aggregation.AggregatedData, activities []aggregation.UnifiedActivity) ComputedValues {
	return computeFromTotals(CalculateSectionTotals(data, activities), FacilityIDs(data))
}

func computeFromTotals(totals SectionTotals, facilities []int64) ComputedValues {
	surplus := make(map[int64]aggregation.QuarterlyValues, len(facilities))
	nfa := make(map[int64]aggregation.QuarterlyValues, len(facilities))
	for _, id := range facilities {
		receipts := totals.Section(aggregation.CategoryReceipts, id)
		expenditures := totals.Section(aggregation.CategoryExpenditures, id)
		surplus[id] = receipts.Sub(expenditures)

		assets := totals.Section(aggregation.CategoryFinancialAssets, id)
		liabilities := totals.Section(aggregation.CategoryFinancialLiabilities, id)
		net := assets.Sub(liabilities)
		net.Total = assets.LastNonZero().Sub(liabilities.LastNonZero())
		nfa[id] = net
	}
	return ComputedValues{KeySurplus: surplus, KeyNetFinancialAssets: nfa}
}

// FacilityIDs lists the sorted facility IDs present in data.
func FacilityIDs(data aggregation.AggregatedData) []int64 {
	seen := make(map[int64]struct{})
	for _, byFacility := range data {
		for id := range byFacility {
			seen[id] = struct{}{}
		}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func dataRowCodes(activities []aggregation.UnifiedActivity, category string) []string {
	var codes []string
	for _, act := range activities {
		if act.Category == category && act.IsDataRow() {
			codes = append(codes, act.Code)
		}
	}
	return codes
}
