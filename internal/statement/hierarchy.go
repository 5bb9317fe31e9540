package statement

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/healthfin/healthfin/internal/aggregation"
)

// ActivityRow is one node of the statement tree.
type ActivityRow struct {
	Code               string                    `json:"code"`
	Name               string                    `json:"name"`
	Category           string                    `json:"category"`
	Subcategory        string                    `json:"subcategory,omitempty"`
	DisplayOrder       int                       `json:"displayOrder"`
	IsSection          bool                      `json:"isSection"`
	IsSubcategory      bool                      `json:"isSubcategory"`
	IsComputed         bool                      `json:"isComputed"`
	ComputationFormula string                    `json:"computationFormula,omitempty"`
	Values             map[int64]decimal.Decimal `json:"values"`
	Total              decimal.Decimal           `json:"total"`
	Level              int                       `json:"level"`
	Items              []ActivityRow             `json:"items,omitempty"`
}

// HierarchyInput carries everything needed to render a statement tree.
type HierarchyInput struct {
	Data       aggregation.AggregatedData
	Computed   ComputedValues
	Activities []aggregation.UnifiedActivity
	// FacilityIDs fixes the value columns. Derived from Data when nil.
	FacilityIDs []int64
	// SubcategoryNames override display names by subcategory code.
	SubcategoryNames map[string]string
	// Quarter selects a single quarter (1..4); zero renders totals.
	Quarter int
}

const (
	formulaSurplus            = "A - B"
	formulaNetFinancialAssets = "D - E"
	periodSurplusMarker       = "surplus/deficit of the period"
)

// HierarchyBuilder renders aggregated data into the ordered statement tree.
type HierarchyBuilder struct {
	labels Labels
}

// NewHierarchyBuilder constructs a builder using the given labels.
func NewHierarchyBuilder(labels Labels) *HierarchyBuilder {
	if labels.Sections == nil && labels.Subcategories == nil {
		labels = DefaultLabels()
	}
	return &HierarchyBuilder{labels: labels}
}

// Build renders sections A, B, X, C, D, E, F, G in that order.
func (b *HierarchyBuilder) Build(in HierarchyInput) []ActivityRow {
	r := renderer{builder: b, in: in, rendered: make(map[string]ActivityRow, len(aggregation.SectionOrder))}
	r.facilities = in.FacilityIDs
	if r.facilities == nil {
		r.facilities = FacilityIDs(in.Data)
	}
	r.sectionDefs = sectionDefinitions(in.Activities)

	rows := make([]ActivityRow, 0, len(aggregation.SectionOrder))
	for _, category := range aggregation.SectionOrder {
		var row ActivityRow
		switch category {
		case aggregation.CategorySurplus:
			row = r.computedSection(category, KeySurplus, formulaSurplus,
				aggregation.CategoryReceipts, aggregation.CategoryExpenditures)
		case aggregation.CategoryNetFinancialAssets:
			row = r.computedSection(category, KeyNetFinancialAssets, formulaNetFinancialAssets,
				aggregation.CategoryFinancialAssets, aggregation.CategoryFinancialLiabilities)
		case aggregation.CategoryExpenditures:
			row = r.section(category, r.expenditureItems())
		default:
			row = r.section(category, r.items(category, 1))
		}
		r.rendered[category] = row
		rows = append(rows, row)
	}
	return rows
}

type renderer struct {
	builder     *HierarchyBuilder
	in          HierarchyInput
	facilities  []int64
	sectionDefs map[string]aggregation.UnifiedActivity
	rendered    map[string]ActivityRow
}

func (r *renderer) pick(qv aggregation.QuarterlyValues) decimal.Decimal {
	if r.in.Quarter >= 1 && r.in.Quarter <= 4 {
		return qv.Quarter(r.in.Quarter)
	}
	return qv.Total
}

func (r *renderer) sectionHeader(category string) ActivityRow {
	row := ActivityRow{
		Code:      category,
		Name:      r.builder.labels.SectionName(category),
		Category:  category,
		IsSection: true,
		Level:     0,
	}
	if def, ok := r.sectionDefs[category]; ok {
		row.Code = def.Code
		row.Name = def.Name
		row.DisplayOrder = def.DisplayOrder
	}
	return row
}

func (r *renderer) section(category string, items []ActivityRow) ActivityRow {
	row := r.sectionHeader(category)
	row.Items = items
	row.Values = sumRowValues(r.facilities, items)
	row.Total = rowTotal(row.Values)
	return row
}

func (r *renderer) computedSection(category, key, formula, left, right string) ActivityRow {
	row := r.sectionHeader(category)
	row.IsComputed = true
	row.ComputationFormula = formula
	row.Values = make(map[int64]decimal.Decimal, len(r.facilities))
	for _, id := range r.facilities {
		if qv, ok := r.in.Computed.Values(key, id); ok {
			row.Values[id] = r.pick(qv)
			continue
		}
		row.Values[id] = r.rendered[left].Values[id].Sub(r.rendered[right].Values[id])
	}
	row.Total = rowTotal(row.Values)
	return row
}

func (r *renderer) items(category string, level int) []ActivityRow {
	var rows []ActivityRow
	for _, act := range r.in.Activities {
		if act.Category != category || !isRenderedItem(act) {
			continue
		}
		rows = append(rows, r.item(act, level))
	}
	sortRows(rows)
	return rows
}

func (r *renderer) item(act aggregation.UnifiedActivity, level int) ActivityRow {
	row := ActivityRow{
		Code:               act.Code,
		Name:               act.Name,
		Category:           act.Category,
		Subcategory:        act.Subcategory,
		DisplayOrder:       act.DisplayOrder,
		IsComputed:         act.IsComputed,
		ComputationFormula: act.ComputationFormula,
		Level:              level,
		Values:             make(map[int64]decimal.Decimal, len(r.facilities)),
	}
	periodSurplus := act.Category == aggregation.CategoryClosingBalance && isPeriodSurplus(act.Name)
	for _, id := range r.facilities {
		if periodSurplus {
			row.Values[id] = r.periodSurplus(id)
			continue
		}
		row.Values[id] = r.pick(r.in.Data.Values(act.Code, id))
	}
	row.Total = rowTotal(row.Values)
	return row
}

func (r *renderer) periodSurplus(facilityID int64) decimal.Decimal {
	if qv, ok := r.in.Computed.Values(KeySurplus, facilityID); ok {
		return r.pick(qv)
	}
	return r.rendered[aggregation.CategorySurplus].Values[facilityID]
}

func (r *renderer) expenditureItems() []ActivityRow {
	groups := make(map[string][]ActivityRow)
	var loose []ActivityRow
	for _, act := range r.in.Activities {
		if act.Category != aggregation.CategoryExpenditures || !isRenderedItem(act) {
			continue
		}
		if act.Subcategory == "" {
			loose = append(loose, r.item(act, 1))
			continue
		}
		groups[act.Subcategory] = append(groups[act.Subcategory], r.item(act, 2))
	}

	codes := make([]string, 0, len(groups))
	for code := range groups {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		si, sj := subcategoryOrder(codes[i]), subcategoryOrder(codes[j])
		if si != sj {
			return si < sj
		}
		return codes[i] < codes[j]
	})

	overrides := r.subcategoryOverrides()
	rows := make([]ActivityRow, 0, len(codes)+len(loose))
	for _, code := range codes {
		children := groups[code]
		sortRows(children)
		values := sumRowValues(r.facilities, children)
		rows = append(rows, ActivityRow{
			Code:          code,
			Name:          r.builder.labels.SubcategoryName(code, overrides),
			Category:      aggregation.CategoryExpenditures,
			Subcategory:   code,
			DisplayOrder:  subcategoryOrder(code),
			IsSubcategory: true,
			Values:        values,
			Total:         rowTotal(values),
			Level:         1,
			Items:         children,
		})
	}
	sortRows(loose)
	return append(rows, loose...)
}

// subcategoryOverrides merges catalog subcategory header names under the
// caller supplied overrides.
func (r *renderer) subcategoryOverrides() map[string]string {
	merged := make(map[string]string)
	for _, act := range r.in.Activities {
		if act.IsSubcategory && act.Subcategory != "" && act.Name != "" {
			if _, ok := merged[act.Subcategory]; !ok {
				merged[act.Subcategory] = act.Name
			}
		}
	}
	for k, v := range r.in.SubcategoryNames {
		merged[k] = v
	}
	return merged
}

func sectionDefinitions(activities []aggregation.UnifiedActivity) map[string]aggregation.UnifiedActivity {
	defs := make(map[string]aggregation.UnifiedActivity)
	for _, act := range activities {
		if !act.IsSection {
			continue
		}
		if _, ok := defs[act.Category]; !ok {
			defs[act.Category] = act
		}
	}
	return defs
}

func isRenderedItem(act aggregation.UnifiedActivity) bool {
	if act.IsSection || act.IsSubcategory || aggregation.IsTotalRow(act.Name) {
		return false
	}
	if act.IsComputed {
		return act.Category == aggregation.CategoryClosingBalance && isPeriodSurplus(act.Name)
	}
	return true
}

func isPeriodSurplus(name string) bool {
	return strings.Contains(strings.ToLower(name), periodSurplusMarker)
}

var trailingNumber = regexp.MustCompile(`(\d+)$`)

func subcategoryOrder(code string) int {
	m := trailingNumber.FindStringSubmatch(code)
	if m == nil {
		return math.MaxInt32
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return math.MaxInt32
	}
	return n
}

func sortRows(rows []ActivityRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].DisplayOrder != rows[j].DisplayOrder {
			return rows[i].DisplayOrder < rows[j].DisplayOrder
		}
		return rows[i].Code < rows[j].Code
	})
}

func sumRowValues(facilities []int64, rows []ActivityRow) map[int64]decimal.Decimal {
	values := make(map[int64]decimal.Decimal, len(facilities))
	for _, id := range facilities {
		sum := decimal.Zero
		for _, row := range rows {
			sum = sum.Add(row.Values[id])
		}
		values[id] = sum
	}
	return values
}

func rowTotal(values map[int64]decimal.Decimal) decimal.Decimal {
	ids := make([]int64, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	total := decimal.Zero
	for _, id := range ids {
		total = total.Add(values[id])
	}
	return total
}
