package aggregation

import (
	"regexp"
	"strings"
)

// Statement categories.
const (
	CategoryReceipts             = "A"
	CategoryExpenditures         = "B"
	CategoryAdjustments          = "X"
	CategorySurplus              = "C"
	CategoryFinancialAssets      = "D"
	CategoryFinancialLiabilities = "E"
	CategoryNetFinancialAssets   = "F"
	CategoryClosingBalance       = "G"

	noSubcategory = "none"
)

// SectionOrder lists the statement sections in display order.
var SectionOrder = []string{
	CategoryReceipts,
	CategoryExpenditures,
	CategoryAdjustments,
	CategorySurplus,
	CategoryFinancialAssets,
	CategoryFinancialLiabilities,
	CategoryNetFinancialAssets,
	CategoryClosingBalance,
}

// ActivityDefinition is a catalog entry describing one statement line.
type ActivityDefinition struct {
	Code               string `json:"code"`
	Name               string `json:"name"`
	Category           string `json:"category"`
	Subcategory        string `json:"subcategory,omitempty"`
	DisplayOrder       int    `json:"displayOrder"`
	IsSection          bool   `json:"isSection"`
	IsSubcategory      bool   `json:"isSubcategory"`
	IsComputed         bool   `json:"isComputed"`
	ComputationFormula string `json:"computationFormula,omitempty"`
	Level              int    `json:"level"`
}

// IsDataRow reports whether the definition holds raw values, as opposed to
// section headers, subcategory headers, computed rows or display total rows.
func (d ActivityDefinition) IsDataRow() bool {
	return !d.IsSection && !d.IsSubcategory && !d.IsComputed && !IsTotalRow(d.Name)
}

// Key returns the positional identity used to match equivalent lines across
// facility types.
func (d ActivityDefinition) Key() ActivityKey {
	sub := d.Subcategory
	if sub == "" {
		sub = noSubcategory
	}
	return ActivityKey{Category: d.Category, Subcategory: sub, DisplayOrder: d.DisplayOrder}
}

// ActivityKey groups equivalent activities across facility types.
type ActivityKey struct {
	Category     string
	Subcategory  string
	DisplayOrder int
}

// UnifiedActivity is a catalog line shared by one or more facility types.
type UnifiedActivity struct {
	ActivityDefinition
	FacilityTypes []string `json:"facilityTypes"`
	SourceCode    string   `json:"sourceCode"`
}

// HasFacilityType reports whether the facility type exposes the activity.
func (u UnifiedActivity) HasFacilityType(facilityType string) bool {
	for _, ft := range u.FacilityTypes {
		if ft == facilityType {
			return true
		}
	}
	return false
}

// Unify wraps single-catalog definitions so both aggregation modes share one shape.
func Unify(facilityType string, defs []ActivityDefinition) []UnifiedActivity {
	out := make([]UnifiedActivity, 0, len(defs))
	for _, def := range defs {
		var types []string
		if facilityType != "" {
			types = []string{facilityType}
		}
		out = append(out, UnifiedActivity{ActivityDefinition: def, FacilityTypes: types, SourceCode: def.Code})
	}
	return out
}

var totalRowPattern = regexp.MustCompile(`^[A-Z]\. `)

// IsTotalRow matches display rows such as "A. Receipts" which repeat an
// already aggregated section total.
func IsTotalRow(name string) bool {
	return totalRowPattern.MatchString(name)
}

// IsStockCategory reports whether totals in the category are balance
// snapshots rather than period flows.
func IsStockCategory(category string) bool {
	switch strings.ToUpper(category) {
	case CategoryFinancialAssets, CategoryFinancialLiabilities, CategoryNetFinancialAssets:
		return true
	}
	return false
}
