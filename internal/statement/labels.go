package statement

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var defaultSubcategoryNames = map[string]string{
	"B-01": "Human Resources + BONUS",
	"B-02": "Monitoring & Evaluation",
	"B-03": "Living Support to Clients/Target Populations",
	"B-04": "Overheads",
	"B-05": "Transfer to other reporting entities",
}

var defaultSectionNames = map[string]string{
	"A": "Receipts",
	"B": "Expenditures",
	"X": "Miscellaneous Adjustments",
	"C": "Surplus / (Deficit) of the Period",
	"D": "Financial Assets",
	"E": "Financial Liabilities",
	"F": "Net Financial Assets",
	"G": "Closing Balance",
}

// Labels holds display names for statement sections and subcategories.
type Labels struct {
	Sections      map[string]string `yaml:"sections"`
	Subcategories map[string]string `yaml:"subcategories"`
}

// DefaultLabels returns the built-in display names.
func DefaultLabels() Labels {
	l := Labels{
		Sections:      make(map[string]string, len(defaultSectionNames)),
		Subcategories: make(map[string]string, len(defaultSubcategoryNames)),
	}
	for k, v := range defaultSectionNames {
		l.Sections[k] = v
	}
	for k, v := range defaultSubcategoryNames {
		l.Subcategories[k] = v
	}
	return l
}

// LoadLabels reads label overrides from a YAML file on top of the defaults.
// An empty path returns the defaults.
func LoadLabels(path string) (Labels, error) {
	labels := DefaultLabels()
	if strings.TrimSpace(path) == "" {
		return labels, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Labels{}, fmt.Errorf("read statement labels: %w", err)
	}
	var overrides Labels
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return Labels{}, fmt.Errorf("parse statement labels %s: %w", path, err)
	}
	for k, v := range overrides.Sections {
		labels.Sections[strings.ToUpper(k)] = v
	}
	for k, v := range overrides.Subcategories {
		labels.Subcategories[k] = v
	}
	return labels, nil
}

// SectionName returns the display name of a section.
func (l Labels) SectionName(category string) string {
	if name, ok := l.Sections[category]; ok && name != "" {
		return name
	}
	return category
}

// SubcategoryName resolves a subcategory display name: overrides first,
// then the configured table, else the raw code.
func (l Labels) SubcategoryName(code string, overrides map[string]string) string {
	if name, ok := overrides[code]; ok && name != "" {
		return name
	}
	if name, ok := l.Subcategories[code]; ok && name != "" {
		return name
	}
	return code
}
