package aggregation

import (
	"fmt"
	"sort"
)

// UnifyCatalogs merges per-facility-type catalogs into one catalog. Lines are
// grouped by (category, subcategory, displayOrder) because facility types
// use different code namespaces for the same conceptual row. The first
// definition of each group supplies the descriptive fields. Unified codes are
// unique: a group whose source code is already taken by another group gets a
// "#n" suffix, while SourceCode keeps the catalog code.
func UnifyCatalogs(catalogs map[string][]ActivityDefinition) []UnifiedActivity {
	facilityTypes := make([]string, 0, len(catalogs))
	for ft := range catalogs {
		facilityTypes = append(facilityTypes, ft)
	}
	sort.Strings(facilityTypes)

	index := make(map[ActivityKey]int)
	used := make(map[string]struct{})
	unified := make([]UnifiedActivity, 0)
	for _, ft := range facilityTypes {
		for _, def := range catalogs[ft] {
			key := def.Key()
			pos, ok := index[key]
			if !ok {
				index[key] = len(unified)
				act := UnifiedActivity{
					ActivityDefinition: def,
					FacilityTypes:      []string{ft},
					SourceCode:         def.Code,
				}
				act.Code = uniqueCode(used, def.Code)
				used[act.Code] = struct{}{}
				unified = append(unified, act)
				continue
			}
			if !unified[pos].HasFacilityType(ft) {
				unified[pos].FacilityTypes = append(unified[pos].FacilityTypes, ft)
			}
		}
	}

	for i := range unified {
		sort.Strings(unified[i].FacilityTypes)
	}
	sort.SliceStable(unified, func(i, j int) bool {
		a, b := unified[i], unified[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		if a.Subcategory != b.Subcategory {
			return a.Subcategory < b.Subcategory
		}
		return a.Code < b.Code
	})
	return unified
}

func uniqueCode(used map[string]struct{}, code string) string {
	if _, taken := used[code]; !taken {
		return code
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s#%d", code, n)
		if _, taken := used[candidate]; !taken {
			return candidate
		}
	}
}

// findByKey returns the definition of a catalog matching key.
func findByKey(defs []ActivityDefinition, key ActivityKey) (ActivityDefinition, bool) {
	for _, def := range defs {
		if def.Key() == key {
			return def, true
		}
	}
	return ActivityDefinition{}, false
}
