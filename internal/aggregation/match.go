package aggregation

import "golang.org/x/text/cases"

// MatchActivityCode resolves a canonical code to the code present in a
// facility record: exact match first, then case-insensitive. Prefix,
// substring and fuzzy matches are never attempted.
func MatchActivityCode(code string, available []string) (string, bool) {
	for _, candidate := range available {
		if candidate == code {
			return candidate, true
		}
	}
	// A Caser holds state and must not be shared across goroutines.
	folder := cases.Fold()
	folded := folder.String(code)
	for _, candidate := range available {
		if folder.String(candidate) == folded {
			return candidate, true
		}
	}
	return "", false
}
