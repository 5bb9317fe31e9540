package access

import (
	"context"
	"fmt"
	"sort"
)

// Directory answers facility membership questions against the store.
type Directory interface {
	AllFacilityIDs(ctx context.Context) ([]int64, error)
	FacilityIDsByProvince(ctx context.Context, provinceID int64) ([]int64, error)
	FacilityIDsByDistrict(ctx context.Context, districtID int64) ([]int64, error)
	FacilityWithChildren(ctx context.Context, facilityID int64) ([]int64, error)
}

// Resolver turns a scope filter into the facility IDs a user may see.
type Resolver struct {
	dir Directory
}

// NewResolver constructs a Resolver backed by dir.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// NarrowScope applies role based narrowing once per request: only admins
// may look at the whole country, everybody else falls back to their own
// facilities.
func NarrowScope(filter ScopeFilter, user UserContext) ScopeFilter {
	if filter.Scope == ScopeCountry && !user.IsAdmin() {
		filter.Scope = ""
		filter.ScopeID = nil
	}
	return filter
}

// Resolve returns the sorted, de-duplicated facility IDs for filter. Scopes
// outside the user's reach resolve to an empty set rather than an error.
func (r *Resolver) Resolve(ctx context.Context, filter ScopeFilter, user UserContext) ([]int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	var (
		ids []int64
		err error
	)
	switch filter.Scope {
	case "":
		return normalizeIDs(user.AccessibleFacilityIDs), nil
	case ScopeCountry:
		if !user.IsAdmin() {
			return normalizeIDs(user.AccessibleFacilityIDs), nil
		}
		ids, err = r.dir.AllFacilityIDs(ctx)
	case ScopeProvince:
		ids, err = r.dir.FacilityIDsByProvince(ctx, *filter.ScopeID)
	case ScopeDistrict:
		ids, err = r.dir.FacilityIDsByDistrict(ctx, *filter.ScopeID)
	case ScopeFacility:
		ids, err = r.dir.FacilityWithChildren(ctx, *filter.ScopeID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %s scope: %w", filter.Scope, err)
	}

	if user.IsAdmin() {
		return normalizeIDs(ids), nil
	}
	return Intersect(ids, user.AccessibleFacilityIDs), nil
}

// Intersect returns the sorted IDs present in both lists.
func Intersect(ids, allowed []int64) []int64 {
	set := make(map[int64]struct{}, len(allowed))
	for _, id := range allowed {
		set[id] = struct{}{}
	}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return normalizeIDs(out)
}

func normalizeIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
