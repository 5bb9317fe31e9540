package access

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

type fakeDirectory struct {
	all        []int64
	byProvince map[int64][]int64
	byDistrict map[int64][]int64
	children   map[int64][]int64
	err        error
}

func (f *fakeDirectory) AllFacilityIDs(ctx context.Context) ([]int64, error) {
	return f.all, f.err
}

func (f *fakeDirectory) FacilityIDsByProvince(ctx context.Context, provinceID int64) ([]int64, error) {
	return f.byProvince[provinceID], f.err
}

func (f *fakeDirectory) FacilityIDsByDistrict(ctx context.Context, districtID int64) ([]int64, error) {
	return f.byDistrict[districtID], f.err
}

func (f *fakeDirectory) FacilityWithChildren(ctx context.Context, facilityID int64) ([]int64, error) {
	return append([]int64{facilityID}, f.children[facilityID]...), f.err
}

func id(v int64) *int64 { return &v }

func newDirectory() *fakeDirectory {
	return &fakeDirectory{
		all:        []int64{1, 2, 3, 4, 5, 6},
		byProvince: map[int64][]int64{10: {5, 1, 2, 3, 4}},
		byDistrict: map[int64][]int64{1: {2, 3, 4}, 2: {5, 6}},
		children:   map[int64][]int64{2: {3, 4}},
	}
}

func TestResolveDistrictIntersectsAccessibleFacilities(t *testing.T) {
	r := NewResolver(newDirectory())
	user := UserContext{UserID: "u1", Role: "accountant", AccessibleFacilityIDs: []int64{1, 2, 3}}
	got, err := r.Resolve(context.Background(), ScopeFilter{Scope: ScopeDistrict, ScopeID: id(1)}, user)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !reflect.DeepEqual(got, []int64{2, 3}) {
		t.Fatalf("expected [2 3] got %v", got)
	}
}

func TestResolveScopes(t *testing.T) {
	admin := UserContext{UserID: "root", Role: "superadmin"}
	user := UserContext{UserID: "u2", Role: "program_officer", AccessibleFacilityIDs: []int64{4, 3, 3, 9}}

	cases := []struct {
		name   string
		filter ScopeFilter
		user   UserContext
		want   []int64
	}{
		{"admin country sees everything", ScopeFilter{Scope: ScopeCountry}, admin, []int64{1, 2, 3, 4, 5, 6}},
		{"user country sees own facilities", ScopeFilter{Scope: ScopeCountry}, user, []int64{3, 4, 9}},
		{"empty scope falls back to own facilities", ScopeFilter{}, user, []int64{3, 4, 9}},
		{"admin province", ScopeFilter{Scope: ScopeProvince, ScopeID: id(10)}, admin, []int64{1, 2, 3, 4, 5}},
		{"user province filtered", ScopeFilter{Scope: ScopeProvince, ScopeID: id(10)}, user, []int64{3, 4}},
		{"facility with children", ScopeFilter{Scope: ScopeFacility, ScopeID: id(2)}, admin, []int64{2, 3, 4}},
		{"facility outside access is empty", ScopeFilter{Scope: ScopeDistrict, ScopeID: id(2)}, user, []int64{}},
	}
	r := NewResolver(newDirectory())
	for _, tc := range cases {
		got, err := r.Resolve(context.Background(), tc.filter, tc.user)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: expected %v got %v", tc.name, tc.want, got)
		}
	}
}

func TestResolveRequiresScopeID(t *testing.T) {
	r := NewResolver(newDirectory())
	for _, scope := range []Scope{ScopeProvince, ScopeDistrict, ScopeFacility} {
		_, err := r.Resolve(context.Background(), ScopeFilter{Scope: scope}, UserContext{Role: RoleAdmin})
		if !errors.Is(err, ErrScopeIDRequired) || !errors.Is(err, ErrInvalidFilter) {
			t.Fatalf("%s: expected ErrScopeIDRequired got %v", scope, err)
		}
		if !strings.Contains(err.Error(), "scopeId required for "+string(scope)+" scope") {
			t.Fatalf("%s: unexpected message %q", scope, err.Error())
		}
	}
}

func TestResolvePropagatesStoreErrors(t *testing.T) {
	dir := newDirectory()
	dir.err = errors.New("connection refused")
	_, err := NewResolver(dir).Resolve(context.Background(), ScopeFilter{Scope: ScopeDistrict, ScopeID: id(1)}, UserContext{})
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected store error got %v", err)
	}
}

func TestValidateQuarterAndScope(t *testing.T) {
	q := 5
	if err := (ScopeFilter{Quarter: &q}).Validate(); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected invalid quarter error got %v", err)
	}
	if err := (ScopeFilter{Scope: "region", ScopeID: id(1)}).Validate(); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected unknown scope error got %v", err)
	}
	q = 4
	if err := (ScopeFilter{Scope: ScopeCountry, Quarter: &q}).Validate(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestNarrowScope(t *testing.T) {
	filter := ScopeFilter{Scope: ScopeCountry, ScopeID: id(1), ProjectType: "HIV"}
	narrowed := NarrowScope(filter, UserContext{Role: "viewer"})
	if narrowed.Scope != "" || narrowed.ScopeID != nil || narrowed.ProjectType != "HIV" {
		t.Fatalf("expected country scope cleared, got %+v", narrowed)
	}
	if kept := NarrowScope(filter, UserContext{Role: "Admin"}); kept.Scope != ScopeCountry {
		t.Fatalf("admins keep country scope, got %+v", kept)
	}
	district := ScopeFilter{Scope: ScopeDistrict, ScopeID: id(3)}
	if kept := NarrowScope(district, UserContext{}); kept.Scope != ScopeDistrict {
		t.Fatalf("district scope must not be narrowed")
	}
}

func TestUserContextPermissions(t *testing.T) {
	user := UserContext{Permissions: []string{" Dashboard.View "}, AccessibleFacilityIDs: []int64{7}}
	if !user.HasPermission("dashboard.view") {
		t.Fatalf("expected permission match ignoring case and space")
	}
	if user.HasPermission("statements.view") {
		t.Fatalf("unexpected permission")
	}
	if !user.CanAccess(7) || user.CanAccess(8) {
		t.Fatalf("unexpected facility access")
	}
	admin := UserContext{Role: RoleSuperAdmin}
	if !admin.HasPermission("anything") || !admin.CanAccess(8) {
		t.Fatalf("admins bypass checks")
	}
}
