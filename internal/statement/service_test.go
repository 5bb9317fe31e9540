package statement

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/healthfin/healthfin/internal/access"
	"github.com/healthfin/healthfin/internal/aggregation"
	"github.com/healthfin/healthfin/internal/periods"
	"github.com/healthfin/healthfin/internal/records"
)

type fakeResolver struct {
	ids        []int64
	lastFilter access.ScopeFilter
}

func (f *fakeResolver) Resolve(ctx context.Context, filter access.ScopeFilter, user access.UserContext) ([]int64, error) {
	f.lastFilter = filter
	return f.ids, nil
}

type fakePeriods struct {
	active periods.Period
}

func (f fakePeriods) Get(ctx context.Context, id int64) (periods.Period, error) {
	return periods.Period{}, periods.ErrPeriodNotFound
}

func (f fakePeriods) Active(ctx context.Context) (periods.Period, error) {
	return f.active, nil
}

type fakeRecords struct {
	facilities []records.Facility
	entries    []records.FormEntry
	catalogs   map[string][]aggregation.ActivityDefinition
	lastQuery  records.EntryQuery
}

func (f *fakeRecords) Facilities(ctx context.Context, ids []int64) ([]records.Facility, error) {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []records.Facility
	for _, fac := range f.facilities {
		if _, ok := want[fac.ID]; ok {
			out = append(out, fac)
		}
	}
	return out, nil
}

func (f *fakeRecords) FormEntries(ctx context.Context, q records.EntryQuery) ([]records.FormEntry, error) {
	f.lastQuery = q
	return f.entries, nil
}

func (f *fakeRecords) Catalog(ctx context.Context, projectType, facilityType, entityType string) ([]aggregation.ActivityDefinition, error) {
	defs, ok := f.catalogs[facilityType]
	if !ok {
		return nil, records.ErrCatalogNotFound
	}
	return defs, nil
}

func entry(facilityID int64, activities string) records.FormEntry {
	return records.FormEntry{
		FacilityID: facilityID,
		EntityType: records.EntityExecution,
		FormData:   json.RawMessage(`{"activities":` + activities + `}`),
	}
}

func TestGenerateMixedFacilityTypes(t *testing.T) {
	repo := &fakeRecords{
		facilities: []records.Facility{
			{ID: 1, FacilityType: "hospital"},
			{ID: 2, FacilityType: "health_center"},
			{ID: 3, FacilityType: "dispensary"},
			{ID: 4, FacilityType: "hospital"},
		},
		entries: []records.FormEntry{
			entry(1, `[{"code":"H_A_1","q1":100},{"code":"H_B_1","q1":40}]`),
			entry(2, `[{"code":"hc_a_1","q1":30},{"code":"HC_B_1","q2":10}]`),
			entry(3, `[{"code":"H_A_1","q1":999}]`),
		},
		catalogs: map[string][]aggregation.ActivityDefinition{
			"hospital": {
				{Code: "H_A_1", Name: "Transfers", Category: "A", DisplayOrder: 1},
				{Code: "H_B_1", Name: "Salaries", Category: "B", Subcategory: "B-01", DisplayOrder: 1},
			},
			"health_center": {
				{Code: "HC_A_1", Name: "Transfers", Category: "A", DisplayOrder: 1},
				{Code: "HC_B_1", Name: "Salaries", Category: "B", Subcategory: "B-01", DisplayOrder: 1},
			},
		},
	}
	resolver := &fakeResolver{ids: []int64{1, 2, 3, 4}}
	svc := NewService(resolver, fakePeriods{active: periods.Period{ID: 12}}, repo, nil, nil, nil)

	stmt, err := svc.Generate(context.Background(), Request{Filter: access.ScopeFilter{ProjectType: "HIV"}}, access.UserContext{Role: "viewer"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if stmt.Period.ID != 12 || stmt.EntityType != records.EntityExecution {
		t.Fatalf("unexpected statement context %+v", stmt)
	}
	if repo.lastQuery.PeriodID != 12 || repo.lastQuery.ProjectType != "HIV" {
		t.Fatalf("unexpected entry query %+v", repo.lastQuery)
	}
	if len(stmt.MissingCatalog) != 1 || stmt.MissingCatalog[0] != 3 {
		t.Fatalf("expected dispensary without catalog, got %v", stmt.MissingCatalog)
	}

	receipts := stmt.Rows[0]
	want := vals(1, "100", 2, "30", 3, "0", 4, "0")
	for id, v := range want {
		if !receipts.Values[id].Equal(v) {
			t.Fatalf("receipts facility %d: expected %s got %s", id, v, receipts.Values[id])
		}
	}
	surplus := stmt.Rows[3]
	if surplus.Category != "C" || !surplus.Values[1].Equal(dec("60")) || !surplus.Values[2].Equal(dec("20")) {
		t.Fatalf("unexpected surplus row %+v", surplus.Values)
	}
	if !surplus.Total.Equal(dec("80")) {
		t.Fatalf("expected total surplus 80 got %s", surplus.Total)
	}
}

func TestGenerateSingleFacilityType(t *testing.T) {
	repo := &fakeRecords{
		facilities: []records.Facility{{ID: 1, FacilityType: "hospital"}, {ID: 2, FacilityType: "hospital"}},
		entries: []records.FormEntry{
			entry(1, `{"X_001":{"q1":100,"q2":200,"q3":300,"q4":400}}`),
		},
		catalogs: map[string][]aggregation.ActivityDefinition{
			"hospital": {{Code: "X_001", Name: "Other receipts", Category: "A", DisplayOrder: 1}},
		},
	}
	svc := NewService(&fakeResolver{ids: []int64{1, 2}}, fakePeriods{}, repo, nil, nil, nil)
	stmt, err := svc.Generate(context.Background(), Request{Filter: access.ScopeFilter{ProjectType: "Malaria"}, EntityType: records.EntityPlanning}, access.UserContext{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(stmt.MissingCatalog) != 0 {
		t.Fatalf("single mode reports no missing catalogs, got %v", stmt.MissingCatalog)
	}
	receipts := stmt.Rows[0]
	if !receipts.Values[1].Equal(dec("1000")) || !receipts.Values[2].IsZero() || !receipts.Total.Equal(dec("1000")) {
		t.Fatalf("unexpected receipts %+v total %s", receipts.Values, receipts.Total)
	}
}

func TestGenerateValidation(t *testing.T) {
	svc := NewService(&fakeResolver{}, fakePeriods{}, &fakeRecords{}, nil, nil, nil)
	ctx := context.Background()

	if _, err := svc.Generate(ctx, Request{}, access.UserContext{}); !errors.Is(err, ErrProjectTypeRequired) || !errors.Is(err, access.ErrInvalidFilter) {
		t.Fatalf("expected project type error got %v", err)
	}
	_, err := svc.Generate(ctx, Request{Filter: access.ScopeFilter{ProjectType: "TB"}, EntityType: "budget"}, access.UserContext{})
	if !errors.Is(err, records.ErrUnknownEntityType) {
		t.Fatalf("expected entity type error got %v", err)
	}
	missing := int64(5)
	_, err = svc.Generate(ctx, Request{Filter: access.ScopeFilter{ProjectType: "TB", PeriodID: &missing}}, access.UserContext{})
	if !errors.Is(err, periods.ErrPeriodNotFound) {
		t.Fatalf("expected missing period error got %v", err)
	}
}

func TestGenerateNarrowsCountryScope(t *testing.T) {
	resolver := &fakeResolver{}
	svc := NewService(resolver, fakePeriods{}, &fakeRecords{}, nil, nil, nil)
	_, err := svc.Generate(context.Background(), Request{Filter: access.ScopeFilter{Scope: access.ScopeCountry, ProjectType: "HIV"}}, access.UserContext{Role: "viewer"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resolver.lastFilter.Scope != "" {
		t.Fatalf("expected country scope narrowed for non-admin, got %q", resolver.lastFilter.Scope)
	}
}
