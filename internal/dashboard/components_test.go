package dashboard

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/healthfin/healthfin/internal/aggregation"
	"github.com/healthfin/healthfin/internal/periods"
	"github.com/healthfin/healthfin/internal/records"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type memoryRecords struct {
	facilities []records.Facility
	entries    []records.FormEntry
	catalogs   map[string][]aggregation.ActivityDefinition
}

func (m *memoryRecords) Facilities(ctx context.Context, ids []int64) ([]records.Facility, error) {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []records.Facility
	for _, f := range m.facilities {
		if _, ok := want[f.ID]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memoryRecords) FormEntries(ctx context.Context, q records.EntryQuery) ([]records.FormEntry, error) {
	var out []records.FormEntry
	for _, e := range m.entries {
		if e.EntityType != q.EntityType {
			continue
		}
		if q.ProjectType != "" && e.ProjectType != q.ProjectType {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memoryRecords) Catalog(ctx context.Context, projectType, facilityType, entityType string) ([]aggregation.ActivityDefinition, error) {
	defs, ok := m.catalogs[facilityType]
	if !ok {
		return nil, records.ErrCatalogNotFound
	}
	return defs, nil
}

func status(s string) *string { return &s }

func formEntry(id, facilityID int64, program, entity, activities string, approval *string) records.FormEntry {
	return records.FormEntry{
		ID:             id,
		FacilityID:     facilityID,
		ProjectType:    program,
		EntityType:     entity,
		FormData:       json.RawMessage(`{"activities":` + activities + `}`),
		ApprovalStatus: approval,
	}
}

func sampleComponents() *Components {
	repo := &memoryRecords{
		facilities: []records.Facility{
			{ID: 1, Name: "Kibagabaga", FacilityType: "health_center", DistrictID: 10, DistrictName: "Gasabo"},
			{ID: 2, Name: "Kacyiru", FacilityType: "health_center", DistrictID: 10, DistrictName: "Gasabo"},
			{ID: 3, Name: "Remera", FacilityType: "health_center", DistrictID: 20, DistrictName: "Kicukiro"},
		},
		entries: []records.FormEntry{
			formEntry(1, 1, "HIV", records.EntityPlanning, `[{"code":"P1","q1":100,"q2":100},{"code":"P2","q3":200}]`, status("APPROVED")),
			formEntry(2, 2, "HIV", records.EntityPlanning, `[{"code":"P1","q1":100}]`, status("pending")),
			formEntry(3, 1, "TB", records.EntityPlanning, `{"T1":{"q1":"100"}}`, nil),
			formEntry(4, 1, "HIV", records.EntityExecution, `[{"code":"A_1","q1":400},{"code":"B_1","q1":50,"q2":50}]`, nil),
			formEntry(5, 2, "HIV", records.EntityExecution, `[{"code":"b_1","q1":25}]`, nil),
		},
		catalogs: map[string][]aggregation.ActivityDefinition{
			"health_center": {
				{Code: "A_1", Name: "Transfers", Category: "A", DisplayOrder: 1},
				{Code: "B_1", Name: "Salaries", Category: "B", Subcategory: "B-01", DisplayOrder: 1},
			},
		},
	}
	return NewComponents(repo, nil, nil)
}

func sampleRequest() Request {
	return Request{FacilityIDs: []int64{1, 2, 3}, Period: periods.Period{ID: 9, Year: 2025}}
}

func TestMetricsComponent(t *testing.T) {
	got, err := sampleComponents().Metrics(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	want := Metrics{
		TotalAllocated:        dec("600"),
		TotalSpent:            dec("125"),
		Remaining:             dec("475"),
		UtilizationPercentage: dec("20.83"),
		FacilityCount:         3,
		Period:                periods.Period{ID: 9, Year: 2025},
	}
	if diff := cmp.Diff(want, got, decimalEqual); diff != "" {
		t.Fatalf("metrics mismatch (-want +got):\n%s", diff)
	}
}

func TestMetricsComponentSingleQuarter(t *testing.T) {
	req := sampleRequest()
	q := 1
	req.Filter.Quarter = &q
	got, err := sampleComponents().Metrics(context.Background(), req)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	m := got.(Metrics)
	if !m.TotalAllocated.Equal(dec("300")) || !m.TotalSpent.Equal(dec("75")) {
		t.Fatalf("unexpected q1 figures allocated=%s spent=%s", m.TotalAllocated, m.TotalSpent)
	}
}

func TestProgramDistributionComponent(t *testing.T) {
	got, err := sampleComponents().ProgramDistribution(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("program distribution: %v", err)
	}
	want := []ProgramShare{
		{ProjectType: "HIV", Allocated: dec("500"), Percentage: dec("83.33")},
		{ProjectType: "TB", Allocated: dec("100"), Percentage: dec("16.67")},
	}
	if diff := cmp.Diff(want, got, decimalEqual); diff != "" {
		t.Fatalf("distribution mismatch (-want +got):\n%s", diff)
	}
}

func TestBudgetComponents(t *testing.T) {
	c := sampleComponents()
	byDistrict, err := c.BudgetByDistrict(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("by district: %v", err)
	}
	wantDistricts := []BudgetLine{
		{ID: 10, Name: "Gasabo", Allocated: dec("600"), Spent: dec("125"), Remaining: dec("475"), Utilization: dec("20.83")},
		{ID: 20, Name: "Kicukiro", Allocated: dec("0"), Spent: dec("0"), Remaining: dec("0"), Utilization: dec("0")},
	}
	if diff := cmp.Diff(wantDistricts, byDistrict, decimalEqual); diff != "" {
		t.Fatalf("district mismatch (-want +got):\n%s", diff)
	}

	byFacility, err := c.BudgetByFacility(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("by facility: %v", err)
	}
	lines := byFacility.([]BudgetLine)
	if len(lines) != 3 || !lines[1].Utilization.Equal(dec("25")) || !lines[0].Spent.Equal(dec("100")) {
		t.Fatalf("unexpected facility lines %+v", lines)
	}
}

func TestApprovalComponents(t *testing.T) {
	c := sampleComponents()
	province, err := c.ProvinceApprovals(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("province approvals: %v", err)
	}
	wantProvince := []ApprovalCounts{
		{ID: 10, Name: "Gasabo", Draft: 1, Pending: 1, Approved: 1, Total: 3},
		{ID: 20, Name: "Kicukiro"},
	}
	if diff := cmp.Diff(wantProvince, province); diff != "" {
		t.Fatalf("province approvals mismatch (-want +got):\n%s", diff)
	}

	district, err := c.DistrictApprovals(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("district approvals: %v", err)
	}
	wantDistrict := []ApprovalCounts{
		{ID: 1, Name: "Kibagabaga", Draft: 1, Approved: 1, Total: 2},
		{ID: 2, Name: "Kacyiru", Pending: 1, Total: 1},
		{ID: 3, Name: "Remera"},
	}
	if diff := cmp.Diff(wantDistrict, district); diff != "" {
		t.Fatalf("district approvals mismatch (-want +got):\n%s", diff)
	}
}

func TestTasksComponent(t *testing.T) {
	got, err := sampleComponents().Tasks(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	want := []Task{{FacilityID: 3, FacilityName: "Remera", DistrictName: "Kicukiro", MissingPlanning: true, MissingExecution: true}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tasks mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistryThroughOrchestrator(t *testing.T) {
	c := sampleComponents()
	o := NewOrchestrator(&countingResolver{ids: []int64{1, 2, 3}}, stubPeriods{period: periods.Period{ID: 9}}, c.Registry(), nil)
	resp, err := o.Fetch(context.Background(), nil, sampleRequest().Filter, sampleRequest().User)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(resp) != 7 {
		t.Fatalf("expected every built-in component, got %d", len(resp))
	}
	for name, result := range resp {
		if result.Error {
			t.Fatalf("%s failed: %s", name, result.Message)
		}
	}
}
