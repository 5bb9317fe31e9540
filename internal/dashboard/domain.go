package dashboard

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/healthfin/healthfin/internal/access"
	"github.com/healthfin/healthfin/internal/periods"
)

// Component names.
const (
	ComponentMetrics             = "metrics"
	ComponentProgramDistribution = "programDistribution"
	ComponentBudgetByDistrict    = "budgetByDistrict"
	ComponentBudgetByFacility    = "budgetByFacility"
	ComponentProvinceApprovals   = "provinceApprovals"
	ComponentDistrictApprovals   = "districtApprovals"
	ComponentTasks               = "tasks"
)

// Request is the read-only input shared by every component of one fetch.
type Request struct {
	Filter      access.ScopeFilter
	User        access.UserContext
	FacilityIDs []int64
	Period      periods.Period
}

// Component computes one named dashboard block.
type Component func(ctx context.Context, req Request) (any, error)

// ComponentResult is either data or an error entry.
type ComponentResult struct {
	Data    any    `json:"data,omitempty"`
	Error   bool   `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Response maps each requested component to its result.
type Response map[string]ComponentResult

// Metrics is the headline budget block.
type Metrics struct {
	TotalAllocated        decimal.Decimal `json:"totalAllocated"`
	TotalSpent            decimal.Decimal `json:"totalSpent"`
	Remaining             decimal.Decimal `json:"remaining"`
	UtilizationPercentage decimal.Decimal `json:"utilizationPercentage"`
	FacilityCount         int             `json:"facilityCount"`
	Period                periods.Period  `json:"period"`
}

// ProgramShare is one program's share of the allocated budget.
type ProgramShare struct {
	ProjectType string          `json:"projectType"`
	Allocated   decimal.Decimal `json:"allocated"`
	Percentage  decimal.Decimal `json:"percentage"`
}

// BudgetLine is allocated versus spent for one district or facility.
type BudgetLine struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Allocated   decimal.Decimal `json:"allocated"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	Utilization decimal.Decimal `json:"utilizationPercentage"`
}

// ApprovalCounts tallies planning approval statuses.
type ApprovalCounts struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Draft    int    `json:"draft"`
	Pending  int    `json:"pending"`
	Approved int    `json:"approved"`
	Rejected int    `json:"rejected"`
	Total    int    `json:"total"`
}

// Task flags a facility with missing filings for the period.
type Task struct {
	FacilityID       int64  `json:"facilityId"`
	FacilityName     string `json:"facilityName"`
	DistrictName     string `json:"districtName"`
	MissingPlanning  bool   `json:"missingPlanning"`
	MissingExecution bool   `json:"missingExecution"`
}
