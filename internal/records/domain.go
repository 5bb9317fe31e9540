package records

import (
	"encoding/json"
	"errors"
	"strings"
)

// Entity types of form data entries.
const (
	EntityPlanning  = "planning"
	EntityExecution = "execution"
)

// Approval statuses of planning entries. A missing status counts as draft.
const (
	ApprovalDraft    = "DRAFT"
	ApprovalPending  = "PENDING"
	ApprovalApproved = "APPROVED"
	ApprovalRejected = "REJECTED"
)

var (
	// ErrCatalogNotFound is returned when no active catalog exists for a
	// project type and facility type.
	ErrCatalogNotFound = errors.New("records: activity catalog not found")
	// ErrUnknownEntityType rejects entity types other than planning/execution.
	ErrUnknownEntityType = errors.New("records: unknown entity type")
)

// Facility is a reporting unit.
type Facility struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	FacilityType     string `json:"facilityType"`
	DistrictID       int64  `json:"districtId"`
	DistrictName     string `json:"districtName"`
	ProvinceID       int64  `json:"provinceId"`
	ParentFacilityID *int64 `json:"parentFacilityId,omitempty"`
}

// FormEntry is one facility's planning or execution filing for a period.
type FormEntry struct {
	ID                int64           `json:"id"`
	FacilityID        int64           `json:"facilityId"`
	ProjectID         int64           `json:"projectId"`
	ProjectType       string          `json:"projectType"`
	ReportingPeriodID int64           `json:"reportingPeriodId"`
	EntityType        string          `json:"entityType"`
	FormData          json.RawMessage `json:"formData"`
	ApprovalStatus    *string         `json:"approvalStatus,omitempty"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
}

// Approval returns the normalised approval status.
func (e FormEntry) Approval() string {
	if e.ApprovalStatus == nil {
		return ApprovalDraft
	}
	status := strings.ToUpper(strings.TrimSpace(*e.ApprovalStatus))
	if status == "" {
		return ApprovalDraft
	}
	return status
}

// EntryQuery selects form entries.
type EntryQuery struct {
	FacilityIDs []int64
	PeriodID    int64
	EntityType  string
	// ProjectType restricts entries to one program when set.
	ProjectType string
}

// ValidEntityType reports whether t is planning or execution.
func ValidEntityType(t string) bool {
	return t == EntityPlanning || t == EntityExecution
}
