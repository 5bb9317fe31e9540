package access

import (
	"errors"
	"fmt"
	"strings"
)

// Scope is an organisational level a request is evaluated at.
type Scope string

const (
	ScopeCountry  Scope = "country"
	ScopeProvince Scope = "province"
	ScopeDistrict Scope = "district"
	ScopeFacility Scope = "facility"
)

// Roles that bypass facility access filtering.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

var (
	// ErrInvalidFilter marks request filters that fail validation.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrScopeIDRequired is returned when a non-country scope has no scope ID.
	ErrScopeIDRequired = fmt.Errorf("%w: scopeId required", ErrInvalidFilter)
)

// ScopeFilter narrows a request to an organisational unit, program and period.
type ScopeFilter struct {
	Scope       Scope  `json:"scope,omitempty"`
	ScopeID     *int64 `json:"scopeId,omitempty"`
	ProjectType string `json:"projectType,omitempty"`
	PeriodID    *int64 `json:"periodId,omitempty"`
	Quarter     *int   `json:"quarter,omitempty"`
}

// QuarterNumber returns the selected quarter or zero when unset.
func (f ScopeFilter) QuarterNumber() int {
	if f.Quarter == nil {
		return 0
	}
	return *f.Quarter
}

// Validate checks the scope value, scope ID presence and the quarter range.
func (f ScopeFilter) Validate() error {
	switch f.Scope {
	case "", ScopeCountry:
	case ScopeProvince, ScopeDistrict, ScopeFacility:
		if f.ScopeID == nil {
			return fmt.Errorf("%w for %s scope", ErrScopeIDRequired, f.Scope)
		}
		if *f.ScopeID <= 0 {
			return fmt.Errorf("%w: scopeId must be positive", ErrInvalidFilter)
		}
	default:
		return fmt.Errorf("%w: unknown scope %q", ErrInvalidFilter, f.Scope)
	}
	if f.Quarter != nil && (*f.Quarter < 1 || *f.Quarter > 4) {
		return fmt.Errorf("%w: quarter must be between 1 and 4", ErrInvalidFilter)
	}
	return nil
}

// UserContext is the authenticated caller as produced by the auth layer.
type UserContext struct {
	UserID                string   `json:"userId"`
	Role                  string   `json:"role"`
	AccessibleFacilityIDs []int64  `json:"accessibleFacilityIds"`
	Permissions           []string `json:"permissions"`
}

// IsAdmin reports whether the user bypasses facility filtering.
func (u UserContext) IsAdmin() bool {
	switch strings.ToLower(strings.TrimSpace(u.Role)) {
	case RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// HasPermission reports whether the user holds perm. Admins hold every permission.
func (u UserContext) HasPermission(perm string) bool {
	if u.IsAdmin() {
		return true
	}
	want := strings.ToLower(strings.TrimSpace(perm))
	for _, p := range u.Permissions {
		if strings.ToLower(strings.TrimSpace(p)) == want {
			return true
		}
	}
	return false
}

// CanAccess reports whether the user may see the facility.
func (u UserContext) CanAccess(facilityID int64) bool {
	if u.IsAdmin() {
		return true
	}
	for _, id := range u.AccessibleFacilityIDs {
		if id == facilityID {
			return true
		}
	}
	return false
}
