package periods

import (
	"errors"
	"time"
)

// Status values of a reporting period.
const (
	StatusActive = "ACTIVE"
	StatusClosed = "CLOSED"
)

// ErrPeriodNotFound is returned when no reporting period matches the lookup.
var ErrPeriodNotFound = errors.New("periods: reporting period not found")

// Period is a reporting window data entries are filed against.
type Period struct {
	ID         int64     `json:"id"`
	Year       int       `json:"year"`
	PeriodType string    `json:"periodType"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	Status     string    `json:"status"`
}
