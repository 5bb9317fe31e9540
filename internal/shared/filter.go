package shared

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/healthfin/healthfin/internal/access"
)

type filterQuery struct {
	Scope       string `validate:"omitempty,oneof=country province district facility"`
	ScopeID     string `validate:"omitempty,number"`
	ProjectType string `validate:"omitempty,max=32,printascii"`
	PeriodID    string `validate:"omitempty,number"`
	Quarter     string `validate:"omitempty,oneof=1 2 3 4"`
}

// FilterParser turns query parameters into a validated access.ScopeFilter.
type FilterParser struct {
	validate *validator.Validate
}

// NewFilterParser constructs a FilterParser.
func NewFilterParser() *FilterParser {
	return &FilterParser{validate: validator.New()}
}

// Parse reads scope, scopeId, projectType, periodId and quarter. Failures
// wrap access.ErrInvalidFilter.
func (p *FilterParser) Parse(values url.Values) (access.ScopeFilter, error) {
	q := filterQuery{
		Scope:       strings.ToLower(strings.TrimSpace(values.Get("scope"))),
		ScopeID:     strings.TrimSpace(values.Get("scopeId")),
		ProjectType: strings.TrimSpace(values.Get("projectType")),
		PeriodID:    strings.TrimSpace(values.Get("periodId")),
		Quarter:     strings.TrimSpace(values.Get("quarter")),
	}
	if err := p.validate.Struct(q); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return access.ScopeFilter{}, fmt.Errorf("%w: %s is invalid", access.ErrInvalidFilter, lowerFirst(fieldErrs[0].Field()))
		}
		return access.ScopeFilter{}, fmt.Errorf("%w: %v", access.ErrInvalidFilter, err)
	}

	filter := access.ScopeFilter{Scope: access.Scope(q.Scope), ProjectType: q.ProjectType}
	var err error
	if filter.ScopeID, err = optionalInt64(q.ScopeID); err != nil {
		return access.ScopeFilter{}, fmt.Errorf("%w: scopeId: %v", access.ErrInvalidFilter, err)
	}
	if filter.PeriodID, err = optionalInt64(q.PeriodID); err != nil {
		return access.ScopeFilter{}, fmt.Errorf("%w: periodId: %v", access.ErrInvalidFilter, err)
	}
	if q.Quarter != "" {
		n, _ := strconv.Atoi(q.Quarter)
		filter.Quarter = &n
	}
	return filter, filter.Validate()
}

// SplitList parses a comma separated parameter, dropping blanks.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func optionalInt64(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
