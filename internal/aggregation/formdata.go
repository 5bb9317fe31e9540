package aggregation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ActivityIndex maps activity codes to their raw record for one facility.
// Both accepted blob shapes (a list of activities carrying a code, or an
// object keyed by code) normalise into this single form.
type ActivityIndex map[string]json.RawMessage

// Codes returns the codes present in the index in sorted order.
func (idx ActivityIndex) Codes() []string {
	codes := make([]string, 0, len(idx))
	for code := range idx {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// NormalizeActivities decodes an activities blob into an ActivityIndex.
func NormalizeActivities(raw json.RawMessage) (ActivityIndex, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ActivityIndex{}, nil
	}
	switch trimmed[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("aggregation: decode activity list: %w", err)
		}
		idx := make(ActivityIndex, len(list))
		for _, item := range list {
			var head struct {
				Code string `json:"code"`
			}
			if err := json.Unmarshal(item, &head); err != nil || strings.TrimSpace(head.Code) == "" {
				continue
			}
			idx[strings.TrimSpace(head.Code)] = item
		}
		return idx, nil
	case '{':
		var byCode map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &byCode); err != nil {
			return nil, fmt.Errorf("aggregation: decode activity map: %w", err)
		}
		return ActivityIndex(byCode), nil
	}
	return nil, fmt.Errorf("aggregation: unsupported activities shape %q", trimmed[0])
}

// FormActivities extracts the activities member from a stored form-data
// document ({"activities": ...}).
func FormActivities(formData json.RawMessage) (ActivityIndex, error) {
	trimmed := bytes.TrimSpace(formData)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ActivityIndex{}, nil
	}
	var doc struct {
		Activities json.RawMessage `json:"activities"`
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("aggregation: decode form data: %w", err)
	}
	return NormalizeActivities(doc.Activities)
}

// amount accepts JSON numbers, numeric strings, null and "" (zero).
type amount struct {
	value decimal.Decimal
	set   bool
}

func (a *amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		s = strings.TrimSpace(unquoted)
		if s == "" {
			return nil
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", s, err)
	}
	a.value = d
	a.set = true
	return nil
}

type quarterAmounts struct {
	Q1 amount `json:"q1"`
	Q2 amount `json:"q2"`
	Q3 amount `json:"q3"`
	Q4 amount `json:"q4"`
}

type activityRecord struct {
	Code string `json:"code"`
	Name string `json:"name"`
	quarterAmounts
	NetAmount         *quarterAmounts `json:"netAmount"`
	CumulativeBalance amount          `json:"cumulative_balance"`
}
