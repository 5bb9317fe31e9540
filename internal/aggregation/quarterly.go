package aggregation

import "github.com/shopspring/decimal"

// QuarterlyValues carries the four quarter amounts of an activity and its total.
type QuarterlyValues struct {
	Q1    decimal.Decimal `json:"q1"`
	Q2    decimal.Decimal `json:"q2"`
	Q3    decimal.Decimal `json:"q3"`
	Q4    decimal.Decimal `json:"q4"`
	Total decimal.Decimal `json:"total"`
}

// NewFlowValues builds values whose total is the sum of the quarters.
func NewFlowValues(q1, q2, q3, q4 decimal.Decimal) QuarterlyValues {
	qv := QuarterlyValues{Q1: q1, Q2: q2, Q3: q3, Q4: q4}
	qv.Total = qv.QuarterSum()
	return qv
}

// QuarterSum adds the four quarters.
func (qv QuarterlyValues) QuarterSum() decimal.Decimal {
	return qv.Q1.Add(qv.Q2).Add(qv.Q3).Add(qv.Q4)
}

// LastNonZero returns the latest reported quarter (q4, q3, q2, q1 precedence).
// A zero in a later quarter is treated as "not reported" and falls through.
func (qv QuarterlyValues) LastNonZero() decimal.Decimal {
	for _, q := range []decimal.Decimal{qv.Q4, qv.Q3, qv.Q2, qv.Q1} {
		if !q.IsZero() {
			return q
		}
	}
	return decimal.Zero
}

// Quarter returns the value of the given quarter (1..4) or zero.
func (qv QuarterlyValues) Quarter(n int) decimal.Decimal {
	switch n {
	case 1:
		return qv.Q1
	case 2:
		return qv.Q2
	case 3:
		return qv.Q3
	case 4:
		return qv.Q4
	}
	return decimal.Zero
}

// Sub subtracts other quarter-wise, including the totals.
func (qv QuarterlyValues) Sub(other QuarterlyValues) QuarterlyValues {
	return QuarterlyValues{
		Q1:    qv.Q1.Sub(other.Q1),
		Q2:    qv.Q2.Sub(other.Q2),
		Q3:    qv.Q3.Sub(other.Q3),
		Q4:    qv.Q4.Sub(other.Q4),
		Total: qv.Total.Sub(other.Total),
	}
}

// IsZero reports whether every field is zero.
func (qv QuarterlyValues) IsZero() bool {
	return qv.Q1.IsZero() && qv.Q2.IsZero() && qv.Q3.IsZero() && qv.Q4.IsZero() && qv.Total.IsZero()
}

// SumQuarterlyValues adds the quarters field-wise and recomputes the total from
// the summed quarters. Precomputed totals are never added, so cumulative
// overrides on individual rows cannot be double counted.
func SumQuarterlyValues(values []QuarterlyValues) QuarterlyValues {
	var sum QuarterlyValues
	for _, v := range values {
		sum.Q1 = sum.Q1.Add(v.Q1)
		sum.Q2 = sum.Q2.Add(v.Q2)
		sum.Q3 = sum.Q3.Add(v.Q3)
		sum.Q4 = sum.Q4.Add(v.Q4)
	}
	sum.Total = sum.QuarterSum()
	return sum
}
