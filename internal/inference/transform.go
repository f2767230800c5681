package inference

import (
	"fmt"
	"math"
)

// NumericImputer fills missing (NaN) numeric cells with the per-column
// statistic fitted at training time.
type NumericImputer struct {
	Strategy   string    `json:"strategy"`
	Statistics []float64 `json:"statistics"`
}

func (m NumericImputer) validate(cols int) error {
	if len(m.Statistics) != cols {
		return fmt.Errorf("%d statistics for %d columns", len(m.Statistics), cols)
	}
	for i, s := range m.Statistics {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return fmt.Errorf("statistic %d is not finite", i)
		}
	}
	return nil
}

// Transform fills x in place.
func (m NumericImputer) Transform(x []float64) {
	for i, v := range x {
		if math.IsNaN(v) {
			x[i] = m.Statistics[i]
		}
	}
}

// CategoricalImputer replaces cells equal to MissingValue with the fitted
// statistic. MissingValue defaults to the empty string.
type CategoricalImputer struct {
	Strategy     string   `json:"strategy"`
	Statistics   []string `json:"statistics"`
	MissingValue string   `json:"missing_value"`
}

func (m CategoricalImputer) validate(cols int) error {
	if len(m.Statistics) != cols {
		return fmt.Errorf("%d statistics for %d columns", len(m.Statistics), cols)
	}
	return nil
}

func (m CategoricalImputer) Transform(x []string) {
	for i, v := range x {
		if v == m.MissingValue || v == "nan" {
			x[i] = m.Statistics[i]
		}
	}
}

// LabelEncoder maps a class string to its index in Classes.
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

// Encode returns the class index of v. Unseen values map to the first
// class, so encoding never fails; known reports whether v was seen.
func (e LabelEncoder) Encode(v string) (code int, known bool) {
	for i, c := range e.Classes {
		if c == v {
			return i, true
		}
	}
	return 0, false
}

// Decode is the inverse of Encode.
func (e LabelEncoder) Decode(code int) (string, bool) {
	if code < 0 || code >= len(e.Classes) {
		return "", false
	}
	return e.Classes[code], true
}
