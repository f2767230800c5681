// Package insight turns a comparison table into observations and a conclusion.
package insight

import (
	"strings"

	"medreport/internal/models"
)

// MaxObservations caps the observation list.
const MaxObservations = 6

const (
	NeutralConclusion = "All examined vitals are within normal ranges. No abnormalities were detected."

	OverallNormal    = "Normal"
	OverallAttention = "Attention"
	OverallUnknown   = "Unknown"
)

// Observations returns one sentence per out-of-range vital, at most one per
// vital name, truncated in table order.
func Observations(entries []models.ComparisonEntry) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, e := range entries {
		if e.Vital == "" || seen[e.Vital] {
			continue
		}
		seen[e.Vital] = true
		switch e.Status {
		case models.StatusHigh:
			out = append(out, e.Vital+" is higher than the normal range.")
		case models.StatusLow:
			out = append(out, e.Vital+" is lower than the normal range.")
		case models.StatusAbnormal:
			out = append(out, e.Vital+" result is abnormal.")
		}
		if len(out) == MaxObservations {
			break
		}
	}
	return out
}

// Conclusion is NeutralConclusion only when every entry is Normal. An empty
// table is vacuously normal. Otherwise it names the out-of-range vitals and,
// separately, the ones whose value could not be assessed.
func Conclusion(entries []models.ComparisonEntry) string {
	var flagged, unassessed []string
	seen := map[string]bool{}
	for _, e := range entries {
		if e.Status == models.StatusNormal || seen[e.Vital] {
			continue
		}
		seen[e.Vital] = true
		if e.Status.OutOfRange() {
			flagged = append(flagged, e.Vital)
		} else {
			unassessed = append(unassessed, e.Vital)
		}
	}
	if len(flagged) == 0 && len(unassessed) == 0 {
		return NeutralConclusion
	}

	var parts []string
	if len(flagged) > 0 {
		parts = append(parts, "Some values are outside the normal range ("+strings.Join(flagged, ", ")+").")
	}
	if len(unassessed) > 0 {
		parts = append(parts, "Some values could not be assessed ("+strings.Join(unassessed, ", ")+").")
	}
	parts = append(parts, "A review by a qualified healthcare professional is recommended.")
	return strings.Join(parts, " ")
}

// Overall is the one-word status shown in report history. Out-of-range
// values take precedence; any unassessed value keeps the table from
// reading as Normal.
func Overall(entries []models.ComparisonEntry) string {
	if len(entries) == 0 {
		return OverallUnknown
	}
	overall := OverallNormal
	for _, e := range entries {
		switch {
		case e.Status.OutOfRange():
			return OverallAttention
		case e.Status != models.StatusNormal:
			overall = OverallUnknown
		}
	}
	return overall
}
