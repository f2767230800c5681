package api

import (
	"strconv"
	"strings"

	"medreport/internal/fields"
	"medreport/internal/models"
)

type LatestVitals struct {
	BP          *string `json:"bp"`
	BPStatus    *string `json:"bp_status"`
	Sugar       *string `json:"sugar"`
	SugarStatus *string `json:"sugar_status"`
	SpO2        *string `json:"spo2"`
	HeartRate   *string `json:"heart_rate"`
}

type Dashboard struct {
	LatestVitals *LatestVitals `json:"latest_vitals"`
	// SugarTrend holds one glucose reading per report, oldest first.
	SugarTrend []float64 `json:"sugar_trend"`
}

// BuildDashboard derives the dashboard from reports ordered newest first.
// Failed reports are ignored. Per report, a random glucose reading wins over
// a fasting one.
func BuildDashboard(reports []models.Report) Dashboard {
	processed := make([]models.Report, 0, len(reports))
	for _, rep := range reports {
		if rep.Status != models.ReportFailed {
			processed = append(processed, rep)
		}
	}
	d := Dashboard{SugarTrend: []float64{}}
	if len(processed) == 0 {
		return d
	}

	latest := &LatestVitals{}
	head := processed[0]
	for _, e := range head.Comparison {
		if strings.Contains(strings.ToLower(e.Vital), "blood pressure") {
			latest.BP = strPtr(e.PatientValue)
			latest.BPStatus = strPtr(string(e.Status))
			break
		}
	}
	latest.SpO2 = fieldPtr(head.Fields, fields.SpO2)
	latest.HeartRate = fieldPtr(head.Fields, fields.HeartRate)

	// Walk newest to oldest, then reverse.
	trend := make([]float64, 0, len(processed))
	for i, rep := range processed {
		e, ok := sugarEntry(rep.Comparison)
		if !ok {
			continue
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(e.PatientValue), 64); err == nil {
			trend = append(trend, v)
		}
		if i == 0 {
			latest.Sugar = strPtr(e.PatientValue)
			latest.SugarStatus = strPtr(string(e.Status))
		}
	}
	for i, j := 0, len(trend)-1; i < j; i, j = i+1, j-1 {
		trend[i], trend[j] = trend[j], trend[i]
	}

	d.LatestVitals = latest
	d.SugarTrend = trend
	return d
}

func sugarEntry(entries []models.ComparisonEntry) (models.ComparisonEntry, bool) {
	var fasting *models.ComparisonEntry
	for i, e := range entries {
		vital := strings.ToLower(e.Vital)
		switch {
		case strings.Contains(vital, "random"):
			return e, true
		case strings.Contains(vital, "fasting") && fasting == nil:
			fasting = &entries[i]
		}
	}
	if fasting == nil {
		return models.ComparisonEntry{}, false
	}
	return *fasting, true
}

func fieldPtr(m map[string]string, f fields.Field) *string {
	v, ok := m[string(f)]
	if !ok || v == "" {
		return nil
	}
	return &v
}

func strPtr(s string) *string { return &s }
