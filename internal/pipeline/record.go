package pipeline

import (
	"medreport/internal/fields"
	"medreport/internal/models"
	"medreport/internal/util"
)

// NewReport builds the persisted record for a successful interpretation.
func NewReport(s models.Summary, row fields.Row, filename, pdfPath string) models.Report {
	present := map[string]string{}
	for f, v := range row.Map() {
		if v != "" {
			present[f] = v
		}
	}
	return models.Report{
		ReportID:       s.ReportID,
		Filename:       filename,
		Status:         models.ReportProcessed,
		Patient:        s.Patient,
		Fields:         present,
		Comparison:     s.Comparison,
		Observations:   s.Observations,
		Conclusion:     s.Conclusion,
		PredictedLabel: s.PredictedLabel,
		SummaryText:    SummaryText(s),
		PDFPath:        pdfPath,
		CreatedAt:      s.GeneratedAt,
	}
}

// Report converts a finished run into its record.
func (r Result) Report(filename string) models.Report {
	return NewReport(r.Summary, r.Row, filename, r.PDFPath)
}

// FailedReport records a run that stopped at err. Only the kind and the
// user-safe detail are kept.
func FailedReport(reportID, filename string, err error) models.Report {
	return models.Report{
		ReportID:     reportID,
		Filename:     filename,
		Status:       models.ReportFailed,
		FailKind:     string(util.KindOf(err)),
		Comparison:   []models.ComparisonEntry{},
		Observations: []string{},
		SummaryText:  util.DetailOf(err),
	}
}
