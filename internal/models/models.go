package models

import "time"

type Status string

const (
	StatusNormal   Status = "Normal"
	StatusHigh     Status = "High"
	StatusLow      Status = "Low"
	StatusAbnormal Status = "Abnormal"
	StatusUnknown  Status = "Unknown"
)

// OutOfRange reports whether s should produce an observation.
func (s Status) OutOfRange() bool {
	return s == StatusHigh || s == StatusLow || s == StatusAbnormal
}

type ComparisonEntry struct {
	Vital        string `json:"vital"`
	PatientValue string `json:"patient_value"`
	Reference    string `json:"reference"`
	Status       Status `json:"status"`
}

type Patient struct {
	ID         string `json:"patient_id,omitempty"`
	Age        string `json:"age,omitempty"`
	Gender     string `json:"gender,omitempty"`
	BloodGroup string `json:"blood_group,omitempty"`
	ReportDate string `json:"report_date,omitempty"`
}

// Vital is one labelled value shown in the rendered vitals section.
type Vital struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Summary is the bundle handed to the renderer. Each pipeline run owns its own.
type Summary struct {
	ReportID       string            `json:"report_id"`
	Patient        Patient           `json:"patient"`
	Vitals         []Vital           `json:"vitals"`
	Comparison     []ComparisonEntry `json:"comparison"`
	Observations   []string          `json:"observations"`
	Conclusion     string            `json:"conclusion"`
	PredictedLabel string            `json:"predicted_label,omitempty"`
	GeneratedAt    time.Time         `json:"generated_at"`
}

const (
	ReportProcessed = "processed"
	ReportFailed    = "failed"
)

// Report is the persisted record of one interpreted upload.
type Report struct {
	ReportID       string            `json:"report_id"`
	BatchID        string            `json:"batch_id,omitempty"`
	Filename       string            `json:"filename"`
	Status         string            `json:"status"`
	FailKind       string            `json:"fail_kind,omitempty"`
	Patient        Patient           `json:"patient"`
	Fields         map[string]string `json:"fields,omitempty"`
	Comparison     []ComparisonEntry `json:"comparison"`
	Observations   []string          `json:"observations"`
	Conclusion     string            `json:"conclusion,omitempty"`
	PredictedLabel string            `json:"predicted_label,omitempty"`
	SummaryText    string            `json:"summary_text,omitempty"`
	PDFPath        string            `json:"pdf_path,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// HistoryItem is a row of the recent-reports listing.
type HistoryItem struct {
	ReportID       string    `json:"report_id"`
	Filename       string    `json:"filename"`
	PatientID      string    `json:"patient_id,omitempty"`
	Status         string    `json:"status"`
	Overall        string    `json:"overall"`
	PredictedLabel string    `json:"predicted_label,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type Batch struct {
	BatchID   string    `json:"batch_id"`
	Dir       string    `json:"dir"`
	CreatedAt time.Time `json:"created_at"`
}
