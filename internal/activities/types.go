package activities

import (
	"medreport/internal/fields"
	"medreport/internal/models"
)

type ListReportsInput struct {
	InputDir string `json:"input_dir"`
}

type ListReportsOutput struct {
	Paths []string `json:"paths"`
}

type ComputeReportIDInput struct {
	BatchID    string `json:"batch_id"`
	ReportPath string `json:"report_path"`
}

type ComputeReportIDOutput struct {
	ReportID string `json:"report_id"`
}

type ExtractTextInput struct {
	ReportPath string `json:"report_path"`
}

type ExtractTextOutput struct {
	Text          string `json:"text"`
	Units         int    `json:"units"`
	DegradedUnits []int  `json:"degraded_units,omitempty"`
}

type ParseFieldsInput struct {
	Text string `json:"text"`
}

type ParseFieldsOutput struct {
	Fields []fields.Value `json:"fields"`
}

type AssessInput struct {
	ReportID string         `json:"report_id"`
	Fields   []fields.Value `json:"fields"`
}

type AssessOutput struct {
	Summary models.Summary `json:"summary"`
}

type PredictInput struct {
	Fields []fields.Value `json:"fields"`
}

type PredictOutput struct {
	Label   string `json:"label"`
	Decoded bool   `json:"decoded"`
}

type RenderReportInput struct {
	Text    string         `json:"text"`
	Fields  []fields.Value `json:"fields"`
	Summary models.Summary `json:"summary"`
}

type RenderReportOutput struct {
	PDFPath string `json:"pdf_path"`
}

type RecordReportInput struct {
	Report models.Report `json:"report"`
}

type WriteBatchSummaryInput struct {
	BatchID string         `json:"batch_id"`
	Summary map[string]any `json:"summary"`
}
