// Package render draws a report summary as a PDF document.
package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"medreport/internal/fields"
	"medreport/internal/models"
	"medreport/internal/util"

	"github.com/go-pdf/fpdf"
)

const (
	DefaultTitle = "Medical Report Summary"
	Placeholder  = "Not Available"
	Disclaimer   = "Note: This report is auto-generated using machine learning models. " +
		"It is NOT a medical diagnosis and must be reviewed by a licensed healthcare professional."
)

// Renderer turns a summary into document bytes.
type Renderer interface {
	Render(s models.Summary) ([]byte, error)
}

// PDF renders A4 portrait documents with fpdf.
type PDF struct {
	Title string
	// Now stamps document metadata; tests pin it for stable output.
	Now func() time.Time
}

func NewPDF() *PDF {
	return &PDF{Title: DefaultTitle, Now: time.Now}
}

const (
	margin     = 18.0
	lineH      = 6.0
	labelW     = 32.0
	footerSpan = 24.0
)

// Render never fails on missing optional data; absent patient fields are
// drawn as Placeholder and empty sections are omitted.
func (r *PDF) Render(s models.Summary) (out []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("%w: %v", util.ErrRender, rec)
		}
	}()

	title := r.Title
	if title == "" {
		title = DefaultTitle
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	doc := fpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle(title, false)
	doc.SetCreator("medreport", false)
	doc.SetCreationDate(now())
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(true, footerSpan)
	doc.SetFooterFunc(func() {
		doc.SetY(-footerSpan + 6)
		doc.SetFont("Helvetica", "I", 8)
		doc.SetTextColor(128, 128, 128)
		doc.MultiCell(0, 4, tr(Disclaimer), "", "L", false)
		doc.SetTextColor(0, 0, 0)
	})
	doc.AddPage()

	pageW, _ := doc.GetPageSize()
	contentW := pageW - 2*margin
	rule := func() {
		y := doc.GetY() + 2
		doc.SetDrawColor(160, 160, 160)
		doc.SetLineWidth(0.3)
		doc.Line(margin, y, pageW-margin, y)
		doc.SetY(y + 4)
	}
	heading := func(text string) {
		doc.SetFont("Helvetica", "B", 12)
		doc.CellFormat(0, 8, tr(text), "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
	}

	doc.SetFont("Helvetica", "B", 20)
	doc.CellFormat(0, 12, tr(title), "", 1, "C", false, 0, "")
	rule()

	heading("1. Patient Details")
	left := [][2]string{
		{"Patient ID", s.Patient.ID},
		{"Age", s.Patient.Age},
		{"Report Date", s.Patient.ReportDate},
	}
	right := [][2]string{
		{"Gender", s.Patient.Gender},
		{"Blood Group", s.Patient.BloodGroup},
	}
	half := contentW / 2
	for i := 0; i < len(left) || i < len(right); i++ {
		for col, items := range [][][2]string{left, right} {
			ln := col // the right column ends the line
			if i >= len(items) {
				doc.CellFormat(half, lineH, "", "", ln, "L", false, 0, "")
				continue
			}
			doc.SetFont("Helvetica", "B", 10)
			doc.CellFormat(labelW, lineH, tr(items[i][0]+":"), "", 0, "L", false, 0, "")
			doc.SetFont("Helvetica", "", 10)
			doc.CellFormat(half-labelW, lineH, tr(orPlaceholder(items[i][1])), "", ln, "L", false, 0, "")
		}
	}
	rule()

	heading("2. Vitals")
	if len(s.Vitals) == 0 {
		doc.MultiCell(contentW, lineH, tr("No vitals were found in the report."), "", "L", false)
	}
	for _, v := range s.Vitals {
		doc.MultiCell(contentW, lineH, tr(v.Name+": "+v.Value), "", "L", false)
	}
	rule()

	if len(s.Observations) > 0 {
		heading("3. Key Observations")
		for _, o := range s.Observations {
			doc.MultiCell(contentW, lineH, tr("- "+o), "", "L", false)
		}
		rule()
	}

	if s.Conclusion != "" {
		heading("4. Conclusion")
		doc.MultiCell(contentW, lineH, tr(s.Conclusion), "", "L", false)
		rule()
	}

	if s.PredictedLabel != "" {
		heading("Predicted Diagnosis")
		doc.SetFont("Helvetica", "", 11)
		doc.MultiCell(contentW, lineH, tr(s.PredictedLabel), "", "L", false)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrRender, err)
	}
	return buf.Bytes(), nil
}

func orPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return Placeholder
	}
	return v
}

// Vitals lists the vitals section entries for row. Entries without a value
// are left out.
func Vitals(row fields.Row) []models.Vital {
	var out []models.Vital
	add := func(name, value, unit string) {
		if value == "" {
			return
		}
		if unit != "" {
			value += " " + unit
		}
		out = append(out, models.Vital{Name: name, Value: value})
	}
	add("Blood Pressure", joinPair(row.Get(fields.SystolicBP), row.Get(fields.DiastolicBP)), "mmHg")
	add("Heart Rate", row.Get(fields.HeartRate), "bpm")
	add("Respiratory Rate", row.Get(fields.RespiratoryRate), "breaths/min")
	add("Body Temperature", row.Get(fields.BodyTemperature), "°C")
	add("SpO2", row.Get(fields.SpO2), "%")
	sugar := joinPair(row.Get(fields.FastingSugar), row.Get(fields.RandomSugar))
	if sugar == "" {
		sugar = row.Get(fields.Glucose)
	}
	add("Blood Sugar", sugar, "mg/dL")
	add("BMI", row.Get(fields.BMI), "")
	return out
}

func joinPair(a, b string) string {
	switch {
	case a != "" && b != "":
		return a + " / " + b
	case a != "":
		return a
	default:
		return b
	}
}
