package render

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"medreport/internal/extract"
	"medreport/internal/fields"
	"medreport/internal/models"

	"github.com/stretchr/testify/require"
)

func fixedRenderer() *PDF {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &PDF{Title: DefaultTitle, Now: func() time.Time { return at }}
}

func readBack(t *testing.T, b []byte) extract.Document {
	t.Helper()
	doc, err := extract.ExtractBytes(b, "summary.pdf")
	require.NoError(t, err)
	return doc
}

func TestRenderSections(t *testing.T) {
	s := models.Summary{
		Patient:        models.Patient{ID: "P-1023", Age: "45", Gender: "Male", ReportDate: "01 Mar 2026"},
		Vitals:         []models.Vital{{Name: "Heart Rate", Value: "105 bpm"}},
		Observations:   []string{"Heart Rate is higher than the normal range."},
		Conclusion:     "Some values are outside the normal range (Heart Rate).",
		PredictedLabel: "Hypertension",
	}
	b, err := fixedRenderer().Render(s)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(b), "%PDF-"))

	doc := readBack(t, b)
	require.Equal(t, 1, doc.Units)
	for _, want := range []string{
		DefaultTitle, "Patient Details", "P-1023", Placeholder, "Vitals", "105 bpm",
		"Key Observations", "Conclusion", "Predicted Diagnosis", "Hypertension", "auto-generated",
	} {
		require.Contains(t, doc.Text, want)
	}
	require.Less(t, strings.Index(doc.Text, "Patient Details"), strings.Index(doc.Text, "Vitals"))
	require.Less(t, strings.Index(doc.Text, "Vitals"), strings.Index(doc.Text, "Predicted Diagnosis"))
}

func TestRenderOmitsDiagnosisWithoutLabel(t *testing.T) {
	b, err := fixedRenderer().Render(models.Summary{})
	require.NoError(t, err)

	doc := readBack(t, b)
	require.NotContains(t, doc.Text, "Predicted Diagnosis")
	require.Contains(t, doc.Text, Placeholder)
	require.Contains(t, doc.Text, "No vitals")
}

func TestRenderPaginates(t *testing.T) {
	var vitals []models.Vital
	for i := 0; i < 80; i++ {
		vitals = append(vitals, models.Vital{Name: fmt.Sprintf("Measurement %d", i), Value: "1"})
	}
	b, err := NewPDF().Render(models.Summary{Vitals: vitals})
	require.NoError(t, err)

	doc := readBack(t, b)
	require.Greater(t, doc.Units, 1)
	require.GreaterOrEqual(t, strings.Count(doc.Text, "auto-generated"), doc.Units)
}

func TestVitalsFromRow(t *testing.T) {
	row := fields.NewRow(fields.Parse("BP: 150/95\nHeart Rate: 105\nFBS 92\nBMI 31.2"))
	require.Equal(t, []models.Vital{
		{Name: "Blood Pressure", Value: "150 / 95 mmHg"},
		{Name: "Heart Rate", Value: "105 bpm"},
		{Name: "Blood Sugar", Value: "92 mg/dL"},
		{Name: "BMI", Value: "31.2"},
	}, Vitals(row))

	row = fields.NewRow(fields.Parse("Blood Sugar: 118"))
	require.Equal(t, []models.Vital{{Name: "Blood Sugar", Value: "118 mg/dL"}}, Vitals(row))
	require.Empty(t, Vitals(fields.NewRow(nil)))
}
