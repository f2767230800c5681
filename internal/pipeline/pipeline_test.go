package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"medreport/internal/fields"
	"medreport/internal/inference"
	"medreport/internal/insight"
	"medreport/internal/models"
	"medreport/internal/util"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func docx(t *testing.T, lines ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, l := range lines {
		body.WriteString("<w:p><w:r><w:t>" + l + "</w:t></w:r></w:p>")
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type mockPredictor struct{ mock.Mock }

func (m *mockPredictor) Predict(ctx context.Context, row fields.Row) (inference.Prediction, error) {
	args := m.Called(ctx, row)
	return args.Get(0).(inference.Prediction), args.Error(1)
}

type stubRenderer struct {
	err   error
	calls int
}

func (r *stubRenderer) Render(s models.Summary) ([]byte, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-stub " + s.ReportID), nil
}

func fixedOptions(out string) Options {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return Options{
		OutDir: out,
		Now:    func() time.Time { return at },
		NewID:  func() string { return "rep-1" },
	}
}

var scenario = []string{"Gender: Male", "BP: 150/95", "Heart Rate: 105 bpm", "BMI: 31.2"}

func TestRunInterpretation(t *testing.T) {
	out := t.TempDir()
	opts := fixedOptions(out)
	r := &stubRenderer{}
	opts.Renderer = r

	res, err := New(opts).Run(context.Background(), docx(t, scenario...), "labs.docx")
	require.NoError(t, err)
	require.Equal(t, "rep-1", res.ReportID)
	require.Equal(t, 5, res.Parsed.Len())

	s := res.Summary
	require.Len(t, s.Comparison, 3)
	for _, e := range s.Comparison {
		require.Equal(t, models.StatusHigh, e.Status)
	}
	require.Len(t, s.Observations, 3)
	require.NotEqual(t, insight.NeutralConclusion, s.Conclusion)
	require.Equal(t, "Male", s.Patient.Gender)
	require.Equal(t, "01 Mar 2026", s.Patient.ReportDate)
	require.Empty(t, s.PredictedLabel)
	require.True(t, strings.HasSuffix(res.SummaryText, Advice))
	require.Equal(t, 1, r.calls)

	dir := filepath.Join(out, "rep-1")
	require.Equal(t, filepath.Join(dir, PDFFile), res.PDFPath)
	for _, f := range []string{TextFile, RowFile, SummaryFile, PDFFile} {
		require.FileExists(t, filepath.Join(dir, f))
	}
	b, err := os.ReadFile(filepath.Join(dir, RowFile))
	require.NoError(t, err)
	rows, err := fields.ReadCSV(bytes.NewReader(b))
	require.NoError(t, err)
	require.Equal(t, "150", rows[0].Get(fields.SystolicBP))

	var stored models.Summary
	b, err = os.ReadFile(filepath.Join(dir, SummaryFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &stored))
	require.Equal(t, s.Conclusion, stored.Conclusion)
}

func TestRunDiagnosis(t *testing.T) {
	p := &mockPredictor{}
	p.On("Predict", mock.Anything, mock.MatchedBy(func(r fields.Row) bool {
		return r.Get(fields.SystolicBP) == "150" && r.Get(fields.Gender) == "Male"
	})).Return(inference.Prediction{Label: "Hypertension", Decoded: true}, nil).Once()

	opts := fixedOptions("")
	opts.Predictor = p
	opts.Renderer = &stubRenderer{}
	pl := New(opts)
	require.True(t, pl.Diagnoses())

	res, err := pl.Run(context.Background(), docx(t, scenario...), "labs.docx")
	require.NoError(t, err)
	require.Equal(t, "Hypertension", res.Summary.PredictedLabel)
	require.Equal(t, "Predicted diagnosis: Hypertension. Please consult a medical professional.", res.SummaryText)
	require.Empty(t, res.PDFPath)
	p.AssertExpectations(t)
}

func TestRunInferenceFailureIsPerRequest(t *testing.T) {
	p := &mockPredictor{}
	p.On("Predict", mock.Anything, mock.Anything).
		Return(inference.Prediction{}, errors.New("corrupt row: "+util.ErrInference.Error())).Once()
	p.On("Predict", mock.Anything, mock.Anything).
		Return(inference.Prediction{Label: "Healthy"}, nil).Once()

	opts := fixedOptions("")
	opts.Predictor = p
	opts.Renderer = &stubRenderer{}
	pl := New(opts)

	_, err := pl.Run(context.Background(), docx(t, scenario...), "labs.docx")
	require.Equal(t, util.KindInference, util.KindOf(err))
	require.NotContains(t, util.DetailOf(err), "corrupt row")

	res, err := pl.Run(context.Background(), docx(t, scenario...), "labs.docx")
	require.NoError(t, err)
	require.Equal(t, "Healthy", res.Summary.PredictedLabel)
}

func TestRunRenderFailureKeepsSummary(t *testing.T) {
	r := &stubRenderer{err: errors.New("font missing")}
	opts := fixedOptions("")
	opts.Renderer = r
	pl := New(opts)

	res, err := pl.Run(context.Background(), docx(t, scenario...), "labs.docx")
	require.Equal(t, util.KindRender, util.KindOf(err))
	require.Len(t, res.Summary.Comparison, 3)
	require.NotEmpty(t, res.SummaryText)

	r.err = nil
	b, err := pl.Render(res.Summary)
	require.NoError(t, err)
	require.Contains(t, string(b), "rep-1")
}

func TestRunRenderFailureWritesOtherArtifacts(t *testing.T) {
	out := t.TempDir()
	opts := fixedOptions(out)
	opts.Renderer = &stubRenderer{err: errors.New("font missing")}

	res, err := New(opts).Run(context.Background(), docx(t, scenario...), "labs.docx")
	require.Equal(t, util.KindRender, util.KindOf(err))
	require.Empty(t, res.PDFPath)

	dir := filepath.Join(out, "rep-1")
	require.Equal(t, dir, res.Dir)
	for _, f := range []string{TextFile, RowFile, SummaryFile} {
		require.FileExists(t, filepath.Join(dir, f))
	}
	require.NoFileExists(t, filepath.Join(dir, PDFFile))

	var stored models.Summary
	b, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &stored))
	require.Equal(t, res.Summary.Conclusion, stored.Conclusion)
}

func TestRunRejectsUnsupported(t *testing.T) {
	_, err := New(fixedOptions("")).Run(context.Background(), []byte("BP 120/80"), "scan.png")
	require.Equal(t, util.KindUnsupportedFormat, util.KindOf(err))

	_, err = New(fixedOptions("")).Run(context.Background(), []byte("garbage"), "labs.docx")
	require.Equal(t, util.KindUnreadable, util.KindOf(err))
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := fixedOptions("")
	r := &stubRenderer{}
	opts.Renderer = r

	_, err := New(opts).Run(ctx, docx(t, scenario...), "labs.docx")
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, r.calls)
}

func TestRunWithoutLabels(t *testing.T) {
	opts := fixedOptions("")
	opts.Renderer = &stubRenderer{}
	res, err := New(opts).Run(context.Background(), docx(t, "Thank you for visiting."), "note.docx")
	require.NoError(t, err)
	require.Zero(t, res.Parsed.Len())
	require.Empty(t, res.Summary.Comparison)
	require.Equal(t, insight.NeutralConclusion, res.Summary.Conclusion)
	require.Len(t, res.Row.Values(), len(fields.Schema))
}

func TestRunRendersRealPDF(t *testing.T) {
	res, err := New(fixedOptions(t.TempDir())).Run(context.Background(), docx(t, scenario...), "labs.docx")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(res.PDF, []byte("%PDF-")))
	require.FileExists(t, res.PDFPath)
}
