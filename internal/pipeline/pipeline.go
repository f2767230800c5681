// Package pipeline runs one uploaded document through extraction, parsing,
// range comparison, synthesis, optional diagnosis and rendering.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"medreport/internal/extract"
	"medreport/internal/fields"
	"medreport/internal/inference"
	"medreport/internal/insight"
	"medreport/internal/models"
	"medreport/internal/ranges"
	"medreport/internal/render"
	"medreport/internal/util"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Advice closes every summary sentence.
const Advice = "Please consult a medical professional."

// Artifact file names inside a report directory.
const (
	TextFile    = "extracted.txt"
	RowFile     = "patient_row.csv"
	SummaryFile = "summary.json"
	PDFFile     = "summary.pdf"
)

// Predictor is the diagnosis stage. *inference.Service satisfies it.
type Predictor interface {
	Predict(ctx context.Context, row fields.Row) (inference.Prediction, error)
}

type Options struct {
	Parser *fields.Parser
	// Predictor enables the diagnosis variant when non-nil.
	Predictor Predictor
	Renderer  render.Renderer
	// OutDir receives one directory per report. Empty disables artifact files.
	OutDir string
	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
	Now    func() time.Time
	NewID  func() string
}

// Pipeline is safe for concurrent Run calls; all per-run state is local.
type Pipeline struct {
	parser    *fields.Parser
	predictor Predictor
	renderer  render.Renderer
	outDir    string
	log       zerolog.Logger
	now       func() time.Time
	newID     func() string
}

func New(opts Options) *Pipeline {
	p := &Pipeline{
		parser:    opts.Parser,
		predictor: opts.Predictor,
		renderer:  opts.Renderer,
		outDir:    opts.OutDir,
		log:       zerolog.Nop(),
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if opts.Logger != nil {
		p.log = *opts.Logger
	}
	if p.parser == nil {
		p.parser = fields.NewParser(nil)
	}
	if p.renderer == nil {
		p.renderer = render.NewPDF()
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	return p
}

// Diagnoses reports whether this pipeline runs the diagnosis stage.
func (p *Pipeline) Diagnoses() bool { return p.predictor != nil }

type Result struct {
	ReportID    string
	SummaryText string
	PDF         []byte
	PDFPath     string
	Dir         string
	Summary     models.Summary
	Parsed      *fields.Parsed
	Row         fields.Row
	// Degraded lists pages or paragraphs that yielded no text.
	Degraded []int
}

// Run processes one document. Errors carry a util.Kind; a render failure
// still returns the Result with its Summary so rendering can be retried
// alone. Temporary resources belong to the caller.
func (p *Pipeline) Run(ctx context.Context, data []byte, name string) (Result, error) {
	started := p.now()
	res := Result{ReportID: p.newID()}
	log := p.log.With().Str("report_id", res.ReportID).Logger()

	doc, err := extract.ExtractBytes(data, name)
	if err != nil {
		return res, err
	}
	res.Degraded = doc.DegradedUnits
	if doc.Degraded() {
		log.Warn().Str("kind", string(util.KindExtractionDegraded)).Ints("units", doc.DegradedUnits).Msg("extraction degraded")
	}
	log.Debug().Str("stage", "extract").Int("units", doc.Units).Int("chars", len(doc.Text)).Msg("stage done")
	if err := ctx.Err(); err != nil {
		return res, err
	}

	res.Parsed = p.parser.Parse(doc.Text)
	res.Row = fields.NewRow(res.Parsed)
	if bad := badColumns(res.Row); len(bad) > 0 {
		log.Warn().Strs("columns", bad).Msg("non-numeric values in numeric columns")
	}
	log.Debug().Str("stage", "parse").Int("fields", res.Parsed.Len()).Msg("stage done")
	if err := ctx.Err(); err != nil {
		return res, err
	}

	res.Summary = Summarize(res.ReportID, res.Parsed, started)
	log.Debug().Str("stage", "assess").Int("entries", len(res.Summary.Comparison)).Msg("stage done")

	if p.predictor != nil {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		pred, err := p.predictor.Predict(ctx, res.Row)
		if err != nil {
			return res, util.NewError(util.KindInference, "", err)
		}
		res.Summary.PredictedLabel = pred.Label
		log.Debug().Str("stage", "predict").Bool("decoded", pred.Decoded).Msg("stage done")
	}
	res.SummaryText = SummaryText(res.Summary)

	if err := ctx.Err(); err != nil {
		return res, err
	}
	res.PDF, err = p.Render(res.Summary)
	if err != nil {
		// The summary is still valid; keep everything but the PDF on disk.
		if p.outDir != "" {
			res.Dir = filepath.Join(p.outDir, res.ReportID)
			if _, werr := WriteArtifacts(res.Dir, doc.Text, res.Row, res.Summary, nil); werr != nil {
				log.Error().Err(werr).Msg("write report artifacts")
			}
		}
		return res, err
	}

	if p.outDir != "" {
		res.Dir = filepath.Join(p.outDir, res.ReportID)
		res.PDFPath, err = WriteArtifacts(res.Dir, doc.Text, res.Row, res.Summary, res.PDF)
		if err != nil {
			return res, fmt.Errorf("write report artifacts: %w", err)
		}
	}

	log.Info().
		Int("fields", res.Parsed.Len()).
		Int("entries", len(res.Summary.Comparison)).
		Int("observations", len(res.Summary.Observations)).
		Int("degraded_units", len(res.Degraded)).
		Str("predicted_label", res.Summary.PredictedLabel).
		Dur("elapsed", p.now().Sub(started)).
		Msg("report interpreted")
	return res, nil
}

// Render draws s. It can be called again for a summary whose first render
// failed without re-running extraction.
func (p *Pipeline) Render(s models.Summary) ([]byte, error) {
	b, err := p.renderer.Render(s)
	if err != nil {
		return nil, util.NewError(util.KindRender, "", err)
	}
	return b, nil
}

// Summarize compares the parsed vitals and synthesizes the summary.
func Summarize(reportID string, parsed *fields.Parsed, at time.Time) models.Summary {
	row := fields.NewRow(parsed)
	comparison := ranges.Compare(parsed)
	return models.Summary{
		ReportID: reportID,
		Patient: models.Patient{
			ID:         row.Get(fields.PatientID),
			Age:        row.Get(fields.Age),
			Gender:     row.Get(fields.Gender),
			BloodGroup: row.Get(fields.BloodGroup),
			ReportDate: at.Format("02 Jan 2006"),
		},
		Vitals:       render.Vitals(row),
		Comparison:   comparison,
		Observations: insight.Observations(comparison),
		Conclusion:   insight.Conclusion(comparison),
		GeneratedAt:  at.UTC(),
	}
}

// SummaryText is the one-line result returned to callers.
func SummaryText(s models.Summary) string {
	if s.PredictedLabel != "" {
		return "Predicted diagnosis: " + s.PredictedLabel + ". " + Advice
	}
	return strings.TrimSpace(s.Conclusion + " " + Advice)
}

func badColumns(row fields.Row) []string {
	bad := fields.ValidateRow(row)
	out := make([]string, len(bad))
	for i, f := range bad {
		out[i] = string(f)
	}
	return out
}

// WriteArtifacts stores the run outputs under dir and returns the PDF path.
// pdf may be nil when rendering has not happened.
func WriteArtifacts(dir, text string, row fields.Row, s models.Summary, pdf []byte) (string, error) {
	if err := util.WriteTextAtomic(filepath.Join(dir, TextFile), text); err != nil {
		return "", err
	}
	var csv bytes.Buffer
	if err := fields.WriteCSV(&csv, row); err != nil {
		return "", err
	}
	if err := util.WriteBytesAtomic(filepath.Join(dir, RowFile), csv.Bytes()); err != nil {
		return "", err
	}
	if err := util.WriteJSONAtomic(filepath.Join(dir, SummaryFile), s); err != nil {
		return "", err
	}
	if pdf == nil {
		return "", nil
	}
	path := filepath.Join(dir, PDFFile)
	if err := util.WriteBytesAtomic(path, pdf); err != nil {
		return "", err
	}
	return path, nil
}
