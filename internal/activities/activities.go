package activities

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"medreport/internal/config"
	"medreport/internal/extract"
	"medreport/internal/fields"
	"medreport/internal/models"
	"medreport/internal/pipeline"
	"medreport/internal/util"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.temporal.io/sdk/temporal"
)

const BatchSummaryFile = "batch_summary.json"

// ReportStore persists interpretation records. *storage.ReportRepo satisfies it.
type ReportStore interface {
	Insert(ctx context.Context, rep models.Report) error
}

type Activities struct {
	cfg       config.Config
	store     ReportStore
	predictor pipeline.Predictor
	pipe      *pipeline.Pipeline
	parser    *fields.Parser
	log       zerolog.Logger
	now       func() time.Time
}

// New wires the batch activities. predictor may be nil, in which case
// PredictActivity reports the model as unavailable.
func New(cfg config.Config, store ReportStore, predictor pipeline.Predictor, log zerolog.Logger) *Activities {
	return &Activities{
		cfg:       cfg,
		store:     store,
		predictor: predictor,
		pipe:      pipeline.New(pipeline.Options{Logger: &log}),
		parser:    fields.NewParser(nil),
		log:       log,
		now:       time.Now,
	}
}

func (a *Activities) ListReportsActivity(ctx context.Context, in ListReportsInput) (ListReportsOutput, error) {
	_ = ctx
	entries, err := os.ReadDir(in.InputDir)
	if err != nil {
		return ListReportsOutput{}, fmt.Errorf("read input dir: %w", err)
	}
	paths := make([]string, 0)
	for _, e := range entries {
		if e.IsDir() || !extract.Supported(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(in.InputDir, e.Name()))
	}
	sort.Strings(paths)
	return ListReportsOutput{Paths: paths}, nil
}

// ComputeReportIDActivity derives a stable id from the batch and the file
// content, so re-running a batch overwrites rather than duplicates.
func (a *Activities) ComputeReportIDActivity(ctx context.Context, in ComputeReportIDInput) (ComputeReportIDOutput, error) {
	_ = ctx
	f, err := os.Open(in.ReportPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ComputeReportIDOutput{}, classify(fmt.Errorf("%s: %w", in.ReportPath, util.ErrNotFound))
		}
		return ComputeReportIDOutput{}, fmt.Errorf("open file for hash: %w", err)
	}
	defer f.Close()
	sum, err := util.SHA256HexFromReader(f)
	if err != nil {
		return ComputeReportIDOutput{}, fmt.Errorf("hash file: %w", err)
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(in.BatchID+"/"+sum))
	return ComputeReportIDOutput{ReportID: id.String()}, nil
}

func (a *Activities) ExtractTextActivity(ctx context.Context, in ExtractTextInput) (ExtractTextOutput, error) {
	_ = ctx
	doc, err := extract.ExtractFile(in.ReportPath)
	if err != nil {
		return ExtractTextOutput{}, classify(err)
	}
	if doc.Degraded() {
		a.log.Warn().
			Str("kind", string(util.KindExtractionDegraded)).
			Str("path", in.ReportPath).
			Ints("units", doc.DegradedUnits).
			Msg("extraction degraded")
	}
	return ExtractTextOutput{Text: doc.Text, Units: doc.Units, DegradedUnits: doc.DegradedUnits}, nil
}

func (a *Activities) ParseFieldsActivity(ctx context.Context, in ParseFieldsInput) (ParseFieldsOutput, error) {
	_ = ctx
	return ParseFieldsOutput{Fields: a.parser.Parse(in.Text).Values()}, nil
}

func (a *Activities) AssessActivity(ctx context.Context, in AssessInput) (AssessOutput, error) {
	_ = ctx
	if in.ReportID == "" {
		return AssessOutput{}, classify(fmt.Errorf("assess: empty report id: %w", util.ErrInvalidInput))
	}
	return AssessOutput{Summary: pipeline.Summarize(in.ReportID, parsedFrom(in.Fields), a.now())}, nil
}

func (a *Activities) PredictActivity(ctx context.Context, in PredictInput) (PredictOutput, error) {
	if a.predictor == nil {
		return PredictOutput{}, classify(fmt.Errorf("diagnosis not enabled on this worker: %w", util.ErrArtifactLoad))
	}
	pred, err := a.predictor.Predict(ctx, fields.NewRow(parsedFrom(in.Fields)))
	if err != nil {
		return PredictOutput{}, classify(util.NewError(util.KindInference, "", err))
	}
	return PredictOutput{Label: pred.Label, Decoded: pred.Decoded}, nil
}

func (a *Activities) RenderReportActivity(ctx context.Context, in RenderReportInput) (RenderReportOutput, error) {
	_ = ctx
	pdf, err := a.pipe.Render(in.Summary)
	if err != nil {
		return RenderReportOutput{}, classify(err)
	}
	dir := filepath.Join(a.cfg.ReportsDir(), in.Summary.ReportID)
	path, err := pipeline.WriteArtifacts(dir, in.Text, fields.NewRow(parsedFrom(in.Fields)), in.Summary, pdf)
	if err != nil {
		return RenderReportOutput{}, fmt.Errorf("write report artifacts: %w", err)
	}
	return RenderReportOutput{PDFPath: path}, nil
}

func (a *Activities) RecordReportActivity(ctx context.Context, in RecordReportInput) error {
	if err := a.store.Insert(ctx, in.Report); err != nil {
		return err
	}
	a.log.Info().
		Str("report_id", in.Report.ReportID).
		Str("batch_id", in.Report.BatchID).
		Str("status", in.Report.Status).
		Str("fail_kind", in.Report.FailKind).
		Msg("report recorded")
	return nil
}

func (a *Activities) WriteBatchSummaryActivity(ctx context.Context, in WriteBatchSummaryInput) error {
	_ = ctx
	outPath := filepath.Join(a.cfg.BatchesDir(), in.BatchID, BatchSummaryFile)
	return util.WriteJSONAtomic(outPath, in.Summary)
}

func parsedFrom(values []fields.Value) *fields.Parsed {
	p := fields.NewParsed()
	for _, v := range values {
		p.Set(v.Field, v.Value)
	}
	return p
}

// classify turns per-report failures into non-retryable application errors
// typed by util.Kind, so the workflow can end the report as failed instead of
// failing itself. Infrastructure errors pass through unchanged.
func classify(err error) error {
	switch kind := util.KindOf(err); kind {
	case util.KindNotFound, util.KindUnsupportedFormat, util.KindUnreadable,
		util.KindArtifactLoad, util.KindInference, util.KindRender, util.KindInvalidInput:
		return temporal.NewNonRetryableApplicationError(util.DetailOf(err), string(kind), err)
	default:
		return err
	}
}
