package workflows

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"medreport/internal/activities"
	"medreport/internal/fields"
	"medreport/internal/models"
	"medreport/internal/pipeline"
	"medreport/internal/util"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	QueryGetReportStatus = "GetReportStatus"
	QueryGetProgress     = "GetProgress"
)

const defaultMaxChildren = 3

// Kinds that end a single report as failed. Anything else fails the workflow.
var reportFailureKinds = map[string]bool{
	string(util.KindNotFound):          true,
	string(util.KindUnsupportedFormat): true,
	string(util.KindUnreadable):        true,
	string(util.KindArtifactLoad):      true,
	string(util.KindInference):         true,
	string(util.KindRender):            true,
	string(util.KindInvalidInput):      true,
}

func BatchInterpretWorkflow(ctx workflow.Context, input BatchInterpretInput) (string, error) {
	progress := BatchProgress{
		BatchID:       input.BatchID,
		PerReport:     map[string]string{},
		ReportIDs:     map[string]string{},
		ChildWorkflow: map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetProgress, func() (BatchProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	var listOut activities.ListReportsOutput
	if err := workflow.ExecuteActivity(ctx, "ListReportsActivity", activities.ListReportsInput{InputDir: input.InputDir}).Get(ctx, &listOut); err != nil {
		return "", err
	}
	paths := listOut.Paths
	progress.Total = len(paths)
	maxChildren := input.MaxConcurrentChildren
	if maxChildren <= 0 {
		maxChildren = defaultMaxChildren
	}

	for i := 0; i < len(paths); i += maxChildren {
		end := i + maxChildren
		if end > len(paths) {
			end = len(paths)
		}
		futures := make([]workflow.ChildWorkflowFuture, 0, end-i)
		childPaths := make([]string, 0, end-i)
		for _, path := range paths[i:end] {
			name := filepath.Base(path)
			progress.PerReport[name] = "processing"
			workflowID := "report-" + sanitizeID(input.BatchID) + "-" + sanitizeID(name)
			childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{WorkflowID: workflowID})
			f := workflow.ExecuteChildWorkflow(childCtx, ReportProcessWorkflow, ReportProcessInput{
				BatchID:    input.BatchID,
				ReportPath: path,
				Diagnose:   input.Diagnose,
			})
			futures = append(futures, f)
			childPaths = append(childPaths, name)
			progress.ChildWorkflow[name] = workflowID
		}

		for idx, f := range futures {
			var outcome ReportOutcome
			err := f.Get(ctx, &outcome)
			name := childPaths[idx]
			if err != nil {
				progress.Failed++
				progress.PerReport[name] = models.ReportFailed
				continue
			}
			if outcome.Status == models.ReportFailed {
				progress.Failed++
			}
			progress.Done++
			progress.PerReport[name] = outcome.Status
			if outcome.ReportID != "" {
				progress.ReportIDs[name] = outcome.ReportID
			}
		}
	}
	_ = workflow.ExecuteActivity(ctx, "WriteBatchSummaryActivity", activities.WriteBatchSummaryInput{
		BatchID: input.BatchID,
		Summary: map[string]any{
			"batch_id":          input.BatchID,
			"total":             progress.Total,
			"done":              progress.Done,
			"failed":            progress.Failed,
			"per_report_status": progress.PerReport,
			"report_ids":        progress.ReportIDs,
			"generated_at":      workflow.Now(ctx),
		},
	}).Get(ctx, nil)

	return "completed", nil
}

// ReportProcessWorkflow interprets one document. Activities are not retried:
// the stages are deterministic, so a second attempt would fail the same way.
func ReportProcessWorkflow(ctx workflow.Context, input ReportProcessInput) (ReportOutcome, error) {
	status := ReportStatus{
		ReportPath:  input.ReportPath,
		CurrentStep: "init",
		Status:      "processing",
		Steps:       map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetReportStatus, func() (ReportStatus, error) {
		return status, nil
	}); err != nil {
		return ReportOutcome{}, err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	filename := filepath.Base(input.ReportPath)

	begin := func(step string) {
		status.CurrentStep = step
		status.Steps[step] = "processing"
	}
	finish := func() { status.Steps[status.CurrentStep] = "done" }
	fail := func(err error) (ReportOutcome, error) {
		kind, reason, ok := reportFailure(err)
		if !ok {
			return ReportOutcome{}, err
		}
		status.Status = models.ReportFailed
		status.FailKind = kind
		status.FailReason = reason
		status.Steps[status.CurrentStep] = "failed"
		if status.ReportID != "" {
			_ = workflow.ExecuteActivity(ctx, "RecordReportActivity", activities.RecordReportInput{Report: models.Report{
				ReportID:     status.ReportID,
				BatchID:      input.BatchID,
				Filename:     filename,
				Status:       models.ReportFailed,
				FailKind:     kind,
				Comparison:   []models.ComparisonEntry{},
				Observations: []string{},
				SummaryText:  reason,
			}}).Get(ctx, nil)
		}
		return ReportOutcome{ReportID: status.ReportID, Status: status.Status, FailKind: kind}, nil
	}

	begin("compute_report_id")
	var idOut activities.ComputeReportIDOutput
	if err := workflow.ExecuteActivity(ctx, "ComputeReportIDActivity", activities.ComputeReportIDInput{BatchID: input.BatchID, ReportPath: input.ReportPath}).Get(ctx, &idOut); err != nil {
		return fail(err)
	}
	status.ReportID = idOut.ReportID
	finish()

	begin("extract_text")
	var textOut activities.ExtractTextOutput
	if err := workflow.ExecuteActivity(ctx, "ExtractTextActivity", activities.ExtractTextInput{ReportPath: input.ReportPath}).Get(ctx, &textOut); err != nil {
		return fail(err)
	}
	finish()

	begin("parse_fields")
	var parseOut activities.ParseFieldsOutput
	if err := workflow.ExecuteActivity(ctx, "ParseFieldsActivity", activities.ParseFieldsInput{Text: textOut.Text}).Get(ctx, &parseOut); err != nil {
		return fail(err)
	}
	finish()

	begin("assess")
	var assessOut activities.AssessOutput
	if err := workflow.ExecuteActivity(ctx, "AssessActivity", activities.AssessInput{ReportID: status.ReportID, Fields: parseOut.Fields}).Get(ctx, &assessOut); err != nil {
		return fail(err)
	}
	summary := assessOut.Summary
	finish()

	if input.Diagnose {
		begin("predict")
		var predOut activities.PredictOutput
		if err := workflow.ExecuteActivity(ctx, "PredictActivity", activities.PredictInput{Fields: parseOut.Fields}).Get(ctx, &predOut); err != nil {
			return fail(err)
		}
		summary.PredictedLabel = predOut.Label
		finish()
	}

	begin("render_report")
	var renderOut activities.RenderReportOutput
	if err := workflow.ExecuteActivity(ctx, "RenderReportActivity", activities.RenderReportInput{Text: textOut.Text, Fields: parseOut.Fields, Summary: summary}).Get(ctx, &renderOut); err != nil {
		return fail(err)
	}
	finish()

	begin("record_report")
	rep := pipeline.NewReport(summary, rowFrom(parseOut.Fields), filename, renderOut.PDFPath)
	rep.BatchID = input.BatchID
	if err := workflow.ExecuteActivity(ctx, "RecordReportActivity", activities.RecordReportInput{Report: rep}).Get(ctx, nil); err != nil {
		return ReportOutcome{}, err
	}
	finish()
	status.CurrentStep = "done"
	status.Status = models.ReportProcessed
	return ReportOutcome{ReportID: status.ReportID, Status: status.Status}, nil
}

func reportFailure(err error) (kind, reason string, ok bool) {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) || !reportFailureKinds[appErr.Type()] {
		return "", "", false
	}
	return appErr.Type(), appErr.Message(), true
}

func rowFrom(values []fields.Value) fields.Row {
	p := fields.NewParsed()
	for _, v := range values {
		p.Set(v.Field, v.Value)
	}
	return fields.NewRow(p)
}

func sanitizeID(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, ".", "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, " ", "-")
	return s
}
