package workflows

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"medreport/internal/activities"
	"medreport/internal/fields"
	"medreport/internal/models"
	"medreport/internal/util"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func registerReportActivities(env *testsuite.TestWorkflowEnvironment) {
	registerActivityName(env, "ListReportsActivity", func(context.Context, activities.ListReportsInput) (activities.ListReportsOutput, error) {
		return activities.ListReportsOutput{}, nil
	})
	registerActivityName(env, "ComputeReportIDActivity", func(context.Context, activities.ComputeReportIDInput) (activities.ComputeReportIDOutput, error) {
		return activities.ComputeReportIDOutput{}, nil
	})
	registerActivityName(env, "ExtractTextActivity", func(context.Context, activities.ExtractTextInput) (activities.ExtractTextOutput, error) {
		return activities.ExtractTextOutput{}, nil
	})
	registerActivityName(env, "ParseFieldsActivity", func(context.Context, activities.ParseFieldsInput) (activities.ParseFieldsOutput, error) {
		return activities.ParseFieldsOutput{}, nil
	})
	registerActivityName(env, "AssessActivity", func(context.Context, activities.AssessInput) (activities.AssessOutput, error) {
		return activities.AssessOutput{}, nil
	})
	registerActivityName(env, "PredictActivity", func(context.Context, activities.PredictInput) (activities.PredictOutput, error) {
		return activities.PredictOutput{}, nil
	})
	registerActivityName(env, "RenderReportActivity", func(context.Context, activities.RenderReportInput) (activities.RenderReportOutput, error) {
		return activities.RenderReportOutput{}, nil
	})
	registerActivityName(env, "RecordReportActivity", func(context.Context, activities.RecordReportInput) error { return nil })
	registerActivityName(env, "WriteBatchSummaryActivity", func(context.Context, activities.WriteBatchSummaryInput) error { return nil })
}

var parsedFields = []fields.Value{{Field: fields.SystolicBP, Value: "150"}, {Field: fields.DiastolicBP, Value: "95"}}

func mockHappyPath(env *testsuite.TestWorkflowEnvironment) {
	env.OnActivity("ComputeReportIDActivity", mock.Anything, mock.Anything).Return(activities.ComputeReportIDOutput{ReportID: "rep-1"}, nil)
	env.OnActivity("ExtractTextActivity", mock.Anything, mock.Anything).Return(activities.ExtractTextOutput{Text: "BP: 150/95", Units: 1}, nil)
	env.OnActivity("ParseFieldsActivity", mock.Anything, activities.ParseFieldsInput{Text: "BP: 150/95"}).Return(activities.ParseFieldsOutput{Fields: parsedFields}, nil)
	env.OnActivity("AssessActivity", mock.Anything, mock.Anything).Return(activities.AssessOutput{Summary: models.Summary{
		ReportID:     "rep-1",
		Comparison:   []models.ComparisonEntry{{Vital: "Blood Pressure", PatientValue: "150/95", Reference: "<= 120/80 mmHg", Status: models.StatusHigh}},
		Observations: []string{"Blood Pressure is higher than the normal range."},
		Conclusion:   "Some values are outside the normal range (Blood Pressure).",
	}}, nil)
	env.OnActivity("RenderReportActivity", mock.Anything, mock.Anything).Return(activities.RenderReportOutput{PDFPath: "/out/rep-1/summary.pdf"}, nil)
}

func TestReportProcessWorkflowSuccess(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(ReportProcessWorkflow)
	registerReportActivities(env)
	mockHappyPath(env)

	var recorded models.Report
	env.OnActivity("PredictActivity", mock.Anything, activities.PredictInput{Fields: parsedFields}).Return(activities.PredictOutput{Label: "Hypertension", Decoded: true}, nil)
	env.OnActivity("RecordReportActivity", mock.Anything, mock.Anything).Return(func(_ context.Context, in activities.RecordReportInput) error {
		recorded = in.Report
		return nil
	})

	env.ExecuteWorkflow(ReportProcessWorkflow, ReportProcessInput{BatchID: "b1", ReportPath: "/in/labs.pdf", Diagnose: true})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out ReportOutcome
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, ReportOutcome{ReportID: "rep-1", Status: models.ReportProcessed}, out)

	require.Equal(t, "rep-1", recorded.ReportID)
	require.Equal(t, "b1", recorded.BatchID)
	require.Equal(t, "labs.pdf", recorded.Filename)
	require.Equal(t, "Hypertension", recorded.PredictedLabel)
	require.Equal(t, "150", recorded.Fields["SystolicBP"])
	require.Equal(t, "/out/rep-1/summary.pdf", recorded.PDFPath)

	val, err := env.QueryWorkflow(QueryGetReportStatus)
	require.NoError(t, err)
	var st ReportStatus
	require.NoError(t, val.Get(&st))
	require.Equal(t, "done", st.CurrentStep)
	require.Equal(t, "done", st.Steps["predict"])
}

func TestReportProcessWorkflowSkipsPredictWithoutDiagnosis(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(ReportProcessWorkflow)
	registerReportActivities(env)
	mockHappyPath(env)
	env.OnActivity("PredictActivity", mock.Anything, mock.Anything).Return(activities.PredictOutput{Label: "x"}, nil)
	env.OnActivity("RecordReportActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(ReportProcessWorkflow, ReportProcessInput{ReportPath: "/in/labs.docx"})
	require.NoError(t, env.GetWorkflowError())
	env.AssertNotCalled(t, "PredictActivity", mock.Anything, mock.Anything)
}

func TestReportProcessWorkflowUnsupportedFailsGracefully(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(ReportProcessWorkflow)
	registerReportActivities(env)

	var recorded models.Report
	env.OnActivity("ComputeReportIDActivity", mock.Anything, mock.Anything).Return(activities.ComputeReportIDOutput{ReportID: "rep-2"}, nil)
	env.OnActivity("ExtractTextActivity", mock.Anything, mock.Anything).Return(activities.ExtractTextOutput{},
		temporal.NewNonRetryableApplicationError("Unsupported file type. Upload a PDF or DOCX report.", string(util.KindUnsupportedFormat), nil))
	env.OnActivity("RecordReportActivity", mock.Anything, mock.Anything).Return(func(_ context.Context, in activities.RecordReportInput) error {
		recorded = in.Report
		return nil
	})

	env.ExecuteWorkflow(ReportProcessWorkflow, ReportProcessInput{ReportPath: "/in/scan.png"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out ReportOutcome
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, models.ReportFailed, out.Status)
	require.Equal(t, string(util.KindUnsupportedFormat), out.FailKind)

	require.Equal(t, models.ReportFailed, recorded.Status)
	require.Equal(t, "rep-2", recorded.ReportID)
	require.Equal(t, "Unsupported file type. Upload a PDF or DOCX report.", recorded.SummaryText)
}

func TestReportProcessWorkflowInfrastructureErrorFails(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(ReportProcessWorkflow)
	registerReportActivities(env)
	mockHappyPath(env)
	env.OnActivity("RecordReportActivity", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	env.ExecuteWorkflow(ReportProcessWorkflow, ReportProcessInput{ReportPath: "/in/labs.pdf"})
	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
}

func TestBatchInterpretWorkflowCountsOutcomes(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(BatchInterpretWorkflow)
	env.RegisterWorkflow(ReportProcessWorkflow)
	registerReportActivities(env)

	env.OnActivity("ListReportsActivity", mock.Anything, activities.ListReportsInput{InputDir: "/in/b1"}).
		Return(activities.ListReportsOutput{Paths: []string{"/in/b1/a.pdf", "/in/b1/b.docx", "/in/b1/c.pdf"}}, nil)
	env.OnActivity("ComputeReportIDActivity", mock.Anything, mock.Anything).Return(func(_ context.Context, in activities.ComputeReportIDInput) (activities.ComputeReportIDOutput, error) {
		return activities.ComputeReportIDOutput{ReportID: "id-" + filepath.Base(in.ReportPath)}, nil
	})
	env.OnActivity("ExtractTextActivity", mock.Anything, activities.ExtractTextInput{ReportPath: "/in/b1/b.docx"}).
		Return(activities.ExtractTextOutput{}, temporal.NewNonRetryableApplicationError("The report file could not be opened.", string(util.KindUnreadable), nil))
	env.OnActivity("ExtractTextActivity", mock.Anything, mock.Anything).Return(activities.ExtractTextOutput{Text: "BP: 150/95"}, nil)
	env.OnActivity("ParseFieldsActivity", mock.Anything, mock.Anything).Return(activities.ParseFieldsOutput{Fields: parsedFields}, nil)
	env.OnActivity("AssessActivity", mock.Anything, mock.Anything).Return(func(_ context.Context, in activities.AssessInput) (activities.AssessOutput, error) {
		return activities.AssessOutput{Summary: models.Summary{ReportID: in.ReportID}}, nil
	})
	env.OnActivity("RenderReportActivity", mock.Anything, mock.Anything).Return(activities.RenderReportOutput{}, nil)
	env.OnActivity("RecordReportActivity", mock.Anything, mock.Anything).Return(nil)

	var summary map[string]any
	env.OnActivity("WriteBatchSummaryActivity", mock.Anything, mock.Anything).Return(func(_ context.Context, in activities.WriteBatchSummaryInput) error {
		summary = in.Summary
		return nil
	})

	env.ExecuteWorkflow(BatchInterpretWorkflow, BatchInterpretInput{BatchID: "b1", InputDir: "/in/b1", MaxConcurrentChildren: 2})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "completed", out)

	val, err := env.QueryWorkflow(QueryGetProgress)
	require.NoError(t, err)
	var p BatchProgress
	require.NoError(t, val.Get(&p))
	require.Equal(t, 3, p.Total)
	require.Equal(t, 3, p.Done)
	require.Equal(t, 1, p.Failed)
	require.Equal(t, models.ReportFailed, p.PerReport["b.docx"])
	require.Equal(t, models.ReportProcessed, p.PerReport["a.pdf"])
	require.Equal(t, "report-b1-c-pdf", p.ChildWorkflow["c.pdf"])
	require.Equal(t, "id-b.docx", p.ReportIDs["b.docx"])

	require.Equal(t, "b1", summary["batch_id"])
	require.EqualValues(t, 1, summary["failed"])
}

func TestSanitizeID(t *testing.T) {
	require.Equal(t, "lab-report-2024-pdf", sanitizeID("Lab_Report 2024.pdf"))
}
