package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.ListReportsActivity)
	w.RegisterActivity(a.ComputeReportIDActivity)
	w.RegisterActivity(a.ExtractTextActivity)
	w.RegisterActivity(a.ParseFieldsActivity)
	w.RegisterActivity(a.AssessActivity)
	w.RegisterActivity(a.PredictActivity)
	w.RegisterActivity(a.RenderReportActivity)
	w.RegisterActivity(a.RecordReportActivity)
	w.RegisterActivity(a.WriteBatchSummaryActivity)
}
