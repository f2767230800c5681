package workflows

type BatchInterpretInput struct {
	BatchID               string `json:"batch_id"`
	InputDir              string `json:"input_dir"`
	MaxConcurrentChildren int    `json:"max_concurrent_children"`
	// Diagnose runs the prediction step for every report.
	Diagnose bool `json:"diagnose"`
}

type ReportProcessInput struct {
	BatchID    string `json:"batch_id"`
	ReportPath string `json:"report_path"`
	Diagnose   bool   `json:"diagnose"`
}

// ReportOutcome is what a ReportProcessWorkflow child hands back to its batch.
type ReportOutcome struct {
	ReportID string `json:"report_id"`
	Status   string `json:"status"`
	FailKind string `json:"fail_kind,omitempty"`
}

type ReportStatus struct {
	ReportID    string            `json:"report_id"`
	ReportPath  string            `json:"report_path"`
	CurrentStep string            `json:"current_step"`
	Status      string            `json:"status"`
	FailKind    string            `json:"fail_kind,omitempty"`
	FailReason  string            `json:"fail_reason,omitempty"`
	Steps       map[string]string `json:"steps"`
}

type BatchProgress struct {
	BatchID       string            `json:"batch_id"`
	Total         int               `json:"total"`
	Done          int               `json:"done"`
	Failed        int               `json:"failed"`
	PerReport     map[string]string `json:"per_report_status"`
	ReportIDs     map[string]string `json:"report_ids,omitempty"`
	ChildWorkflow map[string]string `json:"child_workflow_ids,omitempty"`
}
