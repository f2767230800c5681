package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"medreport/internal/extract"
	"medreport/internal/models"
	"medreport/internal/util"
	"medreport/internal/workflows"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

// TemporalBatches runs batches as BatchInterpretWorkflow executions.
type TemporalBatches struct {
	client    tclient.Client
	taskQueue string
}

func NewTemporalBatches(c tclient.Client, taskQueue string) *TemporalBatches {
	return &TemporalBatches{client: c, taskQueue: taskQueue}
}

func BatchWorkflowID(batchID string) string { return "batch-" + batchID }

func (t *TemporalBatches) Start(ctx context.Context, in workflows.BatchInterpretInput) (string, error) {
	we, err := t.client.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:                                       BatchWorkflowID(in.BatchID),
		TaskQueue:                                t.taskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.BatchInterpretWorkflow, in)
	if err != nil {
		return "", fmt.Errorf("start batch workflow: %w", err)
	}
	return we.GetID(), nil
}

func (t *TemporalBatches) Progress(ctx context.Context, batchID string) (workflows.BatchProgress, error) {
	var prog workflows.BatchProgress
	resp, err := t.client.QueryWorkflow(ctx, BatchWorkflowID(batchID), "", workflows.QueryGetProgress)
	if err != nil {
		return prog, err
	}
	if err := resp.Get(&prog); err != nil {
		return prog, fmt.Errorf("decode batch progress: %w", err)
	}
	return prog, nil
}

func (s *Server) handleBatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	if s.batches == nil {
		writeErr(w, http.StatusServiceUnavailable, fmt.Errorf("batch runner not configured"))
		return
	}
	if err := r.ParseMultipartForm(128 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeErr(w, http.StatusBadRequest, util.NewError(util.KindInvalidInput, "No report files were provided.", nil))
		return
	}

	batchID := uuid.NewString()
	inDir := filepath.Join(s.cfg.DataInRoot, batchID)
	if err := util.EnsureDir(inDir); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	type uploadResult struct {
		Filename  string `json:"filename"`
		ContentID string `json:"content_id"`
	}
	uploaded := make([]uploadResult, 0, len(files))
	skipped := make([]string, 0)
	maxBytes := s.cfg.MaxUploadBytes()
	for _, fh := range files {
		if !extract.Supported(fh.Filename) || fh.Size > maxBytes {
			skipped = append(skipped, filepath.Base(fh.Filename))
			continue
		}
		contentID, savedPath, err := saveUploadedFile(inDir, fh)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		uploaded = append(uploaded, uploadResult{Filename: filepath.Base(savedPath), ContentID: contentID})
	}
	if len(uploaded) == 0 {
		writeErr(w, http.StatusBadRequest, util.NewError(util.KindInvalidInput, "No supported report files were provided. Upload PDF or DOCX reports.", nil))
		return
	}

	wfID, err := s.batches.Start(r.Context(), workflows.BatchInterpretInput{
		BatchID:               batchID,
		InputDir:              inDir,
		MaxConcurrentChildren: s.cfg.BatchMaxChildren,
		Diagnose:              s.cfg.InferenceEnabled(),
	})
	if err != nil {
		writeErr(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"batch_id":    batchID,
		"workflow_id": wfID,
		"uploaded":    uploaded,
		"skipped":     skipped,
		"disclaimer":  Disclaimer,
	})
}

func (s *Server) handleBatchesScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/batches/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "progress" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	batchID := parts[0]
	if s.batches != nil {
		if prog, err := s.batches.Progress(r.Context(), batchID); err == nil {
			writeJSON(w, http.StatusOK, prog)
			return
		}
	}

	// Fallback to recorded reports when the workflow can no longer be queried.
	reports, err := s.store.ListByBatch(r.Context(), batchID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if len(reports) == 0 {
		writeErr(w, http.StatusNotFound, fmt.Errorf("batch %s: %w", batchID, util.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, progressFromReports(batchID, reports))
}

func progressFromReports(batchID string, reports []models.Report) workflows.BatchProgress {
	prog := workflows.BatchProgress{
		BatchID:   batchID,
		Total:     len(reports),
		Done:      len(reports),
		PerReport: make(map[string]string, len(reports)),
		ReportIDs: make(map[string]string, len(reports)),
	}
	for _, rep := range reports {
		prog.PerReport[rep.Filename] = rep.Status
		prog.ReportIDs[rep.Filename] = rep.ReportID
		if rep.Status == models.ReportFailed {
			prog.Failed++
		}
	}
	return prog
}

func saveUploadedFile(dstDir string, fh *multipart.FileHeader) (contentID, path string, err error) {
	src, err := fh.Open()
	if err != nil {
		return "", "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(dstDir, "upload-*"+util.Ext(fh.Filename))
	if err != nil {
		return "", "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
	}()

	data, err := io.ReadAll(io.TeeReader(src, tmp))
	if err != nil {
		return "", "", fmt.Errorf("write upload: %w", err)
	}

	contentID = util.ContentID(data)
	finalPath := util.SafeJoin(dstDir, fh.Filename)
	if err := tmp.Close(); err != nil {
		return "", "", err
	}
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		return "", "", fmt.Errorf("atomic move upload: %w", err)
	}

	return contentID, finalPath, nil
}
