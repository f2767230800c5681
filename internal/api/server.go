package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"medreport/internal/config"
	"medreport/internal/extract"
	"medreport/internal/fields"
	"medreport/internal/insight"
	"medreport/internal/logging"
	"medreport/internal/models"
	"medreport/internal/pipeline"
	"medreport/internal/render"
	"medreport/internal/util"
	"medreport/internal/workflows"

	"github.com/rs/zerolog"
)

// Disclaimer accompanies every interpretation returned to clients.
const Disclaimer = "This summary is generated automatically and is not a medical diagnosis. " +
	"Please consult a certified doctor for professional advice."

// ReportStore is the persistence the API needs. *storage.ReportRepo satisfies it.
type ReportStore interface {
	Insert(ctx context.Context, rep models.Report) error
	Get(ctx context.Context, reportID string) (models.Report, error)
	ListRecent(ctx context.Context, limit int) ([]models.Report, error)
	ListByBatch(ctx context.Context, batchID string) ([]models.Report, error)
}

// Interpreter runs one upload synchronously. *pipeline.Pipeline satisfies it.
type Interpreter interface {
	Run(ctx context.Context, data []byte, name string) (pipeline.Result, error)
}

// BatchRunner starts batch workflows and reports their progress.
type BatchRunner interface {
	Start(ctx context.Context, in workflows.BatchInterpretInput) (string, error)
	Progress(ctx context.Context, batchID string) (workflows.BatchProgress, error)
}

type Server struct {
	cfg      config.Config
	store    ReportStore
	interp   Interpreter
	batches  BatchRunner
	renderer render.Renderer
	log      zerolog.Logger
}

// NewServer wires the HTTP surface. batches may be nil, which disables the
// batch endpoints.
func NewServer(cfg config.Config, store ReportStore, interp Interpreter, batches BatchRunner, log zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		interp:   interp,
		batches:  batches,
		renderer: render.NewPDF(),
		log:      log,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/reports", s.handleReports)
	mux.HandleFunc("/reports/", s.handleReportsScoped)
	mux.HandleFunc("/dashboard", s.handleDashboard)
	mux.HandleFunc("/batches", s.handleBatches)
	mux.HandleFunc("/batches/", s.handleBatchesScoped)
	return logging.Middleware(s.log)(withCORS(mux))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"diagnosis": s.cfg.InferenceEnabled(),
		"batches":   s.batches != nil,
	})
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleInterpret(w, r)
	case http.MethodGet:
		reports, err := s.store.ListRecent(r.Context(), s.cfg.HistoryLimit)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		items := make([]models.HistoryItem, 0, len(reports))
		for _, rep := range reports {
			items = append(items, historyItem(rep))
		}
		writeJSON(w, http.StatusOK, map[string]any{"reports": items})
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleInterpret(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())
	maxBytes := s.cfg.MaxUploadBytes()
	// Leave room for multipart framing around the file itself.
	limit := maxBytes + 1<<20
	if r.ContentLength > limit {
		writeErr(w, http.StatusRequestEntityTooLarge, sizeError(s.cfg.MaxUploadMB))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErr(w, http.StatusRequestEntityTooLarge, sizeError(s.cfg.MaxUploadMB))
			return
		}
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	fhs := r.MultipartForm.File["report"]
	if len(fhs) == 0 {
		writeErr(w, http.StatusBadRequest, util.NewError(util.KindInvalidInput, "No report file provided.", nil))
		return
	}
	fh := fhs[0]
	if fh.Size > maxBytes {
		writeErr(w, http.StatusBadRequest, sizeError(s.cfg.MaxUploadMB))
		return
	}
	if !extract.Supported(fh.Filename) {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%s: %w", util.Ext(fh.Filename), util.ErrUnsupportedFormat))
		return
	}
	data, err := readUpload(fh)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if len(data) == 0 {
		writeErr(w, http.StatusBadRequest, util.NewError(util.KindInvalidInput, "The uploaded file is empty.", nil))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout())
	defer cancel()
	filename := filepath.Base(fh.Filename)
	res, err := s.interp.Run(ctx, data, filename)
	if err != nil && util.KindOf(err) != util.KindRender {
		log.Warn().Err(err).Str("kind", string(util.KindOf(err))).Str("report_id", res.ReportID).Msg("interpretation failed")
		if res.ReportID != "" {
			if rerr := s.store.Insert(r.Context(), pipeline.FailedReport(res.ReportID, filename, err)); rerr != nil {
				log.Error().Err(rerr).Str("report_id", res.ReportID).Msg("record failed report")
			}
		}
		writeKindErr(w, err)
		return
	}
	// A render failure keeps the interpretation; the PDF endpoint renders again on demand.
	pdfReady := err == nil
	if !pdfReady {
		log.Warn().Err(err).Str("report_id", res.ReportID).Msg("summary rendering failed")
	}

	if err := s.store.Insert(r.Context(), res.Report(filename)); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	out := map[string]any{
		"message":           "Report processed successfully",
		"report_id":         res.ReportID,
		"patient_details":   patientDetails(res.Summary.Patient),
		"vitals":            res.Summary.Vitals,
		"vitals_comparison": res.Summary.Comparison,
		"key_observations":  res.Summary.Observations,
		"final_conclusion":  res.Summary.Conclusion,
		"summary":           res.SummaryText,
		"pdf_available":     pdfReady,
		"disclaimer":        Disclaimer,
	}
	if res.Summary.PredictedLabel != "" {
		out["predicted_label"] = res.Summary.PredictedLabel
	}
	if len(res.Degraded) > 0 {
		out["degraded_units"] = res.Degraded
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleReportsScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/reports/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" || len(parts) > 2 {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	rep, err := s.store.Get(r.Context(), parts[0])
	if err != nil {
		writeKindErr(w, err)
		return
	}

	if len(parts) == 1 {
		writeJSON(w, http.StatusOK, map[string]any{
			"report":          rep,
			"overall":         insight.Overall(rep.Comparison),
			"patient_details": patientDetails(rep.Patient),
			"disclaimer":      Disclaimer,
		})
		return
	}
	if parts[1] != "pdf" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	s.servePDF(w, r, rep)
}

func (s *Server) servePDF(w http.ResponseWriter, r *http.Request, rep models.Report) {
	if rep.Status != models.ReportProcessed {
		writeErr(w, http.StatusConflict, util.NewError(util.KindInvalidInput, "No summary is available for a failed report.", nil))
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="Medical_Report_Summary_%s.pdf"`, rep.ReportID))
	if rep.PDFPath != "" {
		if _, err := os.Stat(rep.PDFPath); err == nil {
			w.Header().Set("Content-Type", "application/pdf")
			http.ServeFile(w, r, rep.PDFPath)
			return
		}
	}
	b, err := s.renderer.Render(summaryFromReport(rep))
	if err != nil {
		w.Header().Del("Content-Disposition")
		writeKindErr(w, util.NewError(util.KindRender, "", err))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	reports, err := s.store.ListRecent(r.Context(), s.cfg.HistoryLimit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, BuildDashboard(reports))
}

func historyItem(rep models.Report) models.HistoryItem {
	overall := insight.Overall(rep.Comparison)
	if rep.Status == models.ReportFailed {
		overall = insight.OverallUnknown
	}
	return models.HistoryItem{
		ReportID:       rep.ReportID,
		Filename:       rep.Filename,
		PatientID:      rep.Patient.ID,
		Status:         rep.Status,
		Overall:        overall,
		PredictedLabel: rep.PredictedLabel,
		CreatedAt:      rep.CreatedAt,
	}
}

func patientDetails(p models.Patient) map[string]string {
	orNA := func(v string) string {
		if strings.TrimSpace(v) == "" {
			return render.Placeholder
		}
		return v
	}
	return map[string]string{
		"patient_id":  orNA(p.ID),
		"age":         orNA(p.Age),
		"gender":      orNA(p.Gender),
		"blood_group": orNA(p.BloodGroup),
		"report_date": orNA(p.ReportDate),
	}
}

// summaryFromReport rebuilds the renderer input from a stored record.
func summaryFromReport(rep models.Report) models.Summary {
	return models.Summary{
		ReportID:       rep.ReportID,
		Patient:        rep.Patient,
		Vitals:         render.Vitals(fields.RowFromMap(rep.Fields)),
		Comparison:     rep.Comparison,
		Observations:   rep.Observations,
		Conclusion:     rep.Conclusion,
		PredictedLabel: rep.PredictedLabel,
		GeneratedAt:    rep.CreatedAt,
	}
}

func sizeError(maxMB int) error {
	return util.NewError(util.KindInvalidInput, fmt.Sprintf("File size exceeds %d MB limit.", maxMB), nil)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	b, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return b, nil
}
