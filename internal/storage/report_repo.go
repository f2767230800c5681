package storage

import (
	"context"
	"errors"
	"fmt"

	"medreport/internal/models"
	"medreport/internal/util"

	"github.com/jackc/pgx/v5"
)

type ReportRepo struct {
	db *DB
}

func NewReportRepo(db *DB) *ReportRepo {
	return &ReportRepo{db: db}
}

const reportColumns = `report_id, COALESCE(batch_id,''), filename, status, COALESCE(fail_kind,''),
       patient, fields, comparison, observations, COALESCE(conclusion,''),
       COALESCE(predicted_label,''), COALESCE(summary_text,''), COALESCE(pdf_path,''), created_at`

// Insert stores r, replacing an earlier record with the same id.
func (r *ReportRepo) Insert(ctx context.Context, rep models.Report) error {
	if rep.Comparison == nil {
		rep.Comparison = []models.ComparisonEntry{}
	}
	if rep.Observations == nil {
		rep.Observations = []string{}
	}
	if rep.Fields == nil {
		rep.Fields = map[string]string{}
	}
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO reports (report_id, batch_id, filename, status, fail_kind, patient, fields, comparison,
                     observations, conclusion, predicted_label, summary_text, pdf_path)
VALUES ($1, NULLIF($2,''), $3, $4, NULLIF($5,''), $6, $7, $8, $9, NULLIF($10,''), NULLIF($11,''), NULLIF($12,''), NULLIF($13,''))
ON CONFLICT (report_id)
DO UPDATE SET
  status = EXCLUDED.status,
  fail_kind = EXCLUDED.fail_kind,
  patient = EXCLUDED.patient,
  fields = EXCLUDED.fields,
  comparison = EXCLUDED.comparison,
  observations = EXCLUDED.observations,
  conclusion = EXCLUDED.conclusion,
  predicted_label = EXCLUDED.predicted_label,
  summary_text = EXCLUDED.summary_text,
  pdf_path = EXCLUDED.pdf_path`,
		rep.ReportID, rep.BatchID, rep.Filename, rep.Status, rep.FailKind, rep.Patient, rep.Fields, rep.Comparison,
		rep.Observations, rep.Conclusion, rep.PredictedLabel, rep.SummaryText, rep.PDFPath,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (r *ReportRepo) Get(ctx context.Context, reportID string) (models.Report, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE report_id=$1`, reportID)
	rep, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Report{}, fmt.Errorf("report %s: %w", reportID, util.ErrNotFound)
	}
	if err != nil {
		return models.Report{}, fmt.Errorf("get report: %w", err)
	}
	return rep, nil
}

// ListRecent returns the newest reports first.
func (r *ReportRepo) ListRecent(ctx context.Context, limit int) ([]models.Report, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+reportColumns+` FROM reports ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	out := make([]models.Report, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}

func (r *ReportRepo) ListByBatch(ctx context.Context, batchID string) ([]models.Report, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+reportColumns+` FROM reports WHERE batch_id=$1 ORDER BY created_at`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch reports: %w", err)
	}
	defer rows.Close()
	out := make([]models.Report, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch report: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func scanReport(row pgx.Row) (models.Report, error) {
	var rep models.Report
	err := row.Scan(&rep.ReportID, &rep.BatchID, &rep.Filename, &rep.Status, &rep.FailKind,
		&rep.Patient, &rep.Fields, &rep.Comparison, &rep.Observations, &rep.Conclusion,
		&rep.PredictedLabel, &rep.SummaryText, &rep.PDFPath, &rep.CreatedAt)
	return rep, err
}
