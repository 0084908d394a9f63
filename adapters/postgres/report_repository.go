package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"clinstat/domain/core"
	"clinstat/domain/report"
	"clinstat/internal/errors"
	"clinstat/ports"

	"github.com/jmoiron/sqlx"
)

// reportRepository stores assembled reports in analysis_runs, one JSONB document per run
type reportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sqlx.DB) ports.ReportStore {
	return &reportRepository{db: db}
}

// Save inserts a report. Saving the same run twice keeps the first copy.
func (r *reportRepository) Save(ctx context.Context, rep *report.Report) error {
	m := rep.Manifest()
	if m == nil {
		return errors.InvalidInput("cannot persist a report without a manifest")
	}
	summary, err := ports.SummarizeReport(rep)
	if err != nil {
		return errors.Wrap(err, "failed to summarize report")
	}
	doc, err := json.Marshal(rep)
	if err != nil {
		return errors.Wrap(err, "failed to marshal report")
	}

	query := `INSERT INTO analysis_runs (
		id, created_at, dataset_fingerprint, row_count, source_kind, plan_hash, code_version,
		entry_count, diagnostic_count, content_hash, report
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
	) ON CONFLICT (id) DO NOTHING`

	_, err = r.db.ExecContext(ctx, query,
		summary.RunID.String(), summary.CreatedAt, summary.Dataset.String(), summary.Rows, string(summary.Source),
		m.PlanHash.String(), m.CodeVersion, summary.Entries, summary.Diagnostics, summary.ContentHash.String(), doc,
	)
	if err != nil {
		return errors.DatabaseError("failed to save report "+summary.RunID.String(), err)
	}
	return nil
}

// Get loads a report by run id
func (r *reportRepository) Get(ctx context.Context, id core.RunID) (*report.Report, error) {
	var doc []byte
	err := r.db.QueryRowxContext(ctx, `SELECT report FROM analysis_runs WHERE id = $1`, id.String()).Scan(&doc)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("run " + id.String())
		}
		return nil, errors.DatabaseError("failed to get report "+id.String(), err)
	}

	var rep report.Report
	if err := json.Unmarshal(doc, &rep); err != nil {
		return nil, errors.Wrapf(err, "failed to decode report %s", id)
	}
	return &rep, nil
}

// List returns the most recent runs first
func (r *reportRepository) List(ctx context.Context, limit int) ([]ports.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT
		id, created_at, dataset_fingerprint, row_count, source_kind, entry_count, diagnostic_count, content_hash
	FROM analysis_runs
	ORDER BY created_at DESC
	LIMIT $1`

	var runs []ports.RunSummary
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, errors.DatabaseError("failed to list runs", err)
	}
	return runs, nil
}
