package ports

import (
	"context"
	"time"

	"clinstat/domain/core"
	"clinstat/domain/report"
	"clinstat/domain/run"
)

// RunSummary is the listing row of a stored report
type RunSummary struct {
	RunID       core.RunID     `json:"run_id" db:"id"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	Dataset     core.Hash      `json:"dataset_fingerprint" db:"dataset_fingerprint"`
	Rows        int            `json:"rows" db:"row_count"`
	Source      run.SourceKind `json:"source" db:"source_kind"`
	Entries     int            `json:"entries" db:"entry_count"`
	Diagnostics int            `json:"diagnostics" db:"diagnostic_count"`
	ContentHash core.Hash      `json:"content_hash" db:"content_hash"`
}

// SummarizeReport builds the listing row of a report
func SummarizeReport(r *report.Report) (RunSummary, error) {
	m := r.Manifest()
	if m == nil {
		return RunSummary{}, nil
	}
	h, err := r.ContentHash()
	if err != nil {
		return RunSummary{}, err
	}
	return RunSummary{
		RunID:       m.RunID,
		CreatedAt:   m.CreatedAt,
		Dataset:     m.Dataset,
		Rows:        m.Rows,
		Source:      m.Source.Kind,
		Entries:     r.Len(),
		Diagnostics: len(m.Diagnostics),
		ContentHash: h,
	}, nil
}

// ReportStore persists assembled reports. Get returns a NOT_FOUND AppError for an unknown run.
type ReportStore interface {
	Save(ctx context.Context, r *report.Report) error
	Get(ctx context.Context, id core.RunID) (*report.Report, error)
	List(ctx context.Context, limit int) ([]RunSummary, error)
}
