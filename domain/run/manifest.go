package run

import (
	"fmt"
	"time"

	"clinstat/domain/core"
	apperrors "clinstat/internal/errors"
)

// SourceKind records where the analyzed dataset came from
type SourceKind string

const (
	SourceFile      SourceKind = "file"
	SourceSynthetic SourceKind = "synthetic"
)

// DataSource describes the dataset of a run. A synthetic source carries its seed and size
// so the run can be replayed.
type DataSource struct {
	Kind        SourceKind `json:"kind"`
	Path        string     `json:"path,omitempty"`
	Seed        int64      `json:"seed,omitempty"`
	Size        int        `json:"size,omitempty"`
	FallbackFor string     `json:"fallback_for,omitempty"` // requested file that was missing
}

// Severity of a diagnostic
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is a human-readable note attached to a run: a substituted data source,
// an analyzer that failed under keep-going, a model that did not converge.
type Diagnostic struct {
	Stage    string   `json:"stage"`
	Analysis string   `json:"analysis,omitempty"`
	Code     string   `json:"code,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// DiagnosticFromError builds an error diagnostic carrying the AppError code
func DiagnosticFromError(stage, analysis string, err error) Diagnostic {
	return Diagnostic{
		Stage:    stage,
		Analysis: analysis,
		Code:     apperrors.GetCode(err),
		Severity: SeverityError,
		Message:  err.Error(),
	}
}

func (d Diagnostic) String() string {
	if d.Analysis != "" {
		return fmt.Sprintf("[%s] %s/%s: %s", d.Severity, d.Stage, d.Analysis, d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Stage, d.Message)
}

// Manifest identifies a run. It is kept apart from report content so that two runs over
// the same dataset compare equal on content while carrying different manifests.
type Manifest struct {
	RunID       core.RunID   `json:"run_id"`
	CreatedAt   time.Time    `json:"created_at"`
	Dataset     core.Hash    `json:"dataset_fingerprint"`
	Rows        int          `json:"rows"`
	Source      DataSource   `json:"source"`
	PlanHash    core.Hash    `json:"plan_hash,omitempty"`
	CodeVersion string       `json:"code_version"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// NewManifest creates a manifest for a run over a dataset with the given fingerprint
func NewManifest(fingerprint core.Hash, rows int, source DataSource, planHash core.Hash, codeVersion string) *Manifest {
	return &Manifest{
		RunID:       core.NewRunID(),
		CreatedAt:   time.Now().UTC(),
		Dataset:     fingerprint,
		Rows:        rows,
		Source:      source,
		PlanHash:    planHash,
		CodeVersion: codeVersion,
	}
}

// AddDiagnostic appends a diagnostic
func (m *Manifest) AddDiagnostic(d Diagnostic) {
	m.Diagnostics = append(m.Diagnostics, d)
}

// Clone returns a deep copy
func (m *Manifest) Clone() *Manifest {
	if m == nil {
		return nil
	}
	out := *m
	out.Diagnostics = append([]Diagnostic(nil), m.Diagnostics...)
	return &out
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return apperrors.InvalidInput("run manifest: run_id cannot be empty")
	}
	if m.Dataset.IsEmpty() {
		return apperrors.InvalidInput("run manifest: dataset fingerprint cannot be empty")
	}
	switch m.Source.Kind {
	case SourceFile:
		if m.Source.Path == "" {
			return apperrors.InvalidInput("run manifest: file source without a path")
		}
	case SourceSynthetic:
		if m.Source.Size <= 0 {
			return apperrors.InvalidInput("run manifest: synthetic source needs a positive size")
		}
	default:
		return apperrors.InvalidInput(fmt.Sprintf("run manifest: unknown source kind %q", m.Source.Kind))
	}
	return nil
}
