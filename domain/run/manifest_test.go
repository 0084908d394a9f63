package run

import (
	"errors"
	"testing"

	"clinstat/domain/core"
	apperrors "clinstat/internal/errors"
)

func TestNewManifest(t *testing.T) {
	fp := core.NewHash([]byte("rows"))
	m := NewManifest(fp, 500, DataSource{Kind: SourceSynthetic, Seed: 42, Size: 500}, "", "dev")

	if m.RunID == "" {
		t.Fatal("expected a run id")
	}
	if m.Dataset != fp {
		t.Errorf("fingerprint mismatch: %s vs %s", m.Dataset, fp)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("expected valid manifest, got %v", err)
	}
}

func TestManifestValidate(t *testing.T) {
	fp := core.NewHash([]byte("rows"))
	testCases := []struct {
		name   string
		source DataSource
		ok     bool
	}{
		{"file", DataSource{Kind: SourceFile, Path: "data.csv"}, true},
		{"file without path", DataSource{Kind: SourceFile}, false},
		{"synthetic without size", DataSource{Kind: SourceSynthetic, Seed: 1}, false},
		{"unknown kind", DataSource{Kind: "stdin"}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := NewManifest(fp, 10, tc.source, "", "dev").Validate()
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && apperrors.GetCode(err) != apperrors.CodeInvalidInput {
				t.Errorf("expected INVALID_INPUT, got %v", err)
			}
		})
	}
}

func TestCloneIsolatesDiagnostics(t *testing.T) {
	m := NewManifest(core.NewHash([]byte("x")), 1, DataSource{Kind: SourceFile, Path: "x.csv"}, "", "dev")
	m.AddDiagnostic(DiagnosticFromError("bivariate", "ttest_age_sex", apperrors.DegenerateVariance("group %q", "male")))

	c := m.Clone()
	c.AddDiagnostic(Diagnostic{Stage: "load", Severity: SeverityWarning, Message: "fallback"})

	if len(m.Diagnostics) != 1 {
		t.Fatalf("clone leaked into original: %d diagnostics", len(m.Diagnostics))
	}
	if m.Diagnostics[0].Code != apperrors.CodeDegenerateVar {
		t.Errorf("expected code %s, got %s", apperrors.CodeDegenerateVar, m.Diagnostics[0].Code)
	}
	if !errors.Is(apperrors.DegenerateVariance("x"), apperrors.ErrDegenerateVariance) {
		t.Error("sentinel should match")
	}
}
