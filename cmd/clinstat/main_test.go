package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"clinstat/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthWritesCSV(t *testing.T) {
	out := filepath.Join(t.TempDir(), "patients.csv")
	cmd := newSynthCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--size", "25", "--seed", "9", "--out", out})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "wrote 25 rows")
	_, err := os.Stat(out)
	assert.NoError(t, err)
}

func TestSynthRejectsUnknownExtension(t *testing.T) {
	cmd := newSynthCmd()
	cmd.SetArgs([]string{"--out", filepath.Join(t.TempDir(), "patients.json")})
	err := cmd.Execute()
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestRunWritesReports(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OUTPUT_DIR", filepath.Join(dir, "out"))
	t.Setenv("FIGURES_DIR", filepath.Join(dir, "fig"))
	t.Setenv("REPORT_FORMATS", "json,md")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOG_LEVEL", "error")

	cmd := newRunCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--data", filepath.Join(dir, "missing.csv"), "--size", "150"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "150 rows")
	assert.Contains(t, stdout.String(), "not found")
	for _, name := range []string{"analysis_results.json", "analysis_report.md"} {
		_, err := os.Stat(filepath.Join(dir, "out", name))
		assert.NoError(t, err, name)
	}
}

func TestRunNoFallbackFails(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OUTPUT_DIR", filepath.Join(dir, "out"))
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOG_LEVEL", "error")

	cmd := newRunCmd()
	cmd.SetArgs([]string{"--data", filepath.Join(dir, "missing.csv"), "--no-fallback"})
	err := cmd.Execute()
	assert.ErrorIs(t, err, errors.ErrFileNotFound)
}
