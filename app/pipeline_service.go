package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"clinstat/adapters/excel"
	"clinstat/adapters/export"
	"clinstat/adapters/viz"
	"clinstat/domain/core"
	"clinstat/domain/dataset"
	"clinstat/domain/report"
	"clinstat/domain/run"
	"clinstat/internal"
	"clinstat/internal/analysis/bivariate"
	"clinstat/internal/analysis/descriptive"
	"clinstat/internal/analysis/multivariate"
	"clinstat/internal/config"
	apperrors "clinstat/internal/errors"
	"clinstat/internal/render"
	internalreport "clinstat/internal/report"
	"clinstat/internal/testkit"
	"clinstat/ports"

	"golang.org/x/sync/errgroup"
)

// Version is recorded in every run manifest
var Version = "v0.1.0"

// StageLoad names the ingestion step in diagnostics
const StageLoad = "load"

// Files written next to the JSON and YAML exports
const (
	WorkbookFile = "analysis_results.xlsx"
	HTMLFile     = "analysis_report.html"
	MarkdownFile = "analysis_report.md"
)

// Analyzer is one pipeline stage over an immutable dataset
type Analyzer interface {
	Stage() string
	Analyze(ds *dataset.Dataset) ([]report.Entry, error)
}

// DataOptions selects the dataset of a run
type DataOptions struct {
	File              string // empty means synthetic
	SyntheticFallback bool
	SyntheticSize     int
	SyntheticSeed     int64
}

// RunOptions is the per-run error and concurrency policy
type RunOptions struct {
	Data      DataOptions
	KeepGoing bool
	Parallel  bool
}

// RunResult is the outcome of one pipeline run
type RunResult struct {
	Report  *report.Report
	Dataset *dataset.Dataset
	Elapsed time.Duration
}

// PipelineService runs load, analysis, and assembly for one analysis plan
type PipelineService struct {
	analyzers []Analyzer
	planHash  core.Hash
	assembler *internalreport.Assembler
	store     ports.ReportStore
	logger    *internal.Logger
}

// NewPipelineService validates the plan and builds the three analyzers. store may be nil.
func NewPipelineService(plan config.AnalysisPlan, store ports.ReportStore, logger *internal.Logger) (*PipelineService, error) {
	if err := plan.Validate(dataset.ClinicalSchema()); err != nil {
		return nil, err
	}
	hash, err := plan.Hash()
	if err != nil {
		return nil, apperrors.Wrap(err, "hash analysis plan")
	}
	if logger == nil {
		logger = internal.NewDiscardLogger()
	}
	return &PipelineService{
		analyzers: []Analyzer{
			descriptive.NewAnalyzer(plan.Descriptive),
			bivariate.NewAnalyzer(plan.Bivariate),
			multivariate.NewAnalyzer(plan.Multivariate),
		},
		planHash:  hash,
		assembler: internalreport.NewAssembler(),
		store:     store,
		logger:    logger,
	}, nil
}

// Run loads the dataset, runs every analyzer, assembles the report, and stores it when a
// store is configured
func (s *PipelineService) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	start := time.Now()

	ds, source, diags, err := s.LoadDataset(opts.Data)
	if err != nil {
		return nil, err
	}

	r, err := s.Analyze(ctx, ds, source, diags, opts)
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		if err := s.store.Save(ctx, r); err != nil {
			return nil, apperrors.Wrap(err, "store report")
		}
	}

	elapsed := time.Since(start)
	s.logger.WithFields(map[string]interface{}{
		"run_id":  r.RunID(),
		"entries": r.Len(),
		"elapsed": elapsed.String(),
	}).Info("Analysis run complete")
	return &RunResult{Report: r, Dataset: ds, Elapsed: elapsed}, nil
}

// LoadDataset reads the configured file. A missing file is replaced by a synthetic dataset
// when the fallback is enabled; the substitution is returned as a warning diagnostic.
func (s *PipelineService) LoadDataset(opts DataOptions) (*dataset.Dataset, run.DataSource, []run.Diagnostic, error) {
	var diags []run.Diagnostic
	var fallbackFor string

	if opts.File != "" {
		ds, err := excel.ReadDataset(opts.File, s.logger)
		switch {
		case err == nil:
			return ds, run.DataSource{Kind: run.SourceFile, Path: opts.File}, nil, nil
		case !stderrors.Is(err, apperrors.ErrFileNotFound) || !opts.SyntheticFallback:
			return nil, run.DataSource{}, nil, err
		}
		s.logger.Warn("Data file %s not found, analyzing a synthetic dataset (size %d, seed %d)",
			opts.File, opts.SyntheticSize, opts.SyntheticSeed)
		fallbackFor = opts.File
		diags = append(diags, run.Diagnostic{
			Stage:    StageLoad,
			Code:     apperrors.CodeFileNotFound,
			Severity: run.SeverityWarning,
			Message: fmt.Sprintf("data file %s not found; synthetic dataset used (size %d, seed %d)",
				opts.File, opts.SyntheticSize, opts.SyntheticSeed),
		})
	}

	ds, err := testkit.GenerateClinicalDataset(testkit.ClinicalGeneratorConfig{
		Size: opts.SyntheticSize,
		Seed: opts.SyntheticSeed,
	})
	if err != nil {
		return nil, run.DataSource{}, nil, err
	}
	source := run.DataSource{
		Kind:        run.SourceSynthetic,
		Seed:        opts.SyntheticSeed,
		Size:        opts.SyntheticSize,
		FallbackFor: fallbackFor,
	}
	return ds, source, diags, nil
}

// Analyze runs the analyzers over ds and assembles their entries in stage order
func (s *PipelineService) Analyze(ctx context.Context, ds *dataset.Dataset, source run.DataSource, diags []run.Diagnostic, opts RunOptions) (*report.Report, error) {
	manifest := run.NewManifest(ds.Fingerprint(), ds.Len(), source, s.planHash, Version)
	for _, d := range diags {
		manifest.AddDiagnostic(d)
	}
	logger := s.logger.WithFields(map[string]interface{}{"run_id": manifest.RunID})
	logger.Info("Analyzing %d observations (dataset %s)", ds.Len(), ds.Fingerprint().Short())

	outputs := make([]internalreport.StageOutput, len(s.analyzers))
	errs := make([]error, len(s.analyzers))

	runStage := func(i int) error {
		a := s.analyzers[i]
		stageStart := time.Now()
		entries, err := a.Analyze(ds)
		outputs[i] = internalreport.StageOutput{Stage: a.Stage(), Entries: entries}
		if err != nil {
			errs[i] = err
			logger.Error("Stage %s failed: %v", a.Stage(), err)
			if opts.KeepGoing {
				return nil
			}
			return apperrors.Wrapf(err, "stage %s", a.Stage())
		}
		logger.Debug("Stage %s produced %d entries in %s", a.Stage(), len(entries), time.Since(stageStart))
		return nil
	}

	if opts.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i := range s.analyzers {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return runStage(i)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range s.analyzers {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := runStage(i); err != nil {
				return nil, err
			}
		}
	}

	for i, err := range errs {
		if err != nil {
			manifest.AddDiagnostic(run.DiagnosticFromError(s.analyzers[i].Stage(), "", err))
			outputs[i].Entries = nil
		}
	}
	for _, out := range outputs {
		for _, d := range convergenceDiagnostics(out) {
			logger.Warn("%s", d.String())
			manifest.AddDiagnostic(d)
		}
	}

	return s.assembler.Assemble(manifest, outputs...)
}

// convergenceDiagnostics reports every model left unconverged by its iteration cap
func convergenceDiagnostics(out internalreport.StageOutput) []run.Diagnostic {
	var diags []run.Diagnostic
	for _, e := range out.Entries {
		if e.Model == nil || e.Model.Converged {
			continue
		}
		msg := fmt.Sprintf("no convergence after %d iterations", e.Model.Iterations)
		if len(e.Model.Warnings) > 0 {
			msg = e.Model.Warnings[0]
		}
		diags = append(diags, run.Diagnostic{
			Stage:    out.Stage,
			Analysis: e.Key,
			Code:     apperrors.CodeNonConvergence,
			Severity: run.SeverityWarning,
			Message:  msg,
		})
	}
	return diags
}

// WriteOutputs serializes the report in every configured format and writes the chart data.
// It returns the paths written.
func WriteOutputs(ds *dataset.Dataset, r *report.Report, out config.OutputConfig, plot viz.PlotConfig) ([]string, error) {
	if err := os.MkdirAll(out.Dir, 0o755); err != nil {
		return nil, apperrors.Wrapf(err, "create output directory %s", out.Dir)
	}

	var written []string
	for _, format := range out.Formats {
		var path string
		var err error
		switch format {
		case config.FormatJSON:
			path = filepath.Join(out.Dir, export.JSONFile)
			err = export.WriteJSON(path, r)
		case config.FormatYAML:
			path = filepath.Join(out.Dir, export.YAMLFile)
			err = export.WriteYAML(path, r)
		case config.FormatXLSX:
			path = filepath.Join(out.Dir, WorkbookFile)
			err = excel.WriteWorkbook(path, r)
		case config.FormatHTML:
			path = filepath.Join(out.Dir, HTMLFile)
			err = os.WriteFile(path, render.HTML(r), 0o644)
		case config.FormatMarkdown:
			path = filepath.Join(out.Dir, MarkdownFile)
			err = os.WriteFile(path, []byte(render.Markdown(r)), 0o644)
		default:
			return written, apperrors.ConfigInvalid(fmt.Sprintf("unknown report format %q", format))
		}
		if err != nil {
			return written, apperrors.Wrapf(err, "write %s report", format)
		}
		written = append(written, path)
	}

	charts, err := viz.BuildCharts(ds, r, plot)
	if err != nil {
		return written, err
	}
	path, err := viz.WriteCharts(out.FiguresDir, charts)
	if err != nil {
		return written, err
	}
	return append(written, path), nil
}
