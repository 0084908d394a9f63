package multivariate

import (
	"clinstat/domain/dataset"
	"clinstat/domain/report"
	domainstats "clinstat/domain/stats"
	"clinstat/internal/analysis/dist"
	apperrors "clinstat/internal/errors"
)

// Analyzer fits the configured regression models
type Analyzer struct {
	config Config
	dist   *dist.Distributions
}

// NewAnalyzer creates a multivariate analyzer
func NewAnalyzer(config Config) *Analyzer {
	return &Analyzer{config: config, dist: dist.New()}
}

// Stage names the pipeline stage
func (a *Analyzer) Stage() string {
	return report.StageMultivariate
}

// Analyze fits every model in declaration order. A model that does not converge is still
// reported, with Converged false and a warning.
func (a *Analyzer) Analyze(ds *dataset.Dataset) ([]report.Entry, error) {
	if ds.Len() == 0 {
		return nil, apperrors.EmptyDataset("multivariate analysis")
	}
	if err := a.config.Validate(ds.Schema()); err != nil {
		return nil, err
	}

	entries := make([]report.Entry, 0, len(a.config.Models))
	for _, spec := range a.config.Models {
		res, err := a.Fit(ds, spec)
		if err != nil {
			return nil, err
		}
		entries = append(entries, report.ModelEntry(spec.Name, res))
	}
	return entries, nil
}

// Fit builds the design of one model and dispatches on its kind
func (a *Analyzer) Fit(ds *dataset.Dataset, spec ModelSpec) (domainstats.RegressionModelResult, error) {
	d, err := BuildDesign(ds, spec)
	if err != nil {
		return domainstats.RegressionModelResult{}, err
	}
	switch spec.Kind {
	case domainstats.ModelLogistic:
		return a.FitLogistic(spec, d)
	case domainstats.ModelLinear:
		return a.FitLinear(spec, d)
	}
	return domainstats.RegressionModelResult{}, apperrors.InvalidVariable("model %s: unknown kind %q", spec.Name, spec.Kind)
}
