package bivariate

import (
	"math"

	"clinstat/domain/dataset"
	"clinstat/domain/report"
	domainstats "clinstat/domain/stats"
	"clinstat/internal/analysis/dist"
	apperrors "clinstat/internal/errors"
)

// Comparison compares a continuous outcome across the levels of a categorical group.
// Two observed levels run a Welch t-test; more run a one-way ANOVA followed by Tukey HSD.
type Comparison struct {
	Name    string `mapstructure:"name" json:"name"`
	Outcome string `mapstructure:"outcome" json:"outcome"`
	Group   string `mapstructure:"group" json:"group"`
}

// Association cross-tabulates two categorical variables
type Association struct {
	Name string `mapstructure:"name" json:"name"`
	Row  string `mapstructure:"row" json:"row"`
	Col  string `mapstructure:"col" json:"col"`
}

// CorrelationPair tests the Pearson correlation of two continuous variables
type CorrelationPair struct {
	Name string `mapstructure:"name" json:"name"`
	X    string `mapstructure:"x" json:"x"`
	Y    string `mapstructure:"y" json:"y"`
}

// Config is the bivariate battery
type Config struct {
	Comparisons           []Comparison      `mapstructure:"comparisons" json:"comparisons"`
	Associations          []Association     `mapstructure:"associations" json:"associations"`
	CorrelationMatrixName string            `mapstructure:"correlation_matrix_name" json:"correlation_matrix_name"`
	CorrelationMatrix     []string          `mapstructure:"correlation_matrix" json:"correlation_matrix"`
	Correlations          []CorrelationPair `mapstructure:"correlations" json:"correlations"`
	Alpha                 float64           `mapstructure:"alpha" json:"alpha"` // Tukey family-wise alpha
	ConfidenceLevel       float64           `mapstructure:"confidence_level" json:"confidence_level"`
	YatesCorrection       bool              `mapstructure:"yates_correction" json:"yates_correction"`
}

// Key suffixes of the follow-up results
const (
	TukeySuffix     = "_tukey"
	OddsRatioSuffix = "_odds_ratio"
)

// DefaultConfig reproduces the reference battery
func DefaultConfig() Config {
	return Config{
		Comparisons: []Comparison{
			{Name: "ttest_age_sex", Outcome: dataset.FieldAge, Group: dataset.FieldSex},
			{Name: "ttest_hba1c_diabetes", Outcome: dataset.FieldHbA1c, Group: dataset.FieldDiabetes},
			{Name: "anova_bmi_treatment", Outcome: dataset.FieldBMI, Group: dataset.FieldTreatmentGroup},
		},
		Associations: []Association{
			{Name: "chisq_diabetes_hypertension", Row: dataset.FieldDiabetes, Col: dataset.FieldHypertension},
		},
		CorrelationMatrixName: "correlation_matrix",
		CorrelationMatrix: []string{
			dataset.FieldAge, dataset.FieldWeight, dataset.FieldHeight, dataset.FieldBMI,
			dataset.FieldHbA1c, dataset.FieldCreatinine, dataset.FieldCholesterolTotal,
		},
		Correlations: []CorrelationPair{
			{Name: "cor_age_bmi", X: dataset.FieldAge, Y: dataset.FieldBMI},
		},
		Alpha:           0.05,
		ConfidenceLevel: domainstats.DefaultConfidenceLevel,
		YatesCorrection: true,
	}
}

// Validate checks names and variable kinds against the schema
func (c Config) Validate(schema *dataset.Schema) error {
	for _, cmp := range c.Comparisons {
		if cmp.Name == "" {
			return apperrors.InvalidVariable("comparison %s by %s has no name", cmp.Outcome, cmp.Group)
		}
		if _, err := schema.Require(cmp.Outcome, dataset.KindContinuous); err != nil {
			return apperrors.Wrapf(err, "comparison %s", cmp.Name)
		}
		if _, err := schema.RequireCategorical(cmp.Group); err != nil {
			return apperrors.Wrapf(err, "comparison %s", cmp.Name)
		}
	}
	for _, as := range c.Associations {
		if as.Name == "" {
			return apperrors.InvalidVariable("association %s x %s has no name", as.Row, as.Col)
		}
		for _, v := range []string{as.Row, as.Col} {
			if _, err := schema.RequireCategorical(v); err != nil {
				return apperrors.Wrapf(err, "association %s", as.Name)
			}
		}
	}
	if len(c.CorrelationMatrix) > 0 {
		if c.CorrelationMatrixName == "" {
			return apperrors.InvalidVariable("correlation matrix has no name")
		}
		for _, v := range c.CorrelationMatrix {
			if _, err := schema.Require(v, dataset.KindContinuous); err != nil {
				return apperrors.Wrapf(err, "correlation matrix %s", c.CorrelationMatrixName)
			}
		}
	}
	for _, p := range c.Correlations {
		if p.Name == "" {
			return apperrors.InvalidVariable("correlation %s ~ %s has no name", p.X, p.Y)
		}
		for _, v := range []string{p.X, p.Y} {
			if _, err := schema.Require(v, dataset.KindContinuous); err != nil {
				return apperrors.Wrapf(err, "correlation %s", p.Name)
			}
		}
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return apperrors.InvalidVariable("alpha %v must lie in (0, 1)", c.Alpha)
	}
	if c.ConfidenceLevel <= 0 || c.ConfidenceLevel >= 1 {
		return apperrors.InvalidVariable("confidence level %v must lie in (0, 1)", c.ConfidenceLevel)
	}
	return nil
}

// Analyzer runs the configured pairwise battery
type Analyzer struct {
	config Config
	dist   *dist.Distributions
}

// NewAnalyzer creates a bivariate analyzer
func NewAnalyzer(config Config) *Analyzer {
	return &Analyzer{config: config, dist: dist.New()}
}

// Stage names the pipeline stage
func (a *Analyzer) Stage() string {
	return report.StageBivariate
}

// Analyze runs comparisons, associations, the correlation matrix, then the correlation
// pairs, failing on the first error
func (a *Analyzer) Analyze(ds *dataset.Dataset) ([]report.Entry, error) {
	if ds.Len() == 0 {
		return nil, apperrors.EmptyDataset("bivariate analysis")
	}
	if err := a.config.Validate(ds.Schema()); err != nil {
		return nil, err
	}

	var entries []report.Entry
	for _, cmp := range a.config.Comparisons {
		results, err := a.compare(ds, cmp)
		if err != nil {
			return nil, err
		}
		entries = append(entries, results...)
	}

	for _, as := range a.config.Associations {
		results, err := a.associate(ds, as)
		if err != nil {
			return nil, err
		}
		entries = append(entries, results...)
	}

	if len(a.config.CorrelationMatrix) > 0 {
		columns := make([][]float64, len(a.config.CorrelationMatrix))
		for i, v := range a.config.CorrelationMatrix {
			columns[i], _ = ds.Continuous(v)
		}
		m, err := CorrelationMatrixOf(a.config.CorrelationMatrix, columns)
		if err != nil {
			return nil, apperrors.Wrapf(err, "correlation matrix %s", a.config.CorrelationMatrixName)
		}
		entries = append(entries, report.CorrelationEntry(a.config.CorrelationMatrixName, m))
	}

	for _, p := range a.config.Correlations {
		x, _ := ds.Continuous(p.X)
		y, _ := ds.Continuous(p.Y)
		res, err := a.PearsonTest(p.X, p.Y, x, y)
		if err != nil {
			return nil, apperrors.Wrapf(err, "correlation %s", p.Name)
		}
		entries = append(entries, report.TestEntry(p.Name, res))
	}

	return entries, nil
}

func (a *Analyzer) compare(ds *dataset.Dataset, cmp Comparison) ([]report.Entry, error) {
	values, _ := ds.Continuous(cmp.Outcome)
	labels, _ := ds.Categorical(cmp.Group)
	field, _ := ds.Schema().Field(cmp.Group)
	groups := splitByLevel(values, labels, field.Levels)

	switch {
	case len(groups) < 2:
		return nil, apperrors.InsufficientGroupSize("comparison %s: %s by %s has %d observed level(s), need at least 2",
			cmp.Name, cmp.Outcome, cmp.Group, len(groups))
	case len(groups) == 2:
		res, err := a.WelchTTest(cmp.Outcome, cmp.Group, groups[0], groups[1])
		if err != nil {
			return nil, apperrors.Wrapf(err, "comparison %s", cmp.Name)
		}
		return []report.Entry{report.TestEntry(cmp.Name, res)}, nil
	default:
		anova, err := a.OneWayANOVA(cmp.Outcome, cmp.Group, groups)
		if err != nil {
			return nil, apperrors.Wrapf(err, "comparison %s", cmp.Name)
		}
		tukey, err := a.TukeyHSD(cmp.Outcome, cmp.Group, groups)
		if err != nil {
			return nil, apperrors.Wrapf(err, "comparison %s", cmp.Name)
		}
		return []report.Entry{
			report.TestEntry(cmp.Name, anova),
			report.TestEntry(cmp.Name+TukeySuffix, tukey),
		}, nil
	}
}

func (a *Analyzer) associate(ds *dataset.Dataset, as Association) ([]report.Entry, error) {
	rows, _ := ds.Categorical(as.Row)
	cols, _ := ds.Categorical(as.Col)
	rowField, _ := ds.Schema().Field(as.Row)
	colField, _ := ds.Schema().Field(as.Col)

	table := CrossTabulate(as.Row, as.Col, rowField.Levels, colField.Levels, rows, cols)
	chi, err := a.ChiSquareTest(table)
	if err != nil {
		return nil, apperrors.Wrapf(err, "association %s", as.Name)
	}
	entries := []report.Entry{report.TestEntry(as.Name, chi)}

	if len(table.RowLevels) == 2 && len(table.ColLevels) == 2 {
		or := a.OddsRatio(table)
		entries = append(entries, report.TestEntry(as.Name+OddsRatioSuffix, or))
	}
	return entries, nil
}

// group holds the non-missing outcome values of one level
type group struct {
	Level  string
	Values []float64
}

// splitByLevel partitions values by label. Levels that never occur are dropped; levels
// follow vocabulary order.
func splitByLevel(values []float64, labels, vocabulary []string) []group {
	byLevel := make(map[string]*group, len(vocabulary))
	seen := make(map[string]bool, len(vocabulary))
	for i, label := range labels {
		seen[label] = true
		if math.IsNaN(values[i]) {
			continue
		}
		g, ok := byLevel[label]
		if !ok {
			g = &group{Level: label}
			byLevel[label] = g
		}
		g.Values = append(g.Values, values[i])
	}

	var out []group
	for _, level := range vocabulary {
		if !seen[level] {
			continue
		}
		if g, ok := byLevel[level]; ok {
			out = append(out, *g)
		} else {
			out = append(out, group{Level: level})
		}
	}
	return out
}
