package descriptive

import (
	"fmt"
	"math"
	"sort"

	"clinstat/domain/dataset"
	"clinstat/domain/report"
	domainstats "clinstat/domain/stats"
	apperrors "clinstat/internal/errors"

	"github.com/montanaflynn/stats"
)

// Config selects the variables to describe
type Config struct {
	ContinuousVariables  []string `mapstructure:"continuous_variables" json:"continuous_variables"`
	CategoricalVariables []string `mapstructure:"categorical_variables" json:"categorical_variables"`
	GroupBy              string   `mapstructure:"group_by" json:"group_by"`
}

// DefaultConfig describes every continuous field by treatment group and tabulates every
// categorical field
func DefaultConfig() Config {
	schema := dataset.ClinicalSchema()
	return Config{
		ContinuousVariables:  schema.ContinuousNames(),
		CategoricalVariables: schema.CategoricalNames(),
		GroupBy:              dataset.FieldTreatmentGroup,
	}
}

// Validate checks every name against the schema
func (c Config) Validate(schema *dataset.Schema) error {
	for _, name := range c.ContinuousVariables {
		if _, err := schema.Require(name, dataset.KindContinuous); err != nil {
			return apperrors.Wrap(err, "descriptive continuous_variables")
		}
	}
	for _, name := range c.CategoricalVariables {
		if _, err := schema.RequireCategorical(name); err != nil {
			return apperrors.Wrap(err, "descriptive categorical_variables")
		}
	}
	if c.GroupBy != "" {
		if _, err := schema.RequireCategorical(c.GroupBy); err != nil {
			return apperrors.Wrap(err, "descriptive group_by")
		}
	}
	return nil
}

// Analyzer produces summary statistics and frequency tables
type Analyzer struct {
	config Config
}

// NewAnalyzer creates a descriptive analyzer
func NewAnalyzer(config Config) *Analyzer {
	return &Analyzer{config: config}
}

// Stage names the pipeline stage
func (a *Analyzer) Stage() string {
	return report.StageDescriptive
}

// SummaryKey is the report key of a summary statistic
func SummaryKey(variable, group string) string {
	return fmt.Sprintf("summary/%s/%s", variable, group)
}

// FrequencyKey is the report key of a frequency table
func FrequencyKey(variable string) string {
	return "frequency/" + variable
}

// Analyze computes overall and per-group summaries for each continuous variable, then one
// frequency table per categorical variable
func (a *Analyzer) Analyze(ds *dataset.Dataset) ([]report.Entry, error) {
	if ds.Len() == 0 {
		return nil, apperrors.EmptyDataset("descriptive analysis")
	}
	if err := a.config.Validate(ds.Schema()); err != nil {
		return nil, err
	}

	var groups []string
	var groupLevels []string
	if a.config.GroupBy != "" {
		field, _ := ds.Schema().Field(a.config.GroupBy)
		groupLevels = field.Levels
		groups, _ = ds.Categorical(a.config.GroupBy)
	}

	var entries []report.Entry
	for _, name := range a.config.ContinuousVariables {
		values, err := ds.Continuous(name)
		if err != nil {
			return nil, err
		}

		overall := Summarize(name, domainstats.OverallGroup, values)
		entries = append(entries, report.SummaryEntry(SummaryKey(name, domainstats.OverallGroup), overall))

		for _, level := range groupLevels {
			var subset []float64
			for i, v := range values {
				if groups[i] == level {
					subset = append(subset, v)
				}
			}
			s := Summarize(name, level, subset)
			if s.Count == 0 {
				continue
			}
			s.GroupBy = a.config.GroupBy
			entries = append(entries, report.SummaryEntry(SummaryKey(name, level), s))
		}
	}

	for _, name := range a.config.CategoricalVariables {
		values, err := ds.Categorical(name)
		if err != nil {
			return nil, err
		}
		field, _ := ds.Schema().Field(name)
		entries = append(entries, report.FrequencyEntry(FrequencyKey(name), Frequencies(name, field.Levels, values)))
	}

	return entries, nil
}

// Summarize describes the non-missing values. With no values every statistic is zero.
func Summarize(variable, group string, values []float64) domainstats.SummaryStatistic {
	data := nonMissing(values)
	s := domainstats.SummaryStatistic{Variable: variable, Group: group, Count: len(data)}
	if len(data) == 0 {
		return s
	}

	s.Mean, _ = stats.Mean(data)
	s.Min, _ = stats.Min(data)
	s.Max, _ = stats.Max(data)
	s.Median, _ = stats.Median(data)
	if len(data) > 1 {
		s.StdDev, _ = stats.StandardDeviationSample(data)
	}

	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	s.Q25 = Quantile(sorted, 0.25)
	s.Q75 = Quantile(sorted, 0.75)
	return s
}

// Quantile interpolates linearly between order statistics of sorted data (the default of
// R's quantile and pandas describe)
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// Frequencies counts observed levels, most frequent first with ties in vocabulary order
func Frequencies(variable string, vocabulary, values []string) domainstats.FrequencyTable {
	counts := make(map[string]int, len(vocabulary))
	for _, v := range values {
		counts[v]++
	}

	table := domainstats.FrequencyTable{Variable: variable, Group: domainstats.OverallGroup, Total: len(values)}
	for _, level := range vocabulary {
		if c := counts[level]; c > 0 {
			table.Levels = append(table.Levels, domainstats.LevelFrequency{
				Level:   level,
				Count:   c,
				Percent: float64(c) / float64(len(values)) * 100,
			})
		}
	}
	sort.SliceStable(table.Levels, func(i, j int) bool {
		return table.Levels[i].Count > table.Levels[j].Count
	})
	return table
}

func nonMissing(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
