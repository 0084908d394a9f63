package multivariate

import (
	"fmt"

	"clinstat/domain/dataset"
	domainstats "clinstat/domain/stats"
	apperrors "clinstat/internal/errors"
)

// Encoding says how a schema field becomes design columns
type Encoding string

const (
	// EncodingNumeric uses a continuous field as is
	EncodingNumeric Encoding = "numeric"
	// EncodingBinary is 1 when the value equals Level, default the field's first level
	EncodingBinary Encoding = "binary"
	// EncodingIndicator expands a categorical field into k-1 columns against the reference Level
	EncodingIndicator Encoding = "indicator"
)

// PredictorSpec declares one predictor
type PredictorSpec struct {
	Field    string   `mapstructure:"field" json:"field"`
	Encoding Encoding `mapstructure:"encoding" json:"encoding"`
	Level    string   `mapstructure:"level" json:"level,omitempty"`
}

// ModelSpec declares one regression model
type ModelSpec struct {
	Name         string                `mapstructure:"name" json:"name"`
	Kind         domainstats.ModelKind `mapstructure:"kind" json:"kind"`
	Outcome      string                `mapstructure:"outcome" json:"outcome"`
	OutcomeLevel string                `mapstructure:"outcome_level" json:"outcome_level,omitempty"`
	Predictors   []PredictorSpec       `mapstructure:"predictors" json:"predictors"`
}

// Config lists the models and the logistic solver settings
type Config struct {
	Models          []ModelSpec `mapstructure:"models" json:"models"`
	MaxIterations   int         `mapstructure:"max_iterations" json:"max_iterations"`
	Tolerance       float64     `mapstructure:"tolerance" json:"tolerance"`
	ConfidenceLevel float64     `mapstructure:"confidence_level" json:"confidence_level"`
}

// DefaultConfig reproduces the two reference models
func DefaultConfig() Config {
	return Config{
		Models: []ModelSpec{
			{
				Name:         "logistic_diabetes",
				Kind:         domainstats.ModelLogistic,
				Outcome:      dataset.FieldDiabetes,
				OutcomeLevel: dataset.LevelYes,
				Predictors: []PredictorSpec{
					{Field: dataset.FieldAge, Encoding: EncodingNumeric},
					{Field: dataset.FieldBMI, Encoding: EncodingNumeric},
					{Field: dataset.FieldSex, Encoding: EncodingBinary, Level: dataset.LevelMale},
					{Field: dataset.FieldHypertension, Encoding: EncodingBinary, Level: dataset.LevelYes},
				},
			},
			{
				Name:    "linear_hba1c",
				Kind:    domainstats.ModelLinear,
				Outcome: dataset.FieldHbA1c,
				Predictors: []PredictorSpec{
					{Field: dataset.FieldAge, Encoding: EncodingNumeric},
					{Field: dataset.FieldBMI, Encoding: EncodingNumeric},
					{Field: dataset.FieldDiabetes, Encoding: EncodingBinary, Level: dataset.LevelYes},
					{Field: dataset.FieldTreatmentGroup, Encoding: EncodingIndicator, Level: dataset.LevelPlacebo},
				},
			},
		},
		MaxIterations:   35,
		Tolerance:       1e-8,
		ConfidenceLevel: domainstats.DefaultConfidenceLevel,
	}
}

// column is one resolved design column
type column struct {
	name     string
	field    string
	encoding Encoding
	level    string // level coded 1 for binary and indicator columns
}

// resolve validates a predictor and returns its design columns
func (p PredictorSpec) resolve(schema *dataset.Schema) ([]column, error) {
	switch p.Encoding {
	case EncodingNumeric:
		if _, err := schema.Require(p.Field, dataset.KindContinuous); err != nil {
			return nil, err
		}
		return []column{{name: p.Field, field: p.Field, encoding: EncodingNumeric}}, nil

	case EncodingBinary:
		f, err := schema.RequireCategorical(p.Field)
		if err != nil {
			return nil, err
		}
		level := p.Level
		if level == "" {
			level = f.Levels[0]
		}
		if !f.HasLevel(level) {
			return nil, apperrors.InvalidVariable("predictor %s: level %q is not in %v", p.Field, level, f.Levels)
		}
		return []column{{name: columnName(p.Field, level), field: p.Field, encoding: EncodingBinary, level: level}}, nil

	case EncodingIndicator:
		f, err := schema.RequireCategorical(p.Field)
		if err != nil {
			return nil, err
		}
		if p.Level == "" {
			return nil, apperrors.InvalidVariable("predictor %s: indicator encoding needs an explicit reference level", p.Field)
		}
		if !f.HasLevel(p.Level) {
			return nil, apperrors.InvalidVariable("predictor %s: reference level %q is not in %v", p.Field, p.Level, f.Levels)
		}
		var cols []column
		for _, l := range f.Levels {
			if l != p.Level {
				cols = append(cols, column{name: columnName(p.Field, l), field: p.Field, encoding: EncodingIndicator, level: l})
			}
		}
		return cols, nil

	default:
		return nil, apperrors.InvalidVariable("predictor %s: unknown encoding %q", p.Field, p.Encoding)
	}
}

func columnName(field, level string) string {
	return fmt.Sprintf("%s[%s]", field, level)
}

// columns validates the model and returns Intercept followed by every predictor column
func (m ModelSpec) columns(schema *dataset.Schema) ([]column, error) {
	if m.Name == "" {
		return nil, apperrors.InvalidVariable("model for outcome %s has no name", m.Outcome)
	}
	switch m.Kind {
	case domainstats.ModelLogistic:
		f, err := schema.Require(m.Outcome, dataset.KindBinary)
		if err != nil {
			return nil, apperrors.Wrapf(err, "model %s outcome", m.Name)
		}
		if m.OutcomeLevel != "" && !f.HasLevel(m.OutcomeLevel) {
			return nil, apperrors.InvalidVariable("model %s: outcome level %q is not in %v", m.Name, m.OutcomeLevel, f.Levels)
		}
	case domainstats.ModelLinear:
		if _, err := schema.Require(m.Outcome, dataset.KindContinuous); err != nil {
			return nil, apperrors.Wrapf(err, "model %s outcome", m.Name)
		}
	default:
		return nil, apperrors.InvalidVariable("model %s: unknown kind %q", m.Name, m.Kind)
	}
	if len(m.Predictors) == 0 {
		return nil, apperrors.InvalidVariable("model %s has no predictors", m.Name)
	}

	cols := []column{{name: domainstats.InterceptName}}
	seen := map[string]bool{domainstats.InterceptName: true}
	for _, p := range m.Predictors {
		if p.Field == m.Outcome {
			return nil, apperrors.InvalidVariable("model %s: outcome %s used as a predictor", m.Name, m.Outcome)
		}
		resolved, err := p.resolve(schema)
		if err != nil {
			return nil, apperrors.Wrapf(err, "model %s", m.Name)
		}
		for _, c := range resolved {
			if seen[c.name] {
				return nil, apperrors.InvalidVariable("model %s: column %s declared twice", m.Name, c.name)
			}
			seen[c.name] = true
			cols = append(cols, c)
		}
	}
	return cols, nil
}

// Validate checks every model against the schema
func (c Config) Validate(schema *dataset.Schema) error {
	names := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if names[m.Name] {
			return apperrors.DuplicateAnalysisKey("model name %q declared twice", m.Name)
		}
		names[m.Name] = true
		if _, err := m.columns(schema); err != nil {
			return err
		}
	}
	if c.MaxIterations <= 0 {
		return apperrors.InvalidVariable("max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.Tolerance <= 0 {
		return apperrors.InvalidVariable("tolerance must be positive, got %v", c.Tolerance)
	}
	if c.ConfidenceLevel <= 0 || c.ConfidenceLevel >= 1 {
		return apperrors.InvalidVariable("confidence level %v must lie in (0, 1)", c.ConfidenceLevel)
	}
	return nil
}
