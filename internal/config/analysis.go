package config

import (
	"encoding/json"
	"os"
	"strings"

	"clinstat/domain/core"
	"clinstat/domain/dataset"
	"clinstat/internal/analysis/bivariate"
	"clinstat/internal/analysis/descriptive"
	"clinstat/internal/analysis/multivariate"
	"clinstat/internal/errors"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// AnalysisPlan is the full configuration of the three analyzers
type AnalysisPlan struct {
	Descriptive  descriptive.Config  `mapstructure:"descriptive" json:"descriptive"`
	Bivariate    bivariate.Config    `mapstructure:"bivariate" json:"bivariate"`
	Multivariate multivariate.Config `mapstructure:"multivariate" json:"multivariate"`
}

// DefaultAnalysisPlan reproduces the reference analysis
func DefaultAnalysisPlan() AnalysisPlan {
	return AnalysisPlan{
		Descriptive:  descriptive.DefaultConfig(),
		Bivariate:    bivariate.DefaultConfig(),
		Multivariate: multivariate.DefaultConfig(),
	}
}

// EnvPrefix prefixes environment overrides of plan scalars, e.g. CLINSTAT_BIVARIATE_ALPHA
const EnvPrefix = "CLINSTAT"

// LoadAnalysisPlan starts from the default plan, overlays the YAML file at path when given,
// then environment overrides. Lists present in the file replace the defaults entirely.
// The result is validated against the clinical schema.
func LoadAnalysisPlan(path string) (AnalysisPlan, error) {
	plan := DefaultAnalysisPlan()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setPlanDefaults(v, plan)

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return AnalysisPlan{}, errors.FileNotFound(path)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return AnalysisPlan{}, errors.WithCode(errors.CodeConfigInvalid, errors.Wrapf(err, "read analysis plan %s", path))
		}
	}

	zeroLists := viper.DecoderConfigOption(func(c *mapstructure.DecoderConfig) {
		c.ZeroFields = true
	})
	if err := v.Unmarshal(&plan, zeroLists); err != nil {
		return AnalysisPlan{}, errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "decode analysis plan"))
	}

	if err := plan.Validate(dataset.ClinicalSchema()); err != nil {
		return AnalysisPlan{}, err
	}
	return plan, nil
}

// setPlanDefaults registers the scalar settings so environment overrides reach them
func setPlanDefaults(v *viper.Viper, plan AnalysisPlan) {
	v.SetDefault("descriptive.group_by", plan.Descriptive.GroupBy)
	v.SetDefault("bivariate.alpha", plan.Bivariate.Alpha)
	v.SetDefault("bivariate.confidence_level", plan.Bivariate.ConfidenceLevel)
	v.SetDefault("bivariate.yates_correction", plan.Bivariate.YatesCorrection)
	v.SetDefault("bivariate.correlation_matrix_name", plan.Bivariate.CorrelationMatrixName)
	v.SetDefault("multivariate.max_iterations", plan.Multivariate.MaxIterations)
	v.SetDefault("multivariate.tolerance", plan.Multivariate.Tolerance)
	v.SetDefault("multivariate.confidence_level", plan.Multivariate.ConfidenceLevel)
}

// Validate checks every analyzer configuration against the schema
func (p AnalysisPlan) Validate(schema *dataset.Schema) error {
	if err := p.Descriptive.Validate(schema); err != nil {
		return errors.Wrap(err, "analysis plan")
	}
	if err := p.Bivariate.Validate(schema); err != nil {
		return errors.Wrap(err, "analysis plan")
	}
	if err := p.Multivariate.Validate(schema); err != nil {
		return errors.Wrap(err, "analysis plan")
	}
	return nil
}

// Hash fingerprints the plan so a report records which configuration produced it
func (p AnalysisPlan) Hash() (core.Hash, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", errors.Wrap(err, "encode analysis plan")
	}
	return core.NewHash(b), nil
}
