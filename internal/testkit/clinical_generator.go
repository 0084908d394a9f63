package testkit

import (
	"math"
	"math/rand"

	"clinstat/domain/dataset"
	apperrors "clinstat/internal/errors"
)

// ClinicalGeneratorConfig configures the synthetic clinical dataset
type ClinicalGeneratorConfig struct {
	Size int   `json:"size"`
	Seed int64 `json:"seed"`
}

// DefaultClinicalConfig returns the size and seed of the reference analysis
func DefaultClinicalConfig() ClinicalGeneratorConfig {
	return ClinicalGeneratorConfig{Size: 500, Seed: 42}
}

// weighted is a categorical distribution over levels
type weighted struct {
	levels []string
	probs  []float64
}

var (
	sexDist          = weighted{[]string{dataset.LevelMale, dataset.LevelFemale}, []float64{0.45, 0.55}}
	diabetesDist     = weighted{[]string{dataset.LevelYes, dataset.LevelNo}, []float64{0.25, 0.75}}
	hypertensionDist = weighted{[]string{dataset.LevelYes, dataset.LevelNo}, []float64{0.35, 0.65}}
	smokingDist      = weighted{[]string{dataset.LevelCurrent, dataset.LevelFormer, dataset.LevelNever}, []float64{0.15, 0.20, 0.65}}
	treatmentDist    = weighted{[]string{dataset.LevelTreatmentA, dataset.LevelTreatmentB, dataset.LevelPlacebo}, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}}
)

// ClinicalDataGenerator draws patient records from fixed clinical distributions
type ClinicalDataGenerator struct {
	config ClinicalGeneratorConfig
	rng    *rand.Rand
}

// NewClinicalDataGenerator creates a generator with its own seeded source
func NewClinicalDataGenerator(config ClinicalGeneratorConfig) *ClinicalDataGenerator {
	return &ClinicalDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// GenerateObservations draws Size records. Each call continues the same random stream.
func (g *ClinicalDataGenerator) GenerateObservations() []dataset.Observation {
	rows := make([]dataset.Observation, g.config.Size)
	for i := range rows {
		rows[i] = dataset.Observation{
			ID:               i + 1,
			Age:              math.Trunc(g.clippedNormal(55, 15, 18, 90)),
			Sex:              g.choice(sexDist),
			Weight:           g.clippedNormal(75, 15, 40, 150),
			Height:           g.clippedNormal(170, 10, 140, 200),
			Diabetes:         g.choice(diabetesDist),
			Hypertension:     g.choice(hypertensionDist),
			Smoking:          g.choice(smokingDist),
			TreatmentGroup:   g.choice(treatmentDist),
			HbA1c:            g.clippedNormal(7.2, 1.5, 4, 15),
			Creatinine:       g.clippedNormal(85, 25, 30, 200),
			CholesterolTotal: g.clippedNormal(200, 40, 100, 350),
			FollowupMonths:   float64(1 + g.rng.Intn(24)),
		}
	}
	return rows
}

// Generate builds a validated Dataset
func (g *ClinicalDataGenerator) Generate() (*dataset.Dataset, error) {
	if g.config.Size <= 0 {
		return nil, apperrors.InvalidInput("synthetic dataset size must be positive")
	}
	return dataset.New(g.GenerateObservations())
}

// GenerateClinicalDataset is a shortcut for NewClinicalDataGenerator(config).Generate()
func GenerateClinicalDataset(config ClinicalGeneratorConfig) (*dataset.Dataset, error) {
	return NewClinicalDataGenerator(config).Generate()
}

func (g *ClinicalDataGenerator) clippedNormal(mean, sd, lo, hi float64) float64 {
	v := g.rng.NormFloat64()*sd + mean
	return math.Max(lo, math.Min(hi, v))
}

func (g *ClinicalDataGenerator) choice(w weighted) string {
	u := g.rng.Float64()
	var cum float64
	for i, p := range w.probs {
		cum += p
		if u < cum {
			return w.levels[i]
		}
	}
	return w.levels[len(w.levels)-1]
}
