package bivariate

import (
	"math"
	"testing"

	"clinstat/domain/dataset"
	"clinstat/domain/report"
	domainstats "clinstat/domain/stats"
	apperrors "clinstat/internal/errors"
	"clinstat/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalyzer(mutate ...func(*Config)) *Analyzer {
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	return NewAnalyzer(cfg)
}

func obs(group string, hba1c float64) dataset.Observation {
	return dataset.Observation{
		Age: 50, Sex: dataset.LevelMale, Weight: 80, Height: 180,
		Diabetes: dataset.LevelNo, Hypertension: dataset.LevelNo, Smoking: dataset.LevelNever,
		TreatmentGroup: group, HbA1c: hba1c, Creatinine: 80, CholesterolTotal: 190, FollowupMonths: 12,
	}
}

func TestWelchMatchesReference(t *testing.T) {
	a := newTestAnalyzer()
	res, err := a.WelchTTest("y", "g",
		group{Level: "a", Values: []float64{1, 2, 3, 4, 5}},
		group{Level: "b", Values: []float64{2, 4, 6, 8, 10}})
	require.NoError(t, err)

	assert.Equal(t, domainstats.TestTwoSample, res.Kind)
	assert.InDelta(t, -1.897367, res.Statistic, 1e-6)
	assert.InDelta(t, 5.882353, res.DF, 1e-6)
	assert.InDelta(t, 0.107531, res.PValue, 1e-3)

	require.NotNil(t, res.Estimate)
	assert.Equal(t, -3.0, res.Estimate.Value)
	assert.InDelta(t, -3-2.458824*1.581139, res.Estimate.CILower, 1e-4)
	assert.InDelta(t, res.Estimate.Value-res.Estimate.CILower, res.Estimate.CIUpper-res.Estimate.Value, 1e-12)
	assert.Len(t, res.Groups, 2)
}

func TestWelchGroupErrors(t *testing.T) {
	a := newTestAnalyzer()
	_, err := a.WelchTTest("age", "sex", group{Level: "male", Values: []float64{1}}, group{Level: "female", Values: []float64{1, 2}})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientGroupSize)
	assert.Contains(t, err.Error(), `"male"`)

	_, err = a.WelchTTest("age", "sex", group{Level: "male", Values: []float64{3, 3, 3}}, group{Level: "female", Values: []float64{1, 2}})
	assert.ErrorIs(t, err, apperrors.ErrDegenerateVariance)
}

var threeGroups = []group{
	{Level: "a", Values: []float64{1, 2, 3, 4, 5}},
	{Level: "b", Values: []float64{2, 4, 6, 8, 10}},
	{Level: "c", Values: []float64{5, 6, 7, 8, 9}},
}

func TestOneWayANOVAMatchesReference(t *testing.T) {
	res, err := newTestAnalyzer().OneWayANOVA("y", "g", threeGroups)
	require.NoError(t, err)

	assert.InDelta(t, 4.333333, res.Statistic, 1e-6)
	assert.Equal(t, 2.0, res.DF)
	assert.Equal(t, 12.0, res.DF2)
	assert.InDelta(t, 0.038323, res.PValue, 1e-4)
	assert.InDelta(t, 0.419355, res.EffectSize.Value, 1e-6)
}

func TestTukeyHSD(t *testing.T) {
	res, err := newTestAnalyzer().TukeyHSD("y", "g", threeGroups)
	require.NoError(t, err)
	require.Len(t, res.Comparisons, 3)

	// MSW = 5 and n = 5 per group, so every SE is 1 and q = |diff|
	ab, ac, bc := res.Comparisons[0], res.Comparisons[1], res.Comparisons[2]
	assert.Equal(t, [2]string{"a", "b"}, [2]string{ab.Group1, ab.Group2})
	assert.InDelta(t, 3.0, ab.MeanDiff, 1e-12)
	assert.InDelta(t, 1.0, ab.StdErr, 1e-12)
	assert.InDelta(t, 3.773, ab.CIUpper-ab.MeanDiff, 5e-3, "q(0.95; 3, 12)")

	assert.False(t, ab.Reject)
	assert.True(t, ac.Reject)
	assert.Less(t, ac.PAdj, 0.05)
	assert.Greater(t, bc.PAdj, 0.5)

	for _, c := range res.Comparisons {
		assert.InDelta(t, c.MeanDiff-c.CILower, c.CIUpper-c.MeanDiff, 1e-9, "symmetric CI")
	}
}

func TestTukeyIntervalsWidenWithFamilySize(t *testing.T) {
	a := newTestAnalyzer()
	base := []float64{4, 5, 6, 5, 4, 6}
	shift := func(level string, d float64) group {
		vals := make([]float64, len(base))
		for i, v := range base {
			vals[i] = v + d
		}
		return group{Level: level, Values: vals}
	}

	var prevWidth float64
	for k := 3; k <= 5; k++ {
		groups := make([]group, k)
		for i := range groups {
			groups[i] = shift(string(rune('a'+i)), float64(i))
		}
		res, err := a.TukeyHSD("y", "g", groups)
		require.NoError(t, err)
		width := res.Comparisons[0].CIUpper - res.Comparisons[0].CILower
		assert.Greater(t, width, prevWidth, "k=%d", k)
		prevWidth = width
	}
}

func TestChiSquareAndOddsRatio(t *testing.T) {
	table := domainstats.ContingencyTable{
		RowVariable: "diabetes", ColVariable: "hypertension",
		RowLevels: []string{"yes", "no"}, ColLevels: []string{"yes", "no"},
		Observed: [][]int{{10, 20}, {30, 40}}, Total: 100,
	}

	chi, err := newTestAnalyzer(func(c *Config) { c.YatesCorrection = false }).ChiSquareTest(table)
	require.NoError(t, err)
	assert.InDelta(t, 0.793651, chi.Statistic, 1e-6)
	assert.Equal(t, 1.0, chi.DF)
	assert.InDelta(t, 0.372998, chi.PValue, 1e-5)
	assert.InDelta(t, 0.089087, chi.EffectSize.Value, 1e-6)
	assert.InDelta(t, 12.0, chi.Table.Expected[0][0], 1e-12)
	assert.False(t, chi.HasFlag(domainstats.FlagYatesCorrected))

	// 2x2 tables are continuity corrected by default
	yates, err := newTestAnalyzer().ChiSquareTest(table)
	require.NoError(t, err)
	assert.InDelta(t, 0.446429, yates.Statistic, 1e-6)
	assert.InDelta(t, 0.504, yates.PValue, 1e-3)
	assert.True(t, yates.HasFlag(domainstats.FlagYatesCorrected))

	or := newTestAnalyzer().OddsRatio(table)
	assert.InDelta(t, 10.0*40/(20*30), or.Estimate.Value, 1e-12)
	se := math.Sqrt(1.0/10 + 1.0/20 + 1.0/30 + 1.0/40)
	assert.InDelta(t, math.Exp(math.Log(or.Estimate.Value)-1.959964*se), or.Estimate.CILower, 1e-5)
	assert.InDelta(t, 1.630900, or.Estimate.CIUpper, 1e-5)
	assert.InDelta(t, 0.374364, or.PValue, 1e-5)
}

func TestOddsRatioZeroCell(t *testing.T) {
	table := domainstats.ContingencyTable{
		RowLevels: []string{"yes", "no"}, ColLevels: []string{"yes", "no"},
		Observed: [][]int{{0, 5}, {5, 5}}, Total: 15,
	}
	or := newTestAnalyzer().OddsRatio(table)
	assert.True(t, or.HasFlag(domainstats.FlagZeroCellCorrected))
	assert.InDelta(t, 0.5*5.5/(5.5*5.5), or.Estimate.Value, 1e-12)
	assert.False(t, math.IsInf(or.Estimate.CIUpper, 0))
}

func TestPearsonTest(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, math.NaN()}
	y := []float64{2, 1, 4, 3, 7, 8, 6, 9, 12, 10, 3}

	res, err := newTestAnalyzer().PearsonTest("x", "y", x, y)
	require.NoError(t, err)
	assert.Equal(t, 10, res.N, "pairwise complete")
	assert.InDelta(t, 0.926180, res.Estimate.Value, 1e-6)
	assert.InDelta(t, 6.947107, res.Statistic, 1e-5)
	assert.Equal(t, 8.0, res.DF)
	assert.InDelta(t, 0.000119, res.PValue, 1e-6)
	assert.Less(t, res.Estimate.CILower, res.Estimate.Value)
	assert.Greater(t, res.Estimate.CIUpper, res.Estimate.Value)

	_, err = newTestAnalyzer().PearsonTest("x", "y", []float64{1, 2}, []float64{3, 4})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientGroupSize)

	_, err = newTestAnalyzer().PearsonTest("x", "y", []float64{1, 1, 1}, []float64{3, 4, 5})
	assert.ErrorIs(t, err, apperrors.ErrDegenerateVariance)
}

func TestCorrelationMatrixSymmetric(t *testing.T) {
	cols := [][]float64{{1, 2, 3, 4}, {2, 4, 5, 9}, {4, 3, 2, 2}}
	m, err := CorrelationMatrixOf([]string{"a", "b", "c"}, cols)
	require.NoError(t, err)
	for i := range cols {
		assert.Equal(t, 1.0, m.Coefficients[i][i])
		for j := range cols {
			assert.Equal(t, m.Coefficients[i][j], m.Coefficients[j][i])
		}
	}
	r, ok := m.At("a", "b")
	assert.True(t, ok)
	assert.Greater(t, r, 0.9)
}

func TestKnownMeansTwoGroups(t *testing.T) {
	var rows []dataset.Observation
	for _, d := range []float64{-0.2, -0.1, 0, 0.1, 0.2} {
		rows = append(rows, obs(dataset.LevelTreatmentA, 10+d), obs(dataset.LevelTreatmentB, 20+d))
	}
	ds, err := dataset.New(rows)
	require.NoError(t, err)

	a := newTestAnalyzer(func(c *Config) {
		*c = Config{
			Comparisons: []Comparison{{Name: "cmp", Outcome: dataset.FieldHbA1c, Group: dataset.FieldTreatmentGroup}},
			Alpha:       0.05, ConfidenceLevel: 0.95,
		}
	})
	entries, err := a.Analyze(ds)
	require.NoError(t, err)
	require.Len(t, entries, 1, "two observed levels route to a single Welch test")

	res := entries[0].Test
	assert.Equal(t, domainstats.MethodWelchT, res.Method)
	assert.Less(t, res.PValue, 0.01)
	assert.InDelta(t, -10.0, res.Estimate.Value, 1e-9)
}

func TestAnalyzeDefaultBattery(t *testing.T) {
	ds, err := testkit.GenerateClinicalDataset(testkit.ClinicalGeneratorConfig{Size: 500, Seed: 42})
	require.NoError(t, err)

	entries, err := newTestAnalyzer().Analyze(ds)
	require.NoError(t, err)

	var keys []string
	for _, e := range entries {
		require.NoError(t, e.Validate())
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{
		"ttest_age_sex", "ttest_hba1c_diabetes", "anova_bmi_treatment", "anova_bmi_treatment_tukey",
		"chisq_diabetes_hypertension", "chisq_diabetes_hypertension_odds_ratio", "correlation_matrix", "cor_age_bmi",
	}, keys)

	for _, e := range entries {
		if e.Kind == report.KindTest {
			assert.True(t, e.Test.PValue >= 0 && e.Test.PValue <= 1, e.Key)
		}
	}

	again, err := newTestAnalyzer().Analyze(ds)
	require.NoError(t, err)
	assert.Equal(t, entries, again)
}

func TestAnalyzeConfigErrors(t *testing.T) {
	ds, err := testkit.GenerateClinicalDataset(testkit.ClinicalGeneratorConfig{Size: 20, Seed: 1})
	require.NoError(t, err)

	_, err = newTestAnalyzer(func(c *Config) {
		c.Comparisons = []Comparison{{Name: "bad", Outcome: dataset.FieldSex, Group: dataset.FieldDiabetes}}
	}).Analyze(ds)
	assert.ErrorIs(t, err, apperrors.ErrInvalidVariable)

	single := []dataset.Observation{obs(dataset.LevelPlacebo, 5), obs(dataset.LevelPlacebo, 6)}
	one, _ := dataset.New(single)
	_, err = newTestAnalyzer(func(c *Config) {
		*c = Config{
			Comparisons: []Comparison{{Name: "cmp", Outcome: dataset.FieldHbA1c, Group: dataset.FieldTreatmentGroup}},
			Alpha:       0.05, ConfidenceLevel: 0.95,
		}
	}).Analyze(one)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientGroupSize)
	assert.Contains(t, err.Error(), "cmp")
}
