package viz

import (
	"encoding/json"
	"os"
	"testing"

	"clinstat/domain/core"
	"clinstat/domain/report"
	"clinstat/domain/run"
	"clinstat/internal/analysis/bivariate"
	"clinstat/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistogramCountsEveryValue(t *testing.T) {
	h, err := histogram([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2, 4, 6, 8, 10}, h.Edges)
	// the maximum falls in the last, right-closed bin
	assert.Equal(t, []int{2, 2, 2, 2, 3}, h.Counts)

	_, err = histogram(nil, 5)
	assert.Error(t, err)
}

func TestBoxFlagsOutliers(t *testing.T) {
	b := box("a", []float64{1, 2, 3, 4, 5, 6, 7, 8, 100})
	assert.Equal(t, 9, b.N)
	assert.Equal(t, 3.0, b.Q1)
	assert.Equal(t, 5.0, b.Median)
	assert.Equal(t, 7.0, b.Q3)
	assert.Equal(t, 1.0, b.LowerWhisker)
	assert.Equal(t, 8.0, b.UpperWhisker)
	assert.Equal(t, []float64{100}, b.Outliers)
}

func TestBuildCharts(t *testing.T) {
	ds, err := testkit.GenerateClinicalDataset(testkit.DefaultClinicalConfig())
	require.NoError(t, err)

	entries, err := bivariate.NewAnalyzer(bivariate.DefaultConfig()).Analyze(ds)
	require.NoError(t, err)
	m := run.NewManifest(core.NewHash([]byte("x")), ds.Len(), run.DataSource{Kind: run.SourceSynthetic, Seed: 42, Size: 500}, "", "test")
	r, err := report.New(m, entries)
	require.NoError(t, err)

	set, err := BuildCharts(ds, r, DefaultPlotConfig())
	require.NoError(t, err)
	require.Len(t, set.Charts, 6)

	names := make([]string, len(set.Charts))
	for i, c := range set.Charts {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"age_distribution", "bmi_by_treatment", "age_vs_bmi", "diabetes_by_sex", "correlation_matrix", "hba1c_by_treatment"}, names)

	total := 0
	for _, c := range set.Charts[0].Histogram.Counts {
		total += c
	}
	assert.Equal(t, 500, total)
	assert.Len(t, set.Charts[1].Boxes, 3)

	// two diabetes levels per sex, each sex summing to 100
	bars := set.Charts[3].Bars
	require.Len(t, bars, 4)
	assert.InDelta(t, 100, bars[0].Percent+bars[1].Percent, 1e-9)

	// 7 variables give 21 cells below the diagonal
	assert.Len(t, set.Charts[4].Heatmap, 21)

	dir := t.TempDir()
	path, err := WriteCharts(dir, set)
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var back ChartSet
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, 300, back.Config.DPI)
	assert.Len(t, back.Charts, 6)
}

func TestBuildChartsWithoutMatrix(t *testing.T) {
	ds, err := testkit.GenerateClinicalDataset(testkit.ClinicalGeneratorConfig{Size: 50, Seed: 1})
	require.NoError(t, err)
	set, err := BuildCharts(ds, nil, DefaultPlotConfig())
	require.NoError(t, err)
	assert.Len(t, set.Charts, 5)
}
