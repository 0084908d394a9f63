package render

import (
	"strings"
	"testing"

	"clinstat/domain/core"
	"clinstat/domain/report"
	"clinstat/domain/run"
	"clinstat/domain/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport(t *testing.T) *report.Report {
	t.Helper()
	m := run.NewManifest(core.NewHash([]byte("rows")), 500,
		run.DataSource{Kind: run.SourceSynthetic, Seed: 42, Size: 500, FallbackFor: "data.xlsx"}, "", "test")
	m.AddDiagnostic(run.Diagnostic{Stage: "load", Severity: run.SeverityWarning, Message: "data file missing"})

	r, err := report.New(m, []report.Entry{
		report.SummaryEntry("summary/age/overall", stats.SummaryStatistic{
			Variable: "age", Group: stats.OverallGroup, Count: 500, Mean: 55.2, StdDev: 14.9,
			Min: 18, Q25: 45, Median: 55, Q75: 65, Max: 90,
		}),
		report.TestEntry("ttest_age_sex", stats.TestResult{
			Kind: stats.TestTwoSample, Method: stats.MethodWelchT, Variables: []string{"age", "sex"},
			N: 500, Statistic: 1.25, DF: 480.3, PValue: 0.0004,
			Estimate:   &stats.Estimate{Label: "mean difference", Value: 1.5, CILower: -0.5, CIUpper: 3.5},
			EffectSize: &stats.EffectSize{Name: "cohen_d", Value: 0.11},
		}),
		report.TestEntry("anova_bmi_treatment_tukey", stats.TestResult{
			Kind: stats.TestPostHoc, Method: stats.MethodTukeyHSD, Variables: []string{"bmi", "treatment_group"},
			Comparisons: []stats.TukeyComparison{{Group1: "placebo", Group2: "treatment_a", MeanDiff: 0.4, PAdj: 0.5}},
		}),
		report.ModelEntry("logistic_diabetes", stats.RegressionModelResult{
			Kind: stats.ModelLogistic, Outcome: "diabetes", N: 500, Iterations: 1,
			Coefficients: []stats.Coefficient{{
				Name: stats.InterceptName, Estimate: -1.2,
				OddsRatio: &stats.Estimate{Value: 0.3, CILower: 0.2, CIUpper: 0.45},
			}},
		}),
	})
	require.NoError(t, err)
	return r
}

func TestMarkdownSections(t *testing.T) {
	md := Markdown(sampleReport(t))

	assert.True(t, strings.HasPrefix(md, "# "+Title))
	assert.Contains(t, md, "substituted for missing `data.xlsx`")
	assert.Contains(t, md, "## Diagnostics")
	assert.Contains(t, md, "[warning] load: data file missing")
	assert.Contains(t, md, "| age | overall | 500 | 55.200 |")
	assert.Contains(t, md, "| ttest_age_sex | welch_t | age ~ sex | 500 | 1.250 | 480.300 | <0.001 |")
	assert.Contains(t, md, "### anova_bmi_treatment_tukey")
	assert.Contains(t, md, "| placebo | treatment_a | 0.400 | 0.5000 |")
	assert.Contains(t, md, "## Model logistic_diabetes (logistic, outcome diabetes)")
	assert.Contains(t, md, "not converged after 1 iterations")
	assert.Contains(t, md, "[0.200, 0.450]")
}

func TestMarkdownSkipsEmptySections(t *testing.T) {
	m := run.NewManifest(core.NewHash([]byte("rows")), 10,
		run.DataSource{Kind: run.SourceFile, Path: "in.csv"}, "", "test")
	r, err := report.New(m, nil)
	require.NoError(t, err)

	md := Markdown(r)
	assert.Contains(t, md, "- Source: `in.csv`")
	assert.NotContains(t, md, "## Descriptive statistics")
	assert.NotContains(t, md, "## Diagnostics")
}

func TestHTMLIsCompletePageWithTables(t *testing.T) {
	out := string(HTML(sampleReport(t)))

	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "<title>"+Title+"</title>")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<td>welch_t</td>")
}
