package report

import (
	"testing"

	"clinstat/domain/core"
	domainreport "clinstat/domain/report"
	"clinstat/domain/run"
	domainstats "clinstat/domain/stats"
	"clinstat/internal/analysis/bivariate"
	"clinstat/internal/analysis/descriptive"
	"clinstat/internal/analysis/multivariate"
	apperrors "clinstat/internal/errors"
	"clinstat/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManifest() *run.Manifest {
	return run.NewManifest(core.NewHash([]byte("rows")), 3,
		run.DataSource{Kind: run.SourceSynthetic, Seed: 42, Size: 3}, "", "test")
}

func TestAssembleTagsStagesInOrder(t *testing.T) {
	a := NewAssembler()
	r, err := a.Assemble(testManifest(),
		StageOutput{Stage: domainreport.StageDescriptive, Entries: []domainreport.Entry{
			domainreport.SummaryEntry("summary/age/overall", domainstats.SummaryStatistic{Variable: "age", Count: 3}),
		}},
		StageOutput{Stage: domainreport.StageBivariate, Entries: []domainreport.Entry{
			domainreport.TestEntry("ttest_age_sex", domainstats.TestResult{Kind: domainstats.TestTwoSample}),
		}},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"summary/age/overall", "ttest_age_sex"}, r.Keys())
	e, ok := r.Lookup("ttest_age_sex")
	require.True(t, ok)
	assert.Equal(t, domainreport.StageBivariate, e.Stage)
}

func TestAssembleDuplicateKeyNamesBothStages(t *testing.T) {
	dup := domainreport.TestEntry("shared", domainstats.TestResult{Kind: domainstats.TestCorrelation})
	_, err := NewAssembler().Assemble(testManifest(),
		StageOutput{Stage: domainreport.StageBivariate, Entries: []domainreport.Entry{dup}},
		StageOutput{Stage: domainreport.StageMultivariate, Entries: []domainreport.Entry{dup}},
	)
	require.ErrorIs(t, err, apperrors.ErrDuplicateAnalysisKey)
	assert.Contains(t, err.Error(), `"shared"`)
	assert.Contains(t, err.Error(), domainreport.StageBivariate)
	assert.Contains(t, err.Error(), domainreport.StageMultivariate)
}

func TestAssembleRejectsIncompleteManifest(t *testing.T) {
	_, err := NewAssembler().Assemble(nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	m := testManifest()
	m.Source = run.DataSource{Kind: run.SourceFile}
	_, err = NewAssembler().Assemble(m)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestAssembleFullPipelineIsDeterministic(t *testing.T) {
	ds, err := testkit.GenerateClinicalDataset(testkit.DefaultClinicalConfig())
	require.NoError(t, err)

	build := func() *domainreport.Report {
		desc, err := descriptive.NewAnalyzer(descriptive.DefaultConfig()).Analyze(ds)
		require.NoError(t, err)
		biv, err := bivariate.NewAnalyzer(bivariate.DefaultConfig()).Analyze(ds)
		require.NoError(t, err)
		mv, err := multivariate.NewAnalyzer(multivariate.DefaultConfig()).Analyze(ds)
		require.NoError(t, err)

		m := run.NewManifest(ds.Fingerprint(), ds.Len(), run.DataSource{Kind: run.SourceSynthetic, Seed: 42, Size: 500}, "", "test")
		r, err := NewAssembler().Assemble(m,
			StageOutput{Stage: domainreport.StageDescriptive, Entries: desc},
			StageOutput{Stage: domainreport.StageBivariate, Entries: biv},
			StageOutput{Stage: domainreport.StageMultivariate, Entries: mv},
		)
		require.NoError(t, err)
		return r
	}

	first, second := build(), build()
	assert.NotEqual(t, first.RunID(), second.RunID())

	h1, err := first.ContentHash()
	require.NoError(t, err)
	h2, err := second.ContentHash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	age, ok := first.Summary("summary/age/overall")
	require.True(t, ok)
	assert.Equal(t, 500, age.Count)

	_, ok = first.Model("logistic_diabetes")
	assert.True(t, ok)
	_, ok = first.Test("anova_bmi_treatment_tukey")
	assert.True(t, ok)
}
