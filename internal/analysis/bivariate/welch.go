package bivariate

import (
	"math"

	domainstats "clinstat/domain/stats"
	apperrors "clinstat/internal/errors"

	"gonum.org/v1/gonum/stat"
)

// summarizeGroups computes n, mean and unbiased variance per group. Every group needs two
// observations and a non-zero variance.
func summarizeGroups(procedure string, groups []group) ([]domainstats.GroupSummary, error) {
	out := make([]domainstats.GroupSummary, len(groups))
	for i, g := range groups {
		if len(g.Values) < 2 {
			return nil, apperrors.InsufficientGroupSize("%s: group %q has %d observation(s), need at least 2",
				procedure, g.Level, len(g.Values))
		}
		mean, variance := stat.MeanVariance(g.Values, nil)
		if variance == 0 {
			return nil, apperrors.DegenerateVariance("%s: group %q has zero variance (all values %v)",
				procedure, g.Level, mean)
		}
		out[i] = domainstats.GroupSummary{Level: g.Level, N: len(g.Values), Mean: mean, Variance: variance}
	}
	return out, nil
}

// WelchTTest compares the means of two groups without assuming equal variances. The
// estimate is mean(first) - mean(second) with a CI at the Welch-Satterthwaite df.
func (a *Analyzer) WelchTTest(outcome, groupVar string, first, second group) (domainstats.TestResult, error) {
	summaries, err := summarizeGroups("welch t-test "+outcome+" by "+groupVar, []group{first, second})
	if err != nil {
		return domainstats.TestResult{}, err
	}
	g1, g2 := summaries[0], summaries[1]
	n1, n2 := float64(g1.N), float64(g2.N)

	se1 := g1.Variance / n1
	se2 := g2.Variance / n2
	se := math.Sqrt(se1 + se2)

	diff := g1.Mean - g2.Mean
	t := diff / se
	df := (se1 + se2) * (se1 + se2) / (se1*se1/(n1-1) + se2*se2/(n2-1))

	margin := a.dist.TCritical(a.config.ConfidenceLevel, df) * se
	cohenD := a.dist.EffectSizeCohenD(g1.Mean, g2.Mean, math.Sqrt(g1.Variance), math.Sqrt(g2.Variance), g1.N, g2.N)

	return domainstats.TestResult{
		Kind:      domainstats.TestTwoSample,
		Method:    domainstats.MethodWelchT,
		Variables: []string{outcome, groupVar},
		N:         g1.N + g2.N,
		Statistic: t,
		DF:        df,
		PValue:    a.dist.TTwoTailed(t, df),
		Estimate: &domainstats.Estimate{
			Label:           "mean difference (" + g1.Level + " - " + g2.Level + ")",
			Value:           diff,
			CILower:         diff - margin,
			CIUpper:         diff + margin,
			ConfidenceLevel: a.config.ConfidenceLevel,
			StdErr:          se,
		},
		EffectSize: &domainstats.EffectSize{Name: "cohen_d", Value: cohenD},
		Groups:     summaries,
	}, nil
}
