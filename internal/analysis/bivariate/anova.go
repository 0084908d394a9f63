package bivariate

import (
	"math"

	domainstats "clinstat/domain/stats"
)

// withinGroup returns the pooled within-group sum of squares and the grand mean
func withinGroup(summaries []domainstats.GroupSummary) (ssw, grandMean float64, total int) {
	var sum float64
	for _, g := range summaries {
		ssw += float64(g.N-1) * g.Variance
		sum += float64(g.N) * g.Mean
		total += g.N
	}
	return ssw, sum / float64(total), total
}

// OneWayANOVA tests equality of k group means with F = MSB / MSW
func (a *Analyzer) OneWayANOVA(outcome, groupVar string, groups []group) (domainstats.TestResult, error) {
	summaries, err := summarizeGroups("one-way anova "+outcome+" by "+groupVar, groups)
	if err != nil {
		return domainstats.TestResult{}, err
	}

	ssw, grand, n := withinGroup(summaries)
	var ssb float64
	for _, g := range summaries {
		d := g.Mean - grand
		ssb += float64(g.N) * d * d
	}

	k := len(summaries)
	df1 := float64(k - 1)
	df2 := float64(n - k)
	f := (ssb / df1) / (ssw / df2)

	return domainstats.TestResult{
		Kind:       domainstats.TestKGroup,
		Method:     domainstats.MethodOneWayANOVA,
		Variables:  []string{outcome, groupVar},
		N:          n,
		Statistic:  f,
		DF:         df1,
		DF2:        df2,
		PValue:     a.dist.FSurvival(f, df1, df2),
		EffectSize: &domainstats.EffectSize{Name: "eta_squared", Value: ssb / (ssb + ssw)},
		Groups:     summaries,
	}, nil
}

// TukeyHSD compares every pair of groups, controlling the family-wise error rate with the
// studentized range distribution. Unequal group sizes use the Tukey-Kramer standard error.
// Pairs are (i, j) with i < j in vocabulary order and the difference is mean_j - mean_i.
func (a *Analyzer) TukeyHSD(outcome, groupVar string, groups []group) (domainstats.TestResult, error) {
	summaries, err := summarizeGroups("tukey hsd "+outcome+" by "+groupVar, groups)
	if err != nil {
		return domainstats.TestResult{}, err
	}

	ssw, _, n := withinGroup(summaries)
	k := len(summaries)
	dfw := float64(n - k)
	msw := ssw / dfw
	qCrit := a.dist.StudentizedRangeQuantile(1-a.config.Alpha, k, dfw)

	var comparisons []domainstats.TukeyComparison
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			gi, gj := summaries[i], summaries[j]
			diff := gj.Mean - gi.Mean
			se := math.Sqrt(msw / 2 * (1/float64(gi.N) + 1/float64(gj.N)))
			q := math.Abs(diff) / se
			p := a.dist.StudentizedRangeSurvival(q, k, dfw)
			comparisons = append(comparisons, domainstats.TukeyComparison{
				Group1:   gi.Level,
				Group2:   gj.Level,
				MeanDiff: diff,
				StdErr:   se,
				Q:        q,
				PAdj:     p,
				CILower:  diff - qCrit*se,
				CIUpper:  diff + qCrit*se,
				Reject:   p < a.config.Alpha,
			})
		}
	}

	return domainstats.TestResult{
		Kind:        domainstats.TestPostHoc,
		Method:      domainstats.MethodTukeyHSD,
		Variables:   []string{outcome, groupVar},
		N:           n,
		Statistic:   qCrit,
		DF:          float64(k),
		DF2:         dfw,
		PValue:      minPAdj(comparisons),
		Groups:      summaries,
		Comparisons: comparisons,
		Alpha:       a.config.Alpha,
		Notes:       []string{"statistic is the critical studentized range; p_value is the smallest adjusted p"},
	}, nil
}

func minPAdj(comparisons []domainstats.TukeyComparison) float64 {
	p := 1.0
	for _, c := range comparisons {
		p = math.Min(p, c.PAdj)
	}
	return p
}
