package dist

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Distributions provides p-values and critical values for every test the analyzers run.
// Tail probabilities use Survival rather than 1-CDF so small p-values keep their precision.
type Distributions struct{}

// New creates a distributions helper
func New() *Distributions {
	return &Distributions{}
}

// TTwoTailed computes the two-tailed p-value of a t statistic. df may be fractional (Welch).
func (d *Distributions) TTwoTailed(t, df float64) float64 {
	if df <= 0 || math.IsNaN(t) {
		return 1.0
	}
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return math.Min(1, 2*tDist.Survival(math.Abs(t)))
}

// TQuantile returns the p-quantile of Student's t with df degrees of freedom
func (d *Distributions) TQuantile(p, df float64) float64 {
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Quantile(p)
}

// TCritical returns the two-sided critical value for the given confidence level
func (d *Distributions) TCritical(confidenceLevel, df float64) float64 {
	return d.TQuantile(1-(1-confidenceLevel)/2, df)
}

// CorrelationPValue computes the two-tailed p-value of a Pearson r from n pairs
func (d *Distributions) CorrelationPValue(r float64, n int) float64 {
	if n < 3 {
		return 1.0
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	df := float64(n - 2)
	return d.TTwoTailed(r*math.Sqrt(df/(1-r*r)), df)
}

// FSurvival computes the upper-tail p-value of an F statistic (ANOVA, regression)
func (d *Distributions) FSurvival(f, df1, df2 float64) float64 {
	if df1 <= 0 || df2 <= 0 || math.IsNaN(f) {
		return 1.0
	}
	return distuv.F{D1: df1, D2: df2}.Survival(f)
}

// ChiSquareSurvival computes the upper-tail p-value of a chi-square statistic
func (d *Distributions) ChiSquareSurvival(x, df float64) float64 {
	if df <= 0 || math.IsNaN(x) {
		return 1.0
	}
	return distuv.ChiSquared{K: df}.Survival(x)
}

// NormalCDF computes cumulative distribution function for standard normal
func (d *Distributions) NormalCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// NormalQuantile computes quantile function for standard normal (inverse CDF)
func (d *Distributions) NormalQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}

// ZCritical returns the two-sided normal critical value, 1.96 at 95%
func (d *Distributions) ZCritical(confidenceLevel float64) float64 {
	return d.NormalQuantile(1 - (1-confidenceLevel)/2)
}

// ZTwoTailed computes the two-tailed p-value of a Wald z statistic
func (d *Distributions) ZTwoTailed(z float64) float64 {
	if math.IsNaN(z) {
		return 1.0
	}
	return math.Min(1, 2*distuv.UnitNormal.Survival(math.Abs(z)))
}

// FisherZInterval returns the confidence interval of a correlation through the Fisher
// transform. n must exceed 3.
func (d *Distributions) FisherZInterval(r float64, n int, confidenceLevel float64) (lower, upper float64) {
	if n <= 3 {
		return -1, 1
	}
	r = math.Max(-1+1e-15, math.Min(1-1e-15, r))
	z := math.Atanh(r)
	se := 1 / math.Sqrt(float64(n-3))
	zc := d.ZCritical(confidenceLevel)
	return math.Tanh(z - zc*se), math.Tanh(z + zc*se)
}

// EffectSizeCohenD computes Cohen's d effect size for two groups
func (d *Distributions) EffectSizeCohenD(mean1, mean2, std1, std2 float64, n1, n2 int) float64 {
	if n1 <= 0 || n2 <= 0 || n1+n2 <= 2 {
		return 0
	}

	// Pooled standard deviation
	pooledStd := math.Sqrt(((float64(n1-1) * std1 * std1) + (float64(n2-1) * std2 * std2)) / float64(n1+n2-2))

	if pooledStd == 0 {
		return 0
	}

	return (mean1 - mean2) / pooledStd
}
