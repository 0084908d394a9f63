package bivariate

import (
	"math"

	domainstats "clinstat/domain/stats"
	apperrors "clinstat/internal/errors"

	"gonum.org/v1/gonum/stat"
)

// completePairs keeps the indices where both values are present
func completePairs(x, y []float64) ([]float64, []float64) {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}

// pearson returns r over pairwise-complete observations
func pearson(nameX, nameY string, x, y []float64) (r float64, n int, err error) {
	xs, ys := completePairs(x, y)
	n = len(xs)
	if n < 3 {
		return 0, n, apperrors.InsufficientGroupSize("pearson %s ~ %s: %d complete pair(s), need at least 3", nameX, nameY, n)
	}
	if stat.Variance(xs, nil) == 0 {
		return 0, n, apperrors.DegenerateVariance("pearson %s ~ %s: %s has zero variance", nameX, nameY, nameX)
	}
	if stat.Variance(ys, nil) == 0 {
		return 0, n, apperrors.DegenerateVariance("pearson %s ~ %s: %s has zero variance", nameX, nameY, nameY)
	}
	return stat.Correlation(xs, ys, nil), n, nil
}

// CorrelationMatrixOf builds the symmetric Pearson matrix of the given columns
func CorrelationMatrixOf(names []string, columns [][]float64) (domainstats.CorrelationMatrix, error) {
	k := len(names)
	m := domainstats.CorrelationMatrix{
		Method:       domainstats.MethodPearsonR,
		Variables:    append([]string(nil), names...),
		Coefficients: make([][]float64, k),
		N:            make([][]int, k),
	}
	for i := range names {
		m.Coefficients[i] = make([]float64, k)
		m.N[i] = make([]int, k)
	}

	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			r, n, err := pearson(names[i], names[j], columns[i], columns[j])
			if err != nil {
				return domainstats.CorrelationMatrix{}, err
			}
			if i == j {
				r = 1
			}
			m.Coefficients[i][j], m.Coefficients[j][i] = r, r
			m.N[i][j], m.N[j][i] = n, n
		}
	}
	return m, nil
}

// PearsonTest returns r with its t test on n-2 df and a Fisher-z interval
func (a *Analyzer) PearsonTest(nameX, nameY string, x, y []float64) (domainstats.TestResult, error) {
	r, n, err := pearson(nameX, nameY, x, y)
	if err != nil {
		return domainstats.TestResult{}, err
	}

	df := float64(n - 2)
	var t float64
	if math.Abs(r) < 1 {
		t = r * math.Sqrt(df/(1-r*r))
	} else {
		t = math.Copysign(math.MaxFloat64, r)
	}
	lo, hi := a.dist.FisherZInterval(r, n, a.config.ConfidenceLevel)

	return domainstats.TestResult{
		Kind:      domainstats.TestCorrelation,
		Method:    domainstats.MethodPearsonR,
		Variables: []string{nameX, nameY},
		N:         n,
		Statistic: t,
		DF:        df,
		PValue:    a.dist.CorrelationPValue(r, n),
		Estimate: &domainstats.Estimate{
			Label:           "pearson r",
			Value:           r,
			CILower:         lo,
			CIUpper:         hi,
			ConfidenceLevel: a.config.ConfidenceLevel,
		},
	}, nil
}
