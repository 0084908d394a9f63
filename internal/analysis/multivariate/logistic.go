package multivariate

import (
	"math"
	"strings"

	domainstats "clinstat/domain/stats"
	apperrors "clinstat/internal/errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// logLikelihood of a Bernoulli model, with probabilities clamped away from 0 and 1
func logLikelihood(y, mu []float64) float64 {
	const eps = 1e-15
	var ll float64
	for i, p := range mu {
		p = math.Max(eps, math.Min(1-eps, p))
		ll += y[i]*math.Log(p) + (1-y[i])*math.Log(1-p)
	}
	return ll
}

const (
	// fitted probabilities this close to the outcome count as perfect prediction
	separationEps = 1e-8
	// |coefficient| past this on the logit scale only happens when the MLE does not exist
	separationBound = 20.0
)

// separatedColumns returns the design columns behind a perfectly separated fit: either every
// fitted probability matches the outcome or some coefficient has run past separationBound.
func separatedColumns(y, mu []float64, beta *mat.VecDense, names []string) []string {
	var diverging []string
	for j := 0; j < beta.Len(); j++ {
		if names[j] != domainstats.InterceptName && math.Abs(beta.AtVec(j)) > separationBound {
			diverging = append(diverging, names[j])
		}
	}
	if len(diverging) > 0 {
		return diverging
	}
	for i := range y {
		if math.Abs(mu[i]-y[i]) > separationEps {
			return nil
		}
	}
	for _, name := range names {
		if name != domainstats.InterceptName {
			diverging = append(diverging, name)
		}
	}
	return diverging
}

// information returns the fitted probabilities and X'WX at beta
func information(x *mat.Dense, beta *mat.VecDense) ([]float64, *mat.SymDense) {
	n, p := x.Dims()
	var eta mat.VecDense
	eta.MulVec(x, beta)

	mu := make([]float64, n)
	weighted := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		mu[i] = sigmoid(eta.AtVec(i))
		w := math.Sqrt(mu[i] * (1 - mu[i]))
		for j := 0; j < p; j++ {
			weighted.Set(i, j, x.At(i, j)*w)
		}
	}
	info := mat.NewSymDense(p, nil)
	info.SymOuterK(1, weighted.T())
	return mu, info
}

// FitLogistic maximizes the Bernoulli likelihood by Newton-Raphson, which is IRLS for the
// logit link. Reaching MaxIterations is not an error: the estimate is returned with
// Converged false and a warning. Perfect separation stops the iteration the same way, with
// a warning naming the separating columns.
func (a *Analyzer) FitLogistic(spec ModelSpec, d *Design) (domainstats.RegressionModelResult, error) {
	n, p := d.X.Dims()
	y := d.Y

	events := floats.Sum(y)
	if events == 0 || events == float64(n) {
		return domainstats.RegressionModelResult{}, apperrors.DegenerateVariance(
			"model %s: outcome %s takes a single value over %d complete rows", spec.Name, spec.Outcome, n)
	}

	beta := mat.NewVecDense(p, nil)
	mu, info := information(d.X, beta)
	ll := logLikelihood(y, mu)

	converged := false
	iterations := 0
	var separated []string
	for iterations < a.config.MaxIterations {
		iterations++

		resid := make([]float64, n)
		for i := range resid {
			resid[i] = y[i] - mu[i]
		}
		var grad mat.VecDense
		grad.MulVec(d.X.T(), mat.NewVecDense(n, resid))

		var chol mat.Cholesky
		if !chol.Factorize(info) {
			return domainstats.RegressionModelResult{}, apperrors.SingularDesign(
				"model %s: information matrix is not positive definite at iteration %d (separation?)", spec.Name, iterations)
		}
		var step mat.VecDense
		if err := chol.SolveVecTo(&step, &grad); err != nil {
			return domainstats.RegressionModelResult{}, apperrors.SingularDesign("model %s: newton step: %v", spec.Name, err)
		}
		beta.AddVec(beta, &step)

		mu, info = information(d.X, beta)
		newLL := logLikelihood(y, mu)

		if separated = separatedColumns(y, mu, beta, d.Names); len(separated) > 0 {
			ll = newLL
			break
		}

		maxStep := mat.Norm(&step, math.Inf(1))
		if maxStep < a.config.Tolerance && math.Abs(newLL-ll) < a.config.Tolerance {
			ll = newLL
			converged = true
			break
		}
		ll = newLL
	}

	var chol mat.Cholesky
	if !chol.Factorize(info) {
		if len(separated) > 0 {
			return domainstats.RegressionModelResult{}, apperrors.NonConvergence(
				"model %s: perfect separation on %s, no standard errors at iteration %d",
				spec.Name, strings.Join(separated, ", "), iterations)
		}
		return domainstats.RegressionModelResult{}, apperrors.SingularDesign(
			"model %s: information matrix is not invertible at the estimate", spec.Name)
	}
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return domainstats.RegressionModelResult{}, apperrors.SingularDesign("model %s: covariance: %v", spec.Name, err)
	}

	zc := a.dist.ZCritical(a.config.ConfidenceLevel)
	coefs := make([]domainstats.Coefficient, p)
	for j := 0; j < p; j++ {
		b := beta.AtVec(j)
		se := math.Sqrt(cov.At(j, j))
		if math.IsNaN(se) || math.IsInf(se, 0) {
			return domainstats.RegressionModelResult{}, apperrors.SingularDesign(
				"model %s: standard error of %s is not finite", spec.Name, d.Names[j])
		}
		z := b / se
		lo, hi := b-zc*se, b+zc*se
		coefs[j] = domainstats.Coefficient{
			Name:      d.Names[j],
			Estimate:  b,
			StdErr:    se,
			Statistic: z,
			PValue:    a.dist.ZTwoTailed(z),
			CILower:   lo,
			CIUpper:   hi,
			OddsRatio: &domainstats.Estimate{
				Label:           "odds ratio",
				Value:           math.Exp(b),
				CILower:         math.Exp(lo),
				CIUpper:         math.Exp(hi),
				ConfidenceLevel: a.config.ConfidenceLevel,
			},
		}
	}

	pbar := events / float64(n)
	nullLL := float64(n) * (pbar*math.Log(pbar) + (1-pbar)*math.Log(1-pbar))
	llr := 2 * (ll - nullLL)
	k := float64(p)

	result := domainstats.RegressionModelResult{
		Kind:         domainstats.ModelLogistic,
		Outcome:      spec.Outcome,
		OutcomeLevel: spec.OutcomeLevel,
		Predictors:   append([]string(nil), d.Names...),
		Coefficients: coefs,
		N:            n,
		DroppedRows:  d.Dropped,
		Fit: domainstats.ModelFit{
			LogLikelihood:     ll,
			NullLogLikelihood: nullLL,
			PseudoR2:          1 - ll/nullLL,
			LLRStatistic:      llr,
			LLRPValue:         a.dist.ChiSquareSurvival(llr, k-1),
			AIC:               -2*ll + 2*k,
			BIC:               -2*ll + k*math.Log(float64(n)),
			DFModel:           p - 1,
			DFResidual:        n - p,
		},
		Converged:       converged,
		Iterations:      iterations,
		ConfidenceLevel: a.config.ConfidenceLevel,
	}
	switch {
	case len(separated) > 0:
		result.Warnings = append(result.Warnings, apperrors.NonConvergence(
			"model %s: perfect separation on %s after %d iterations; the maximum likelihood estimate does not exist and estimates are the last iterate",
			spec.Name, strings.Join(separated, ", "), iterations).Error())
	case !converged:
		result.Warnings = append(result.Warnings, apperrors.NonConvergence(
			"model %s: no convergence after %d iterations (tolerance %g); estimates are the last iterate",
			spec.Name, iterations, a.config.Tolerance).Error())
	}
	return result, nil
}
