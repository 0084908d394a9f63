package multivariate

import (
	"math"

	domainstats "clinstat/domain/stats"
	apperrors "clinstat/internal/errors"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// FitLinear fits ordinary least squares through a QR decomposition of the design
func (a *Analyzer) FitLinear(spec ModelSpec, d *Design) (domainstats.RegressionModelResult, error) {
	n, p := d.X.Dims()
	y := mat.NewVecDense(n, d.Y)

	_, sst := stat.MeanVariance(d.Y, nil)
	sst *= float64(n - 1)
	if sst == 0 {
		return domainstats.RegressionModelResult{}, apperrors.DegenerateVariance(
			"model %s: outcome %s is constant over %d complete rows", spec.Name, spec.Outcome, n)
	}

	var qr mat.QR
	qr.Factorize(d.X)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, y); err != nil {
		return domainstats.RegressionModelResult{}, apperrors.SingularDesign("model %s: least squares: %v", spec.Name, err)
	}

	var fitted, resid mat.VecDense
	fitted.MulVec(d.X, &beta)
	resid.SubVec(y, &fitted)
	sse := mat.Dot(&resid, &resid)
	if sse == 0 {
		return domainstats.RegressionModelResult{}, apperrors.DegenerateVariance(
			"model %s: perfect fit leaves no residual variance", spec.Name)
	}

	dfResid := float64(n - p)
	sigma2 := sse / dfResid

	xtx := mat.NewSymDense(p, nil)
	xtx.SymOuterK(1, d.X.T())
	var chol mat.Cholesky
	if !chol.Factorize(xtx) {
		return domainstats.RegressionModelResult{}, apperrors.SingularDesign("model %s: X'X is not positive definite", spec.Name)
	}
	var xtxInv mat.SymDense
	if err := chol.InverseTo(&xtxInv); err != nil {
		return domainstats.RegressionModelResult{}, apperrors.SingularDesign("model %s: covariance: %v", spec.Name, err)
	}

	tc := a.dist.TCritical(a.config.ConfidenceLevel, dfResid)
	coefs := make([]domainstats.Coefficient, p)
	for j := 0; j < p; j++ {
		b := beta.AtVec(j)
		se := math.Sqrt(sigma2 * xtxInv.At(j, j))
		if math.IsNaN(se) || math.IsInf(se, 0) || se == 0 {
			return domainstats.RegressionModelResult{}, apperrors.SingularDesign(
				"model %s: standard error of %s is not finite", spec.Name, d.Names[j])
		}
		t := b / se
		coefs[j] = domainstats.Coefficient{
			Name:      d.Names[j],
			Estimate:  b,
			StdErr:    se,
			Statistic: t,
			PValue:    a.dist.TTwoTailed(t, dfResid),
			CILower:   b - tc*se,
			CIUpper:   b + tc*se,
		}
	}

	r2 := 1 - sse/sst
	k := float64(p)
	nf := float64(n)
	fit := domainstats.ModelFit{
		LogLikelihood: -nf / 2 * (math.Log(2*math.Pi) + math.Log(sse/nf) + 1),
		R2:            r2,
		AdjR2:         1 - (1-r2)*(nf-1)/dfResid,
		DFModel:       p - 1,
		DFResidual:    n - p,
	}
	if p > 1 {
		fit.FStatistic = ((sst - sse) / (k - 1)) / sigma2
		fit.FPValue = a.dist.FSurvival(fit.FStatistic, k-1, dfResid)
	}
	fit.AIC = -2*fit.LogLikelihood + 2*k
	fit.BIC = -2*fit.LogLikelihood + k*math.Log(nf)

	return domainstats.RegressionModelResult{
		Kind:            domainstats.ModelLinear,
		Outcome:         spec.Outcome,
		Predictors:      append([]string(nil), d.Names...),
		Coefficients:    coefs,
		N:               n,
		DroppedRows:     d.Dropped,
		Fit:             fit,
		Converged:       true,
		ConfidenceLevel: a.config.ConfidenceLevel,
	}, nil
}
