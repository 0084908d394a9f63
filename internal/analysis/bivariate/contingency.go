package bivariate

import (
	"math"

	domainstats "clinstat/domain/stats"
	apperrors "clinstat/internal/errors"
)

// CrossTabulate counts level combinations, keeping observed levels in vocabulary order
func CrossTabulate(rowVar, colVar string, rowVocab, colVocab, rows, cols []string) domainstats.ContingencyTable {
	counts := make(map[[2]string]int)
	rowSeen := make(map[string]bool)
	colSeen := make(map[string]bool)
	for i := range rows {
		counts[[2]string{rows[i], cols[i]}]++
		rowSeen[rows[i]] = true
		colSeen[cols[i]] = true
	}

	table := domainstats.ContingencyTable{RowVariable: rowVar, ColVariable: colVar, Total: len(rows)}
	for _, l := range rowVocab {
		if rowSeen[l] {
			table.RowLevels = append(table.RowLevels, l)
		}
	}
	for _, l := range colVocab {
		if colSeen[l] {
			table.ColLevels = append(table.ColLevels, l)
		}
	}

	table.Observed = make([][]int, len(table.RowLevels))
	for i, r := range table.RowLevels {
		table.Observed[i] = make([]int, len(table.ColLevels))
		for j, c := range table.ColLevels {
			table.Observed[i][j] = counts[[2]string{r, c}]
		}
	}
	return table
}

// ChiSquareTest applies Pearson's test of independence. With YatesCorrection set, 2x2
// tables use the continuity correction.
func (a *Analyzer) ChiSquareTest(table domainstats.ContingencyTable) (domainstats.TestResult, error) {
	r, c := len(table.RowLevels), len(table.ColLevels)
	if r < 2 || c < 2 {
		return domainstats.TestResult{}, apperrors.InsufficientGroupSize(
			"chi-square %s x %s: observed %d x %d levels, need at least 2 x 2",
			table.RowVariable, table.ColVariable, r, c)
	}

	rowSums := make([]float64, r)
	colSums := make([]float64, c)
	for i := range table.Observed {
		for j, o := range table.Observed[i] {
			rowSums[i] += float64(o)
			colSums[j] += float64(o)
		}
	}
	n := float64(table.Total)
	df := float64((r - 1) * (c - 1))
	yates := a.config.YatesCorrection && df == 1

	var chi2 float64
	lowExpected := false
	table.Expected = make([][]float64, r)
	for i := 0; i < r; i++ {
		table.Expected[i] = make([]float64, c)
		for j := 0; j < c; j++ {
			e := rowSums[i] * colSums[j] / n
			table.Expected[i][j] = e
			if e < 5 {
				lowExpected = true
			}
			d := math.Abs(float64(table.Observed[i][j]) - e)
			if yates {
				d -= math.Min(0.5, d)
			}
			chi2 += d * d / e
		}
	}

	result := domainstats.TestResult{
		Kind:       domainstats.TestContingency,
		Method:     domainstats.MethodPearsonChiSquare,
		Variables:  []string{table.RowVariable, table.ColVariable},
		N:          table.Total,
		Statistic:  chi2,
		DF:         df,
		PValue:     a.dist.ChiSquareSurvival(chi2, df),
		EffectSize: &domainstats.EffectSize{Name: "cramers_v", Value: math.Sqrt(chi2 / (n * float64(min(r, c)-1)))},
		Table:      &table,
	}
	if yates {
		result.Flags = map[string]bool{domainstats.FlagYatesCorrected: true}
	}
	if lowExpected {
		if result.Flags == nil {
			result.Flags = map[string]bool{}
		}
		result.Flags[domainstats.FlagLowExpectedCount] = true
	}
	return result, nil
}

// OddsRatio computes the Wald odds ratio of a 2x2 table laid out as
//
//	a b
//	c d
//
// with rows and columns in vocabulary order, so a binary field's first level is exposed.
// A zero cell adds 0.5 to every cell.
func (a *Analyzer) OddsRatio(table domainstats.ContingencyTable) domainstats.TestResult {
	ca := float64(table.Observed[0][0])
	cb := float64(table.Observed[0][1])
	cc := float64(table.Observed[1][0])
	cd := float64(table.Observed[1][1])

	corrected := ca == 0 || cb == 0 || cc == 0 || cd == 0
	if corrected {
		ca, cb, cc, cd = ca+0.5, cb+0.5, cc+0.5, cd+0.5
	}

	or := (ca * cd) / (cb * cc)
	logOR := math.Log(or)
	se := math.Sqrt(1/ca + 1/cb + 1/cc + 1/cd)
	z := a.dist.ZCritical(a.config.ConfidenceLevel)

	result := domainstats.TestResult{
		Kind:      domainstats.TestOddsRatio,
		Method:    domainstats.MethodOddsRatioWald,
		Variables: []string{table.RowVariable, table.ColVariable},
		N:         table.Total,
		Statistic: logOR / se,
		PValue:    a.dist.ZTwoTailed(logOR / se),
		Estimate: &domainstats.Estimate{
			Label: "odds ratio (" + table.RowVariable + "=" + table.RowLevels[0] + ", " +
				table.ColVariable + "=" + table.ColLevels[0] + ")",
			Value:           or,
			CILower:         math.Exp(logOR - z*se),
			CIUpper:         math.Exp(logOR + z*se),
			ConfidenceLevel: a.config.ConfidenceLevel,
			StdErr:          se,
		},
		Table: &table,
	}
	if corrected {
		result.Flags = map[string]bool{domainstats.FlagZeroCellCorrected: true}
	}
	return result
}
