package stats

// OverallGroup is the grouping key of a summary computed over every row
const OverallGroup = "overall"

// DefaultConfidenceLevel is used for every interval unless configured otherwise
const DefaultConfidenceLevel = 0.95

// ============================================================================
// DESCRIPTIVE RESULTS
// ============================================================================

// SummaryStatistic describes one continuous variable, overall or within a group
type SummaryStatistic struct {
	Variable string  `json:"variable"`
	Group    string  `json:"group"` // OverallGroup or a level of the grouping field
	GroupBy  string  `json:"group_by,omitempty"`
	Count    int     `json:"count"` // non-missing values
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"` // sample estimator (n-1)
	Min      float64 `json:"min"`
	Q25      float64 `json:"q25"`
	Median   float64 `json:"median"`
	Q75      float64 `json:"q75"`
	Max      float64 `json:"max"`
}

// LevelFrequency is one row of a frequency table
type LevelFrequency struct {
	Level   string  `json:"level"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// FrequencyTable lists observed levels of a categorical variable by descending count
type FrequencyTable struct {
	Variable string           `json:"variable"`
	Group    string           `json:"group"`
	Total    int              `json:"total"`
	Levels   []LevelFrequency `json:"levels"`
}

// Level returns the frequency row for level
func (f FrequencyTable) Level(level string) (LevelFrequency, bool) {
	for _, l := range f.Levels {
		if l.Level == level {
			return l, true
		}
	}
	return LevelFrequency{}, false
}

// ============================================================================
// INFERENTIAL RESULTS
// ============================================================================

// TestKind tags a TestResult
type TestKind string

const (
	TestTwoSample   TestKind = "two_sample"
	TestKGroup      TestKind = "k_group"
	TestPostHoc     TestKind = "post_hoc"
	TestContingency TestKind = "contingency"
	TestOddsRatio   TestKind = "odds_ratio"
	TestCorrelation TestKind = "correlation"
)

// Method names reported in TestResult.Method
const (
	MethodWelchT           = "welch_t"
	MethodOneWayANOVA      = "one_way_anova"
	MethodTukeyHSD         = "tukey_hsd"
	MethodPearsonChiSquare = "pearson_chi_square"
	MethodOddsRatioWald    = "odds_ratio_wald"
	MethodPearsonR         = "pearson_r"
)

// Estimate is a point estimate with its confidence interval
type Estimate struct {
	Label           string  `json:"label"` // what the value measures, e.g. "mean difference"
	Value           float64 `json:"value"`
	CILower         float64 `json:"ci_lower"`
	CIUpper         float64 `json:"ci_upper"`
	ConfidenceLevel float64 `json:"confidence_level"`
	StdErr          float64 `json:"std_err,omitempty"`
}

// EffectSize is a standardized magnitude reported next to a test
type EffectSize struct {
	Name  string  `json:"name"` // "cohen_d", "eta_squared", "cramers_v"
	Value float64 `json:"value"`
}

// GroupSummary carries the per-group inputs of a mean comparison
type GroupSummary struct {
	Level    string  `json:"level"`
	N        int     `json:"n"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
}

// ContingencyTable is a cross tabulation over observed levels in vocabulary order
type ContingencyTable struct {
	RowVariable string      `json:"row_variable"`
	ColVariable string      `json:"col_variable"`
	RowLevels   []string    `json:"row_levels"`
	ColLevels   []string    `json:"col_levels"`
	Observed    [][]int     `json:"observed"`
	Expected    [][]float64 `json:"expected"`
	Total       int         `json:"total"`
}

// Cell returns the observed count for a row/column level pair
func (c ContingencyTable) Cell(rowLevel, colLevel string) int {
	for i, r := range c.RowLevels {
		if r != rowLevel {
			continue
		}
		for j, cl := range c.ColLevels {
			if cl == colLevel {
				return c.Observed[i][j]
			}
		}
	}
	return 0
}

// TukeyComparison is one pairwise post-hoc row
type TukeyComparison struct {
	Group1   string  `json:"group1"`
	Group2   string  `json:"group2"`
	MeanDiff float64 `json:"mean_diff"` // mean(group2) - mean(group1)
	StdErr   float64 `json:"std_err"`
	Q        float64 `json:"q"` // studentized range statistic
	PAdj     float64 `json:"p_adj"`
	CILower  float64 `json:"ci_lower"`
	CIUpper  float64 `json:"ci_upper"`
	Reject   bool    `json:"reject"`
}

// TestResult is the outcome of one bivariate procedure, tagged by Kind
type TestResult struct {
	Kind      TestKind `json:"kind"`
	Method    string   `json:"method"`
	Variables []string `json:"variables"` // outcome first, then grouping or second variable
	N         int      `json:"n"`

	Statistic float64 `json:"statistic"`
	DF        float64 `json:"df,omitempty"`
	DF2       float64 `json:"df2,omitempty"` // denominator df for F tests
	PValue    float64 `json:"p_value"`       // two-tailed

	Estimate    *Estimate          `json:"estimate,omitempty"`
	EffectSize  *EffectSize        `json:"effect_size,omitempty"`
	Groups      []GroupSummary     `json:"groups,omitempty"`
	Table       *ContingencyTable  `json:"table,omitempty"`
	Comparisons []TukeyComparison  `json:"comparisons,omitempty"`
	Alpha       float64            `json:"alpha,omitempty"`
	Flags       map[string]bool    `json:"flags,omitempty"`
	Notes       []string           `json:"notes,omitempty"`
}

// Flag names set on TestResult.Flags
const (
	FlagZeroCellCorrected = "zero_cell_corrected"
	FlagYatesCorrected    = "yates_corrected"
	FlagLowExpectedCount  = "low_expected_count" // some expected count below 5
)

// HasFlag reports whether a flag is set
func (t TestResult) HasFlag(name string) bool {
	return t.Flags[name]
}

// CorrelationMatrix is a symmetric Pearson matrix over pairwise-complete observations
type CorrelationMatrix struct {
	Method       string      `json:"method"`
	Variables    []string    `json:"variables"`
	Coefficients [][]float64 `json:"coefficients"`
	N            [][]int     `json:"n"`
}

// At returns the coefficient for a pair of variables
func (m CorrelationMatrix) At(x, y string) (float64, bool) {
	i, j := indexOf(m.Variables, x), indexOf(m.Variables, y)
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Coefficients[i][j], true
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// ============================================================================
// REGRESSION RESULTS
// ============================================================================

// ModelKind tags a regression result
type ModelKind string

const (
	ModelLogistic ModelKind = "logistic"
	ModelLinear   ModelKind = "linear"
)

// InterceptName is the design column of the constant term
const InterceptName = "Intercept"

// Coefficient is one row of a fitted model
type Coefficient struct {
	Name      string    `json:"name"`
	Estimate  float64   `json:"estimate"`
	StdErr    float64   `json:"std_err"`
	Statistic float64   `json:"statistic"` // z for logistic, t for linear
	PValue    float64   `json:"p_value"`
	CILower   float64   `json:"ci_lower"`
	CIUpper   float64   `json:"ci_upper"`
	OddsRatio *Estimate `json:"odds_ratio,omitempty"` // logistic only: exp of estimate and bounds
}

// ModelFit holds overall fit quality. Fields not defined for a model kind stay zero.
type ModelFit struct {
	LogLikelihood     float64 `json:"log_likelihood"`
	NullLogLikelihood float64 `json:"null_log_likelihood,omitempty"`
	PseudoR2          float64 `json:"pseudo_r2,omitempty"` // McFadden
	LLRStatistic      float64 `json:"llr_statistic,omitempty"`
	LLRPValue         float64 `json:"llr_p_value,omitempty"`
	R2                float64 `json:"r2,omitempty"`
	AdjR2             float64 `json:"adj_r2,omitempty"`
	FStatistic        float64 `json:"f_statistic,omitempty"`
	FPValue           float64 `json:"f_p_value,omitempty"`
	AIC               float64 `json:"aic"`
	BIC               float64 `json:"bic"`
	DFModel           int     `json:"df_model"`
	DFResidual        int     `json:"df_residual"`
}

// RegressionModelResult is a fitted logistic or linear model
type RegressionModelResult struct {
	Kind            ModelKind     `json:"kind"`
	Outcome         string        `json:"outcome"`
	OutcomeLevel    string        `json:"outcome_level,omitempty"` // logistic: the level coded 1
	Predictors      []string      `json:"predictors"`              // design columns, Intercept first
	Coefficients    []Coefficient `json:"coefficients"`
	N               int           `json:"n"`
	DroppedRows     int           `json:"dropped_rows,omitempty"` // listwise deletion
	Fit             ModelFit      `json:"fit"`
	Converged       bool          `json:"converged"`
	Iterations      int           `json:"iterations,omitempty"`
	ConfidenceLevel float64       `json:"confidence_level"`
	Warnings        []string      `json:"warnings,omitempty"`
}

// Coefficient looks up a coefficient row by design column name
func (r RegressionModelResult) Coefficient(name string) (Coefficient, bool) {
	for _, c := range r.Coefficients {
		if c.Name == name {
			return c, true
		}
	}
	return Coefficient{}, false
}
