package multivariate

import (
	"math"
	"strings"

	"clinstat/domain/dataset"
	domainstats "clinstat/domain/stats"
	apperrors "clinstat/internal/errors"

	"gonum.org/v1/gonum/mat"
)

// rankTolerance is the relative singular value cutoff of the rank check
const rankTolerance = 1e-10

// Design is the model-ready projection of a dataset: complete rows only, Intercept first
type Design struct {
	Names   []string
	X       *mat.Dense
	Y       []float64
	Dropped int // rows removed by listwise deletion
}

// Rows returns the number of complete observations
func (d *Design) Rows() int {
	return len(d.Y)
}

// BuildDesign encodes the outcome and predictors of a model over the complete cases
func BuildDesign(ds *dataset.Dataset, spec ModelSpec) (*Design, error) {
	cols, err := spec.columns(ds.Schema())
	if err != nil {
		return nil, err
	}

	outcomeLevel := spec.OutcomeLevel
	if spec.Kind == domainstats.ModelLogistic && outcomeLevel == "" {
		f, _ := ds.Schema().Field(spec.Outcome)
		outcomeLevel = f.Levels[0]
	}

	var data, y []float64
	dropped := 0
	for i := 0; i < ds.Len(); i++ {
		o := ds.Observation(i)

		var target float64
		if spec.Kind == domainstats.ModelLogistic {
			level, _ := o.Categorical(spec.Outcome)
			if level == outcomeLevel {
				target = 1
			}
		} else {
			target, _ = o.Continuous(spec.Outcome)
		}

		row, complete := encodeRow(o, cols)
		if !complete || math.IsNaN(target) {
			dropped++
			continue
		}
		data = append(data, row...)
		y = append(y, target)
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}

	n, p := len(y), len(cols)
	if n <= p {
		return nil, apperrors.SingularDesign("model %s: %d complete row(s) for %d design columns [%s]",
			spec.Name, n, p, strings.Join(names, ", "))
	}

	d := &Design{Names: names, X: mat.NewDense(n, p, data), Y: y, Dropped: dropped}
	if err := d.checkRank(spec.Name); err != nil {
		return nil, err
	}
	return d, nil
}

func encodeRow(o dataset.Observation, cols []column) ([]float64, bool) {
	row := make([]float64, len(cols))
	for j, c := range cols {
		switch c.encoding {
		case "":
			row[j] = 1
		case EncodingNumeric:
			v, _ := o.Continuous(c.field)
			if math.IsNaN(v) {
				return nil, false
			}
			row[j] = v
		default:
			level, _ := o.Categorical(c.field)
			if level == c.level {
				row[j] = 1
			}
		}
	}
	return row, true
}

// checkRank fails with SingularDesign naming the columns that add no rank
func (d *Design) checkRank(model string) error {
	if rank(d.X) == len(d.Names) {
		return nil
	}

	// find the columns that add nothing to the span of the ones before them
	var offending []string
	n, _ := d.X.Dims()
	kept := []int{}
	for j := range d.Names {
		trial := append(append([]int(nil), kept...), j)
		sub := mat.NewDense(n, len(trial), nil)
		for c, src := range trial {
			sub.SetCol(c, mat.Col(nil, src, d.X))
		}
		if rank(sub) == len(trial) {
			kept = trial
		} else {
			offending = append(offending, d.Names[j])
		}
	}
	return apperrors.SingularDesign("model %s: design matrix is rank deficient, collinear or empty column(s): %s",
		model, strings.Join(offending, ", "))
}

func rank(x mat.Matrix) int {
	var svd mat.SVD
	if !svd.Factorize(x, mat.SVDNone) {
		return 0
	}
	return svd.Rank(rankTolerance)
}
