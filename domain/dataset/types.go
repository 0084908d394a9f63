package dataset

import (
	"math"
	"strconv"
	"strings"

	"clinstat/domain/core"
	apperrors "clinstat/internal/errors"
)

// Observation is one patient record. NaN marks a missing continuous value.
type Observation struct {
	ID               int     `json:"id"`
	Age              float64 `json:"age"`
	Sex              string  `json:"sex"`
	Weight           float64 `json:"weight"`
	Height           float64 `json:"height"`
	BMI              float64 `json:"bmi"`
	Diabetes         string  `json:"diabetes"`
	Hypertension     string  `json:"hypertension"`
	Smoking          string  `json:"smoking"`
	TreatmentGroup   string  `json:"treatment_group"`
	HbA1c            float64 `json:"hba1c"`
	Creatinine       float64 `json:"creatinine"`
	CholesterolTotal float64 `json:"cholesterol_total"`
	FollowupMonths   float64 `json:"followup_months"`
}

// Continuous returns the value of a continuous field by name
func (o Observation) Continuous(name string) (float64, bool) {
	switch name {
	case FieldAge:
		return o.Age, true
	case FieldWeight:
		return o.Weight, true
	case FieldHeight:
		return o.Height, true
	case FieldBMI:
		return o.BMI, true
	case FieldHbA1c:
		return o.HbA1c, true
	case FieldCreatinine:
		return o.Creatinine, true
	case FieldCholesterolTotal:
		return o.CholesterolTotal, true
	case FieldFollowupMonths:
		return o.FollowupMonths, true
	}
	return 0, false
}

// Categorical returns the level of a categorical field by name
func (o Observation) Categorical(name string) (string, bool) {
	switch name {
	case FieldSex:
		return o.Sex, true
	case FieldDiabetes:
		return o.Diabetes, true
	case FieldHypertension:
		return o.Hypertension, true
	case FieldSmoking:
		return o.Smoking, true
	case FieldTreatmentGroup:
		return o.TreatmentGroup, true
	}
	return "", false
}

// DeriveBMI computes weight / height(m)^2 rounded to one decimal. Missing inputs give NaN.
// New rejects non-positive weight and height before BMI reaches an analyzer.
func DeriveBMI(weightKg, heightCm float64) float64 {
	if math.IsNaN(weightKg) || math.IsNaN(heightCm) || heightCm <= 0 {
		return math.NaN()
	}
	m := heightCm / 100
	return math.Round(weightKg/(m*m)*10) / 10
}

// Dataset is the immutable table consumed by every analyzer
type Dataset struct {
	schema      *Schema
	rows        []Observation
	fingerprint core.Hash
}

// New validates the observations against the clinical schema and derives BMI once.
// The input slice is copied.
func New(rows []Observation) (*Dataset, error) {
	schema := ClinicalSchema()
	out := make([]Observation, len(rows))
	for i, row := range rows {
		if row.ID == 0 {
			row.ID = i + 1
		}
		row.BMI = DeriveBMI(row.Weight, row.Height)
		if err := validateRow(schema, i, row); err != nil {
			return nil, err
		}
		out[i] = row
	}
	ds := &Dataset{schema: schema, rows: out}
	ds.fingerprint = computeFingerprint(out)
	return ds, nil
}

func validateRow(schema *Schema, i int, row Observation) error {
	for _, name := range []string{FieldWeight, FieldHeight} {
		v, _ := row.Continuous(name)
		if v <= 0 {
			return apperrors.MalformedInput("row %d (id %d): field %q must be positive, got %g", i+1, row.ID, name, v)
		}
	}
	for _, f := range schema.fields {
		switch {
		case f.Kind == KindContinuous:
			v, _ := row.Continuous(f.Name)
			if math.IsInf(v, 0) {
				return apperrors.MalformedInput("row %d (id %d): field %q is not finite", i+1, row.ID, f.Name)
			}
		case f.Kind.IsCategorical():
			v, _ := row.Categorical(f.Name)
			if !f.HasLevel(v) {
				return apperrors.MalformedInput("row %d (id %d): field %q has value %q outside vocabulary [%s]",
					i+1, row.ID, f.Name, v, strings.Join(f.Levels, ", "))
			}
		}
	}
	return nil
}

// Schema returns the dataset schema
func (d *Dataset) Schema() *Schema {
	return d.schema
}

// Len returns the number of observations
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Observation returns a copy of row i
func (d *Dataset) Observation(i int) Observation {
	return d.rows[i]
}

// Observations returns a copy of all rows
func (d *Dataset) Observations() []Observation {
	return append([]Observation(nil), d.rows...)
}

// Continuous returns a fresh column of a continuous field, NaN where missing
func (d *Dataset) Continuous(name string) ([]float64, error) {
	if _, err := d.schema.Require(name, KindContinuous); err != nil {
		return nil, err
	}
	col := make([]float64, len(d.rows))
	for i, row := range d.rows {
		col[i], _ = row.Continuous(name)
	}
	return col, nil
}

// Categorical returns a fresh column of a categorical field
func (d *Dataset) Categorical(name string) ([]string, error) {
	if _, err := d.schema.RequireCategorical(name); err != nil {
		return nil, err
	}
	col := make([]string, len(d.rows))
	for i, row := range d.rows {
		col[i], _ = row.Categorical(name)
	}
	return col, nil
}

// Fingerprint identifies the dataset content
func (d *Dataset) Fingerprint() core.Hash {
	return d.fingerprint
}

func computeFingerprint(rows []Observation) core.Hash {
	schema := ClinicalSchema()
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(strconv.Itoa(row.ID))
		for _, f := range schema.fields {
			b.WriteByte('|')
			switch {
			case f.Kind == KindContinuous:
				v, _ := row.Continuous(f.Name)
				b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
			case f.Kind.IsCategorical():
				v, _ := row.Categorical(f.Name)
				b.WriteString(v)
			}
		}
		b.WriteByte('\n')
	}
	return core.NewHash([]byte(b.String()))
}
