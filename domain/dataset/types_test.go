package dataset

import (
	"math"
	"testing"

	apperrors "clinstat/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRow() Observation {
	return Observation{
		Age: 60, Sex: LevelFemale, Weight: 80, Height: 175,
		Diabetes: LevelNo, Hypertension: LevelYes, Smoking: LevelNever,
		TreatmentGroup: LevelPlacebo, HbA1c: 6.8, Creatinine: 90,
		CholesterolTotal: 210, FollowupMonths: 12,
	}
}

func TestNewDerivesBMIOnce(t *testing.T) {
	row := sampleRow()
	row.BMI = 99 // ignored, always derived
	ds, err := New([]Observation{row})
	require.NoError(t, err)

	got := ds.Observation(0)
	assert.Equal(t, 26.1, got.BMI)
	assert.Equal(t, 1, got.ID)
}

func TestDeriveBMIMissing(t *testing.T) {
	assert.True(t, math.IsNaN(DeriveBMI(math.NaN(), 170)))
	assert.True(t, math.IsNaN(DeriveBMI(70, 0)))
	assert.Equal(t, 24.2, DeriveBMI(70, 170))
}

func TestNewRejectsOutOfVocabulary(t *testing.T) {
	row := sampleRow()
	row.Smoking = "sometimes"
	_, err := New([]Observation{row})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMalformedInput)
	assert.Contains(t, err.Error(), "smoking")
}

func TestNewRejectsInfinite(t *testing.T) {
	row := sampleRow()
	row.Creatinine = math.Inf(1)
	_, err := New([]Observation{row})
	assert.ErrorIs(t, err, apperrors.ErrMalformedInput)
}

func TestNewRejectsNonPositiveBodyMeasures(t *testing.T) {
	cases := map[string]func(*Observation){
		"zero height":     func(o *Observation) { o.Height = 0 },
		"negative height": func(o *Observation) { o.Height = -170 },
		"zero weight":     func(o *Observation) { o.Weight = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			row := sampleRow()
			row.ID = 7
			mutate(&row)
			_, err := New([]Observation{sampleRow(), row})
			require.ErrorIs(t, err, apperrors.ErrMalformedInput)
			assert.Contains(t, err.Error(), "row 2 (id 7)")
		})
	}
}

func TestNewAcceptsMissingBodyMeasures(t *testing.T) {
	row := sampleRow()
	row.Height = math.NaN()
	ds, err := New([]Observation{row})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(ds.Observation(0).BMI))
}

func TestColumnsAreCopies(t *testing.T) {
	ds, err := New([]Observation{sampleRow(), sampleRow()})
	require.NoError(t, err)

	ages, err := ds.Continuous(FieldAge)
	require.NoError(t, err)
	ages[0] = -1

	again, _ := ds.Continuous(FieldAge)
	assert.Equal(t, 60.0, again[0])

	rows := ds.Observations()
	rows[1].Sex = LevelMale
	assert.Equal(t, LevelFemale, ds.Observation(1).Sex)
}

func TestColumnKindChecks(t *testing.T) {
	ds, err := New([]Observation{sampleRow()})
	require.NoError(t, err)

	_, err = ds.Continuous(FieldSex)
	assert.ErrorIs(t, err, apperrors.ErrInvalidVariable)

	_, err = ds.Categorical("blood_type")
	assert.ErrorIs(t, err, apperrors.ErrInvalidVariable)

	sex, err := ds.Categorical(FieldSex)
	require.NoError(t, err)
	assert.Equal(t, []string{LevelFemale}, sex)
}

func TestFingerprintTracksContent(t *testing.T) {
	a, _ := New([]Observation{sampleRow()})
	b, _ := New([]Observation{sampleRow()})
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	changed := sampleRow()
	changed.Age = 61
	c, _ := New([]Observation{changed})
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestSchemaRequire(t *testing.T) {
	s := ClinicalSchema()
	f, err := s.Require(FieldTreatmentGroup, KindMultiLevel)
	require.NoError(t, err)
	assert.Equal(t, []string{LevelTreatmentA, LevelTreatmentB, LevelPlacebo}, f.Levels)

	_, err = s.Require(FieldAge, KindBinary)
	assert.ErrorIs(t, err, apperrors.ErrInvalidVariable)

	assert.Equal(t, []string{FieldSex, FieldDiabetes, FieldHypertension, FieldSmoking, FieldTreatmentGroup}, s.CategoricalNames())
	assert.Len(t, s.ContinuousNames(), 8)
}

func TestNewSchemaValidation(t *testing.T) {
	_, err := NewSchema(Field{Name: "x", Kind: KindBinary, Levels: []string{"a"}})
	assert.ErrorIs(t, err, apperrors.ErrInvalidVariable)

	_, err = NewSchema(Field{Name: "x", Kind: KindContinuous}, Field{Name: "x", Kind: KindContinuous})
	assert.ErrorIs(t, err, apperrors.ErrInvalidVariable)
}
