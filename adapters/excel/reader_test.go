package excel

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"clinstat/domain/dataset"
	apperrors "clinstat/internal/errors"
	"clinstat/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestReadDatasetRoundTrip(t *testing.T) {
	ds, err := testkit.GenerateClinicalDataset(testkit.ClinicalGeneratorConfig{Size: 60, Seed: 3})
	require.NoError(t, err)

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "clinical.csv")
	xlsxPath := filepath.Join(dir, "clinical.xlsx")
	require.NoError(t, testkit.WriteCSV(csvPath, ds))
	require.NoError(t, testkit.WriteXLSX(xlsxPath, ds))

	for _, path := range []string{csvPath, xlsxPath} {
		got, err := ReadDataset(path, nil)
		require.NoError(t, err, path)
		assert.Equal(t, ds.Len(), got.Len(), path)
		assert.Equal(t, ds.Fingerprint(), got.Fingerprint(), path)
	}
}

func TestReadDatasetFrenchVocabulary(t *testing.T) {
	path := writeFile(t, "donnees.csv", `patient_id,age,sexe,poids,taille,imc,diabete,hypertension,fumeur,groupe_traitement,hemoglobine_a1c,creatininemie,cholesterol_total,suivi_mois
1,54,Homme,80,180,99.9,Oui,Non,Ancien,Traitement_A,7.1,"82,5",210,12
2,61,Femme,65,165,,Non,Oui,Oui,Placebo,,90,190,6
3,47,Femme,70,160,,Non,Non,Non,Traitement_B,6.4,75,NA,24
`)
	ds, err := ReadDataset(path, nil)
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())

	first := ds.Observation(0)
	assert.Equal(t, dataset.LevelMale, first.Sex)
	assert.Equal(t, dataset.LevelYes, first.Diabetes)
	assert.Equal(t, dataset.LevelFormer, first.Smoking)
	assert.Equal(t, dataset.LevelTreatmentA, first.TreatmentGroup)
	assert.Equal(t, 82.5, first.Creatinine)
	// the provided imc is ignored
	assert.Equal(t, 24.7, first.BMI)

	second := ds.Observation(1)
	assert.Equal(t, dataset.LevelCurrent, second.Smoking)
	assert.True(t, math.IsNaN(second.HbA1c))

	third := ds.Observation(2)
	assert.Equal(t, dataset.LevelNever, third.Smoking)
	assert.True(t, math.IsNaN(third.CholesterolTotal))
}

const header = "age,sex,weight,height,diabetes,hypertension,smoking,treatment_group,hba1c,creatinine,cholesterol_total,followup_months\n"

func TestReadDatasetErrors(t *testing.T) {
	_, err := ReadDataset(filepath.Join(t.TempDir(), "absent.csv"), nil)
	assert.ErrorIs(t, err, apperrors.ErrFileNotFound)

	cases := map[string]struct {
		body string
		want string
	}{
		"bad number":     {header + "abc,male,80,180,yes,no,never,placebo,7,80,200,12\n", `"abc"`},
		"unknown level":  {header + "50,robot,80,180,yes,no,never,placebo,7,80,200,12\n", `"robot"`},
		"zero height":    {header + "50,male,80,0,yes,no,never,placebo,7,80,200,12\n", `"height" must be positive`},
		"missing column": {"age,sex\n50,male\n", "missing required column"},
		"ragged row":     {header + "50,male,80\n", "wrong number of fields"},
		"header only":    {header, "at least one data row"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadDataset(writeFile(t, "bad.csv", tc.body), nil)
			require.ErrorIs(t, err, apperrors.ErrMalformedInput)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestReadDataKeepsSourceLines(t *testing.T) {
	path := writeFile(t, "gaps.csv", header+"50,male,80,180,yes,no,never,placebo,7,80,200,12\n,,,,,,,,,,,\n51,female,60,160,no,no,never,placebo,6,70,180,3\n")
	data, err := NewDataReader(path, nil).ReadData()
	require.NoError(t, err)
	assert.Len(t, data.Rows, 2)
	assert.Equal(t, []int{2, 4}, data.Lines)
}
