package testkit

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"

	"clinstat/domain/dataset"
)

func proportion(rows []dataset.Observation, pick func(dataset.Observation) bool) float64 {
	n := 0
	for _, r := range rows {
		if pick(r) {
			n++
		}
	}
	return float64(n) / float64(len(rows))
}

func TestClinicalGenerator_SameSeedReproduces(t *testing.T) {
	config := ClinicalGeneratorConfig{Size: 200, Seed: 7}

	a, err := GenerateClinicalDataset(config)
	if err != nil {
		t.Fatalf("Failed to generate dataset: %v", err)
	}
	b, err := GenerateClinicalDataset(config)
	if err != nil {
		t.Fatalf("Failed to generate dataset: %v", err)
	}

	if a.Fingerprint() != b.Fingerprint() {
		t.Errorf("Same seed produced different datasets: %s vs %s", a.Fingerprint().Short(), b.Fingerprint().Short())
	}

	c, _ := GenerateClinicalDataset(ClinicalGeneratorConfig{Size: 200, Seed: 8})
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("Different seeds produced identical datasets")
	}
}

func TestClinicalGenerator_BoundsAndDerivedBMI(t *testing.T) {
	ds, err := GenerateClinicalDataset(DefaultClinicalConfig())
	if err != nil {
		t.Fatalf("Failed to generate dataset: %v", err)
	}
	if ds.Len() != 500 {
		t.Fatalf("Expected 500 rows, got %d", ds.Len())
	}

	for i, o := range ds.Observations() {
		if o.Age < 18 || o.Age > 90 || o.Age != math.Trunc(o.Age) {
			t.Errorf("Row %d: age %v outside [18, 90] or not whole", i, o.Age)
		}
		if o.Weight < 40 || o.Weight > 150 || o.Height < 140 || o.Height > 200 {
			t.Errorf("Row %d: anthropometrics out of range: %v kg, %v cm", i, o.Weight, o.Height)
		}
		if o.HbA1c < 4 || o.HbA1c > 15 || o.Creatinine < 30 || o.Creatinine > 200 {
			t.Errorf("Row %d: labs out of range: hba1c %v, creatinine %v", i, o.HbA1c, o.Creatinine)
		}
		if o.CholesterolTotal < 100 || o.CholesterolTotal > 350 {
			t.Errorf("Row %d: cholesterol %v out of range", i, o.CholesterolTotal)
		}
		if o.FollowupMonths < 1 || o.FollowupMonths > 24 {
			t.Errorf("Row %d: follow-up %v out of range", i, o.FollowupMonths)
		}
		if math.IsNaN(o.BMI) || o.BMI != dataset.DeriveBMI(o.Weight, o.Height) {
			t.Errorf("Row %d: BMI %v not derived from %v/%v", i, o.BMI, o.Weight, o.Height)
		}
	}
}

func TestClinicalGenerator_KeepsFullPrecision(t *testing.T) {
	ds, err := GenerateClinicalDataset(ClinicalGeneratorConfig{Size: 50, Seed: 3})
	if err != nil {
		t.Fatalf("Failed to generate dataset: %v", err)
	}

	coarse := 0
	for _, o := range ds.Observations() {
		for _, v := range []float64{o.Weight, o.Height, o.HbA1c, o.Creatinine, o.CholesterolTotal} {
			if v == math.Round(v*10)/10 {
				coarse++
			}
		}
	}
	// clipping pins a few draws to a whole-number bound
	if coarse > 50 {
		t.Errorf("Expected continuous draws at full precision, %d of 250 sit on a 0.1 grid", coarse)
	}
}

func TestClinicalGenerator_LevelProportions(t *testing.T) {
	for _, seed := range []int64{1, 42, 2024} {
		ds, err := GenerateClinicalDataset(ClinicalGeneratorConfig{Size: 4000, Seed: seed})
		if err != nil {
			t.Fatalf("Failed to generate dataset: %v", err)
		}
		rows := ds.Observations()

		checks := []struct {
			name string
			want float64
			got  float64
		}{
			{"male", 0.45, proportion(rows, func(o dataset.Observation) bool { return o.Sex == dataset.LevelMale })},
			{"diabetes", 0.25, proportion(rows, func(o dataset.Observation) bool { return o.Diabetes == dataset.LevelYes })},
			{"hypertension", 0.35, proportion(rows, func(o dataset.Observation) bool { return o.Hypertension == dataset.LevelYes })},
			{"current smoker", 0.15, proportion(rows, func(o dataset.Observation) bool { return o.Smoking == dataset.LevelCurrent })},
			{"former smoker", 0.20, proportion(rows, func(o dataset.Observation) bool { return o.Smoking == dataset.LevelFormer })},
			{"placebo", 1.0 / 3, proportion(rows, func(o dataset.Observation) bool { return o.TreatmentGroup == dataset.LevelPlacebo })},
		}
		for _, c := range checks {
			// about 4.5 standard errors at n = 4000
			if math.Abs(c.got-c.want) > 0.035 {
				t.Errorf("seed %d: %s proportion %.3f, want about %.2f", seed, c.name, c.got, c.want)
			}
		}
	}
}

func TestWriteCSV(t *testing.T) {
	ds, err := GenerateClinicalDataset(ClinicalGeneratorConfig{Size: 5, Seed: 1})
	if err != nil {
		t.Fatalf("Failed to generate dataset: %v", err)
	}

	path := filepath.Join(t.TempDir(), "clinical.csv")
	if err := WriteCSV(path, ds); err != nil {
		t.Fatalf("Failed to write CSV: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open CSV: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	if len(records) != 6 {
		t.Fatalf("Expected header plus 5 rows, got %d records", len(records))
	}
	if records[0][1] != dataset.FieldAge || records[1][0] != "1" {
		t.Errorf("Unexpected layout: %v / %v", records[0], records[1])
	}
}

func TestWriteXLSX(t *testing.T) {
	ds, _ := GenerateClinicalDataset(ClinicalGeneratorConfig{Size: 3, Seed: 1})
	path := filepath.Join(t.TempDir(), "clinical.xlsx")
	if err := WriteXLSX(path, ds); err != nil {
		t.Fatalf("Failed to write XLSX: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Fatalf("Expected a non-empty workbook, got %v", err)
	}
}
