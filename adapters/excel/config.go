package excel

import (
	"strings"

	"clinstat/domain/dataset"
)

// headerAliases maps accepted column headers, lowercased, to schema field names. The
// French names are those of the historical export.
var headerAliases = map[string]string{
	"id":                dataset.FieldID,
	"patient_id":        dataset.FieldID,
	"age":               dataset.FieldAge,
	"sex":               dataset.FieldSex,
	"sexe":              dataset.FieldSex,
	"weight":            dataset.FieldWeight,
	"poids":             dataset.FieldWeight,
	"height":            dataset.FieldHeight,
	"taille":            dataset.FieldHeight,
	"bmi":               dataset.FieldBMI,
	"imc":               dataset.FieldBMI,
	"diabetes":          dataset.FieldDiabetes,
	"diabete":           dataset.FieldDiabetes,
	"diabète":           dataset.FieldDiabetes,
	"hypertension":      dataset.FieldHypertension,
	"smoking":           dataset.FieldSmoking,
	"fumeur":            dataset.FieldSmoking,
	"treatment_group":   dataset.FieldTreatmentGroup,
	"groupe_traitement": dataset.FieldTreatmentGroup,
	"hba1c":             dataset.FieldHbA1c,
	"hemoglobine_a1c":   dataset.FieldHbA1c,
	"creatinine":        dataset.FieldCreatinine,
	"creatininemie":     dataset.FieldCreatinine,
	"cholesterol_total": dataset.FieldCholesterolTotal,
	"followup_months":   dataset.FieldFollowupMonths,
	"suivi_mois":        dataset.FieldFollowupMonths,
}

var yesNo = map[string]string{"oui": dataset.LevelYes, "non": dataset.LevelNo}

// levelAliases maps lowercased cell values to vocabulary levels, per field
var levelAliases = map[string]map[string]string{
	dataset.FieldSex: {
		"homme": dataset.LevelMale, "femme": dataset.LevelFemale,
		"m": dataset.LevelMale, "f": dataset.LevelFemale,
	},
	dataset.FieldDiabetes:     yesNo,
	dataset.FieldHypertension: yesNo,
	dataset.FieldSmoking: {
		"oui": dataset.LevelCurrent, "non": dataset.LevelNever, "ancien": dataset.LevelFormer,
	},
	dataset.FieldTreatmentGroup: {
		"traitement_a": dataset.LevelTreatmentA, "traitement_b": dataset.LevelTreatmentB,
	},
}

// missingMarkers are cell values read as a missing continuous value
var missingMarkers = map[string]bool{"": true, "na": true, "nan": true, "n/a": true, "null": true}

// canonicalField resolves a header to a schema field name
func canonicalField(header string) (string, bool) {
	name, ok := headerAliases[strings.ToLower(strings.TrimSpace(header))]
	return name, ok
}

// canonicalLevel resolves a cell to a vocabulary level of field, or returns it unchanged
// lowercased so that vocabulary validation reports the original spelling
func canonicalLevel(field, value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if alias, ok := levelAliases[field][v]; ok {
		return alias
	}
	return v
}
