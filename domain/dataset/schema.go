package dataset

import (
	"fmt"
	"strings"

	apperrors "clinstat/internal/errors"
)

// FieldKind classifies a schema field for test selection
type FieldKind string

const (
	KindContinuous FieldKind = "continuous"
	KindBinary     FieldKind = "binary"
	KindMultiLevel FieldKind = "multilevel"
	KindIdentifier FieldKind = "identifier"
)

// IsCategorical reports whether values of this kind come from a vocabulary
func (k FieldKind) IsCategorical() bool {
	return k == KindBinary || k == KindMultiLevel
}

// Field names of the clinical observation table
const (
	FieldID               = "id"
	FieldAge              = "age"
	FieldSex              = "sex"
	FieldWeight           = "weight"
	FieldHeight           = "height"
	FieldBMI              = "bmi"
	FieldDiabetes         = "diabetes"
	FieldHypertension     = "hypertension"
	FieldSmoking          = "smoking"
	FieldTreatmentGroup   = "treatment_group"
	FieldHbA1c            = "hba1c"
	FieldCreatinine       = "creatinine"
	FieldCholesterolTotal = "cholesterol_total"
	FieldFollowupMonths   = "followup_months"
)

// Vocabulary levels. For binary fields the first level is the positive one.
const (
	LevelMale       = "male"
	LevelFemale     = "female"
	LevelYes        = "yes"
	LevelNo         = "no"
	LevelCurrent    = "current"
	LevelFormer     = "former"
	LevelNever      = "never"
	LevelTreatmentA = "treatment_a"
	LevelTreatmentB = "treatment_b"
	LevelPlacebo    = "placebo"
)

// Field declares one column of the table
type Field struct {
	Name    string    `json:"name"`
	Kind    FieldKind `json:"kind"`
	Levels  []string  `json:"levels,omitempty"`
	Unit    string    `json:"unit,omitempty"`
	Derived bool      `json:"derived,omitempty"`
}

// HasLevel reports whether level belongs to the field vocabulary
func (f Field) HasLevel(level string) bool {
	for _, l := range f.Levels {
		if l == level {
			return true
		}
	}
	return false
}

// LevelIndex returns the vocabulary position of level, or -1
func (f Field) LevelIndex(level string) int {
	for i, l := range f.Levels {
		if l == level {
			return i
		}
	}
	return -1
}

func (f Field) clone() Field {
	out := f
	out.Levels = append([]string(nil), f.Levels...)
	return out
}

// Schema is the ordered field list shared by every observation of a dataset
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema, rejecting duplicate names and categorical fields without levels
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			return nil, apperrors.InvalidVariable("schema field with empty name")
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, apperrors.InvalidVariable("schema field %q declared twice", f.Name)
		}
		if f.Kind == KindBinary && len(f.Levels) != 2 {
			return nil, apperrors.InvalidVariable("binary field %q needs exactly 2 levels, got %d", f.Name, len(f.Levels))
		}
		if f.Kind == KindMultiLevel && len(f.Levels) < 2 {
			return nil, apperrors.InvalidVariable("multi-level field %q needs at least 2 levels", f.Name)
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f.clone())
	}
	return s, nil
}

// ClinicalSchema declares the fixed clinical observation table
func ClinicalSchema() *Schema {
	s, err := NewSchema(
		Field{Name: FieldID, Kind: KindIdentifier},
		Field{Name: FieldAge, Kind: KindContinuous, Unit: "years"},
		Field{Name: FieldSex, Kind: KindBinary, Levels: []string{LevelMale, LevelFemale}},
		Field{Name: FieldWeight, Kind: KindContinuous, Unit: "kg"},
		Field{Name: FieldHeight, Kind: KindContinuous, Unit: "cm"},
		Field{Name: FieldBMI, Kind: KindContinuous, Unit: "kg/m2", Derived: true},
		Field{Name: FieldDiabetes, Kind: KindBinary, Levels: []string{LevelYes, LevelNo}},
		Field{Name: FieldHypertension, Kind: KindBinary, Levels: []string{LevelYes, LevelNo}},
		Field{Name: FieldSmoking, Kind: KindMultiLevel, Levels: []string{LevelCurrent, LevelFormer, LevelNever}},
		Field{Name: FieldTreatmentGroup, Kind: KindMultiLevel, Levels: []string{LevelTreatmentA, LevelTreatmentB, LevelPlacebo}},
		Field{Name: FieldHbA1c, Kind: KindContinuous, Unit: "%"},
		Field{Name: FieldCreatinine, Kind: KindContinuous, Unit: "umol/L"},
		Field{Name: FieldCholesterolTotal, Kind: KindContinuous, Unit: "mg/dL"},
		Field{Name: FieldFollowupMonths, Kind: KindContinuous, Unit: "months"},
	)
	if err != nil {
		panic(fmt.Sprintf("clinical schema: %v", err))
	}
	return s
}

// Fields returns a copy of the declared fields in order
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.clone()
	}
	return out
}

// Field looks up a field by name
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i].clone(), true
}

// Require returns the named field if it exists and has one of the given kinds
func (s *Schema) Require(name string, kinds ...FieldKind) (Field, error) {
	f, ok := s.Field(name)
	if !ok {
		return Field{}, apperrors.InvalidVariable("variable %q is not in the schema", name)
	}
	if len(kinds) == 0 {
		return f, nil
	}
	for _, k := range kinds {
		if f.Kind == k {
			return f, nil
		}
	}
	want := make([]string, len(kinds))
	for i, k := range kinds {
		want[i] = string(k)
	}
	return Field{}, apperrors.InvalidVariable("variable %q is %s, expected %s", name, f.Kind, strings.Join(want, " or "))
}

// RequireCategorical returns the named field if it is binary or multi-level
func (s *Schema) RequireCategorical(name string) (Field, error) {
	return s.Require(name, KindBinary, KindMultiLevel)
}

// ContinuousNames lists continuous fields in schema order
func (s *Schema) ContinuousNames() []string {
	return s.namesWhere(func(f Field) bool { return f.Kind == KindContinuous })
}

// CategoricalNames lists binary and multi-level fields in schema order
func (s *Schema) CategoricalNames() []string {
	return s.namesWhere(func(f Field) bool { return f.Kind.IsCategorical() })
}

func (s *Schema) namesWhere(pred func(Field) bool) []string {
	var names []string
	for _, f := range s.fields {
		if pred(f) {
			names = append(names, f.Name)
		}
	}
	return names
}
