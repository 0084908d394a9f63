package testkit

import (
	"encoding/csv"
	"math"
	"os"
	"strconv"

	"clinstat/domain/dataset"

	"github.com/xuri/excelize/v2"
)

// Header lists the column names written for a dataset, in schema order
func Header() []string {
	fields := dataset.ClinicalSchema().Fields()
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

// Record encodes one observation in Header order. Missing values are empty cells.
func Record(o dataset.Observation) []string {
	fields := dataset.ClinicalSchema().Fields()
	out := make([]string, len(fields))
	for i, f := range fields {
		switch {
		case f.Name == dataset.FieldID:
			out[i] = strconv.Itoa(o.ID)
		case f.Kind == dataset.KindContinuous:
			v, _ := o.Continuous(f.Name)
			out[i] = fToStr(v)
		default:
			out[i], _ = o.Categorical(f.Name)
		}
	}
	return out
}

// WriteCSV writes the dataset with a header row
func WriteCSV(path string, ds *dataset.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if err := w.Write(Header()); err != nil {
		return err
	}
	for _, row := range ds.Observations() {
		if err := w.Write(Record(row)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteXLSX writes the dataset to the first sheet of a new workbook
func WriteXLSX(path string, ds *dataset.Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		idx, err := f.NewSheet(sheet)
		if err != nil {
			return err
		}
		f.SetActiveSheet(idx)
	}

	for i, h := range Header() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for r, row := range ds.Observations() {
		for c, v := range Record(row) {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	return f.SaveAs(path)
}

func fToStr(x float64) string {
	if math.IsNaN(x) {
		return ""
	}
	return strconv.FormatFloat(x, 'f', -1, 64)
}
