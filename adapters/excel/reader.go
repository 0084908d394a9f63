package excel

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"clinstat/domain/dataset"
	"clinstat/internal"
	"clinstat/internal/errors"

	"github.com/xuri/excelize/v2"
)

// DataReader reads the clinical table from a CSV or XLSX file
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewDataReader creates a reader; the file type follows the extension
func NewDataReader(filePath string, logger *internal.Logger) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	if logger == nil {
		logger = internal.NewDiscardLogger()
	}
	return &DataReader{filePath: filePath, fileType: fileType, logger: logger}
}

// ReadDataset reads the file at path into a validated dataset
func ReadDataset(path string, logger *internal.Logger) (*dataset.Dataset, error) {
	return NewDataReader(path, logger).ReadDataset()
}

// ReadData reads the file as text rows keyed by header
func (r *DataReader) ReadData() (*ExcelData, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.FileNotFound(r.filePath)
	}

	start := time.Now()
	var (
		rows [][]string
		err  error
	)
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	default:
		rows, err = r.readExcelRows()
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, errors.MalformedInput("%s: need a header row and at least one data row", r.filePath)
	}

	data := r.processRows(rows)
	r.logger.WithFields(map[string]interface{}{
		"file": r.filePath, "type": r.fileType, "rows": len(data.Rows), "columns": len(data.Headers),
	}).Debug("read input in %.2fms", float64(time.Since(start).Nanoseconds())/1e6)
	return data, nil
}

// readExcelRows reads the first sheet of the workbook
func (r *DataReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.MalformedInput("%s: open workbook: %v", r.filePath, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.MalformedInput("%s: workbook has no sheet", r.filePath)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.MalformedInput("%s: read sheet %s: %v", r.filePath, sheets[0], err)
	}
	return rows, nil
}

func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", r.filePath)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.MalformedInput("%s: %v", r.filePath, err)
	}
	return rows, nil
}

// processRows keys each data row by header. Cells past the end of a short row are empty,
// as excelize drops trailing blanks.
func (r *DataReader) processRows(rows [][]string) *ExcelData {
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	data := &ExcelData{Headers: headers}
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlank(row) {
			continue
		}
		rowData := make(RawRowData, len(headers))
		for j, h := range headers {
			if j < len(row) {
				rowData[h] = strings.TrimSpace(row[j])
			} else {
				rowData[h] = ""
			}
		}
		data.Rows = append(data.Rows, rowData)
		data.Lines = append(data.Lines, i+1)
	}
	return data
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ReadDataset reads and types the file. Headers and levels may use the French
// vocabulary; a bmi/imc column is ignored since BMI is always derived.
func (r *DataReader) ReadDataset() (*dataset.Dataset, error) {
	data, err := r.ReadData()
	if err != nil {
		return nil, err
	}

	columns, err := r.resolveColumns(data.Headers)
	if err != nil {
		return nil, err
	}

	schema := dataset.ClinicalSchema()
	observations := make([]dataset.Observation, len(data.Rows))
	for i, raw := range data.Rows {
		o, err := r.parseRow(schema, columns, raw, data.Lines[i])
		if err != nil {
			return nil, err
		}
		observations[i] = o
	}

	ds, err := dataset.New(observations)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", r.filePath)
	}
	r.logger.WithFields(map[string]interface{}{
		"file": r.filePath, "rows": ds.Len(), "fingerprint": ds.Fingerprint().Short(),
	}).Info("dataset loaded")
	return ds, nil
}

// resolveColumns maps schema fields to headers and checks that every required field is present
func (r *DataReader) resolveColumns(headers []string) (map[string]string, error) {
	columns := make(map[string]string)
	for _, h := range headers {
		field, ok := canonicalField(h)
		if !ok {
			r.logger.Debug("ignoring unknown column %q in %s", h, r.filePath)
			continue
		}
		if prev, dup := columns[field]; dup {
			return nil, errors.MalformedInput("%s: columns %q and %q both map to %s", r.filePath, prev, h, field)
		}
		columns[field] = h
	}

	var missing []string
	for _, f := range dataset.ClinicalSchema().Fields() {
		if f.Kind == dataset.KindIdentifier || f.Derived {
			continue
		}
		if _, ok := columns[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.MalformedInput("%s: missing required column(s): %s", r.filePath, strings.Join(missing, ", "))
	}
	if h, ok := columns[dataset.FieldBMI]; ok {
		r.logger.Debug("column %q ignored, BMI is derived from weight and height", h)
	}
	return columns, nil
}

func (r *DataReader) parseRow(schema *dataset.Schema, columns map[string]string, raw RawRowData, line int) (dataset.Observation, error) {
	var o dataset.Observation
	if h, ok := columns[dataset.FieldID]; ok && raw[h] != "" {
		id, err := strconv.Atoi(raw[h])
		if err != nil {
			return o, errors.MalformedInput("%s line %d: column %q: %q is not an integer id", r.filePath, line, h, raw[h])
		}
		o.ID = id
	}

	for _, f := range schema.Fields() {
		h, ok := columns[f.Name]
		if !ok || f.Derived || f.Kind == dataset.KindIdentifier {
			continue
		}
		cell := raw[h]
		switch f.Kind {
		case dataset.KindContinuous:
			v, err := parseNumber(cell)
			if err != nil {
				return o, errors.MalformedInput("%s line %d: column %q: %q is not a number", r.filePath, line, h, cell)
			}
			setContinuous(&o, f.Name, v)
		default:
			level := canonicalLevel(f.Name, cell)
			if !f.HasLevel(level) {
				return o, errors.MalformedInput("%s line %d: column %q: %q is not one of [%s]",
					r.filePath, line, h, cell, strings.Join(f.Levels, ", "))
			}
			setCategorical(&o, f.Name, level)
		}
	}
	return o, nil
}

// parseNumber reads a decimal with either separator. Missing markers give NaN.
func parseNumber(cell string) (float64, error) {
	s := strings.TrimSpace(cell)
	if missingMarkers[strings.ToLower(s)] {
		return math.NaN(), nil
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, errors.MalformedInput("not a finite number: %q", cell)
	}
	return v, nil
}

func setContinuous(o *dataset.Observation, field string, v float64) {
	switch field {
	case dataset.FieldAge:
		o.Age = v
	case dataset.FieldWeight:
		o.Weight = v
	case dataset.FieldHeight:
		o.Height = v
	case dataset.FieldHbA1c:
		o.HbA1c = v
	case dataset.FieldCreatinine:
		o.Creatinine = v
	case dataset.FieldCholesterolTotal:
		o.CholesterolTotal = v
	case dataset.FieldFollowupMonths:
		o.FollowupMonths = v
	}
}

func setCategorical(o *dataset.Observation, field, level string) {
	switch field {
	case dataset.FieldSex:
		o.Sex = level
	case dataset.FieldDiabetes:
		o.Diabetes = level
	case dataset.FieldHypertension:
		o.Hypertension = level
	case dataset.FieldSmoking:
		o.Smoking = level
	case dataset.FieldTreatmentGroup:
		o.TreatmentGroup = level
	}
}
