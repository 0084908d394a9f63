package excel

import (
	"sort"
	"strings"
	"time"

	domainreport "clinstat/domain/report"
	"clinstat/internal/errors"

	"github.com/xuri/excelize/v2"
)

// Workbook sheet names, in the order they are written
const (
	SheetSummary     = "summary"
	SheetFrequency   = "frequency"
	SheetTests       = "tests"
	SheetTukey       = "tukey"
	SheetModels      = "models"
	SheetCorrelation = "correlation"
	SheetRun         = "run"
)

// WorkbookSheets lists every sheet written by WriteWorkbook
var WorkbookSheets = []string{SheetSummary, SheetFrequency, SheetTests, SheetTukey, SheetModels, SheetCorrelation, SheetRun}

type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	err   error
}

func (w *sheetWriter) add(values ...interface{}) {
	if w.err != nil {
		return
	}
	w.row++
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(w.sheet, cell, &values)
}

// WriteWorkbook writes the report as a workbook with one sheet per result family
func WriteWorkbook(path string, r *domainreport.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	writers := make(map[string]*sheetWriter, len(WorkbookSheets))
	for i, name := range WorkbookSheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return errors.Wrap(err, "create workbook")
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return errors.Wrap(err, "create workbook")
		}
		writers[name] = &sheetWriter{f: f, sheet: name}
	}

	summary := writers[SheetSummary]
	summary.add("key", "variable", "group", "count", "mean", "std_dev", "min", "q25", "median", "q75", "max")
	frequency := writers[SheetFrequency]
	frequency.add("key", "variable", "level", "count", "percent")
	tests := writers[SheetTests]
	tests.add("key", "stage", "kind", "method", "variables", "n", "statistic", "df", "df2", "p_value",
		"estimate", "ci_lower", "ci_upper", "effect_size", "effect_value", "flags")
	tukey := writers[SheetTukey]
	tukey.add("key", "group1", "group2", "mean_diff", "std_err", "q", "p_adj", "ci_lower", "ci_upper", "reject")
	models := writers[SheetModels]
	models.add("key", "kind", "outcome", "term", "estimate", "std_err", "statistic", "p_value",
		"ci_lower", "ci_upper", "odds_ratio", "or_ci_lower", "or_ci_upper")
	correlation := writers[SheetCorrelation]

	for _, e := range r.Entries() {
		switch e.Kind {
		case domainreport.KindSummary:
			s := e.Summary
			summary.add(e.Key, s.Variable, s.Group, s.Count, s.Mean, s.StdDev, s.Min, s.Q25, s.Median, s.Q75, s.Max)

		case domainreport.KindFrequency:
			for _, l := range e.Frequency.Levels {
				frequency.add(e.Key, e.Frequency.Variable, l.Level, l.Count, l.Percent)
			}

		case domainreport.KindTest:
			t := e.Test
			row := []interface{}{e.Key, e.Stage, string(t.Kind), t.Method, strings.Join(t.Variables, " ~ "), t.N,
				t.Statistic, t.DF, t.DF2, t.PValue}
			if t.Estimate != nil {
				row = append(row, t.Estimate.Value, t.Estimate.CILower, t.Estimate.CIUpper)
			} else {
				row = append(row, "", "", "")
			}
			if t.EffectSize != nil {
				row = append(row, t.EffectSize.Name, t.EffectSize.Value)
			} else {
				row = append(row, "", "")
			}
			row = append(row, flagList(t.Flags))
			tests.add(row...)
			for _, c := range t.Comparisons {
				tukey.add(e.Key, c.Group1, c.Group2, c.MeanDiff, c.StdErr, c.Q, c.PAdj, c.CILower, c.CIUpper, c.Reject)
			}

		case domainreport.KindModel:
			m := e.Model
			for _, c := range m.Coefficients {
				row := []interface{}{e.Key, string(m.Kind), m.Outcome, c.Name, c.Estimate, c.StdErr, c.Statistic,
					c.PValue, c.CILower, c.CIUpper}
				if c.OddsRatio != nil {
					row = append(row, c.OddsRatio.Value, c.OddsRatio.CILower, c.OddsRatio.CIUpper)
				}
				models.add(row...)
			}

		case domainreport.KindCorrelationMatrix:
			m := e.Correlation
			header := []interface{}{e.Key}
			for _, v := range m.Variables {
				header = append(header, v)
			}
			correlation.add(header...)
			for i, v := range m.Variables {
				row := []interface{}{v}
				for _, c := range m.Coefficients[i] {
					row = append(row, c)
				}
				correlation.add(row...)
			}
			correlation.add()
		}
	}

	run := writers[SheetRun]
	if m := r.Manifest(); m != nil {
		run.add("run_id", m.RunID.String())
		run.add("created_at", m.CreatedAt.Format(time.RFC3339))
		run.add("dataset_fingerprint", m.Dataset.String())
		run.add("rows", m.Rows)
		run.add("source", string(m.Source.Kind))
		run.add("code_version", m.CodeVersion)
		for _, d := range m.Diagnostics {
			run.add("diagnostic", d.String())
		}
	}

	for _, name := range WorkbookSheets {
		if err := writers[name].err; err != nil {
			return errors.Wrapf(err, "write sheet %s", name)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "save workbook %s", path)
	}
	return nil
}

func flagList(flags map[string]bool) string {
	var names []string
	for k, on := range flags {
		if on {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
