package excel

// RawRowData is one data row keyed by the header as written in the file
type RawRowData map[string]string

// ExcelData is a file read as text, before any typing
type ExcelData struct {
	Headers []string
	Rows    []RawRowData
	Lines   []int // source line of each row, for diagnostics
}
