package viz

import (
	"math"
	"sort"

	"clinstat/domain/dataset"
	"clinstat/domain/report"
	"clinstat/internal/analysis/descriptive"
	"clinstat/internal/errors"

	"github.com/montanaflynn/stats"
	gonumstat "gonum.org/v1/gonum/stat"
)

// PlotConfig carries rendering settings for whoever draws the charts
type PlotConfig struct {
	Style   string  `json:"style"`
	Palette string  `json:"palette"`
	Width   float64 `json:"width"`  // inches
	Height  float64 `json:"height"` // inches
	DPI     int     `json:"dpi"`
}

// DefaultPlotConfig matches the historical figures
func DefaultPlotConfig() PlotConfig {
	return PlotConfig{Style: "whitegrid", Palette: "husl", Width: 10, Height: 6, DPI: 300}
}

// ChartKind tags the payload of a Chart
type ChartKind string

const (
	ChartHistogram ChartKind = "histogram"
	ChartBox       ChartKind = "box"
	ChartScatter   ChartKind = "scatter"
	ChartBar       ChartKind = "bar"
	ChartHeatmap   ChartKind = "heatmap"
)

// HistogramBins is the bin count of the age histogram
const HistogramBins = 20

// Histogram has len(Edges) == len(Counts)+1; the last bin is closed on the right
type Histogram struct {
	Edges  []float64 `json:"edges"`
	Counts []int     `json:"counts"`
}

// BoxStats are Tukey box plot statistics for one group
type BoxStats struct {
	Group        string    `json:"group"`
	N            int       `json:"n"`
	Q1           float64   `json:"q1"`
	Median       float64   `json:"median"`
	Q3           float64   `json:"q3"`
	LowerWhisker float64   `json:"lower_whisker"` // lowest value within 1.5 IQR of Q1
	UpperWhisker float64   `json:"upper_whisker"`
	Outliers     []float64 `json:"outliers,omitempty"`
}

// Scatter holds complete pairs and the least squares line through them
type Scatter struct {
	X         []float64 `json:"x"`
	Y         []float64 `json:"y"`
	Intercept float64   `json:"intercept"`
	Slope     float64   `json:"slope"`
}

// Bar is one bar of a grouped percentage chart
type Bar struct {
	Group   string  `json:"group"`
	Level   string  `json:"level"`
	Percent float64 `json:"percent"`
}

// HeatCell is one cell of the lower triangle of a correlation heatmap
type HeatCell struct {
	Row   string  `json:"row"`
	Col   string  `json:"col"`
	Value float64 `json:"value"`
}

// Chart is the data of one figure. Exactly one payload is set, matching Kind.
type Chart struct {
	Name   string    `json:"name"`
	Kind   ChartKind `json:"kind"`
	Title  string    `json:"title"`
	XLabel string    `json:"x_label,omitempty"`
	YLabel string    `json:"y_label,omitempty"`

	Histogram *Histogram `json:"histogram,omitempty"`
	Boxes     []BoxStats `json:"boxes,omitempty"`
	Scatter   *Scatter   `json:"scatter,omitempty"`
	Bars      []Bar      `json:"bars,omitempty"`
	Heatmap   []HeatCell `json:"heatmap,omitempty"`
}

// ChartSet is everything WriteCharts persists
type ChartSet struct {
	Config PlotConfig `json:"config"`
	Charts []Chart    `json:"charts"`
}

// BuildCharts derives the six standard figures from the dataset and the report's
// correlation matrix. The heatmap is skipped when the report has no matrix.
func BuildCharts(ds *dataset.Dataset, r *report.Report, cfg PlotConfig) (*ChartSet, error) {
	if ds.Len() == 0 {
		return nil, errors.EmptyDataset("charts")
	}
	set := &ChartSet{Config: cfg}

	age, _ := ds.Continuous(dataset.FieldAge)
	hist, err := histogram(age, HistogramBins)
	if err != nil {
		return nil, errors.Wrap(err, "age histogram")
	}
	set.Charts = append(set.Charts, Chart{
		Name: "age_distribution", Kind: ChartHistogram, Title: "Age distribution",
		XLabel: "Age (years)", YLabel: "Frequency", Histogram: hist,
	})

	bmiBoxes := boxesBy(ds, dataset.FieldBMI, dataset.FieldTreatmentGroup)
	set.Charts = append(set.Charts, Chart{
		Name: "bmi_by_treatment", Kind: ChartBox, Title: "BMI by treatment group",
		XLabel: "Treatment group", YLabel: "BMI (kg/m²)", Boxes: bmiBoxes,
	})

	bmi, _ := ds.Continuous(dataset.FieldBMI)
	sc, err := scatter(age, bmi)
	if err != nil {
		return nil, errors.Wrap(err, "age/bmi scatter")
	}
	set.Charts = append(set.Charts, Chart{
		Name: "age_vs_bmi", Kind: ChartScatter, Title: "Age vs BMI",
		XLabel: "Age (years)", YLabel: "BMI (kg/m²)", Scatter: sc,
	})

	set.Charts = append(set.Charts, Chart{
		Name: "diabetes_by_sex", Kind: ChartBar, Title: "Diabetes prevalence by sex",
		XLabel: "Sex", YLabel: "Percentage (%)", Bars: rowPercentages(ds, dataset.FieldSex, dataset.FieldDiabetes),
	})

	if cells := correlationCells(r); len(cells) > 0 {
		set.Charts = append(set.Charts, Chart{
			Name: "correlation_matrix", Kind: ChartHeatmap, Title: "Correlation matrix", Heatmap: cells,
		})
	}

	set.Charts = append(set.Charts, Chart{
		Name: "hba1c_by_treatment", Kind: ChartBox, Title: "HbA1c by treatment group",
		XLabel: "Treatment group", YLabel: "HbA1c (%)", Boxes: boxesBy(ds, dataset.FieldHbA1c, dataset.FieldTreatmentGroup),
	})

	return set, nil
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// histogram uses equal width bins over [min, max]
func histogram(values []float64, bins int) (*Histogram, error) {
	data := finite(values)
	lo, err := stats.Min(data)
	if err != nil {
		return nil, err
	}
	hi, err := stats.Max(data)
	if err != nil {
		return nil, err
	}
	if hi == lo {
		lo, hi = lo-0.5, hi+0.5
	}

	h := &Histogram{Edges: make([]float64, bins+1), Counts: make([]int, bins)}
	width := (hi - lo) / float64(bins)
	for i := range h.Edges {
		h.Edges[i] = lo + float64(i)*width
	}
	h.Edges[bins] = hi
	for _, v := range data {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		h.Counts[i]++
	}
	return h, nil
}

// boxesBy computes box statistics of a continuous field per level, in vocabulary order
func boxesBy(ds *dataset.Dataset, field, groupBy string) []BoxStats {
	values, _ := ds.Continuous(field)
	labels, _ := ds.Categorical(groupBy)
	f, _ := ds.Schema().Field(groupBy)

	byLevel := make(map[string][]float64)
	for i, v := range values {
		if !math.IsNaN(v) {
			byLevel[labels[i]] = append(byLevel[labels[i]], v)
		}
	}

	var boxes []BoxStats
	for _, level := range f.Levels {
		if data := byLevel[level]; len(data) > 0 {
			boxes = append(boxes, box(level, data))
		}
	}
	return boxes
}

func box(group string, data []float64) BoxStats {
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)

	b := BoxStats{
		Group:  group,
		N:      len(sorted),
		Q1:     descriptive.Quantile(sorted, 0.25),
		Median: descriptive.Quantile(sorted, 0.5),
		Q3:     descriptive.Quantile(sorted, 0.75),
	}
	iqr := b.Q3 - b.Q1
	lowFence, highFence := b.Q1-1.5*iqr, b.Q3+1.5*iqr

	b.LowerWhisker, b.UpperWhisker = b.Q1, b.Q3
	for _, v := range sorted {
		if v >= lowFence {
			b.LowerWhisker = v
			break
		}
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i] <= highFence {
			b.UpperWhisker = sorted[i]
			break
		}
	}
	for _, v := range sorted {
		if v < lowFence || v > highFence {
			b.Outliers = append(b.Outliers, v)
		}
	}
	return b
}

func scatter(x, y []float64) (*Scatter, error) {
	sc := &Scatter{}
	for i := range x {
		if !math.IsNaN(x[i]) && !math.IsNaN(y[i]) {
			sc.X = append(sc.X, x[i])
			sc.Y = append(sc.Y, y[i])
		}
	}
	if len(sc.X) < 2 {
		return nil, errors.InsufficientGroupSize("scatter needs at least 2 complete pairs, got %d", len(sc.X))
	}
	if v := gonumstat.Variance(sc.X, nil); v == 0 {
		return nil, errors.DegenerateVariance("scatter x values are constant")
	}
	sc.Intercept, sc.Slope = gonumstat.LinearRegression(sc.X, sc.Y, nil, false)
	return sc, nil
}

// rowPercentages gives, for each level of rowField, the share of each level of colField
func rowPercentages(ds *dataset.Dataset, rowField, colField string) []Bar {
	rows, _ := ds.Categorical(rowField)
	cols, _ := ds.Categorical(colField)
	rf, _ := ds.Schema().Field(rowField)
	cf, _ := ds.Schema().Field(colField)

	counts := make(map[string]map[string]int)
	totals := make(map[string]int)
	for i := range rows {
		if counts[rows[i]] == nil {
			counts[rows[i]] = make(map[string]int)
		}
		counts[rows[i]][cols[i]]++
		totals[rows[i]]++
	}

	var bars []Bar
	for _, r := range rf.Levels {
		if totals[r] == 0 {
			continue
		}
		for _, c := range cf.Levels {
			bars = append(bars, Bar{Group: r, Level: c, Percent: float64(counts[r][c]) / float64(totals[r]) * 100})
		}
	}
	return bars
}

// correlationCells takes the first correlation matrix of the report, strictly below the diagonal
func correlationCells(r *report.Report) []HeatCell {
	if r == nil {
		return nil
	}
	matrices := r.EntriesOf(report.KindCorrelationMatrix)
	if len(matrices) == 0 {
		return nil
	}
	m := matrices[0].Correlation
	var cells []HeatCell
	for i := range m.Variables {
		for j := 0; j < i; j++ {
			cells = append(cells, HeatCell{Row: m.Variables[i], Col: m.Variables[j], Value: m.Coefficients[i][j]})
		}
	}
	return cells
}
