package stats

// Clone helpers give report accessors value semantics over nested slices.

func (f FrequencyTable) Clone() FrequencyTable {
	f.Levels = append([]LevelFrequency(nil), f.Levels...)
	return f
}

func (t TestResult) Clone() TestResult {
	t.Variables = append([]string(nil), t.Variables...)
	if t.Estimate != nil {
		e := *t.Estimate
		t.Estimate = &e
	}
	if t.EffectSize != nil {
		e := *t.EffectSize
		t.EffectSize = &e
	}
	t.Groups = append([]GroupSummary(nil), t.Groups...)
	if t.Table != nil {
		tbl := t.Table.Clone()
		t.Table = &tbl
	}
	t.Comparisons = append([]TukeyComparison(nil), t.Comparisons...)
	if t.Flags != nil {
		flags := make(map[string]bool, len(t.Flags))
		for k, v := range t.Flags {
			flags[k] = v
		}
		t.Flags = flags
	}
	t.Notes = append([]string(nil), t.Notes...)
	return t
}

func (c ContingencyTable) Clone() ContingencyTable {
	c.RowLevels = append([]string(nil), c.RowLevels...)
	c.ColLevels = append([]string(nil), c.ColLevels...)
	obs := make([][]int, len(c.Observed))
	for i, row := range c.Observed {
		obs[i] = append([]int(nil), row...)
	}
	exp := make([][]float64, len(c.Expected))
	for i, row := range c.Expected {
		exp[i] = append([]float64(nil), row...)
	}
	c.Observed, c.Expected = obs, exp
	return c
}

func (m CorrelationMatrix) Clone() CorrelationMatrix {
	m.Variables = append([]string(nil), m.Variables...)
	coef := make([][]float64, len(m.Coefficients))
	for i, row := range m.Coefficients {
		coef[i] = append([]float64(nil), row...)
	}
	n := make([][]int, len(m.N))
	for i, row := range m.N {
		n[i] = append([]int(nil), row...)
	}
	m.Coefficients, m.N = coef, n
	return m
}

func (r RegressionModelResult) Clone() RegressionModelResult {
	r.Predictors = append([]string(nil), r.Predictors...)
	coefs := make([]Coefficient, len(r.Coefficients))
	for i, c := range r.Coefficients {
		if c.OddsRatio != nil {
			or := *c.OddsRatio
			c.OddsRatio = &or
		}
		coefs[i] = c
	}
	r.Coefficients = coefs
	r.Warnings = append([]string(nil), r.Warnings...)
	return r
}
