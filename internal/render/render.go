package render

import (
	"fmt"
	"strings"

	"clinstat/domain/report"
	"clinstat/domain/run"
	"clinstat/domain/stats"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Title heads every rendered report
const Title = "Clinical statistics report"

// Markdown renders the report as a Markdown document
func Markdown(r *report.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", Title)

	if m := r.Manifest(); m != nil {
		fmt.Fprintf(&b, "- Run: `%s`\n", m.RunID)
		fmt.Fprintf(&b, "- Created: %s\n", m.CreatedAt.Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(&b, "- Dataset: %d rows, fingerprint `%s`\n", m.Rows, m.Dataset.Short())
		switch m.Source.Kind {
		case run.SourceSynthetic:
			fmt.Fprintf(&b, "- Source: synthetic (seed %d, size %d)", m.Source.Seed, m.Source.Size)
			if m.Source.FallbackFor != "" {
				fmt.Fprintf(&b, ", substituted for missing `%s`", m.Source.FallbackFor)
			}
			b.WriteString("\n")
		default:
			fmt.Fprintf(&b, "- Source: `%s`\n", m.Source.Path)
		}
		if len(m.Diagnostics) > 0 {
			b.WriteString("\n## Diagnostics\n\n")
			for _, d := range m.Diagnostics {
				fmt.Fprintf(&b, "- %s\n", d.String())
			}
		}
		b.WriteString("\n")
	}

	writeSummaries(&b, r.EntriesOf(report.KindSummary))
	writeFrequencies(&b, r.EntriesOf(report.KindFrequency))
	writeTests(&b, r.EntriesOf(report.KindTest))
	writeCorrelations(&b, r.EntriesOf(report.KindCorrelationMatrix))
	writeModels(&b, r.EntriesOf(report.KindModel))
	return b.String()
}

// HTML renders the Markdown document as a complete HTML page
func HTML(r *report.Report) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(Markdown(r)))
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: Title,
	})
	return markdown.Render(doc, renderer)
}

func num(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

func pval(p float64) string {
	if p < 0.001 {
		return "<0.001"
	}
	return fmt.Sprintf("%.4f", p)
}

func row(b *strings.Builder, cells ...string) {
	b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
}

func header(b *strings.Builder, cells ...string) {
	row(b, cells...)
	sep := make([]string, len(cells))
	for i := range sep {
		sep[i] = "---"
	}
	row(b, sep...)
}

func writeSummaries(b *strings.Builder, entries []report.Entry) {
	if len(entries) == 0 {
		return
	}
	b.WriteString("## Descriptive statistics\n\n")
	header(b, "Variable", "Group", "N", "Mean", "SD", "Min", "Q25", "Median", "Q75", "Max")
	for _, e := range entries {
		s := e.Summary
		row(b, s.Variable, s.Group, fmt.Sprint(s.Count), num(s.Mean), num(s.StdDev), num(s.Min),
			num(s.Q25), num(s.Median), num(s.Q75), num(s.Max))
	}
	b.WriteString("\n")
}

func writeFrequencies(b *strings.Builder, entries []report.Entry) {
	if len(entries) == 0 {
		return
	}
	b.WriteString("## Frequencies\n\n")
	header(b, "Variable", "Level", "Count", "Percent")
	for _, e := range entries {
		for _, l := range e.Frequency.Levels {
			row(b, e.Frequency.Variable, l.Level, fmt.Sprint(l.Count), fmt.Sprintf("%.1f%%", l.Percent))
		}
	}
	b.WriteString("\n")
}

func writeTests(b *strings.Builder, entries []report.Entry) {
	if len(entries) == 0 {
		return
	}
	b.WriteString("## Bivariate tests\n\n")
	header(b, "Analysis", "Method", "Variables", "N", "Statistic", "df", "p", "Estimate [CI]", "Effect size")
	var posthoc []report.Entry
	for _, e := range entries {
		t := e.Test
		if len(t.Comparisons) > 0 {
			posthoc = append(posthoc, e)
		}
		df := ""
		if t.DF != 0 {
			df = num(t.DF)
			if t.DF2 != 0 {
				df += ", " + num(t.DF2)
			}
		}
		est := ""
		if t.Estimate != nil {
			est = fmt.Sprintf("%s [%s, %s]", num(t.Estimate.Value), num(t.Estimate.CILower), num(t.Estimate.CIUpper))
		}
		eff := ""
		if t.EffectSize != nil {
			eff = fmt.Sprintf("%s = %s", t.EffectSize.Name, num(t.EffectSize.Value))
		}
		row(b, e.Key, t.Method, strings.Join(t.Variables, " ~ "), fmt.Sprint(t.N), num(t.Statistic), df, pval(t.PValue), est, eff)
	}
	b.WriteString("\n")

	for _, e := range posthoc {
		fmt.Fprintf(b, "### %s\n\n", e.Key)
		header(b, "Group 1", "Group 2", "Mean diff", "p adj", "Lower", "Upper", "Reject")
		for _, c := range e.Test.Comparisons {
			row(b, c.Group1, c.Group2, num(c.MeanDiff), pval(c.PAdj), num(c.CILower), num(c.CIUpper), fmt.Sprint(c.Reject))
		}
		b.WriteString("\n")
	}
}

func writeCorrelations(b *strings.Builder, entries []report.Entry) {
	for _, e := range entries {
		m := e.Correlation
		fmt.Fprintf(b, "## Correlation matrix (%s)\n\n", e.Key)
		header(b, append([]string{""}, m.Variables...)...)
		for i, v := range m.Variables {
			cells := []string{v}
			for _, c := range m.Coefficients[i] {
				cells = append(cells, num(c))
			}
			row(b, cells...)
		}
		b.WriteString("\n")
	}
}

func writeModels(b *strings.Builder, entries []report.Entry) {
	for _, e := range entries {
		m := e.Model
		fmt.Fprintf(b, "## Model %s (%s, outcome %s)\n\n", e.Key, m.Kind, m.Outcome)
		fmt.Fprintf(b, "N = %d, AIC = %s, BIC = %s", m.N, num(m.Fit.AIC), num(m.Fit.BIC))
		switch m.Kind {
		case stats.ModelLogistic:
			fmt.Fprintf(b, ", pseudo R² = %s, LLR p = %s", num(m.Fit.PseudoR2), pval(m.Fit.LLRPValue))
			if !m.Converged {
				fmt.Fprintf(b, ", **not converged after %d iterations**", m.Iterations)
			}
		case stats.ModelLinear:
			fmt.Fprintf(b, ", R² = %s, adjusted R² = %s, F p = %s", num(m.Fit.R2), num(m.Fit.AdjR2), pval(m.Fit.FPValue))
		}
		b.WriteString("\n\n")

		if m.Kind == stats.ModelLogistic {
			header(b, "Term", "Coef", "SE", "z", "p", "OR", "OR 95% CI")
			for _, c := range m.Coefficients {
				or, ci := "", ""
				if c.OddsRatio != nil {
					or = num(c.OddsRatio.Value)
					ci = fmt.Sprintf("[%s, %s]", num(c.OddsRatio.CILower), num(c.OddsRatio.CIUpper))
				}
				row(b, c.Name, num(c.Estimate), num(c.StdErr), num(c.Statistic), pval(c.PValue), or, ci)
			}
		} else {
			header(b, "Term", "Coef", "SE", "t", "p", "95% CI")
			for _, c := range m.Coefficients {
				row(b, c.Name, num(c.Estimate), num(c.StdErr), num(c.Statistic), pval(c.PValue),
					fmt.Sprintf("[%s, %s]", num(c.CILower), num(c.CIUpper)))
			}
		}
		b.WriteString("\n")
	}
}
