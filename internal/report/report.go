// Package report renders analysis summaries and sample-size searches as
// Markdown, and as standalone HTML pages through gomarkdown.
package report

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"gobfda/domain/bfda"
)

// Format selects the rendering of a report.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
)

// ParseFormat accepts md, markdown, html and json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown report format %q (use md, html or json)", s)
}

// AnalysisMarkdown renders the operating characteristics of a design.
func AnalysisMarkdown(s *bfda.AnalysisSummary) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Design analysis\n\n")
	fmt.Fprintf(&b, "Simulation `%s`, data generated under **%s**.\n\n", s.SimulationID, s.Hypothesis)

	switch s.Config.Design {
	case bfda.AnalysisFixed:
		fmt.Fprintf(&b, "Fixed-n design at n = %d with boundary %s.\n\n", s.Config.N, s.Config.Boundary)
	default:
		fmt.Fprintf(&b, "Sequential design from n = %d to n = %d with boundary %s.\n\n",
			s.Config.NMin, s.Config.NMax, s.Config.Boundary)
	}

	b.WriteString("| Measure | Value |\n|---|---|\n")
	row(&b, "Valid replications", fmt.Sprint(s.Valid))
	row(&b, "Failed replications", fmt.Sprint(s.Failed))
	row(&b, upperLabel(s.Hypothesis), percent(s.UpperHitFrac))
	row(&b, lowerLabel(s.Hypothesis), percent(s.LowerHitFrac))
	row(&b, "Inconclusive", percent(s.NMaxHitFrac))
	row(&b, "Inconclusive, leaning H1", percent(s.InconclusiveTowardH1Frac))
	row(&b, "Inconclusive, leaning H0", percent(s.InconclusiveTowardH0Frac))
	if s.Config.Design == bfda.AnalysisSequential {
		row(&b, "Average sample number", number(s.ASN))
		row(&b, "ASN of boundary hits", number(s.BoundaryHitASN))
	}
	b.WriteString("\n")

	if s.Config.Design == bfda.AnalysisSequential && len(s.Quantiles) > 0 {
		b.WriteString("## Stopping n\n\n")
		b.WriteString("| Percentile | All | Boundary hits |\n|---|---|---|\n")
		hits := make(map[float64]float64, len(s.BoundaryHitQuantiles))
		for _, q := range s.BoundaryHitQuantiles {
			hits[q.Percent] = q.N
		}
		for _, q := range s.Quantiles {
			hit := "-"
			if v, ok := hits[q.Percent]; ok {
				hit = number(v)
			}
			fmt.Fprintf(&b, "| %g%% | %s | %s |\n", q.Percent, number(q.N), hit)
		}
		b.WriteString("\n")
	}

	warnings(&b, s.Warnings)
	return b.Bytes()
}

// SSDMarkdown renders a sample-size search and its candidate table.
func SSDMarkdown(r *bfda.SSDResult) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Sample size determination\n\n")
	fmt.Fprintf(&b, "Simulation `%s`, data generated under **%s**, %s design with boundary %s.\n\n",
		r.SimulationID, r.Hypothesis, r.Config.Design, r.Config.Boundary)

	fmt.Fprintf(&b, "Target: %s.\n\n", target(r))
	if r.Found {
		fmt.Fprintf(&b, "**Required n = %d.**\n\n", r.N)
	} else {
		b.WriteString("**No simulated sample size reaches the target.**\n\n")
	}

	b.WriteString("| n | Upper hits | Lower hits | Inconclusive | ASN | Meets target |\n|---|---|---|---|---|---|\n")
	for _, row := range r.Rows {
		meets := ""
		if row.Meets {
			meets = "yes"
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s |\n",
			row.N, percent(row.UpperHitFrac), percent(row.LowerHitFrac), percent(row.InconclusiveFrac), number(row.ASN), meets)
	}
	b.WriteString("\n")

	warnings(&b, r.Warnings)
	return b.Bytes()
}

// HTML converts a Markdown report into a complete HTML page.
func HTML(title string, md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML(md, p, renderer)
}

func target(r *bfda.SSDResult) string {
	if r.Hypothesis == bfda.HypothesisH0 {
		t := fmt.Sprintf("false positive rate at most %s", percent(r.Config.Alpha))
		if r.Config.Power > 0 {
			t += fmt.Sprintf(" and evidence for H0 in at least %s", percent(r.Config.Power))
		}
		return t
	}
	return fmt.Sprintf("evidence for H1 in at least %s", percent(r.Config.Power))
}

func upperLabel(h bfda.Hypothesis) string {
	if h == bfda.HypothesisH0 {
		return "Upper boundary hits (false positives)"
	}
	return "Upper boundary hits (true positives)"
}

func lowerLabel(h bfda.Hypothesis) string {
	if h == bfda.HypothesisH1 {
		return "Lower boundary hits (false negatives)"
	}
	return "Lower boundary hits (true negatives)"
}

func row(b *bytes.Buffer, label, value string) {
	fmt.Fprintf(b, "| %s | %s |\n", label, value)
}

func warnings(b *bytes.Buffer, ws []string) {
	if len(ws) == 0 {
		return
	}
	b.WriteString("## Warnings\n\n")
	for _, w := range ws {
		fmt.Fprintf(b, "- %s\n", w)
	}
	b.WriteString("\n")
}

func percent(f float64) string {
	return fmt.Sprintf("%.1f%%", 100*f)
}

func number(f float64) string {
	if f == math.Trunc(f) {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%.1f", f)
}
