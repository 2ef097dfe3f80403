package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/scanboard/scanboard/agent/internal/compute"
	"github.com/scanboard/scanboard/pkg/types"
)

// Chart palette shared with the dashboard.
var (
	passColor   = lipgloss.Color("#8BD2DC")
	warnColor   = lipgloss.Color("#f26c21")
	errorColor  = lipgloss.Color("#a11f4c")
	noDataColor = lipgloss.Color("#ACB7BF")
	mutedColor  = lipgloss.Color("#6B7280")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#3B3B4F")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(12)

	valueStyle = lipgloss.NewStyle().Bold(true)
)

const barWidth = 30

// Text renders a terminal summary of sum: score, grade and health state,
// check and image scan counts with proportional bars, and the per-category
// breakdown when present.
func Text(sum *types.AuditSummary) string {
	var b strings.Builder
	cs := sum.ClusterSummary
	score := compute.Score(sum)

	b.WriteString(titleStyle.Render("scanboard audit: " + sum.Key()))
	b.WriteString("\n")
	if !sum.AuditTime.IsZero() {
		row(&b, "Audited", sum.AuditTime.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	if cs.Version != "" {
		row(&b, "Version", cs.Version)
	}
	row(&b, "Score", fmt.Sprintf("%d (%s)", score, types.Grade(score)))
	row(&b, "State", compute.State(sum))
	row(&b, "Inventory", fmt.Sprintf("%d nodes, %d namespaces, %d controllers, %d pods",
		cs.Nodes, cs.Namespaces, cs.Controllers, cs.Pods))

	t := cs.Results.Totals
	b.WriteString(sectionStyle.Render("Checks"))
	b.WriteString("\n")
	b.WriteString(bar([]segment{
		{t.Successes, passColor}, {t.Warnings, warnColor}, {t.Errors, errorColor},
	}))
	b.WriteString("\n")
	count(&b, "Passing", t.Successes, passColor)
	count(&b, "Warnings", t.Warnings, warnColor)
	count(&b, "Errors", t.Errors, errorColor)

	s := sum.ScanResults
	b.WriteString(sectionStyle.Render("Image scans"))
	b.WriteString("\n")
	b.WriteString(bar([]segment{
		{s.NoData, noDataColor}, {s.Successes, passColor}, {s.Warnings, warnColor}, {s.Errors, errorColor},
	}))
	b.WriteString("\n")
	count(&b, "No Data", s.NoData, noDataColor)
	count(&b, "Passing", s.Successes, passColor)
	count(&b, "Warnings", s.Warnings, warnColor)
	count(&b, "Errors", s.Errors, errorColor)

	if len(cs.Results.ByCategory) > 0 {
		b.WriteString(sectionStyle.Render("Categories"))
		b.WriteString("\n")
		names := make([]string, 0, len(cs.Results.ByCategory))
		for name := range cs.Results.ByCategory {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			c := cs.Results.ByCategory[name]
			row(&b, name, fmt.Sprintf("%d%%  (%d passing, %d warnings, %d errors)",
				c.Score(), c.Successes, c.Warnings, c.Errors))
		}
	}
	return b.String()
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

func count(b *strings.Builder, label string, n uint, color lipgloss.Color) {
	b.WriteString(labelStyle.Render(label))
	b.WriteString(lipgloss.NewStyle().Foreground(color).Bold(true).Render(fmt.Sprint(n)))
	b.WriteString("\n")
}

type segment struct {
	n     uint
	color lipgloss.Color
}

// bar draws one proportional block per segment, barWidth cells wide in
// total. Rounding slack goes to the largest segment.
func bar(segs []segment) string {
	var total uint
	largest := 0
	for i, s := range segs {
		total += s.n
		if s.n > segs[largest].n {
			largest = i
		}
	}
	if total == 0 {
		return lipgloss.NewStyle().Foreground(mutedColor).Render(strings.Repeat("░", barWidth))
	}
	widths := make([]int, len(segs))
	used := 0
	for i, s := range segs {
		widths[i] = int(s.n * barWidth / total)
		used += widths[i]
	}
	widths[largest] += barWidth - used

	var b strings.Builder
	for i, s := range segs {
		if widths[i] == 0 {
			continue
		}
		b.WriteString(lipgloss.NewStyle().Foreground(s.color).Render(strings.Repeat("█", widths[i])))
	}
	return b.String()
}
