package charts

import (
	"fmt"

	"github.com/scanboard/scanboard/pkg/types"
)

// TypeDoughnut is the only chart type the dashboard draws.
const TypeDoughnut = "doughnut"

// Render target ids. They must match canvas ids in the dashboard page.
const (
	ClusterScoreTarget = "clusterScoreChart"
	ScanResultsTarget  = "scanResultsChart"
)

// Palette shared by both charts.
const (
	ColorNoData  Color = "#ACB7BF"
	ColorPassing Color = "#8BD2DC"
	ColorWarning Color = "#f26c21"
	ColorError   Color = "#a11f4c"
)

const cutoutPercentage = 60

// Color is a CSS color string.
type Color string

// DisplayOptions are the non-interactive presentation settings of a chart.
type DisplayOptions struct {
	Responsive       bool `json:"responsive"`
	CutoutPercentage int  `json:"cutoutPercentage"`
	LegendVisible    bool `json:"legendVisible"`
}

// ChartConfig is one chart ready to hand to a Renderer. Labels, Values and
// Colors are positionally aligned.
type ChartConfig struct {
	Type    string         `json:"type"`
	Labels  []string       `json:"labels"`
	Values  []uint         `json:"values"`
	Colors  []Color        `json:"colors"`
	Display DisplayOptions `json:"display"`
}

// Validate reports whether the config is internally consistent.
func (c ChartConfig) Validate() error {
	if len(c.Labels) != len(c.Values) || len(c.Labels) != len(c.Colors) {
		return fmt.Errorf("chart %s: %d labels, %d values, %d colors",
			c.Type, len(c.Labels), len(c.Values), len(c.Colors))
	}
	if c.Display.CutoutPercentage < 0 || c.Display.CutoutPercentage > 100 {
		return fmt.Errorf("chart %s: cutout %d%% out of range [0, 100]", c.Type, c.Display.CutoutPercentage)
	}
	return nil
}

// BuildClusterScoreChart shapes the check totals as a three-slice doughnut:
// Passing, Warnings, Errors.
func BuildClusterScoreChart(summary types.AuditSummary) ChartConfig {
	t := summary.ClusterSummary.Results.Totals
	return ChartConfig{
		Type:    TypeDoughnut,
		Labels:  []string{"Passing", "Warnings", "Errors"},
		Values:  []uint{t.Successes, t.Warnings, t.Errors},
		Colors:  []Color{ColorPassing, ColorWarning, ColorError},
		Display: staticDisplay(),
	}
}

// BuildScanResultsChart shapes the image scan counts as a four-slice doughnut:
// No Data, Passing, Warnings, Errors.
func BuildScanResultsChart(summary types.AuditSummary) ChartConfig {
	s := summary.ScanResults
	return ChartConfig{
		Type:    TypeDoughnut,
		Labels:  []string{"No Data", "Passing", "Warnings", "Errors"},
		Values:  []uint{s.NoData, s.Successes, s.Warnings, s.Errors},
		Colors:  []Color{ColorNoData, ColorPassing, ColorWarning, ColorError},
		Display: staticDisplay(),
	}
}

func staticDisplay() DisplayOptions {
	return DisplayOptions{
		Responsive:       false,
		CutoutPercentage: cutoutPercentage,
		LegendVisible:    false,
	}
}

// Placement pairs a chart with the render target it belongs to.
type Placement struct {
	Target string      `json:"target"`
	Config ChartConfig `json:"config"`
}

// BuildAll returns both charts in render order.
func BuildAll(summary types.AuditSummary) []Placement {
	return []Placement{
		{Target: ClusterScoreTarget, Config: BuildClusterScoreChart(summary)},
		{Target: ScanResultsTarget, Config: BuildScanResultsChart(summary)},
	}
}
