package charts

import "github.com/scanboard/scanboard/pkg/types"

// ChartJS is the Chart.js 2.x configuration object for a doughnut chart.
type ChartJS struct {
	Type    string         `json:"type"`
	Data    ChartJSData    `json:"data"`
	Options ChartJSOptions `json:"options"`
}

// ChartJSData is the data block of a Chart.js config.
type ChartJSData struct {
	Labels   []string         `json:"labels"`
	Datasets []ChartJSDataset `json:"datasets"`
}

// ChartJSDataset is a single series.
type ChartJSDataset struct {
	Data            []uint  `json:"data"`
	BackgroundColor []Color `json:"backgroundColor"`
}

// ChartJSOptions holds the display options Chart.js understands.
type ChartJSOptions struct {
	Responsive       bool          `json:"responsive"`
	CutoutPercentage int           `json:"cutoutPercentage"`
	Legend           ChartJSLegend `json:"legend"`
}

// ChartJSLegend toggles the chart legend.
type ChartJSLegend struct {
	Display bool `json:"display"`
}

// ChartJS converts c into the object passed to `new Chart(target, config)`.
func (c ChartConfig) ChartJS() ChartJS {
	return ChartJS{
		Type: c.Type,
		Data: ChartJSData{
			Labels: append([]string(nil), c.Labels...),
			Datasets: []ChartJSDataset{{
				Data:            append([]uint(nil), c.Values...),
				BackgroundColor: append([]Color(nil), c.Colors...),
			}},
		},
		Options: ChartJSOptions{
			Responsive:       c.Display.Responsive,
			CutoutPercentage: c.Display.CutoutPercentage,
			Legend:           ChartJSLegend{Display: c.Display.LegendVisible},
		},
	}
}

// JSPlacement is a chart in Chart.js form together with its render target.
type JSPlacement struct {
	Target string  `json:"target"`
	Config ChartJS `json:"config"`
}

// Collector is a Renderer that keeps the Chart.js form of every chart it is
// given, in render order. The REST API and WebSocket hub serve its contents.
type Collector struct {
	Placements []JSPlacement
}

// Render validates cfg and appends it.
func (c *Collector) Render(targetID string, cfg ChartConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.Placements = append(c.Placements, JSPlacement{Target: targetID, Config: cfg.ChartJS()})
	return nil
}

// ChartJSPlacements initializes both charts for summary into a Collector.
func ChartJSPlacements(summary types.AuditSummary) ([]JSPlacement, error) {
	var c Collector
	if err := Initialize(summary, &c); err != nil {
		return nil, err
	}
	return c.Placements, nil
}
