package charts

import (
	"fmt"

	"github.com/scanboard/scanboard/pkg/types"
)

// Renderer draws a chart into a named target. Implementations own every
// rendering concern, including what a missing target means.
type Renderer interface {
	Render(targetID string, cfg ChartConfig) error
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(targetID string, cfg ChartConfig) error

// Render calls f(targetID, cfg).
func (f RendererFunc) Render(targetID string, cfg ChartConfig) error {
	return f(targetID, cfg)
}

// Initialize renders the cluster score chart and then the scan results chart.
// It runs once per page; the caller guarantees that both targets exist and
// that summary is fully populated. The first render error stops
// initialization and is returned.
func Initialize(summary types.AuditSummary, r Renderer) error {
	for _, p := range BuildAll(summary) {
		if err := r.Render(p.Target, p.Config); err != nil {
			return fmt.Errorf("render %s: %w", p.Target, err)
		}
	}
	return nil
}
