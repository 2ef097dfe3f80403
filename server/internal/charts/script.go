package charts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
)

// ScriptRenderer records Chart.js constructor calls as JavaScript source.
// It is not safe for concurrent use; build one per page render.
type ScriptRenderer struct {
	buf bytes.Buffer
	n   int
}

// Render appends `new Chart("<targetID>", <config>);` for cfg.
func (s *ScriptRenderer) Render(targetID string, cfg ChartConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	conf, err := json.Marshal(cfg.ChartJS())
	if err != nil {
		return fmt.Errorf("encode chart config: %w", err)
	}
	id, err := json.Marshal(targetID)
	if err != nil {
		return fmt.Errorf("encode target id: %w", err)
	}
	fmt.Fprintf(&s.buf, "  new Chart(%s, %s);\n", id, conf)
	s.n++
	return nil
}

// Len returns the number of charts rendered so far.
func (s *ScriptRenderer) Len() int { return s.n }

// Script returns the recorded calls wrapped in a DOMContentLoaded listener,
// ready to be placed in a <script> element after the canvases.
func (s *ScriptRenderer) Script() template.JS {
	if s.n == 0 {
		return ""
	}
	return template.JS("document.addEventListener(\"DOMContentLoaded\", function () {\n" +
		s.buf.String() + "});\n")
}
