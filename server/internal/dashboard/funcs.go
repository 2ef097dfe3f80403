package dashboard

import (
	"html/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/scanboard/scanboard/pkg/types"
)

// funcMap returns sprig's functions plus the dashboard helpers. Helpers win
// on name collisions.
func funcMap() template.FuncMap {
	fm := sprig.FuncMap()
	for name, fn := range (template.FuncMap{
		"grade":        types.Grade,
		"weatherIcon":  weatherIcon,
		"weatherText":  weatherText,
		"successWidth": successWidth,
		"warningWidth": warningWidth,
		"scanScore":    func(s types.ScanCounts) uint { return s.Score() },
		"checkTotal":   func(c types.CountSummary) uint { return c.Total() },
		"scanTotal":    func(s types.ScanCounts) uint { return s.Total() },
	}) {
		fm[name] = fn
	}
	return fm
}

// weatherIcon maps a score to a Font Awesome weather icon.
func weatherIcon(score uint) string {
	switch {
	case score >= 90:
		return "fa-sun"
	case score >= 80:
		return "fa-cloud-sun"
	case score >= 70:
		return "fa-cloud-sun-rain"
	case score >= 60:
		return "fa-cloud-rain"
	default:
		return "fa-cloud-showers-heavy"
	}
}

// weatherText describes a score in one phrase.
func weatherText(score uint) string {
	switch {
	case score >= 90:
		return "Smooth sailing"
	case score >= 80:
		return "Mostly smooth sailing"
	case score >= 70:
		return "Choppy waters"
	case score >= 60:
		return "Storms likely"
	default:
		return "Storm warning"
	}
}

// successWidth is the pixel width of the passing part of a bar fullWidth wide.
func successWidth(c types.CountSummary, fullWidth int) int {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return int(float64(c.Successes) / float64(total) * float64(fullWidth))
}

// warningWidth is the pixel width of the passing and warning parts together,
// so the error part fills the remainder.
func warningWidth(c types.CountSummary, fullWidth int) int {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return int(float64(c.Successes+c.Warnings) / float64(total) * float64(fullWidth))
}
