package api

import (
	"fmt"
	"sort"

	"github.com/scanboard/scanboard/pkg/types"
)

// DiagnosticHint is one human-readable insight about a cluster's audit.
// The dashboard shows these as chips next to the charts; Detail is the
// longer explanation shown on hover.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip.
	Title string `json:"title"`
	// Detail is the full explanation.
	Detail string `json:"detail"`
	// Value is an optional number associated with this hint (e.g. error count).
	Value *float64 `json:"value,omitempty"`
}

var levelRank = map[string]int{"critical": 0, "warning": 1, "info": 2, "ok": 3}

// computeDiagnostics derives diagnostic hints from a summary.
// Diagnostics are ordered: critical first, then warnings, then info.
func computeDiagnostics(sum *types.AuditSummary) []DiagnosticHint {
	var hints []DiagnosticHint
	totals := sum.ClusterSummary.Results.Totals
	scans := sum.ScanResults

	// ── Nothing checked ──────────────────────────────────────────────────────
	if totals.Total() == 0 && scans.Total() == 0 {
		return []DiagnosticHint{{
			Key:   "empty",
			Level: "info",
			Title: "No results",
			Detail: "The uploaded audit contains no check or scan results. " +
				"Make sure the audit ran against the right cluster and that " +
				"the agent is reading the current results file.",
		}}
	}

	// ── Failing checks ───────────────────────────────────────────────────────
	if totals.Errors > 0 {
		v := float64(totals.Errors)
		hints = append(hints, DiagnosticHint{
			Key:   "check_errors",
			Level: "critical",
			Title: fmt.Sprintf("%d failing checks", totals.Errors),
			Detail: fmt.Sprintf(
				"%d of %d configuration checks failed at danger level. "+
					"Each one costs twice as much score as a warning; fixing them "+
					"first moves the grade fastest.",
				totals.Errors, totals.Total()),
			Value: &v,
		})
	}
	if totals.Warnings > 0 {
		v := float64(totals.Warnings)
		hints = append(hints, DiagnosticHint{
			Key:   "check_warnings",
			Level: "warning",
			Title: fmt.Sprintf("%d warnings", totals.Warnings),
			Detail: fmt.Sprintf(
				"%d checks raised warnings. These are usually missing resource "+
					"limits, probes, or security context settings.",
				totals.Warnings),
			Value: &v,
		})
	}

	// ── Worst category ───────────────────────────────────────────────────────
	if cat, c, ok := worstCategory(sum.ClusterSummary.Results.ByCategory); ok {
		v := float64(c.Errors)
		hints = append(hints, DiagnosticHint{
			Key:   "category_" + cat,
			Level: "info",
			Title: fmt.Sprintf("Start with %s", cat),
			Detail: fmt.Sprintf(
				"The %s category has the most failing checks (%d errors, %d warnings).",
				cat, c.Errors, c.Warnings),
			Value: &v,
		})
	}

	// ── Image scans ──────────────────────────────────────────────────────────
	if scans.Errors > 0 {
		v := float64(scans.Errors)
		hints = append(hints, DiagnosticHint{
			Key:   "scan_errors",
			Level: "critical",
			Title: fmt.Sprintf("%d vulnerable images", scans.Errors),
			Detail: fmt.Sprintf(
				"%d container images have high severity findings. "+
					"Rebuild them on a patched base image.",
				scans.Errors),
			Value: &v,
		})
	}
	if scans.NoData > 0 {
		v := float64(scans.NoData)
		hints = append(hints, DiagnosticHint{
			Key:   "scan_nodata",
			Level: "info",
			Title: fmt.Sprintf("%d images unscanned", scans.NoData),
			Detail: fmt.Sprintf(
				"The scanner has not reported on %d images yet. "+
					"They are excluded from the image score until it does.",
				scans.NoData),
			Value: &v,
		})
	}

	// ── All clear ─────────────────────────────────────────────────────────────
	if len(hints) == 0 {
		score := float64(sum.ClusterSummary.Score)
		hints = append(hints, DiagnosticHint{
			Key:   "healthy",
			Level: "ok",
			Title: "All clear",
			Detail: fmt.Sprintf(
				"Every check passed and no scanned image has findings. Score %.0f/100.",
				score),
			Value: &score,
		})
	}

	sort.SliceStable(hints, func(i, j int) bool {
		return levelRank[hints[i].Level] < levelRank[hints[j].Level]
	})
	return hints
}

// worstCategory returns the category with the most errors, then warnings.
// Categories without problems are ignored.
func worstCategory(byCat map[string]types.CountSummary) (string, types.CountSummary, bool) {
	var (
		name  string
		worst types.CountSummary
		found bool
	)
	for cat, c := range byCat {
		if c.Errors == 0 && c.Warnings == 0 {
			continue
		}
		better := !found ||
			c.Errors > worst.Errors ||
			(c.Errors == worst.Errors && c.Warnings > worst.Warnings) ||
			(c.Errors == worst.Errors && c.Warnings == worst.Warnings && cat < name)
		if better {
			name, worst, found = cat, c, true
		}
	}
	return name, worst, found
}
