// Package charts shapes the dashboard's doughnut charts from an audit summary.
//
// BuildClusterScoreChart and BuildScanResultsChart are pure: each call returns
// a freshly allocated ChartConfig, so callers may modify the result freely.
//
// Initialize is the page entry point. The host calls it once both render
// targets (clusterScoreChart, scanResultsChart) exist and the summary is
// available; it hands each config to the injected Renderer in that order and
// returns the first render error unchanged apart from the target id.
//
// ScriptRenderer emits Chart.js constructor calls for embedding in the
// dashboard page. Collector keeps the Chart.js objects for JSON clients.
package charts
