// Package dashboard renders the HTML overview page.
//
// GET / shows the most recently updated cluster and GET /clusters/{id} a
// specific one. Each page holds the two doughnut canvases (clusterScoreChart
// and scanResultsChart) followed by the script charts.Initialize produces
// through a ScriptRenderer. When nothing has been uploaded yet an empty-state
// page is served instead.
//
// Templates are embedded and executed with html/template, the sprig function
// library, and the grade and weather helpers in funcs.go.
package dashboard
