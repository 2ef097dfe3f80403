// Package api implements the read-only HTTP REST API for scanboard-server.
//
// New(store, alerts) returns a Handler that serves:
//
//	GET /health                        liveness probe, plain "OK"
//	GET /results.json                  latest uploaded summary; 404 when empty
//	GET /api/v1/clusters               all live clusters ([]ClusterResponse)
//	GET /api/v1/clusters/{id}          one cluster with diagnostics; 404 if unknown or stale
//	GET /api/v1/clusters/{id}/charts   both doughnut charts in Chart.js form
//	GET /api/v1/overview               totals and average score across clusters
//	GET /api/v1/alerts                 firing and recently resolved alerts
//
// All JSON endpoints return 405 with a JSON body for methods other than GET
// and HEAD, and read only live entries from the store. Register mounts the
// same routes on an existing gorilla/mux router.
package api
