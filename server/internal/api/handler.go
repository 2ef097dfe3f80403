package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/scanboard/scanboard/pkg/types"
	"github.com/scanboard/scanboard/server/internal/alerts"
	"github.com/scanboard/scanboard/server/internal/charts"
	"github.com/scanboard/scanboard/server/internal/store"
)

// AlertSource is the part of the alert engine the API reads.
type AlertSource interface {
	Active() []*alerts.Alert
	Firing(cluster string) int
}

// Handler serves the read-only REST API. It reads cluster state from the
// summary store and returns JSON responses.
type Handler struct {
	store  *store.Store
	alerts AlertSource
	router *mux.Router
	now    func() time.Time
}

// New creates a Handler wired to the given store and alert engine. al may be
// nil, in which case no alerts are reported.
func New(st *store.Store, al AlertSource) *Handler {
	h := &Handler{store: st, alerts: al, router: mux.NewRouter(), now: time.Now}
	h.Register(h.router)
	return h
}

// Register adds every API route to r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.health)
	r.HandleFunc("/results.json", h.results)
	r.HandleFunc("/api/v1/clusters", h.listClusters)
	// Cluster ids may contain slashes; the charts route must match first.
	r.HandleFunc("/api/v1/clusters/{id:.+}/charts", h.clusterCharts)
	r.HandleFunc("/api/v1/clusters/{id:.+}", h.getCluster)
	r.HandleFunc("/api/v1/overview", h.overview)
	r.HandleFunc("/api/v1/alerts", h.listAlerts)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /health, a liveness probe.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// results returns GET /results.json, the most recent summary as uploaded.
func (h *Handler) results(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	e, ok := h.store.Latest()
	if !ok {
		jsonErr(w, http.StatusNotFound, "no audit results yet")
		return
	}
	jsonResp(w, http.StatusOK, e.Summary)
}

// listClusters returns GET /api/v1/clusters, all live clusters.
func (h *Handler) listClusters(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	entries := h.store.List()
	out := make([]ClusterResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, h.toClusterResponse(e))
	}
	jsonResp(w, http.StatusOK, out)
}

// getCluster returns GET /api/v1/clusters/{id}; 404 if unknown or stale.
func (h *Handler) getCluster(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	e, ok := h.store.Get(mux.Vars(r)["id"])
	if !ok {
		jsonErr(w, http.StatusNotFound, "cluster not found")
		return
	}
	jsonResp(w, http.StatusOK, ClusterDetailResponse{
		ClusterResponse: h.toClusterResponse(e),
		Summary:         e.Summary,
		Diagnostics:     computeDiagnostics(e.Summary),
	})
}

// clusterCharts returns GET /api/v1/clusters/{id}/charts, both doughnut
// configs in Chart.js form.
func (h *Handler) clusterCharts(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	e, ok := h.store.Get(mux.Vars(r)["id"])
	if !ok {
		jsonErr(w, http.StatusNotFound, "cluster not found")
		return
	}
	placements, err := charts.ChartJSPlacements(*e.Summary)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, ChartsResponse{Cluster: e.Key, Charts: placements})
}

// overview returns GET /api/v1/overview, totals across all live clusters.
func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	entries := h.store.List()
	resp := OverviewResponse{
		ClusterCount: len(entries),
		GeneratedAt:  h.now().UTC().Format(time.RFC3339),
	}
	if h.alerts != nil {
		for _, a := range h.alerts.Active() {
			if a.State == alerts.StateFiring {
				resp.AlertCount++
			}
		}
	}
	if len(entries) == 0 {
		resp.State = "unknown"
		jsonResp(w, http.StatusOK, resp)
		return
	}

	var totalScore uint
	for _, e := range entries {
		sum := e.Summary
		totalScore += sum.ClusterSummary.Score
		resp.Totals = resp.Totals.Add(sum.ClusterSummary.Results.Totals)
		resp.ScanResults.NoData += sum.ScanResults.NoData
		resp.ScanResults.Successes += sum.ScanResults.Successes
		resp.ScanResults.Warnings += sum.ScanResults.Warnings
		resp.ScanResults.Errors += sum.ScanResults.Errors
	}
	resp.AverageScore = float64(totalScore) / float64(len(entries))
	resp.Grade = types.Grade(uint(resp.AverageScore))
	resp.State = stateFromScore(resp.AverageScore)
	jsonResp(w, http.StatusOK, resp)
}

// listAlerts returns GET /api/v1/alerts, firing and recently resolved alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// --- helpers ----------------------------------------------------------------

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// stateFromScore converts a 0-100 score to a health state string.
// Mirrors the thresholds in agent/internal/compute.
func stateFromScore(score float64) string {
	switch {
	case score >= 85:
		return "healthy"
	case score >= 60:
		return "degraded"
	default:
		return "critical"
	}
}

// toClusterResponse maps a store.Entry to its JSON representation.
func (h *Handler) toClusterResponse(e *store.Entry) ClusterResponse {
	sum := e.Summary
	resp := ClusterResponse{
		Cluster:     e.Key,
		ID:          e.ID,
		Score:       sum.ClusterSummary.Score,
		Grade:       types.Grade(sum.ClusterSummary.Score),
		State:       stateFromScore(float64(sum.ClusterSummary.Score)),
		Totals:      sum.ClusterSummary.Results.Totals,
		ScanResults: sum.ScanResults,
		ImageScore:  sum.ScanResults.Score(),
		AuditTime:   sum.AuditTime.UTC().Format(time.RFC3339),
		LastSeen:    e.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if h.alerts != nil {
		resp.AlertCount = h.alerts.Firing(e.Key)
	}
	return resp
}
