package api

import (
	"github.com/scanboard/scanboard/pkg/types"
	"github.com/scanboard/scanboard/server/internal/charts"
)

// ClusterResponse is one cluster entry in GET /api/v1/clusters.
type ClusterResponse struct {
	Cluster     string             `json:"cluster"`
	ID          string             `json:"id"`
	Score       uint               `json:"score"`
	Grade       string             `json:"grade"`
	State       string             `json:"state"`
	Totals      types.CountSummary `json:"totals"`
	ScanResults types.ScanCounts   `json:"scan_results"`
	ImageScore  uint               `json:"image_score"`
	AlertCount  int                `json:"alert_count"`
	AuditTime   string             `json:"audit_time"` // RFC3339
	LastSeen    string             `json:"last_seen"`  // RFC3339
}

// ClusterDetailResponse is the payload for GET /api/v1/clusters/{id}.
type ClusterDetailResponse struct {
	ClusterResponse
	Summary     *types.AuditSummary `json:"summary"`
	Diagnostics []DiagnosticHint    `json:"diagnostics"`
}

// ChartsResponse is the payload for GET /api/v1/clusters/{id}/charts.
type ChartsResponse struct {
	Cluster string               `json:"cluster"`
	Charts  []charts.JSPlacement `json:"charts"`
}

// OverviewResponse is the payload for GET /api/v1/overview.
type OverviewResponse struct {
	ClusterCount int                `json:"cluster_count"`
	AverageScore float64            `json:"average_score"`
	Grade        string             `json:"grade"`
	State        string             `json:"state"`
	Totals       types.CountSummary `json:"totals"`
	ScanResults  types.ScanCounts   `json:"scan_results"`
	AlertCount   int                `json:"alert_count"`
	GeneratedAt  string             `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
