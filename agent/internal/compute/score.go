package compute

import "github.com/scanboard/scanboard/pkg/types"

// State constants returned by the engine.
const (
	StateHealthy  = "healthy"
	StateDegraded = "degraded"
	StateCritical = "critical"
	StateUnknown  = "unknown"
)

// Thresholds that map a score to a health state.
const (
	ThresholdHealthy  = 85
	ThresholdDegraded = 60
)

// State derives the health state of a summary. A summary without any check
// results is unknown; otherwise the cluster score decides.
func State(sum *types.AuditSummary) string {
	if sum == nil || sum.ClusterSummary.Results.Totals.Total() == 0 {
		return StateUnknown
	}
	return stateFromScore(Score(sum))
}

// Score returns the upstream score when set, else the one computed from totals.
func Score(sum *types.AuditSummary) uint {
	if sum.ClusterSummary.Score > 0 {
		return sum.ClusterSummary.Score
	}
	return sum.ClusterSummary.Results.Totals.Score()
}

// stateFromScore maps a numeric score to a named health state.
func stateFromScore(score uint) string {
	switch {
	case score >= ThresholdHealthy:
		return StateHealthy
	case score >= ThresholdDegraded:
		return StateDegraded
	default:
		return StateCritical
	}
}
