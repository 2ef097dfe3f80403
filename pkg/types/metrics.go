package types

// Prometheus metric names shared by the server's exporter and the agent's
// prometheus source. Both gauges carry a "result" label whose values are the
// Result* constants.
const (
	MetricClusterChecks = "scanboard_cluster_checks"
	MetricImageScans    = "scanboard_image_scans"
	MetricClusterScore  = "scanboard_cluster_score"

	LabelCluster = "cluster"
	LabelResult  = "result"

	ResultSuccess = "success"
	ResultWarning = "warning"
	ResultError   = "error"
	ResultNoData  = "nodata"
)
