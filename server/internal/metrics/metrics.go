package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scanboard/scanboard/pkg/types"
)

// Ingest outcomes for scanboard_ingest_total.
const (
	IngestAccepted     = "accepted"
	IngestRejected     = "rejected"
	IngestUnauthorized = "unauthorized"
	IngestThrottled    = "throttled"
)

// Recorder owns the scanboard collectors. It is safe for concurrent use.
type Recorder struct {
	registry *prometheus.Registry

	clusterChecks *prometheus.GaugeVec
	imageScans    *prometheus.GaugeVec
	clusterScore  *prometheus.GaugeVec
	ingestTotal   *prometheus.CounterVec
}

// New creates a Recorder with its own registry, so tests and multiple servers
// in one process never collide on the default registerer.
func New() (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		clusterChecks: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: types.MetricClusterChecks,
				Help: "Configuration checks in the latest audit, by outcome.",
			},
			[]string{types.LabelCluster, types.LabelResult},
		),
		imageScans: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: types.MetricImageScans,
				Help: "Container images in the latest audit, by scan outcome.",
			},
			[]string{types.LabelCluster, types.LabelResult},
		),
		clusterScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: types.MetricClusterScore,
				Help: "Cluster audit score from 0 to 100.",
			},
			[]string{types.LabelCluster},
		),
		ingestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanboard_ingest_total",
				Help: "Audit uploads received, by outcome.",
			},
			[]string{"status"},
		),
	}

	all := []prometheus.Collector{
		r.clusterChecks,
		r.imageScans,
		r.clusterScore,
		r.ingestTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range all {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}
	return r, nil
}

// Observe publishes the counts of sum under its cluster key.
func (r *Recorder) Observe(sum *types.AuditSummary) {
	cluster := sum.Key()
	totals := sum.ClusterSummary.Results.Totals
	scans := sum.ScanResults

	r.clusterChecks.WithLabelValues(cluster, types.ResultSuccess).Set(float64(totals.Successes))
	r.clusterChecks.WithLabelValues(cluster, types.ResultWarning).Set(float64(totals.Warnings))
	r.clusterChecks.WithLabelValues(cluster, types.ResultError).Set(float64(totals.Errors))

	r.imageScans.WithLabelValues(cluster, types.ResultNoData).Set(float64(scans.NoData))
	r.imageScans.WithLabelValues(cluster, types.ResultSuccess).Set(float64(scans.Successes))
	r.imageScans.WithLabelValues(cluster, types.ResultWarning).Set(float64(scans.Warnings))
	r.imageScans.WithLabelValues(cluster, types.ResultError).Set(float64(scans.Errors))

	r.clusterScore.WithLabelValues(cluster).Set(float64(sum.ClusterSummary.Score))
}

// Forget removes every series for cluster.
func (r *Recorder) Forget(cluster string) {
	match := prometheus.Labels{types.LabelCluster: cluster}
	r.clusterChecks.DeletePartialMatch(match)
	r.imageScans.DeletePartialMatch(match)
	r.clusterScore.DeletePartialMatch(match)
}

// Ingest counts one upload with the given outcome.
func (r *Recorder) Ingest(status string) {
	r.ingestTotal.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer exposes the registry for tests and embedding.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.registry }
