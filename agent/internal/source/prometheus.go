package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/scanboard/scanboard/pkg/types"
)

// promSource rebuilds a summary from the scanboard_* gauges of a Prometheus
// text exposition. When cluster is set only series with a matching cluster
// label are counted; otherwise every series is summed and the first cluster
// label seen names the summary.
type promSource struct {
	url     string
	cluster string
	client  *http.Client
}

func (s *promSource) Load(ctx context.Context) (*types.AuditSummary, error) {
	body, err := get(ctx, s.client, s.url, string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	if err != nil {
		return nil, err
	}
	mfs, err := parseMetrics(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	checks, hasChecks := mfs[types.MetricClusterChecks]
	scans, hasScans := mfs[types.MetricImageScans]
	if !hasChecks && !hasScans {
		return nil, fmt.Errorf("no %s or %s series found", types.MetricClusterChecks, types.MetricImageScans)
	}

	sum := &types.AuditSummary{}
	name := s.cluster

	for _, m := range checks.GetMetric() {
		cluster, ok := s.match(m)
		if !ok {
			continue
		}
		if name == "" {
			name = cluster
		}
		n := metricUint(m)
		t := &sum.ClusterSummary.Results.Totals
		switch label(m, types.LabelResult) {
		case types.ResultSuccess:
			t.Successes += n
		case types.ResultWarning:
			t.Warnings += n
		case types.ResultError:
			t.Errors += n
		}
	}

	for _, m := range scans.GetMetric() {
		cluster, ok := s.match(m)
		if !ok {
			continue
		}
		if name == "" {
			name = cluster
		}
		n := metricUint(m)
		sr := &sum.ScanResults
		switch label(m, types.LabelResult) {
		case types.ResultNoData:
			sr.NoData += n
		case types.ResultSuccess:
			sr.Successes += n
		case types.ResultWarning:
			sr.Warnings += n
		case types.ResultError:
			sr.Errors += n
		}
	}

	if s.cluster != "" {
		for _, m := range mfs[types.MetricClusterScore].GetMetric() {
			if _, ok := s.match(m); ok {
				sum.ClusterSummary.Score = metricUint(m)
				break
			}
		}
	}

	sum.SourceName = name
	return sum, nil
}

func (s *promSource) match(m *dto.Metric) (string, bool) {
	cluster := label(m, types.LabelCluster)
	return cluster, s.cluster == "" || cluster == s.cluster
}

// parseMetrics decodes a Prometheus text exposition from r into metric families.
// A partial result with a non-fatal parse warning is still returned successfully.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

func label(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// metricUint reads a gauge, counter or untyped sample as a count.
// Negative or missing values count as zero.
func metricUint(m *dto.Metric) uint {
	var v float64
	switch {
	case m.Gauge != nil:
		v = m.Gauge.GetValue()
	case m.Counter != nil:
		v = m.Counter.GetValue()
	case m.Untyped != nil:
		v = m.Untyped.GetValue()
	}
	if v <= 0 {
		return 0
	}
	return uint(v + 0.5)
}
