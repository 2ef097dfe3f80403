// Package metrics exports the stored audit summaries as Prometheus gauges on
// a private registry, plus a counter of upload outcomes.
package metrics
