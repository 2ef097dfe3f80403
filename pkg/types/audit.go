package types

import "time"

// DefaultKey is the store key used when a summary carries no name at all.
const DefaultKey = "default"

// AuditSummary is the result of one audit run as produced by the upstream
// audit pipeline. Absent fields decode to zero.
type AuditSummary struct {
	AuditTime      time.Time      `json:"AuditTime"`
	SourceType     string         `json:"SourceType,omitempty"`
	SourceName     string         `json:"SourceName,omitempty"`
	DisplayName    string         `json:"DisplayName,omitempty"`
	ClusterSummary ClusterSummary `json:"ClusterSummary"`
	ScanResults    ScanCounts     `json:"ScanResults"`
}

// ClusterSummary describes the configuration checks run against a cluster.
type ClusterSummary struct {
	Results     ResultSummary `json:"Results"`
	Version     string        `json:"Version,omitempty"`
	Nodes       uint          `json:"Nodes"`
	Pods        uint          `json:"Pods"`
	Namespaces  uint          `json:"Namespaces"`
	Controllers uint          `json:"Controllers"`
	Score       uint          `json:"Score"`
}

// ResultSummary holds the check counts overall and per category.
type ResultSummary struct {
	Totals     CountSummary            `json:"Totals"`
	ByCategory map[string]CountSummary `json:"ByCategory,omitempty"`
}

// CountSummary counts check outcomes.
type CountSummary struct {
	Successes uint `json:"Successes"`
	Warnings  uint `json:"Warnings"`
	Errors    uint `json:"Errors"`
}

// Total returns the number of checks counted.
func (c CountSummary) Total() uint {
	return c.Successes + c.Warnings + c.Errors
}

// Add returns the element-wise sum of c and o.
func (c CountSummary) Add(o CountSummary) CountSummary {
	return CountSummary{
		Successes: c.Successes + o.Successes,
		Warnings:  c.Warnings + o.Warnings,
		Errors:    c.Errors + o.Errors,
	}
}

// ScanCounts counts container image scan outcomes. NoData covers images the
// scanner has not reported on yet.
type ScanCounts struct {
	NoData    uint `json:"NoData"`
	Successes uint `json:"Successes"`
	Warnings  uint `json:"Warnings"`
	Errors    uint `json:"Errors"`
}

// Total returns the number of images counted, including those without data.
func (s ScanCounts) Total() uint {
	return s.NoData + s.Successes + s.Warnings + s.Errors
}

// Key identifies the cluster a summary belongs to.
func (a *AuditSummary) Key() string {
	switch {
	case a.DisplayName != "":
		return a.DisplayName
	case a.SourceName != "":
		return a.SourceName
	default:
		return DefaultKey
	}
}

// Finalize fills derived fields the upstream pipeline may have left empty:
// Totals are summed from ByCategory when absent, and Score is computed when
// zero and there is at least one result.
func (a *AuditSummary) Finalize() {
	res := &a.ClusterSummary.Results
	if res.Totals.Total() == 0 && len(res.ByCategory) > 0 {
		var sum CountSummary
		for _, c := range res.ByCategory {
			sum = sum.Add(c)
		}
		res.Totals = sum
	}
	if a.ClusterSummary.Score == 0 {
		a.ClusterSummary.Score = res.Totals.Score()
	}
}
