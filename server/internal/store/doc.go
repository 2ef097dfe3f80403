// Package store keeps the latest audit summary per cluster in memory. Entries
// are keyed by AuditSummary.Key and evicted once they have not been refreshed
// within the configured TTL.
package store
