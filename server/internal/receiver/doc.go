// Package receiver accepts audit summaries from scanboard-agent instances and
// from the audit pipeline directly.
//
// Receiver serves POST /api/v1/audits. The body is a JSON or YAML
// AuditSummary limited to 1 MiB; decode failures answer 400, throttled
// uploads 429. Accepted summaries are finalized, stored, evaluated against
// the alert rules, and published as metrics. Authentication is enforced
// upstream by the auth middleware.
//
// WatchFile feeds a results file on disk through the same path, once at
// startup and again whenever the file changes.
package receiver
