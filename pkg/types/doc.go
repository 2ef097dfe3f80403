// Package types defines shared Go types used by both the agent and server.
// AuditSummary is the canonical in-memory representation of one cluster audit;
// its JSON field names follow the audit pipeline's output so result files and
// HTTP payloads decode without translation.
package types
