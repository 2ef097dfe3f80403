// Package compute derives health information from loaded audit summaries.
//
// score.go maps a summary to a health state: healthy at a score of 85 or
// more, degraded from 60, critical below, unknown when there are no results.
//
// engine.go keeps per-source state across polls. Engine.Process reports the
// score, grade and state of a poll, the change in errors and warnings since
// the previous successful poll, whether anything changed, and whether the
// summary is due for shipping. It takes the current time as an argument so
// tests are deterministic.
package compute
