// Package alerts implements the rule evaluation engine and webhook delivery
// for scanboard alerting. Rules are evaluated against each uploaded audit
// summary; webhooks are delivered to Teams, Slack, or generic HTTP targets.
package alerts
