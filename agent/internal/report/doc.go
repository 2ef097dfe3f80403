// Package report renders an audit summary for the agent's audit command:
// indented JSON, YAML, the bare score, or a lipgloss-styled terminal view.
package report
