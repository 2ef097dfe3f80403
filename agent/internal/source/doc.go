// Package source loads audit summaries for the agent.
//
// New(config.Source) returns a Source for one of three types:
//   - file: a JSON or YAML results file read from disk
//   - http: a results document fetched over HTTP(S)
//   - prometheus: a text exposition whose scanboard_cluster_checks and
//     scanboard_image_scans gauges are folded back into a summary
//
// HTTP-backed sources share one client per source. Authentication (mTLS,
// API key, bearer, basic) is applied by authRoundTripper. Every loaded
// summary is stamped with the source id, type and display name, and
// finalized so its totals and score are populated.
package source
