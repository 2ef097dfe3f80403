// Package shipper uploads audit summaries to scanboard-server as JSON
// (POST <server_endpoint>/api/v1/audits) with the configured API key header.
//
// Shipper.Ship() is non-blocking: summaries go into an in-memory channel
// (default capacity 100). When the buffer is full the oldest entry is evicted
// so the latest results are always preserved.
//
// Shipper.Run() wakes every ship interval, coalesces buffered summaries per
// cluster and sends them. Transport errors, 429 and 5xx responses back off
// (1s→60s, ±25% jitter); other 4xx responses are reported as PermanentError
// and the summary is discarded.
//
// Shipper.Push() sends a single summary synchronously for one-shot uploads.
package shipper
