// Package config loads the server-side configuration from the `server:` section
// of config.yaml (the `agent:` key is ignored by the server binary).
//
// Config fields:
//   - HTTPPort      : port for the dashboard, REST API and WebSocket hub (default 8080)
//   - BasePath      : URL prefix for every route (default "/")
//   - Auth.Mode     : "apikey" or "none"; guards audit uploads only
//   - Auth.KeyEnv   : environment variable holding the expected API key
//   - Auth.Header   : HTTP header name (default "X-API-Key")
//   - Snapshot.TTL  : how long a cluster summary remains live (default 24h)
//   - Alerts        : rules and webhooks, hot-reloaded by Watch
//   - Dashboard     : Chart.js URL and page title
//   - CORS, Ingest, Metrics: API origins, upload rate limit, /metrics toggle
//
// Load(path) applies defaults, unmarshals the file, applies SCANBOARD_*
// environment overrides, then validates. LoadEnvFiles reads optional .env files
// first so overrides can live next to the binary.
package config
