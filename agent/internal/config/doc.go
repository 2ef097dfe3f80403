// Package config loads and watches the agent configuration file (config.yaml).
//
// Only the `agent:` section is read: server_endpoint, poll/ship/resend
// intervals, buffer_size, the list of audit sources and the API key used for
// uploads. Secrets are never stored in the file; AuthConfig and
// ServerAuthConfig name environment variables that hold them.
//
// Load(path) applies defaults (30s poll, 15s ship, 5m resend, buffer 100),
// then validates required fields and enums. Watch(ctx, path, onChange)
// reloads the file on change and keeps the previous config when a reload
// fails.
package config
