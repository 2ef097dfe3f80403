package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	// Agent-only file; server section absent.
	p := writeConfig(t, `agent:
  server_endpoint: "http://localhost:8080"
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Server.BasePath != DefaultBasePath {
		t.Errorf("base_path: got %q, want %q", cfg.Server.BasePath, DefaultBasePath)
	}
	if cfg.Server.Snapshot.TTL != DefaultSnapshotTTL {
		t.Errorf("snapshot.ttl: got %v, want %v", cfg.Server.Snapshot.TTL, DefaultSnapshotTTL)
	}
	if cfg.Server.Dashboard.ChartJSURL != DefaultChartJSURL {
		t.Errorf("dashboard.chartjs_url: got %q", cfg.Server.Dashboard.ChartJSURL)
	}
	if !cfg.Server.Metrics.Enabled || cfg.Server.Metrics.Path != DefaultMetricsPath {
		t.Errorf("metrics: got %+v", cfg.Server.Metrics)
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
}

func TestLoad_FullServer(t *testing.T) {
	p := writeConfig(t, `server:
  http_port: 9091
  base_path: /audit
  auth:
    mode: apikey
    key_env: MY_KEY
    header: X-Scanboard-Key
  snapshot:
    ttl: 10m
  dashboard:
    title: Prod
  cors:
    allowed_origins: ["https://ops.example.com"]
  ingest:
    rate_limit: 1.5
    burst: 3
  alerts:
    rules:
      - name: any-errors
        condition: errors > 0
        severity: critical
    webhooks:
      - type: slack
        url_env: SLACK_URL
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != 9091 {
		t.Errorf("http_port: got %d, want 9091", cfg.Server.HTTPPort)
	}
	if cfg.Server.BasePath != "/audit" {
		t.Errorf("base_path: got %q, want /audit", cfg.Server.BasePath)
	}
	if cfg.Server.Auth.EffectiveHeader() != "X-Scanboard-Key" {
		t.Errorf("header: got %q, want X-Scanboard-Key", cfg.Server.Auth.EffectiveHeader())
	}
	if cfg.Server.Snapshot.TTL != 10*time.Minute {
		t.Errorf("snapshot.ttl: got %v, want 10m", cfg.Server.Snapshot.TTL)
	}
	if cfg.Server.Dashboard.Title != "Prod" {
		t.Errorf("dashboard.title: got %q, want Prod", cfg.Server.Dashboard.Title)
	}
	if len(cfg.Server.CORS.AllowedOrigins) != 1 {
		t.Errorf("cors.allowed_origins: got %v", cfg.Server.CORS.AllowedOrigins)
	}
	if cfg.Server.Ingest.RateLimit != 1.5 || cfg.Server.Ingest.Burst != 3 {
		t.Errorf("ingest: got %+v", cfg.Server.Ingest)
	}
	if len(cfg.Server.Alerts.Rules) != 1 || cfg.Server.Alerts.Rules[0].Condition != "errors > 0" {
		t.Errorf("alerts.rules: got %+v", cfg.Server.Alerts.Rules)
	}
}

func TestLoad_DefaultHeader(t *testing.T) {
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: K
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h := cfg.Server.Auth.EffectiveHeader(); h != "X-API-Key" {
		t.Errorf("EffectiveHeader: got %q, want X-API-Key", h)
	}
}

func TestLoad_KeyEnvResolution(t *testing.T) {
	t.Setenv("TEST_SERVER_KEY", "supersecret")
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: TEST_SERVER_KEY
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if k := cfg.Server.Auth.Key(); k != "supersecret" {
		t.Errorf("Key(): got %q, want supersecret", k)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SCANBOARD_HTTP_PORT", "7070")
	t.Setenv("SCANBOARD_SNAPSHOT_TTL", "90m")
	p := writeConfig(t, `server:
  http_port: 9091
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != 7070 {
		t.Errorf("http_port: got %d, want 7070", cfg.Server.HTTPPort)
	}
	if cfg.Server.Snapshot.TTL != 90*time.Minute {
		t.Errorf("snapshot.ttl: got %v, want 90m", cfg.Server.Snapshot.TTL)
	}
}

func TestLoad_UnknownAuthMode(t *testing.T) {
	p := writeConfig(t, `server:
  auth:
    mode: oauth2
`)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for unknown auth mode, got nil")
	}
}

func TestLoad_APIKeyWithoutKeyEnv(t *testing.T) {
	p := writeConfig(t, `server:
  auth:
    mode: apikey
`)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for apikey mode without key_env, got nil")
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	p := writeConfig(t, `server:
  http_port: 70000
`)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for out-of-range port, got nil")
	}
}

func TestLoad_InvalidRule(t *testing.T) {
	p := writeConfig(t, `server:
  alerts:
    rules:
      - name: missing-condition
        severity: urgent
`)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for invalid rule, got nil")
	}
}

func TestLoad_InvalidBasePath(t *testing.T) {
	p := writeConfig(t, `server:
  base_path: audit
`)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for base_path without leading slash, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	if err := os.WriteFile(p, []byte("SCANBOARD_TEST_DOTENV=loaded\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("SCANBOARD_TEST_DOTENV") })

	n, err := LoadEnvFiles(p, filepath.Join(dir, ".env.local"))
	if err != nil {
		t.Fatalf("LoadEnvFiles: %v", err)
	}
	if n != 1 {
		t.Errorf("loaded: got %d, want 1", n)
	}
	if v := os.Getenv("SCANBOARD_TEST_DOTENV"); v != "loaded" {
		t.Errorf("env: got %q, want loaded", v)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	p := writeConfig(t, `server:
  http_port: 9000
`)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 1)
	go Watch(ctx, p, func(c *Config) { //nolint:errcheck
		select {
		case got <- c:
		default:
		}
	})

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(p, []byte("server:\n  http_port: 9001\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case c := <-got:
		if c.Server.HTTPPort != 9001 {
			t.Errorf("reloaded http_port: got %d, want 9001", c.Server.HTTPPort)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
