package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/scanboard/scanboard/agent/internal/config"
)

const resultsJSON = `{
  "AuditTime": "2024-05-01T12:00:00Z",
  "SourceType": "Cluster",
  "SourceName": "prod",
  "ClusterSummary": {
    "Results": {"Totals": {"Successes": 10, "Warnings": 2, "Errors": 1}},
    "Nodes": 3
  },
  "ScanResults": {"NoData": 3, "Successes": 10, "Warnings": 2, "Errors": 1}
}`

const resultsYAML = `
SourceName: staging
ClusterSummary:
  Results:
    ByCategory:
      Security: {Successes: 4, Warnings: 1, Errors: 0}
      Efficiency: {Successes: 6, Warnings: 0, Errors: 1}
ScanResults:
  Successes: 5
`

func TestFileSource_JSON(t *testing.T) {
	path := writeFile(t, "results.json", resultsJSON)
	src := mustNew(t, config.Source{ID: "local", Type: config.SourceFile, Endpoint: path})

	sum, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sum.SourceName != "prod" {
		t.Errorf("SourceName = %q, want prod", sum.SourceName)
	}
	if got := sum.ClusterSummary.Results.Totals.Successes; got != 10 {
		t.Errorf("Totals.Successes = %d, want 10", got)
	}
	if got := sum.ScanResults.NoData; got != 3 {
		t.Errorf("ScanResults.NoData = %d, want 3", got)
	}
	// 20 / (20 + 2 + 2) = 83%
	if got := sum.ClusterSummary.Score; got != 83 {
		t.Errorf("Score = %d, want 83", got)
	}
}

func TestFileSource_YAMLByCategory(t *testing.T) {
	path := writeFile(t, "results.yaml", resultsYAML)
	src := mustNew(t, config.Source{ID: "local", Type: config.SourceFile, Endpoint: path})

	sum, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	tot := sum.ClusterSummary.Results.Totals
	if tot.Successes != 10 || tot.Warnings != 1 || tot.Errors != 1 {
		t.Errorf("Totals = %+v, want {10 1 1}", tot)
	}
	if sum.AuditTime.IsZero() {
		t.Error("AuditTime should be stamped when absent")
	}
	if sum.SourceType != config.SourceFile {
		t.Errorf("SourceType = %q, want %q", sum.SourceType, config.SourceFile)
	}
}

func TestFileSource_Missing(t *testing.T) {
	src := mustNew(t, config.Source{ID: "gone", Type: config.SourceFile, Endpoint: filepath.Join(t.TempDir(), "nope.json")})
	if _, err := src.Load(context.Background()); err == nil {
		t.Fatal("Load() should fail for a missing file")
	}
}

func TestDisplayNameOverride(t *testing.T) {
	path := writeFile(t, "results.json", resultsJSON)
	src := mustNew(t, config.Source{ID: "local", Type: config.SourceFile, Endpoint: path, DisplayName: "prod-eu"})

	sum, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sum.DisplayName != "prod-eu" {
		t.Errorf("DisplayName = %q, want prod-eu", sum.DisplayName)
	}
	if sum.Key() != "prod-eu" {
		t.Errorf("Key() = %q, want prod-eu", sum.Key())
	}
}

func TestHTTPSource_Auth(t *testing.T) {
	t.Setenv("TEST_AUDIT_TOKEN", "tok")
	t.Setenv("TEST_AUDIT_KEY", "key")
	t.Setenv("TEST_AUDIT_PASSWORD", "pw")

	tests := []struct {
		name  string
		auth  config.AuthConfig
		check func(r *http.Request) bool
	}{
		{"bearer", config.AuthConfig{Mode: "bearer", TokenEnv: "TEST_AUDIT_TOKEN"},
			func(r *http.Request) bool { return r.Header.Get("Authorization") == "Bearer tok" }},
		{"apikey default header", config.AuthConfig{Mode: "apikey", KeyEnv: "TEST_AUDIT_KEY"},
			func(r *http.Request) bool { return r.Header.Get("X-API-Key") == "key" }},
		{"apikey custom header", config.AuthConfig{Mode: "apikey", Header: "X-Audit", KeyEnv: "TEST_AUDIT_KEY"},
			func(r *http.Request) bool { return r.Header.Get("X-Audit") == "key" }},
		{"basic", config.AuthConfig{Mode: "basic", Username: "ops", PasswordEnv: "TEST_AUDIT_PASSWORD"},
			func(r *http.Request) bool {
				u, p, ok := r.BasicAuth()
				return ok && u == "ops" && p == "pw"
			}},
		{"none", config.AuthConfig{Mode: "none"},
			func(r *http.Request) bool { return r.Header.Get("Authorization") == "" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !tc.check(r) {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(resultsJSON))
			}))
			defer srv.Close()

			src := mustNew(t, config.Source{ID: "remote", Type: config.SourceHTTP, Endpoint: srv.URL, Auth: tc.auth})
			sum, err := src.Load(context.Background())
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if sum.ClusterSummary.Results.Totals.Errors != 1 {
				t.Errorf("Totals.Errors = %d, want 1", sum.ClusterSummary.Results.Totals.Errors)
			}
		})
	}
}

func TestHTTPSource_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := mustNew(t, config.Source{ID: "remote", Type: config.SourceHTTP, Endpoint: srv.URL})
	if _, err := src.Load(context.Background()); err == nil {
		t.Fatal("Load() should fail on 503")
	}
}

func TestHTTPSource_ConnectFailure(t *testing.T) {
	src := mustNew(t, config.Source{ID: "down", Type: config.SourceHTTP, Endpoint: "http://127.0.0.1:1"})
	if _, err := src.Load(context.Background()); err == nil {
		t.Fatal("Load() should fail when the endpoint is unreachable")
	}
}

func TestNew_Unsupported(t *testing.T) {
	if _, err := New(config.Source{ID: "x", Type: "otelcol", Endpoint: "http://localhost"}); err == nil {
		t.Fatal("New() should reject unknown source types")
	}
}

func TestNew_MTLSMissingCert(t *testing.T) {
	_, err := New(config.Source{
		ID: "secure", Type: config.SourceHTTP, Endpoint: "https://localhost",
		Auth: config.AuthConfig{Mode: "mtls", CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"},
	})
	if err == nil {
		t.Fatal("New() should fail when the client cert cannot be loaded")
	}
}

func TestNew_BadCAFile(t *testing.T) {
	ca := writeFile(t, "ca.pem", "not a certificate")
	_, err := New(config.Source{
		ID: "secure", Type: config.SourceHTTP, Endpoint: "https://localhost",
		Auth: config.AuthConfig{CAFile: ca},
	})
	if err == nil {
		t.Fatal("New() should fail when the CA file holds no certificates")
	}
}

func mustNew(t *testing.T, cfg config.Source) Source {
	t.Helper()
	src, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return src
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
