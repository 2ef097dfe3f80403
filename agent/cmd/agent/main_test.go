package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanboard/scanboard/agent/internal/config"
	"github.com/scanboard/scanboard/pkg/types"
)

const resultsJSON = `{
  "SourceName": "prod",
  "ClusterSummary": {"Results": {"Totals": {"Successes": 10, "Warnings": 2, "Errors": 1}}},
  "ScanResults": {"NoData": 3, "Successes": 10, "Warnings": 2, "Errors": 1}
}`

func writeResults(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAudit_JSON(t *testing.T) {
	path := writeResults(t, resultsJSON)
	out, err := execute(t, "audit", "--input", path)
	require.NoError(t, err)

	var sum types.AuditSummary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, "prod", sum.Key())
	assert.Equal(t, uint(83), sum.ClusterSummary.Score)
}

func TestAudit_ScoreAndDisplayName(t *testing.T) {
	path := writeResults(t, resultsJSON)
	out, err := execute(t, "audit", "--input", path, "--output-format", "score")
	require.NoError(t, err)
	assert.Equal(t, "83\n", out)

	out, err = execute(t, "audit", "--input", path, "--output-format", "text", "--display-name", "prod-eu")
	require.NoError(t, err)
	assert.Contains(t, out, "scanboard audit: prod-eu")
}

func TestAudit_ExitCodes(t *testing.T) {
	path := writeResults(t, resultsJSON)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"clean", []string{"--output-format", "score"}, exitOK},
		{"errors present", []string{"--set-exit-code-on-error"}, exitAuditError},
		{"below score", []string{"--set-exit-code-below-score", "90"}, exitLowScore},
		{"at score", []string{"--set-exit-code-below-score", "83"}, exitOK},
		{"bad format", []string{"--output-format", "xml"}, exitUsage},
		{"score out of range", []string{"--set-exit-code-below-score", "101"}, exitUsage},
		{"unknown input type", []string{"--input-type", "otelcol"}, exitUsage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"audit", "--input", path}, tc.args...)
			_, err := execute(t, args...)
			assert.Equal(t, tc.want, exitCode(err), "err = %v", err)
		})
	}
}

func TestAudit_MissingInput(t *testing.T) {
	_, err := execute(t, "audit", "--input", filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))

	_, err = execute(t, "audit")
	require.Error(t, err, "--input is required")
}

func TestAudit_OutputFile(t *testing.T) {
	path := writeResults(t, resultsJSON)
	dest := filepath.Join(t.TempDir(), "report.yaml")

	out, err := execute(t, "audit", "--input", path, "--output-format", "yaml", "--output-file", dest)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "SourceName: prod")
}

func TestAudit_OutputURL(t *testing.T) {
	t.Setenv("TEST_SCANBOARD_KEY", "secret")

	var (
		mu   sync.Mutex
		got  types.AuditSummary
		key  string
		hits int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		hits++
		key = r.Header.Get("X-API-Key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	path := writeResults(t, resultsJSON)
	_, err := execute(t, "audit", "--input", path, "--output-format", "score",
		"--output-url", srv.URL, "--api-key-env", "TEST_SCANBOARD_KEY")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, hits)
	assert.Equal(t, "secret", key)
	assert.Equal(t, "prod", got.Key())
}

func TestAudit_HTTPInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(resultsJSON))
	}))
	defer srv.Close()

	out, err := execute(t, "audit", "--input", srv.URL+"/results.json", "--output-format", "score")
	require.NoError(t, err)
	assert.Equal(t, "83\n", out)
}

func TestInputType(t *testing.T) {
	assert.Equal(t, config.SourceHTTP, inputType("https://example.com/results.json", ""))
	assert.Equal(t, config.SourceFile, inputType("results.json", ""))
	assert.Equal(t, config.SourceFile, inputType("/abs/results.json", ""))
	assert.Equal(t, config.SourcePrometheus, inputType("http://localhost/metrics", config.SourcePrometheus))
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "scanboard-agent "))
}

func TestLogLevel_Invalid(t *testing.T) {
	_, err := execute(t, "--log-level", "loud", "version")
	assert.Equal(t, exitUsage, exitCode(err))
}

type recordingSink struct {
	mu   sync.Mutex
	sums []*types.AuditSummary
}

func (s *recordingSink) Ship(sum *types.AuditSummary) {
	s.mu.Lock()
	s.sums = append(s.sums, sum)
	s.mu.Unlock()
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sums)
}

func TestRunner_ShipsOnChange(t *testing.T) {
	path := writeResults(t, resultsJSON)
	sink := &recordingSink{}
	r := newRunner(0, sink)
	r.apply([]config.Source{{ID: "local", Type: config.SourceFile, Endpoint: path}})

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	res := r.poll(context.Background(), base)
	require.Len(t, res, 1)
	assert.True(t, res[0].Changed)
	assert.Equal(t, 1, sink.count())

	r.poll(context.Background(), base.Add(time.Minute))
	assert.Equal(t, 1, sink.count(), "unchanged summary is not shipped again")

	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(resultsJSON, `"Errors": 1}}}`, `"Errors": 4}}}`, 1)), 0o600))
	res = r.poll(context.Background(), base.Add(2*time.Minute))
	assert.Equal(t, 3, res[0].ErrorsDelta)
	assert.Equal(t, 2, sink.count())
}

func TestRunner_ApplyReplacesSources(t *testing.T) {
	path := writeResults(t, resultsJSON)
	sink := &recordingSink{}
	r := newRunner(0, sink)

	r.apply([]config.Source{
		{ID: "a", Type: config.SourceFile, Endpoint: path},
		{ID: "broken", Type: "otelcol", Endpoint: path},
	})
	require.Len(t, r.poll(context.Background(), time.Now()), 1, "unbuildable sources are skipped")

	r.apply([]config.Source{{ID: "b", Type: config.SourceFile, Endpoint: path, DisplayName: "other"}})
	res := r.poll(context.Background(), time.Now())
	require.Len(t, res, 1)
	assert.Equal(t, "b", res[0].SourceID)
	assert.Equal(t, "other", res[0].Summary.Key())

	// Re-adding a removed source starts it from scratch.
	r.apply([]config.Source{{ID: "a", Type: config.SourceFile, Endpoint: path}})
	res = r.poll(context.Background(), time.Now())
	assert.True(t, res[0].Changed)
}

func TestRunner_LoadFailureNotShipped(t *testing.T) {
	sink := &recordingSink{}
	r := newRunner(0, sink)
	r.apply([]config.Source{{ID: "gone", Type: config.SourceFile, Endpoint: filepath.Join(t.TempDir(), "nope.json")}})

	res := r.poll(context.Background(), time.Now())
	require.Len(t, res, 1)
	assert.Equal(t, "unknown", res[0].State)
	assert.Zero(t, sink.count())
}

func TestCheckCerts_SkipsPlainHTTPAndFiles(t *testing.T) {
	statuses := checkCerts(context.Background(), config.AgentConfig{
		ServerEndpoint: "http://localhost:8080",
		Sources: []config.Source{
			{ID: "f", Type: config.SourceFile, Endpoint: "https-looking-but-a-file.json"},
			{ID: "h", Type: config.SourceHTTP, Endpoint: "http://localhost:9000"},
		},
	})
	assert.Empty(t, statuses)
}
