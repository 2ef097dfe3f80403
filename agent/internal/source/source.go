package source

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/scanboard/scanboard/agent/internal/config"
	"github.com/scanboard/scanboard/pkg/types"
)

const (
	defaultLoadTimeout = 10 * time.Second

	// maxBodyBytes caps how much of a remote response is read.
	maxBodyBytes = 4 << 20
)

// Source is one place an audit summary can be loaded from.
type Source interface {
	Load(ctx context.Context) (*types.AuditSummary, error)
}

// New returns the Source for the given configuration. HTTP-backed sources
// build their client once and reuse it across loads.
func New(src config.Source) (Source, error) {
	var inner Source
	switch src.Type {
	case config.SourceFile:
		inner = &fileSource{path: src.Endpoint}
	case config.SourceHTTP, config.SourcePrometheus:
		client, err := buildHTTPClient(src)
		if err != nil {
			return nil, fmt.Errorf("source %q: build http client: %w", src.ID, err)
		}
		if src.Type == config.SourceHTTP {
			inner = &httpSource{url: src.Endpoint, client: client}
		} else {
			inner = &promSource{url: src.Endpoint, cluster: src.DisplayName, client: client}
		}
	default:
		return nil, fmt.Errorf("source: unsupported type %q", src.Type)
	}
	return &labelled{src: src, inner: inner}, nil
}

// labelled stamps source identity onto every loaded summary.
type labelled struct {
	src   config.Source
	inner Source
}

func (l *labelled) Load(ctx context.Context) (*types.AuditSummary, error) {
	sum, err := l.inner.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", l.src.ID, err)
	}
	if l.src.DisplayName != "" {
		sum.DisplayName = l.src.DisplayName
	}
	if sum.SourceName == "" {
		sum.SourceName = l.src.ID
	}
	if sum.SourceType == "" {
		sum.SourceType = l.src.Type
	}
	if sum.AuditTime.IsZero() {
		sum.AuditTime = time.Now().UTC()
	}
	sum.Finalize()
	return sum, nil
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.auth.EffectiveHeader(), t.auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.auth.Username, t.auth.Password())
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the source's auth and TLS settings.
func buildHTTPClient(src config.Source) (*http.Client, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: src.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}

	if src.Auth.Mode == "mtls" {
		cert, err := tls.LoadX509KeyPair(src.Auth.CertFile, src.Auth.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	if src.Auth.CAFile != "" {
		caPEM, err := os.ReadFile(src.Auth.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("no valid certs found in ca file %q", src.Auth.CAFile)
		}
		tlsCfg.RootCAs = pool
	}

	return &http.Client{
		Transport: &authRoundTripper{
			base: &http.Transport{TLSClientConfig: tlsCfg, Proxy: http.ProxyFromEnvironment},
			auth: src.Auth,
		},
		Timeout: defaultLoadTimeout,
	}, nil
}
