package shipper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/scanboard/scanboard/agent/internal/config"
	"github.com/scanboard/scanboard/pkg/types"
)

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 60 * time.Second
	backoffMultiplier = 2.0
	sendTimeout       = 10 * time.Second

	// IngestPath is where scanboard-server accepts audit uploads.
	IngestPath = "/api/v1/audits"
)

// Shipper buffers audit summaries and uploads them to scanboard-server.
// Ship() is non-blocking; when the buffer is full the oldest summary is evicted.
// Run() must be called in a goroutine to drain the buffer.
type Shipper struct {
	url      string
	auth     config.ServerAuthConfig
	interval time.Duration
	client   *http.Client
	buf      chan *types.AuditSummary

	// backoff bounds; overridden in tests
	boInitial time.Duration
	boMax     time.Duration
}

// New creates a Shipper using the given agent config.
func New(cfg config.AgentConfig) *Shipper {
	size := cfg.BufferSize
	if size <= 0 {
		size = config.DefaultBufferSize
	}
	interval := cfg.ShipInterval
	if interval <= 0 {
		interval = config.DefaultShipInterval
	}
	return &Shipper{
		url:       IngestURL(cfg.ServerEndpoint),
		auth:      cfg.ServerAuth,
		interval:  interval,
		client:    &http.Client{Timeout: sendTimeout},
		buf:       make(chan *types.AuditSummary, size),
		boInitial: backoffInitial,
		boMax:     backoffMax,
	}
}

// IngestURL joins a server base URL and the ingest path.
func IngestURL(server string) string {
	return strings.TrimSuffix(server, "/") + IngestPath
}

// Ship enqueues a summary for upload.
// If the buffer is full the oldest entry is evicted to make room.
func (s *Shipper) Ship(sum *types.AuditSummary) {
	for {
		select {
		case s.buf <- sum:
			return
		default:
		}
		select {
		case old := <-s.buf:
			slog.Warn("shipper: buffer full, evicted oldest summary",
				"cluster", old.Key(), "buffer_cap", cap(s.buf))
		default:
		}
	}
}

// Len reports how many summaries are waiting in the buffer.
func (s *Shipper) Len() int { return len(s.buf) }

// Run uploads buffered summaries every ship interval until ctx is cancelled.
// Summaries for the same cluster are coalesced so only the newest is sent.
// Transport errors, 429 and 5xx responses are retried with truncated
// exponential backoff; other 4xx responses discard the summary.
func (s *Shipper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	bo := s.newBackoff()
	pending := make(map[string]*types.AuditSummary)
	var retryAt time.Time

	for {
		select {
		case <-ctx.Done():
			if len(pending) > 0 {
				slog.Warn("shipper: stopping with unsent summaries", "pending", len(pending))
			}
			return
		case now := <-ticker.C:
			s.collect(pending)
			if len(pending) == 0 || now.Before(retryAt) {
				continue
			}
			if err := s.flush(ctx, pending); err != nil {
				if ctx.Err() != nil {
					return
				}
				wait := bo.next()
				retryAt = now.Add(wait)
				slog.Error("shipper: upload failed, will retry",
					"endpoint", s.url, "pending", len(pending), "err", err, "retry_in", wait)
				continue
			}
			bo.reset()
			retryAt = time.Time{}
		}
	}
}

// Push uploads one summary immediately, without buffering or retries.
func (s *Shipper) Push(ctx context.Context, sum *types.AuditSummary) error {
	if err := s.send(ctx, sum); err != nil {
		return fmt.Errorf("shipper push %q: %w", sum.Key(), err)
	}
	return nil
}

// collect moves everything buffered into pending, newest per cluster wins.
func (s *Shipper) collect(pending map[string]*types.AuditSummary) {
	for {
		select {
		case sum := <-s.buf:
			pending[sum.Key()] = sum
		default:
			return
		}
	}
}

// flush sends pending summaries in cluster order, removing each one that was
// delivered or permanently rejected. It stops at the first retryable error.
func (s *Shipper) flush(ctx context.Context, pending map[string]*types.AuditSummary) error {
	keys := make([]string, 0, len(pending))
	for k := range pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		err := s.send(ctx, pending[k])
		var perm *PermanentError
		switch {
		case err == nil:
			slog.Debug("shipper: summary delivered", "cluster", k)
		case errors.As(err, &perm):
			slog.Error("shipper: server rejected summary, discarding",
				"cluster", k, "status", perm.StatusCode, "message", perm.Message)
		default:
			return err
		}
		delete(pending, k)
	}
	return nil
}

// PermanentError is a response that retrying the same summary cannot fix.
type PermanentError struct {
	StatusCode int
	Message    string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("server rejected upload: %d %s", e.StatusCode, e.Message)
}

func (s *Shipper) send(ctx context.Context, sum *types.AuditSummary) error {
	body, err := json.Marshal(sum)
	if err != nil {
		return &PermanentError{Message: err.Error()}
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(sendCtx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key := s.auth.Key(); key != "" {
		req.Header.Set(s.auth.EffectiveHeader(), key)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	default:
		return &PermanentError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func (s *Shipper) newBackoff() *backoff {
	return &backoff{initial: s.boInitial, max: s.boMax, current: s.boInitial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// ±25% jitter
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > b.max {
		b.current = b.max
	}
	return d
}

func (b *backoff) reset() {
	b.current = b.initial
}
