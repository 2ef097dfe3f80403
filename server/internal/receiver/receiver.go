package receiver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/scanboard/scanboard/pkg/types"
	"github.com/scanboard/scanboard/server/internal/metrics"
	"github.com/scanboard/scanboard/server/internal/store"
)

// MaxBodyBytes caps the size of one uploaded summary.
const MaxBodyBytes = 1 << 20

// Evaluator is the part of the alert engine the receiver needs.
type Evaluator interface {
	Evaluate(sum *types.AuditSummary)
}

// Observer is the part of the metrics recorder the receiver needs.
type Observer interface {
	Observe(sum *types.AuditSummary)
	Ingest(status string)
}

// Option customises a Receiver.
type Option func(*Receiver)

// WithAlerts evaluates every accepted summary with ev.
func WithAlerts(ev Evaluator) Option { return func(r *Receiver) { r.alerts = ev } }

// WithMetrics publishes every accepted summary and upload outcome to obs.
func WithMetrics(obs Observer) Option { return func(r *Receiver) { r.metrics = obs } }

// WithRateLimit throttles uploads to limit per second with the given burst.
// A non-positive limit disables throttling.
func WithRateLimit(limit float64, burst int) Option {
	return func(r *Receiver) {
		if limit <= 0 {
			r.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
}

// WithNotify calls fn after every stored summary.
func WithNotify(fn func(*store.Entry)) Option { return func(r *Receiver) { r.notify = fn } }

// Receiver ingests audit summaries. It is safe for concurrent use.
type Receiver struct {
	store   *store.Store
	alerts  Evaluator
	metrics Observer
	limiter *rate.Limiter
	notify  func(*store.Entry)
	now     func() time.Time
}

// New creates a Receiver that writes accepted summaries to st.
func New(st *store.Store, opts ...Option) *Receiver {
	r := &Receiver{store: st, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Accept finalizes sum and records it. Callers must not modify sum afterwards.
func (r *Receiver) Accept(sum *types.AuditSummary) *store.Entry {
	if sum.AuditTime.IsZero() {
		sum.AuditTime = r.now().UTC()
	}
	sum.Finalize()

	e := r.store.Put(sum)
	if r.alerts != nil {
		r.alerts.Evaluate(sum)
	}
	if r.metrics != nil {
		r.metrics.Observe(sum)
	}
	if r.notify != nil {
		r.notify(e)
	}

	slog.Debug("receiver: summary stored",
		"cluster", e.Key,
		"id", e.ID,
		"score", sum.ClusterSummary.Score,
		"errors", sum.ClusterSummary.Results.Totals.Errors,
	)
	return e
}

// acceptResponse is the body returned for a stored upload.
type acceptResponse struct {
	ID      string `json:"id"`
	Cluster string `json:"cluster"`
	Score   uint   `json:"score"`
}

// ServeHTTP handles POST /api/v1/audits.
func (r *Receiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if r.limiter != nil && !r.limiter.Allow() {
		r.count(metrics.IngestThrottled)
		w.Header().Set("Retry-After", "1")
		jsonErr(w, http.StatusTooManyRequests, "too many uploads")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, MaxBodyBytes))
	if err != nil {
		r.count(metrics.IngestRejected)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonErr(w, http.StatusRequestEntityTooLarge, "summary exceeds 1 MiB")
			return
		}
		jsonErr(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	if len(body) == 0 {
		r.count(metrics.IngestRejected)
		jsonErr(w, http.StatusBadRequest, "empty body")
		return
	}

	sum, err := types.Decode(body)
	if err != nil {
		r.count(metrics.IngestRejected)
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	e := r.Accept(sum)
	r.count(metrics.IngestAccepted)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(acceptResponse{
		ID:      e.ID,
		Cluster: e.Key,
		Score:   sum.ClusterSummary.Score,
	})
}

func (r *Receiver) count(status string) {
	if r.metrics != nil {
		r.metrics.Ingest(status)
	}
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
