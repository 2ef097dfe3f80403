package compute

import (
	"log/slog"
	"sync"
	"time"

	"github.com/scanboard/scanboard/pkg/types"
)

// uptimeWindow is the number of recent load outcomes tracked for uptime %.
const uptimeWindow = 20

// Result is the derived view of one poll of one source, ready to be
// reported or handed to the shipper.
type Result struct {
	SourceID  string
	Timestamp time.Time

	// Summary is nil when the load failed.
	Summary *types.AuditSummary

	State string
	Score uint
	Grade string

	// Deltas versus the previous successful poll; zero on the first one.
	ErrorsDelta     int
	WarningsDelta   int
	ScanErrorsDelta int

	// Changed is true when the counts, score or cluster differ from the
	// previous successful poll, and on the first successful poll.
	Changed bool

	// Ship is true when the summary changed or the resend interval elapsed
	// since it was last marked for shipping.
	Ship bool

	UptimePct    float64
	ErrorMessage string
}

// Engine maintains per-source state across polls.
//
// All exported methods are safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	resend time.Duration
	states map[string]*sourceState
}

// NewEngine returns a ready-to-use Engine. A resend of zero ships only on change.
func NewEngine(resend time.Duration) *Engine {
	return &Engine{resend: resend, states: make(map[string]*sourceState)}
}

// Process ingests the outcome of one load and returns derived values.
//
// now is passed explicitly so callers (and tests) control the clock without
// sleeping. Use time.Now() in production.
func (e *Engine) Process(sourceID string, sum *types.AuditSummary, loadErr error, now time.Time) *Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.stateFor(sourceID)
	success := loadErr == nil && sum != nil
	st.recordLoad(success)

	out := &Result{
		SourceID:  sourceID,
		Timestamp: now,
		UptimePct: st.uptimePct(),
	}

	if !success {
		out.State = StateUnknown
		if loadErr != nil {
			out.ErrorMessage = loadErr.Error()
		}
		slog.Warn("compute: load failed, marking unknown",
			"source", sourceID, "err", out.ErrorMessage)
		return out
	}

	out.Summary = sum
	out.Score = Score(sum)
	out.Grade = types.Grade(out.Score)
	out.State = State(sum)

	fp := fingerprintOf(sum)
	if st.hasBaseline {
		out.ErrorsDelta = diff(fp.totals.Errors, st.prev.totals.Errors)
		out.WarningsDelta = diff(fp.totals.Warnings, st.prev.totals.Warnings)
		out.ScanErrorsDelta = diff(fp.scans.Errors, st.prev.scans.Errors)
		out.Changed = fp != st.prev
	} else {
		out.Changed = true
	}
	st.prev = fp
	st.hasBaseline = true

	out.Ship = out.Changed ||
		(e.resend > 0 && now.Sub(st.lastShip) >= e.resend)
	if out.Ship {
		st.lastShip = now
	}

	if out.Changed {
		slog.Info("compute: summary changed",
			"source", sourceID, "cluster", fp.key, "score", out.Score,
			"errors_delta", out.ErrorsDelta, "warnings_delta", out.WarningsDelta)
	}
	return out
}

// Forget drops the state kept for a source, e.g. after it was removed from config.
func (e *Engine) Forget(sourceID string) {
	e.mu.Lock()
	delete(e.states, sourceID)
	e.mu.Unlock()
}

// fingerprint is the comparable part of a summary used for change detection.
type fingerprint struct {
	key    string
	totals types.CountSummary
	scans  types.ScanCounts
	score  uint
}

func fingerprintOf(sum *types.AuditSummary) fingerprint {
	return fingerprint{
		key:    sum.Key(),
		totals: sum.ClusterSummary.Results.Totals,
		scans:  sum.ScanResults,
		score:  Score(sum),
	}
}

// sourceState holds the previous fingerprint and uptime history of a source.
type sourceState struct {
	prev        fingerprint
	hasBaseline bool
	lastShip    time.Time
	history     []bool // newest last
}

func (e *Engine) stateFor(id string) *sourceState {
	if st, ok := e.states[id]; ok {
		return st
	}
	st := &sourceState{}
	e.states[id] = st
	return st
}

func (st *sourceState) recordLoad(success bool) {
	if len(st.history) >= uptimeWindow {
		st.history = st.history[1:]
	}
	st.history = append(st.history, success)
}

func (st *sourceState) uptimePct() float64 {
	if len(st.history) == 0 {
		return 100
	}
	var ok int
	for _, s := range st.history {
		if s {
			ok++
		}
	}
	return float64(ok) / float64(len(st.history)) * 100
}

func diff(cur, prev uint) int {
	return int(cur) - int(prev)
}
