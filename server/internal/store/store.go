package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scanboard/scanboard/pkg/types"
)

// Entry is a summary together with the time it was last received.
type Entry struct {
	// ID changes on every Put so clients can tell uploads apart.
	ID        string
	Key       string
	Summary   *types.AuditSummary
	UpdatedAt time.Time
}

// Store is a thread-safe in-memory summary store, keyed by cluster.
// A background goroutine (Run) periodically evicts entries that have not
// been updated within the configured TTL.
type Store struct {
	mu      sync.RWMutex
	data    map[string]*Entry
	ttl     time.Duration
	now     func() time.Time // injectable for deterministic tests
	onEvict func(key string)
}

// New creates a Store with the given TTL. A zero TTL keeps entries forever.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// OnEvict registers fn to be called with the key of every evicted entry.
// It must be set before Run is started. fn runs while the store is locked and
// must not call back into the Store.
func (s *Store) OnEvict(fn func(key string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = fn
}

// Put stores or replaces the summary for sum.Key() and returns the new entry.
// Callers must not modify sum after calling Put.
func (s *Store) Put(sum *types.AuditSummary) *Entry {
	e := &Entry{
		ID:      uuid.NewString(),
		Key:     sum.Key(),
		Summary: sum,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.UpdatedAt = s.now()
	s.data[e.Key] = e
	return e
}

// Get returns the live Entry for key. Entries older than the TTL are reported
// as missing even if they have not been evicted yet.
func (s *Store) Get(key string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	if !ok || !s.live(e, s.now()) {
		return nil, false
	}
	return e, true
}

// List returns all live entries ordered by key.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	out := make([]*Entry, 0, len(s.data))
	for _, e := range s.data {
		if s.live(e, now) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Latest returns the most recently updated live entry.
func (s *Store) Latest() (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	var best *Entry
	for _, e := range s.data {
		if !s.live(e, now) {
			continue
		}
		if best == nil || e.UpdatedAt.After(best.UpdatedAt) ||
			(e.UpdatedAt.Equal(best.UpdatedAt) && e.Key < best.Key) {
			best = e
		}
	}
	return best, best != nil
}

// Count returns the total number of entries currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes entries whose UpdatedAt is older than now minus TTL.
// It returns the number of entries removed. The OnEvict hook runs with the
// store locked, so a concurrent Put for the same key lands after the hook.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, e := range s.data {
		if s.live(e, now) {
			continue
		}
		delete(s.data, key)
		n++
		if s.onEvict != nil {
			s.onEvict(key)
		}
	}
	return n
}

func (s *Store) live(e *Entry, now time.Time) bool {
	if s.ttl <= 0 {
		return true
	}
	return e.UpdatedAt.After(now.Add(-s.ttl))
}

// Run starts the background TTL eviction loop. It ticks at half the TTL interval
// (minimum 1 second) so entries are evicted promptly. Run blocks until ctx is
// cancelled. With a zero TTL it returns immediately.
func (s *Store) Run(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted stale summaries", "count", n)
			}
		}
	}
}
