package store

import (
	"sync"
	"testing"
	"time"

	"github.com/scanboard/scanboard/pkg/types"
)

func summary(name string, errs uint) *types.AuditSummary {
	s := &types.AuditSummary{DisplayName: name}
	s.ClusterSummary.Results.Totals = types.CountSummary{Successes: 10, Errors: errs}
	return s
}

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestPutAndGet(t *testing.T) {
	st := New(5 * time.Minute)
	put := st.Put(summary("prod", 0))

	e, ok := st.Get("prod")
	if !ok {
		t.Fatal("Get: expected entry, got none")
	}
	if e.Key != "prod" {
		t.Errorf("Key: got %q, want prod", e.Key)
	}
	if e.ID == "" || e.ID != put.ID {
		t.Errorf("ID: got %q, want %q", e.ID, put.ID)
	}
}

func TestPut_DefaultKey(t *testing.T) {
	st := New(5 * time.Minute)
	st.Put(&types.AuditSummary{})

	if _, ok := st.Get(types.DefaultKey); !ok {
		t.Fatalf("Get(%q): expected entry", types.DefaultKey)
	}
}

func TestGet_Missing(t *testing.T) {
	st := New(5 * time.Minute)
	_, ok := st.Get("unknown")
	if ok {
		t.Fatal("Get on empty store: expected false, got true")
	}
}

func TestGet_Stale(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)
	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Put(summary("old", 0))

	st.now = fixedClock(base)
	if _, ok := st.Get("old"); ok {
		t.Fatal("Get on stale entry: expected false, got true")
	}
}

func TestPut_Overwrites(t *testing.T) {
	st := New(5 * time.Minute)
	first := st.Put(summary("prod", 1))
	second := st.Put(summary("prod", 7))

	e, ok := st.Get("prod")
	if !ok {
		t.Fatal("Get: expected entry after two Puts")
	}
	if got := e.Summary.ClusterSummary.Results.Totals.Errors; got != 7 {
		t.Errorf("Errors: got %d, want 7", got)
	}
	if first.ID == second.ID {
		t.Errorf("ID: expected a fresh id per Put, got %q twice", first.ID)
	}
}

func TestList_ExcludesStaleAndSorts(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)

	st.now = fixedClock(base.Add(-10 * time.Minute)) // stale
	st.Put(summary("old", 0))

	st.now = fixedClock(base)
	st.Put(summary("zeta", 0))
	st.Put(summary("alpha", 0))

	entries := st.List()
	if len(entries) != 2 {
		t.Fatalf("List: got %d entries, want 2", len(entries))
	}
	if entries[0].Key != "alpha" || entries[1].Key != "zeta" {
		t.Errorf("List order: got %q, %q; want alpha, zeta", entries[0].Key, entries[1].Key)
	}
}

func TestLatest(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)

	st.now = fixedClock(base.Add(-2 * time.Minute))
	st.Put(summary("staging", 0))
	st.now = fixedClock(base.Add(-1 * time.Minute))
	st.Put(summary("prod", 0))

	st.now = fixedClock(base)
	e, ok := st.Latest()
	if !ok {
		t.Fatal("Latest: expected entry")
	}
	if e.Key != "prod" {
		t.Errorf("Latest: got %q, want prod", e.Key)
	}
}

func TestLatest_Empty(t *testing.T) {
	st := New(5 * time.Minute)
	if _, ok := st.Latest(); ok {
		t.Fatal("Latest on empty store: expected false")
	}
}

func TestCount_IncludesStale(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)

	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Put(summary("old", 0))

	st.now = fixedClock(base)
	st.Put(summary("new", 0))

	// Count includes both; stale not yet evicted.
	if n := st.Count(); n != 2 {
		t.Errorf("Count: got %d, want 2", n)
	}
}

func TestEvict_RemovesStaleAndNotifies(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)

	var evicted []string
	st.OnEvict(func(key string) { evicted = append(evicted, key) })

	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Put(summary("old1", 0))
	st.Put(summary("old2", 0))

	st.now = fixedClock(base)
	st.Put(summary("live", 0))

	removed := st.Evict(base)
	if removed != 2 {
		t.Errorf("Evict: removed %d, want 2", removed)
	}
	if st.Count() != 1 {
		t.Errorf("Count after evict: got %d, want 1", st.Count())
	}
	if len(evicted) != 2 {
		t.Errorf("OnEvict calls: got %v, want 2 keys", evicted)
	}
}

func TestEvict_PutDuringHookLandsAfterIt(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)
	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Put(summary("prod", 0))
	st.now = fixedClock(base)

	var putDone chan struct{}
	st.OnEvict(func(key string) {
		putDone = make(chan struct{})
		go func() {
			st.Put(summary(key, 1))
			close(putDone)
		}()
		select {
		case <-putDone:
			t.Errorf("Put for %q completed while its eviction hook was running", key)
		case <-time.After(20 * time.Millisecond):
		}
	})

	if removed := st.Evict(base); removed != 1 {
		t.Fatalf("Evict: removed %d, want 1", removed)
	}
	<-putDone

	e, ok := st.Get("prod")
	if !ok {
		t.Fatal("Get after evict+put: not found")
	}
	if e.Summary.ClusterSummary.Results.Totals.Errors != 1 {
		t.Errorf("Errors: got %d, want 1", e.Summary.ClusterSummary.Results.Totals.Errors)
	}
}

func TestEvict_ZeroTTLKeepsEverything(t *testing.T) {
	st := New(0)
	st.now = fixedClock(time.Now().Add(-365 * 24 * time.Hour))
	st.Put(summary("ancient", 0))

	if removed := st.Evict(time.Now()); removed != 0 {
		t.Errorf("Evict with zero TTL: removed %d, want 0", removed)
	}
}

func TestConcurrentPuts(t *testing.T) {
	st := New(5 * time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			st.Put(summary("concurrent", uint(n)))
		}(i)
	}
	wg.Wait()

	// Should have exactly one entry (all same key).
	if st.Count() != 1 {
		t.Errorf("Count after concurrent puts: got %d, want 1", st.Count())
	}
}

func TestConcurrentMixedOps(t *testing.T) {
	st := New(5 * time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			st.Put(summary("a", 0))
		}()
		go func() {
			defer wg.Done()
			st.List()
		}()
		go func() {
			defer wg.Done()
			st.Latest()
		}()
	}
	wg.Wait()
}
