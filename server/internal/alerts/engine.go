package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scanboard/scanboard/pkg/types"
	"github.com/scanboard/scanboard/server/internal/config"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	Cluster    string     `json:"cluster"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"`

	notified bool
}

// Engine evaluates alert rules against incoming audit summaries and delivers
// webhook notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	rules    []config.AlertRule
	webhooks []config.WebhookConfig
	active   map[alertKey]*Alert
	lastFire map[alertKey]time.Time // last notification per key (for cooldown)
	history  []*Alert               // recently resolved alerts

	client *http.Client
	now    func() time.Time
	wg     sync.WaitGroup
}

// New creates an Engine from the server alert configuration.
// An Engine with empty rules is valid; Evaluate becomes a no-op.
func New(cfg config.AlertsConfig) *Engine {
	return &Engine{
		rules:    cfg.Rules,
		webhooks: cfg.Webhooks,
		active:   make(map[alertKey]*Alert),
		lastFire: make(map[alertKey]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
}

// SetRules replaces the rule set and webhook targets. Firing alerts whose rule
// no longer exists are dropped without a resolve notification.
func (e *Engine) SetRules(cfg config.AlertsConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make(map[string]bool, len(cfg.Rules))
	for _, r := range cfg.Rules {
		names[r.Name] = true
	}
	for key, a := range e.active {
		if !names[a.RuleName] {
			delete(e.active, key)
		}
	}
	for key := range e.lastFire {
		if !names[key.rule] {
			delete(e.lastFire, key)
		}
	}
	e.rules = cfg.Rules
	e.webhooks = cfg.Webhooks
	slog.Info("alerts: rules updated", "rules", len(cfg.Rules), "webhooks", len(cfg.Webhooks))
}

// Evaluate tests all configured rules against sum.
// Alerts that fire are stored and webhook delivery is triggered asynchronously.
// A rule that keeps firing re-notifies once per cooldown, and a rule that
// fires again soon after resolving is active but silent until the cooldown ends.
// Alerts that were firing but whose condition is now false are resolved.
func (e *Engine) Evaluate(sum *types.AuditSummary) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.rules) == 0 {
		return
	}

	now := e.now()
	cluster := sum.Key()
	for _, rule := range e.rules {
		key := alertKey{rule: rule.Name, cluster: cluster}
		fires, value := evalCondition(rule.Condition, sum)

		if fires {
			cooldown := rule.Cooldown
			if cooldown <= 0 {
				cooldown = defaultCooldown
			}
			last, seen := e.lastFire[key]
			quiet := seen && now.Sub(last) <= cooldown
			if _, ok := e.active[key]; ok && quiet {
				continue
			}
			sev := rule.Severity
			if sev == "" {
				sev = "warning"
			}
			a := &Alert{
				ID:       uuid.NewString(),
				RuleName: rule.Name,
				Cluster:  cluster,
				Severity: sev,
				Value:    value,
				Message: fmt.Sprintf("[%s] %s fired on %s: %s (value %.0f)",
					sev, rule.Name, cluster, rule.Condition, value),
				FiredAt: now,
				State:   StateFiring,
			}
			e.active[key] = a

			// Re-firing inside the cooldown marks the alert active without notifying.
			if quiet {
				slog.Info("alerts: fired within cooldown", "rule", rule.Name, "cluster", cluster)
				continue
			}
			e.lastFire[key] = now
			a.notified = true

			slog.Warn("alerts: fired",
				"rule", rule.Name,
				"cluster", cluster,
				"value", value,
				"severity", sev,
			)
			e.dispatch(*a)
			continue
		}

		a, ok := e.active[key]
		if !ok {
			continue
		}
		resolved := now
		a.State = StateResolved
		a.ResolvedAt = &resolved
		delete(e.active, key)

		e.history = append(e.history, a)
		if len(e.history) > maxHistoryLen {
			e.history = e.history[len(e.history)-maxHistoryLen:]
		}

		slog.Info("alerts: resolved", "rule", rule.Name, "cluster", cluster)
		if a.notified {
			e.dispatch(*a)
		}
	}
}

// dispatch delivers a copy of a in the background. Called with e.mu held.
func (e *Engine) dispatch(a Alert) {
	if len(e.webhooks) == 0 {
		return
	}
	hooks := append([]config.WebhookConfig(nil), e.webhooks...)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.deliver(hooks, &a)
	}()
}

// Wait blocks until all in-flight webhook deliveries have finished.
func (e *Engine) Wait() { e.wg.Wait() }

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// Forget drops all firing alerts and cooldown state for cluster, without
// resolve notifications. It is called when the cluster leaves the store.
func (e *Engine) Forget(cluster string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key, a := range e.active {
		if a.Cluster == cluster {
			delete(e.active, key)
		}
	}
	for key := range e.lastFire {
		if key.cluster == cluster {
			delete(e.lastFire, key)
		}
	}
}

// alertKey identifies one rule evaluated against one cluster.
type alertKey struct {
	rule    string
	cluster string
}

// Firing returns the number of currently firing alerts for cluster.
func (e *Engine) Firing(cluster string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, a := range e.active {
		if a.Cluster == cluster {
			n++
		}
	}
	return n
}
