package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/scanboard/scanboard/agent/internal/compute"
	"github.com/scanboard/scanboard/agent/internal/config"
	"github.com/scanboard/scanboard/agent/internal/security"
	"github.com/scanboard/scanboard/agent/internal/shipper"
	"github.com/scanboard/scanboard/agent/internal/source"
	"github.com/scanboard/scanboard/pkg/types"
)

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll the configured sources and ship summaries until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	return cmd
}

func runAgent(ctx context.Context, configPath string) error {
	slog.Info("scanboard-agent starting", "version", version, "config", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		return err
	}
	slog.Info("config loaded",
		"server_endpoint", cfg.Agent.ServerEndpoint,
		"sources", len(cfg.Agent.Sources),
		"poll_interval", cfg.Agent.PollInterval,
	)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logCerts(ctx, cfg.Agent)

	ship := shipper.New(cfg.Agent)
	go ship.Run(ctx)

	r := newRunner(cfg.Agent.ResendInterval, ship)
	r.apply(cfg.Agent.Sources)

	go func() {
		if err := config.Watch(ctx, configPath, func(updated *config.Config) {
			r.apply(updated.Agent.Sources)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	r.loop(ctx, cfg.Agent.PollInterval)
	slog.Info("scanboard-agent shutting down")
	return nil
}

// sink receives summaries that are due for upload.
type sink interface {
	Ship(sum *types.AuditSummary)
}

// runner polls every registered source and forwards due summaries to the sink.
// Sources can be swapped at runtime by apply.
type runner struct {
	mu      sync.Mutex
	sources []registered
	engine  *compute.Engine
	out     sink
}

type registered struct {
	cfg config.Source
	src source.Source
}

func newRunner(resend time.Duration, out sink) *runner {
	return &runner{engine: compute.NewEngine(resend), out: out}
}

// apply replaces the registered sources. Sources that fail to build are
// skipped; engine state of removed or changed sources is dropped.
func (r *runner) apply(srcs []config.Source) {
	next := make([]registered, 0, len(srcs))
	for _, sc := range srcs {
		s, err := source.New(sc)
		if err != nil {
			slog.Error("skipping source, could not build it", "source", sc.ID, "err", err)
			continue
		}
		next = append(next, registered{cfg: sc, src: s})
		slog.Info("registered source", "id", sc.ID, "type", sc.Type, "endpoint", sc.Endpoint)
	}

	r.mu.Lock()
	prev := r.sources
	r.sources = next
	r.mu.Unlock()

	kept := make(map[string]config.Source, len(next))
	for _, n := range next {
		kept[n.cfg.ID] = n.cfg
	}
	for _, p := range prev {
		if c, ok := kept[p.cfg.ID]; !ok || c != p.cfg {
			r.engine.Forget(p.cfg.ID)
		}
	}
	if len(next) == 0 {
		slog.Warn("no sources configured, agent will idle")
	}
}

// poll loads every source once and ships the summaries that are due.
func (r *runner) poll(ctx context.Context, now time.Time) []*compute.Result {
	r.mu.Lock()
	srcs := r.sources
	r.mu.Unlock()

	results := make([]*compute.Result, 0, len(srcs))
	for _, s := range srcs {
		sum, err := s.src.Load(ctx)
		if ctx.Err() != nil {
			return results
		}
		res := r.engine.Process(s.cfg.ID, sum, err, now)
		results = append(results, res)
		if res.Ship {
			r.out.Ship(res.Summary)
			slog.Debug("queued summary",
				"source", s.cfg.ID, "cluster", res.Summary.Key(),
				"state", res.State, "score", res.Score, "changed", res.Changed)
		}
	}
	return results
}

// loop polls immediately, then every interval until ctx is cancelled.
func (r *runner) loop(ctx context.Context, interval time.Duration) {
	r.poll(ctx, time.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			r.poll(ctx, t)
		}
	}
}

// logCerts reports certificate problems on the HTTPS endpoints the agent uses.
func logCerts(ctx context.Context, cfg config.AgentConfig) {
	for _, cs := range checkCerts(ctx, cfg) {
		switch cs.Status {
		case security.CertValid:
			slog.Debug("certificate ok", "endpoint", cs.Endpoint, "days_left", cs.DaysLeft)
		case security.CertUnreachable:
			slog.Warn("certificate check failed", "endpoint", cs.Endpoint, "err", cs.Error)
		default:
			slog.Warn(fmt.Sprintf("certificate %s", cs.Status), "endpoint", cs.Endpoint, "days_left", cs.DaysLeft)
		}
	}
}

// checkCerts inspects the server endpoint and every https source.
func checkCerts(ctx context.Context, cfg config.AgentConfig) []*security.CertStatus {
	out := make([]*security.CertStatus, 0, len(cfg.Sources)+1)
	if cs := security.Check(ctx, cfg.ServerEndpoint, false); cs != nil {
		out = append(out, cs)
	}
	for _, src := range cfg.Sources {
		if src.Type == config.SourceFile {
			continue
		}
		if cs := security.Check(ctx, src.Endpoint, src.TLS.InsecureSkipVerify); cs != nil {
			out = append(out, cs)
		}
	}
	return out
}
