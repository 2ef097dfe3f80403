package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/scanboard/scanboard/pkg/types"
	"github.com/scanboard/scanboard/server/internal/alerts"
	"github.com/scanboard/scanboard/server/internal/api"
	"github.com/scanboard/scanboard/server/internal/auth"
	"github.com/scanboard/scanboard/server/internal/config"
	"github.com/scanboard/scanboard/server/internal/dashboard"
	"github.com/scanboard/scanboard/server/internal/metrics"
	"github.com/scanboard/scanboard/server/internal/receiver"
	"github.com/scanboard/scanboard/server/internal/store"
	"github.com/scanboard/scanboard/server/internal/ws"
)

type serveOptions struct {
	configPath string
	// configSet reports whether --config was given explicitly.
	configSet  bool
	envFiles   []string
	auditPath  string
	logLevel   string
	wsInterval time.Duration
}

func serve(ctx context.Context, opts serveOptions) error {
	if err := setupLogger(opts.logLevel); err != nil {
		return err
	}

	n, err := config.LoadEnvFiles(opts.envFiles...)
	if err != nil {
		return err
	}
	opts.configPath = resolveConfigPath(opts.configPath, opts.configSet)
	slog.Info("scanboard-server starting", "version", version, "config", opts.configPath, "env_files", n)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		return err
	}
	sc := cfg.Server

	slog.Info("config loaded",
		"http_port", sc.HTTPPort,
		"base_path", sc.BasePath,
		"auth_mode", sc.Auth.Mode,
		"snapshot_ttl", sc.Snapshot.TTL,
		"alert_rules", len(sc.Alerts.Rules),
	)
	if sc.Auth.Mode == auth.ModeAPIKey && sc.Auth.Key() == "" {
		slog.Warn("auth mode is apikey but the key env var is empty; every upload will be rejected",
			"key_env", sc.Auth.KeyEnv)
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rec, err := metrics.New()
	if err != nil {
		return err
	}

	// Alerts engine; rules are hot-reloaded from the config file.
	alertEngine := alerts.New(sc.Alerts)

	// Summary store with background TTL eviction.
	st := store.New(sc.Snapshot.TTL)
	st.OnEvict(func(key string) {
		rec.Forget(key)
		alertEngine.Forget(key)
	})
	go st.Run(ctx)
	if opts.configPath != "" {
		go func() {
			err := config.Watch(ctx, opts.configPath, func(c *config.Config) {
				alertEngine.SetRules(c.Server.Alerts)
			})
			if err != nil {
				slog.Error("config watch stopped", "err", err)
			}
		}()
	}

	// WebSocket hub; broadcasts charts on a ticker and after every upload.
	hub := ws.New(st, opts.wsInterval)
	go hub.Run(ctx)

	ingest := receiver.New(st,
		receiver.WithAlerts(alertEngine),
		receiver.WithMetrics(rec),
		receiver.WithRateLimit(sc.Ingest.RateLimit, sc.Ingest.Burst),
		receiver.WithNotify(func(*store.Entry) { hub.Notify() }),
	)

	if opts.auditPath != "" {
		go func() {
			err := receiver.WatchFile(ctx, opts.auditPath, func(s *types.AuditSummary) {
				ingest.Accept(s)
			})
			if err != nil {
				slog.Error("audit file watch stopped", "path", opts.auditPath, "err", err)
			}
		}()
	}

	page, err := dashboard.New(st, sc.Dashboard, sc.BasePath)
	if err != nil {
		return err
	}

	root := mux.NewRouter()
	base := root
	if prefix := strings.TrimSuffix(sc.BasePath, "/"); prefix != "" {
		root.Handle(prefix, http.RedirectHandler(prefix+"/", http.StatusMovedPermanently))
		base = root.PathPrefix(prefix).Subrouter()
	}

	requireKey := auth.APIKey(sc.Auth.Mode, sc.Auth.EffectiveHeader(), sc.Auth.Key(), func() {
		rec.Ingest(metrics.IngestUnauthorized)
	})
	base.Handle("/api/v1/audits", requireKey(ingest))
	base.Handle("/ws/stream", hub)
	if sc.Metrics.Enabled {
		base.Handle(sc.Metrics.Path, rec.Handler())
	}
	api.New(st, alertEngine).Register(base)
	page.Register(base)

	var handler http.Handler = root
	if len(sc.CORS.AllowedOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: sc.CORS.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost},
			AllowedHeaders: []string{"Content-Type", sc.Auth.EffectiveHeader()},
		}).Handler(root)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", sc.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", sc.HTTPPort, "base_path", sc.BasePath)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		slog.Error("HTTP server stopped", "err", err)
		return err
	}

	slog.Info("scanboard-server shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	err = httpSrv.Shutdown(shutdownCtx)
	alertEngine.Wait()
	return err
}

// resolveConfigPath drops the default config path when that file does not
// exist, so the server starts from defaults and environment alone. An
// explicitly requested file is kept and must exist.
func resolveConfigPath(path string, explicit bool) string {
	if explicit || path == "" {
		return path
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return path
}

func setupLogger(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return nil
}
