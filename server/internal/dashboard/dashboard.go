package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/scanboard/scanboard/pkg/types"
	"github.com/scanboard/scanboard/server/internal/charts"
	"github.com/scanboard/scanboard/server/internal/config"
	"github.com/scanboard/scanboard/server/internal/store"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

const layoutTemplate = "layout"

// templateData is what every page template receives.
type templateData struct {
	Title       string
	ChartJSURL  string
	BasePath    string
	ServerURL   string
	Cluster     string
	Clusters    []string
	Summary     *types.AuditSummary
	Score       uint
	Script      template.JS
	GeneratedAt time.Time
}

// Page serves the dashboard HTML.
type Page struct {
	store    *store.Store
	tmpl     *template.Template
	cfg      config.DashboardConfig
	basePath string
	now      func() time.Time
}

// New parses the embedded templates. basePath is the prefix the page is
// mounted under and is used to build links.
func New(st *store.Store, cfg config.DashboardConfig, basePath string) (*Page, error) {
	tmpl, err := template.New(layoutTemplate).Funcs(funcMap()).ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("dashboard: parse templates: %w", err)
	}
	if !strings.HasSuffix(basePath, "/") {
		basePath += "/"
	}
	if cfg.Title == "" {
		cfg.Title = config.DefaultTitle
	}
	if cfg.ChartJSURL == "" {
		cfg.ChartJSURL = config.DefaultChartJSURL
	}
	return &Page{store: st, tmpl: tmpl, cfg: cfg, basePath: basePath, now: time.Now}, nil
}

// Register adds the page routes to r.
func (p *Page) Register(r *mux.Router) {
	r.HandleFunc("/", p.latest).Methods(http.MethodGet, http.MethodHead)
	// Cluster keys are display names and may contain slashes.
	r.HandleFunc("/clusters/{id:.+}", p.cluster).Methods(http.MethodGet, http.MethodHead)
}

// latest renders the most recently updated cluster, or the empty state.
func (p *Page) latest(w http.ResponseWriter, r *http.Request) {
	e, _ := p.store.Latest()
	p.render(w, r, e)
}

// cluster renders one cluster; 404 if unknown or stale.
func (p *Page) cluster(w http.ResponseWriter, r *http.Request) {
	e, ok := p.store.Get(mux.Vars(r)["id"])
	if !ok {
		http.NotFound(w, r)
		return
	}
	p.render(w, r, e)
}

func (p *Page) render(w http.ResponseWriter, r *http.Request, e *store.Entry) {
	data := templateData{
		Title:       p.cfg.Title,
		ChartJSURL:  p.cfg.ChartJSURL,
		BasePath:    p.basePath,
		ServerURL:   serverURL(r, p.basePath),
		GeneratedAt: p.now().UTC(),
	}
	for _, le := range p.store.List() {
		data.Clusters = append(data.Clusters, le.Key)
	}

	if e != nil {
		var sr charts.ScriptRenderer
		if err := charts.Initialize(*e.Summary, &sr); err != nil {
			slog.Error("dashboard: initialize charts", "cluster", e.Key, "err", err)
			http.Error(w, "chart initialization failed", http.StatusInternalServerError)
			return
		}
		data.Cluster = e.Key
		data.Summary = e.Summary
		data.Score = e.Summary.ClusterSummary.Score
		data.Script = sr.Script()
	}

	buf := &bytes.Buffer{}
	if err := p.tmpl.ExecuteTemplate(buf, layoutTemplate, data); err != nil {
		slog.Error("dashboard: execute template", "err", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func serverURL(r *http.Request, basePath string) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + strings.TrimSuffix(basePath, "/")
}
