package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules" validate:"dive"`
	Webhooks []WebhookConfig `yaml:"webhooks" validate:"dive"`
}

// AlertRule defines one threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name" validate:"required"`

	// Condition is a simple expression: "errors > 0", "score < 60",
	// "scan_errors >= 5".
	Condition string `yaml:"condition" validate:"required"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity" validate:"omitempty,oneof=critical warning info"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown" validate:"gte=0"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type" validate:"oneof=teams slack http"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env" validate:"required"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Default values for the server configuration.
const (
	DefaultHTTPPort    = 8080
	DefaultBasePath    = "/"
	DefaultSnapshotTTL = 24 * time.Hour
	DefaultMetricsPath = "/metrics"
	DefaultChartJSURL  = "https://cdn.jsdelivr.net/npm/chart.js@2.9.4/dist/Chart.min.js"
	DefaultTitle       = "Cluster Audit"
	DefaultRateLimit   = 5.0
	DefaultRateBurst   = 20
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml. The `agent:` key in the same file is ignored.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the dashboard, REST API and WebSocket hub listen on.
	HTTPPort int `yaml:"http_port" env:"SCANBOARD_HTTP_PORT" validate:"min=1,max=65535"`

	// BasePath is the URL prefix everything is served under.
	BasePath string `yaml:"base_path" env:"SCANBOARD_BASE_PATH" validate:"startswith=/"`

	// Auth configures how the server authenticates audit uploads.
	Auth AuthConfig `yaml:"auth"`

	// Snapshot controls in-memory summary retention.
	Snapshot SnapshotConfig `yaml:"snapshot"`

	// Alerts holds rule definitions and webhook delivery targets.
	Alerts AlertsConfig `yaml:"alerts"`

	Dashboard DashboardConfig `yaml:"dashboard"`
	CORS      CORSConfig      `yaml:"cors"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// AuthConfig controls client authentication on the server side.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode" env:"SCANBOARD_AUTH_MODE"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header name to read the key from.
	// Defaults to "X-API-Key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "X-API-Key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "X-API-Key"
}

// SnapshotConfig controls in-memory summary retention.
type SnapshotConfig struct {
	// TTL is how long a cluster's summary remains in the store after its last
	// upload. When TTL elapses without a new upload the entry is evicted.
	// Default: 24h.
	TTL time.Duration `yaml:"ttl" env:"SCANBOARD_SNAPSHOT_TTL" validate:"gte=0"`
}

// DashboardConfig controls the HTML page.
type DashboardConfig struct {
	// ChartJSURL is where the page loads Chart.js 2.x from.
	ChartJSURL string `yaml:"chartjs_url" validate:"required"`
	Title      string `yaml:"title"`
}

// CORSConfig lists browser origins allowed to call the REST API.
// An empty list disables CORS handling.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// IngestConfig throttles audit uploads. A zero RateLimit disables throttling.
type IngestConfig struct {
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	Burst     int     `yaml:"burst" validate:"gte=0"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"startswith=/"`
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults, then SCANBOARD_* environment
// variables override file values, then the result is validated. An empty path
// skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("server config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("server config: parse yaml: %w", err)
		}
	}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("server config: environment: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// LoadEnvFiles loads the given dotenv files into the process environment,
// skipping files that do not exist. It returns how many were loaded.
func LoadEnvFiles(files ...string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return 0, fmt.Errorf("server config: load env files: %w", err)
	}
	return len(existing), nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			BasePath: DefaultBasePath,
			Snapshot: SnapshotConfig{
				TTL: DefaultSnapshotTTL,
			},
			Dashboard: DashboardConfig{
				ChartJSURL: DefaultChartJSURL,
				Title:      DefaultTitle,
			},
			Ingest: IngestConfig{
				RateLimit: DefaultRateLimit,
				Burst:     DefaultRateBurst,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    DefaultMetricsPath,
			},
		},
	}
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}
	if cfg.Server.Auth.Mode == "apikey" && cfg.Server.Auth.KeyEnv == "" {
		return fmt.Errorf("server.auth.key_env is required when mode is apikey")
	}
	return nil
}
