package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultPollInterval   = 30 * time.Second
	DefaultShipInterval   = 15 * time.Second
	DefaultResendInterval = 5 * time.Minute
	DefaultBufferSize     = 100
	DefaultAPIKeyHeader   = "X-API-Key"
)

// Source types.
const (
	SourceFile       = "file"
	SourceHTTP       = "http"
	SourcePrometheus = "prometheus"
)

// Config is the agent configuration parsed from the `agent:` section of
// config.yaml. The `server:` key in the same file is ignored.
type Config struct {
	Agent AgentConfig `yaml:"agent"`
}

// AgentConfig holds all agent-side settings.
type AgentConfig struct {
	// ServerEndpoint is the base URL of scanboard-server, e.g. http://scanboard:8080/.
	ServerEndpoint string `yaml:"server_endpoint"`

	// PollInterval controls how often each source is loaded.
	PollInterval time.Duration `yaml:"poll_interval"`

	// ShipInterval controls how often buffered summaries are sent to the server.
	ShipInterval time.Duration `yaml:"ship_interval"`

	// ResendInterval forces an unchanged summary to be shipped again so the
	// server's snapshot TTL does not expire it.
	ResendInterval time.Duration `yaml:"resend_interval"`

	// BufferSize is the maximum number of summaries held in memory while the
	// server is unreachable.
	BufferSize int `yaml:"buffer_size"`

	// Sources is the list of audit result sources to poll.
	Sources []Source `yaml:"sources"`

	// ServerAuth configures how the agent authenticates uploads.
	ServerAuth ServerAuthConfig `yaml:"server_auth"`
}

// Source describes one place audit results are read from.
type Source struct {
	// ID is a unique, human-readable identifier for this source.
	ID string `yaml:"id"`

	// Type is one of: file | http | prometheus.
	Type string `yaml:"type"`

	// Endpoint is a file path for file sources and a URL otherwise.
	Endpoint string `yaml:"endpoint"`

	// DisplayName overrides the cluster name in the loaded summary.
	DisplayName string `yaml:"display_name"`

	Auth AuthConfig `yaml:"auth"`
	TLS  TLSConfig  `yaml:"tls"`
}

// AuthConfig specifies how the agent authenticates to an http or prometheus source.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// mTLS client certificate and optional CA bundle.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// Header carries the API key. Defaults to X-API-Key.
	Header string `yaml:"header"`
	KeyEnv string `yaml:"key_env"`

	TokenEnv string `yaml:"token_env"`

	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string { return lookupEnv(a.KeyEnv) }

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string { return lookupEnv(a.TokenEnv) }

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string { return lookupEnv(a.PasswordEnv) }

// EffectiveHeader returns the configured API key header or the default.
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return DefaultAPIKeyHeader
}

// TLSConfig holds per-source TLS dial options.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// ServerAuthConfig holds the API key the agent presents to scanboard-server.
type ServerAuthConfig struct {
	Header string `yaml:"header"`
	KeyEnv string `yaml:"key_env"`
}

// Key returns the upload API key resolved from the environment.
func (s ServerAuthConfig) Key() string { return lookupEnv(s.KeyEnv) }

// EffectiveHeader returns the configured header or X-API-Key.
func (s ServerAuthConfig) EffectiveHeader() string {
	if s.Header != "" {
		return s.Header
	}
	return DefaultAPIKeyHeader
}

func lookupEnv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("agent config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("agent config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("agent config: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			PollInterval:   DefaultPollInterval,
			ShipInterval:   DefaultShipInterval,
			ResendInterval: DefaultResendInterval,
			BufferSize:     DefaultBufferSize,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	a := cfg.Agent
	if a.ServerEndpoint == "" {
		return fmt.Errorf("agent.server_endpoint is required")
	}
	if !isHTTPURL(a.ServerEndpoint) {
		return fmt.Errorf("agent.server_endpoint %q must be an http(s) URL", a.ServerEndpoint)
	}
	if a.PollInterval <= 0 {
		return fmt.Errorf("agent.poll_interval must be positive")
	}
	if a.ShipInterval <= 0 {
		return fmt.Errorf("agent.ship_interval must be positive")
	}
	if a.ResendInterval < 0 {
		return fmt.Errorf("agent.resend_interval must not be negative")
	}
	if a.BufferSize <= 0 {
		return fmt.Errorf("agent.buffer_size must be positive")
	}

	seen := make(map[string]bool, len(a.Sources))
	for i, src := range a.Sources {
		if src.ID == "" {
			return fmt.Errorf("sources[%d]: id is required", i)
		}
		if seen[src.ID] {
			return fmt.Errorf("sources[%d]: duplicate id %q", i, src.ID)
		}
		seen[src.ID] = true
		if src.Endpoint == "" {
			return fmt.Errorf("sources[%d] %q: endpoint is required", i, src.ID)
		}
		switch src.Type {
		case SourceFile:
		case SourceHTTP, SourcePrometheus:
			if !isHTTPURL(src.Endpoint) {
				return fmt.Errorf("sources[%d] %q: endpoint %q must be an http(s) URL", i, src.ID, src.Endpoint)
			}
		default:
			return fmt.Errorf("sources[%d] %q: unknown type %q", i, src.ID, src.Type)
		}
		switch src.Auth.Mode {
		case "mtls", "apikey", "bearer", "basic", "none", "":
		default:
			return fmt.Errorf("sources[%d] %q: unknown auth mode %q", i, src.ID, src.Auth.Mode)
		}
	}
	return nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
