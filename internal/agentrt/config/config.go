// Package config loads the runtime's YAML configuration file,
// applying a `${ENV_VAR}` overlay expansion for secrets before
// unmarshaling.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ProviderConfig configures one LLM provider adapter.
type ProviderConfig struct {
	Name        string  `yaml:"name"`
	Kind        string  `yaml:"kind"` // anthropic | openai_compat | bedrock
	APIKey      string  `yaml:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	Region      string  `yaml:"region,omitempty"`
	RateLimit   float64 `yaml:"rate_limit,omitempty"`
	Burst       int     `yaml:"burst,omitempty"`
}

// ChannelConfig configures a transport channel adapter.
type ChannelConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token,omitempty"`
	AppToken string `yaml:"app_token,omitempty"`
}

// SessionConfig configures the session store backend.
type SessionConfig struct {
	Backend string `yaml:"backend"` // memory | file | sql
	Path    string `yaml:"path,omitempty"`
	Driver  string `yaml:"driver,omitempty"` // sqlite | postgres
	DSN     string `yaml:"dsn,omitempty"`
}

// MemoryConfig configures long-term memory persistence and scoring.
type MemoryConfig struct {
	Path   string `yaml:"path"`
	Scorer string `yaml:"scorer"` // substring | bm25
}

// StartupGuardConfig configures the crash-loop breaker.
type StartupGuardConfig struct {
	Path      string `yaml:"path"`
	Threshold int    `yaml:"threshold"`
	WindowSec int    `yaml:"window_seconds"`
}

// DependencyConfig declares one external artifact the dependency
// manager installs and (optionally) starts at boot.
type DependencyConfig struct {
	Name        string            `yaml:"name"`
	Kind        string            `yaml:"kind"` // binary | container-image | node-package | python-package
	EntryPoint  string            `yaml:"entry_point,omitempty"`
	Ports       []int             `yaml:"ports,omitempty"`
	Env         map[string]string `yaml:"env,omitempty"`
	Args        []string          `yaml:"args,omitempty"`
	Autostart   bool              `yaml:"autostart,omitempty"`
	HealthKind  string            `yaml:"health_kind,omitempty"` // none | tcp-port | http | websocket | command
	HealthTarget string           `yaml:"health_target,omitempty"`
}

// ServerConfig configures the health/metrics endpoint and the local
// HTTP API.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	APIAddr   string `yaml:"api_addr,omitempty"`
	JWTSecret string `yaml:"jwt_secret,omitempty"`
}

// Config is the runtime's top-level configuration.
type Config struct {
	SystemPrompt      string               `yaml:"system_prompt,omitempty"`
	MaxToolIterations int                  `yaml:"max_tool_iterations,omitempty"`
	Workspace         string               `yaml:"workspace,omitempty"`
	Providers         []ProviderConfig     `yaml:"providers"`
	Channels          map[string]ChannelConfig `yaml:"channels,omitempty"`
	Session           SessionConfig        `yaml:"session"`
	Memory            MemoryConfig         `yaml:"memory"`
	StartupGuard      StartupGuardConfig   `yaml:"startup_guard"`
	Server            ServerConfig         `yaml:"server"`
	DepsDir           string               `yaml:"deps_dir,omitempty"`
	Dependencies      []DependencyConfig   `yaml:"dependencies,omitempty"`
	DepMonitorSchedule string              `yaml:"dep_monitor_schedule,omitempty"`
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces every ${VAR} occurrence with os.Getenv(VAR),
// leaving unset variables as an empty string rather than erroring, so
// a config file can reference optional secrets.
func expandEnv(raw []byte) []byte {
	return envVarPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		name := envVarPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// Load reads path, applies the ${ENV_VAR} overlay, and unmarshals YAML
// into a Config.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	expanded := expandEnv(raw)

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.MaxToolIterations == 0 {
		cfg.MaxToolIterations = 5
	}
	if cfg.Session.Backend == "" {
		cfg.Session.Backend = "memory"
	}
	if cfg.Memory.Scorer == "" {
		cfg.Memory.Scorer = "bm25"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.APIAddr == "" {
		cfg.Server.APIAddr = ":8090"
	}
	if cfg.StartupGuard.Threshold == 0 {
		cfg.StartupGuard.Threshold = 3
	}
	if cfg.StartupGuard.WindowSec == 0 {
		cfg.StartupGuard.WindowSec = 300
	}
}
