package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ServerEntry describes one backend inference server. Position in the
// Servers list is the server's priority rank (0 = highest).
type ServerEntry struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	BaseURL string `json:"base_url" yaml:"base_url" toml:"base_url"`
}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr                   string        `json:"addr" yaml:"addr" toml:"addr"`
	Servers                []ServerEntry `json:"servers" yaml:"servers" toml:"servers"`
	CacheTTLSeconds        int           `json:"cache_ttl_seconds" yaml:"cache_ttl_seconds" toml:"cache_ttl_seconds"`
	FetchTimeoutSeconds    int           `json:"fetch_timeout_seconds" yaml:"fetch_timeout_seconds" toml:"fetch_timeout_seconds"`
	GenerateTimeoutSeconds int           `json:"generate_timeout_seconds" yaml:"generate_timeout_seconds" toml:"generate_timeout_seconds"`
	SweepIntervalSeconds   int           `json:"sweep_interval_seconds" yaml:"sweep_interval_seconds" toml:"sweep_interval_seconds"`
	HistoryDB              string        `json:"history_db" yaml:"history_db" toml:"history_db"`
	LogLevel               string        `json:"log_level" yaml:"log_level" toml:"log_level"`
	CORSEnabled            bool          `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins            []string      `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Defaults applied when the corresponding fields are unset.
const (
	DefaultAddr            = ":11400"
	DefaultCacheTTL        = 30
	DefaultFetchTimeout    = 5
	DefaultGenerateTimeout = 300
	DefaultSweepInterval   = 60
	DefaultHistoryDB       = "inferd.db"
)

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyDefaults fills unspecified fields in place.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.CacheTTLSeconds <= 0 {
		c.CacheTTLSeconds = DefaultCacheTTL
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = DefaultFetchTimeout
	}
	if c.GenerateTimeoutSeconds <= 0 {
		c.GenerateTimeoutSeconds = DefaultGenerateTimeout
	}
	if c.SweepIntervalSeconds <= 0 {
		c.SweepIntervalSeconds = DefaultSweepInterval
	}
	if c.HistoryDB == "" {
		c.HistoryDB = DefaultHistoryDB
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// HistoryEnabled reports whether prompt persistence is on. Setting
// history_db to "none" turns it off.
func (c Config) HistoryEnabled() bool {
	return c.HistoryDB != "" && !strings.EqualFold(c.HistoryDB, "none")
}

// Validate checks constraints that cannot be defaulted away: at least one
// server, unique names, non-empty base URLs.
func (c *Config) Validate() error {
	if len(c.Servers) == 0 {
		return fmt.Errorf("no servers configured")
	}
	seen := make(map[string]struct{}, len(c.Servers))
	for i, s := range c.Servers {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("server %d: empty name", i)
		}
		if strings.TrimSpace(s.BaseURL) == "" {
			return fmt.Errorf("server %q: empty base_url", s.Name)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("duplicate server name: %q", s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}

// CacheTTL returns the model cache TTL as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// FetchTimeout returns the model-list fetch timeout as a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// GenerateTimeout returns the backend execution timeout as a duration.
func (c Config) GenerateTimeout() time.Duration {
	return time.Duration(c.GenerateTimeoutSeconds) * time.Second
}

// SweepInterval returns the periodic pool refresh interval as a duration.
func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}
