// Package config provides configuration management for sealcheck.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (standard names like LOG_LEVEL, PLATFORM_DOMAIN)
// 3. Default values
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"sealcheck.io/sealcheck/internal/domain"
)

// Config is the root configuration structure.
type Config struct {
	Platform   PlatformConfig    `mapstructure:"platform"`
	Nodes      []NodeConfig      `mapstructure:"nodes"`
	Identities map[string]string `mapstructure:"identities"`
	Timeouts   TimeoutConfig     `mapstructure:"timeouts"`
	Worker     WorkerConfig      `mapstructure:"worker"`
	Log        LogConfig         `mapstructure:"log"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
}

// PlatformConfig identifies the execution platform under test.
type PlatformConfig struct {
	// Domain is the privacy-group domain groups are created in.
	Domain string `mapstructure:"domain"`
}

// NodeConfig declares one execution node endpoint.
type NodeConfig struct {
	ID       string `mapstructure:"id"`
	Endpoint string `mapstructure:"endpoint"`
}

// TimeoutConfig bounds every blocking phase of a run.
type TimeoutConfig struct {
	Connect         time.Duration `mapstructure:"connect"`
	Request         time.Duration `mapstructure:"request"`
	Ready           time.Duration `mapstructure:"ready"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	ReceiptInterval time.Duration `mapstructure:"receipt_interval"`
	Receipt         time.Duration `mapstructure:"receipt"`
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	GroupPoolSize int `mapstructure:"group_pool_size"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// MetricsConfig contains the optional scrape listener settings. A one-shot
// CI run leaves it disabled; soak runs point a scraper at Addr.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load reads configuration from an optional file plus environment
// variables. An empty path searches the standard locations.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/sealcheck")
	}

	// Maps nested config: timeouts.poll_interval → TIMEOUTS_POLL_INTERVAL
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file is optional, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if len(c.Nodes) == 0 {
		return fmt.Errorf("nodes must declare at least one endpoint")
	}

	ids := make(map[string]bool, len(c.Nodes))
	for i, n := range c.Nodes {
		if n.ID == "" {
			return fmt.Errorf("nodes[%d]: id must not be empty", i)
		}
		if n.Endpoint == "" {
			return fmt.Errorf("node %s: endpoint must not be empty", n.ID)
		}
		if ids[n.ID] {
			return fmt.Errorf("node %s: duplicate id", n.ID)
		}
		ids[n.ID] = true
	}

	for name, nodeID := range c.Identities {
		if name == "" {
			return fmt.Errorf("identities: empty identity name")
		}
		if !ids[nodeID] {
			return fmt.Errorf("identity %s: unknown home node %q", name, nodeID)
		}
	}

	if c.Platform.Domain == "" {
		return fmt.Errorf("platform.domain must not be empty")
	}
	if c.Worker.GroupPoolSize <= 0 {
		return fmt.Errorf("worker.group_pool_size must be positive")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr must be set when metrics are enabled")
	}
	return nil
}

// DomainNodes converts the node configuration into the domain model.
func (c *Config) DomainNodes() []domain.Node {
	nodes := make([]domain.Node, len(c.Nodes))
	for i, n := range c.Nodes {
		nodes[i] = domain.Node{ID: n.ID, Endpoint: n.Endpoint}
	}
	return nodes
}

func setDefaults(v *viper.Viper) {
	// Platform
	v.SetDefault("platform.domain", "pente")

	// Timeouts
	v.SetDefault("timeouts.connect", "5s")
	v.SetDefault("timeouts.request", "30s")
	v.SetDefault("timeouts.ready", "45s")
	v.SetDefault("timeouts.poll_interval", "2s")
	v.SetDefault("timeouts.receipt_interval", "1s")
	v.SetDefault("timeouts.receipt", "30s")

	// Worker pool
	v.SetDefault("worker.group_pool_size", 4)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Metrics
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
}
