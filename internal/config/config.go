package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/andywolf/prompttoproduct/internal/logging"
	"github.com/andywolf/prompttoproduct/internal/memory"
	"github.com/andywolf/prompttoproduct/internal/observability"
	"github.com/andywolf/prompttoproduct/internal/routing"
	"github.com/andywolf/prompttoproduct/internal/stages"
	"github.com/andywolf/prompttoproduct/internal/workflow"
)

// Config represents the full p2p configuration
type Config struct {
	Engine    EngineConfig          `mapstructure:"engine" yaml:"engine"`
	Routing   routing.IntentRouting `mapstructure:"routing" yaml:"routing,omitempty"`
	Memory    memory.Config         `mapstructure:"memory" yaml:"memory"`
	Logging   logging.Config        `mapstructure:"logging" yaml:"logging"`
	Telemetry observability.Config  `mapstructure:"telemetry" yaml:"telemetry"`
	Server    ServerConfig          `mapstructure:"server" yaml:"server"`
	Output    stages.Config         `mapstructure:"output" yaml:"output"`
}

// EngineConfig contains workflow engine settings. Durations are strings
// such as "200ms" or "2s".
type EngineConfig struct {
	MaxErrors     int    `mapstructure:"max_errors" yaml:"max_errors"`
	RetryDelay    string `mapstructure:"retry_delay" yaml:"retry_delay,omitempty"`
	RetryMaxDelay string `mapstructure:"retry_max_delay" yaml:"retry_max_delay,omitempty"`
	HistoryLimit  int    `mapstructure:"history_limit" yaml:"history_limit,omitempty"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// DefaultServerAddr is the listen address for `p2p serve`.
const DefaultServerAddr = ":8080"

// Load loads configuration from the global viper instance
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// envKeys are bound explicitly so that environment variables apply even
// when the key is absent from the config file.
var envKeys = []string{
	"engine.max_errors",
	"engine.retry_delay",
	"engine.retry_max_delay",
	"engine.history_limit",
	"memory.capacity",
	"memory.backend",
	"memory.dir",
	"memory.redis.addr",
	"memory.redis.db",
	"memory.redis.prefix",
	"memory.redis.password",
	"memory.redis.password_secret",
	"logging.format",
	"logging.gcp_project",
	"logging.log_id",
	"telemetry.enabled",
	"telemetry.stdout",
	"server.addr",
	"output.dir",
}

// LoadFrom loads configuration from v
func LoadFrom(v *viper.Viper) (*Config, error) {
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	cfg := &Config{}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)
	normalizeRoutingKeys(cfg)

	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.Engine.MaxErrors == 0 {
		cfg.Engine.MaxErrors = workflow.DefaultMaxErrors
	}

	if cfg.Engine.HistoryLimit == 0 {
		cfg.Engine.HistoryLimit = workflow.DefaultHistoryLimit
	}

	if cfg.Memory.Capacity == 0 {
		cfg.Memory.Capacity = memory.DefaultCapacity
	}

	if cfg.Memory.Backend == "" {
		cfg.Memory.Backend = memory.BackendFile
	}

	if cfg.Memory.Dir == "" {
		cfg.Memory.Dir = memory.DefaultDir
	}

	if cfg.Memory.Redis.Prefix == "" {
		cfg.Memory.Redis.Prefix = memory.DefaultPrefix
	}

	if cfg.Logging.Format == "" {
		cfg.Logging.Format = logging.FormatText
	}

	if cfg.Logging.LogID == "" {
		cfg.Logging.LogID = logging.DefaultLogID
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}

	if cfg.Output.OutputDir == "" {
		cfg.Output.OutputDir = stages.DefaultOutputDir
	}
}

// normalizeRoutingKeys lower-cases intent names and upper-cases stage
// names so overrides match regardless of how they were written.
func normalizeRoutingKeys(cfg *Config) {
	if len(cfg.Routing.Overrides) == 0 {
		return
	}
	normalized := make(map[string]string, len(cfg.Routing.Overrides))
	for k, v := range cfg.Routing.Overrides {
		normalized[strings.ToLower(strings.TrimSpace(k))] = strings.ToUpper(strings.TrimSpace(v))
	}
	cfg.Routing.Overrides = normalized
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Engine.MaxErrors < 0 {
		return fmt.Errorf("engine.max_errors must be positive, got %d", c.Engine.MaxErrors)
	}

	if c.Engine.HistoryLimit < 0 {
		return fmt.Errorf("engine.history_limit must not be negative, got %d", c.Engine.HistoryLimit)
	}

	for _, d := range []struct{ key, value string }{
		{"engine.retry_delay", c.Engine.RetryDelay},
		{"engine.retry_max_delay", c.Engine.RetryMaxDelay},
	} {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		if parsed < 0 {
			return fmt.Errorf("invalid %s: must not be negative", d.key)
		}
	}

	if c.Memory.Capacity < 0 {
		return fmt.Errorf("memory.capacity must be positive, got %d", c.Memory.Capacity)
	}

	switch c.Memory.Backend {
	case "", memory.BackendFile, memory.BackendNone:
	case memory.BackendRedis:
		if c.Memory.Redis.Addr == "" {
			return fmt.Errorf("memory.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid memory backend: %s (must be file, redis, or none)", c.Memory.Backend)
	}

	switch c.Logging.Format {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("invalid logging format: %s (must be text or json)", c.Logging.Format)
	}

	if invalid := routing.NewRouter(&c.Routing).InvalidOverrides(); len(invalid) > 0 {
		return fmt.Errorf("invalid routing overrides: %s (stages must be one of GENERATE, CODEGEN, VALIDATE)",
			strings.Join(invalid, ", "))
	}

	return nil
}

// WorkflowConfig converts the engine section for workflow.New. Call
// Validate first; unparsable durations are treated as zero.
func (c *Config) WorkflowConfig() workflow.Config {
	delay, _ := time.ParseDuration(c.Engine.RetryDelay)
	maxDelay, _ := time.ParseDuration(c.Engine.RetryMaxDelay)
	return workflow.Config{
		MaxErrors:     c.Engine.MaxErrors,
		RetryDelay:    delay,
		RetryMaxDelay: maxDelay,
		HistoryLimit:  c.Engine.HistoryLimit,
	}
}
