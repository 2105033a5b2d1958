// Package config loads the process's runtime settings in precedence order
// flag > env (MEDIASRV_ prefix) > YAML file > built-in defaults, using
// koanf for the file/env layers.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the complete set of runtime settings for the mediasrv process.
type Config struct {
	HTTPPort int `yaml:"http_port" koanf:"http_port"`

	MaxTasks int `yaml:"max_tasks" koanf:"max_tasks"`
	MaxQueue int `yaml:"max_queue" koanf:"max_queue"`

	CheckInterval time.Duration `yaml:"check_interval" koanf:"check_interval"`
	Timeout       time.Duration `yaml:"timeout" koanf:"timeout"`

	ListenAddr string `yaml:"listen_addr" koanf:"listen_addr"`
	ChunkSize  uint   `yaml:"chunk_size" koanf:"chunk_size"`

	LogLevel string `yaml:"log_level" koanf:"log_level"`
	LogDir   string `yaml:"log_dir" koanf:"log_dir"`

	RecordAll bool   `yaml:"record_all" koanf:"record_all"`
	RecordDir string `yaml:"record_dir" koanf:"record_dir"`

	HookStdioFormat string `yaml:"hook_stdio_format" koanf:"hook_stdio_format"`
	HookTimeout     string `yaml:"hook_timeout" koanf:"hook_timeout"`
	HookConcurrency int    `yaml:"hook_concurrency" koanf:"hook_concurrency"`
}

// Default returns the built-in defaults, the lowest-precedence layer.
func Default() Config {
	return Config{
		HTTPPort:        6088,
		MaxTasks:        3,
		MaxQueue:        0,
		CheckInterval:   time.Second,
		Timeout:         3 * time.Second,
		ListenAddr:      ":1935",
		ChunkSize:       4096,
		LogLevel:        "info",
		HookTimeout:     "30s",
		HookConcurrency: 10,
	}
}

// Validate rejects settings that would make the process unable to start.
func (c Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("config: http_port must be between 1 and 65535, got %d", c.HTTPPort)
	}
	if c.MaxTasks <= 0 {
		return fmt.Errorf("config: max_tasks must be positive, got %d", c.MaxTasks)
	}
	if c.MaxQueue < 0 {
		return fmt.Errorf("config: max_queue must be >= 0, got %d", c.MaxQueue)
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("config: check_interval must be positive, got %s", c.CheckInterval)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive, got %s", c.Timeout)
	}
	if c.ChunkSize == 0 || c.ChunkSize > 65536 {
		return fmt.Errorf("config: chunk_size must be between 1 and 65536, got %d", c.ChunkSize)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log_level %q", c.LogLevel)
	}
	if c.HookStdioFormat != "" && c.HookStdioFormat != "json" && c.HookStdioFormat != "env" {
		return fmt.Errorf("config: invalid hook_stdio_format %q, must be 'json' or 'env'", c.HookStdioFormat)
	}
	if c.HookConcurrency < 1 || c.HookConcurrency > 100 {
		return fmt.Errorf("config: hook_concurrency must be between 1 and 100, got %d", c.HookConcurrency)
	}
	return nil
}

// Load resolves a Config starting from Default(), layering in yamlPath (if
// non-empty), then MEDIASRV_-prefixed environment variables, then any flags
// fs has already parsed (only flags the caller actually set override prior
// layers — unset flags keep whatever the lower layers produced). fs and v
// are the pair returned by FlagSet; pass nil, nil to skip the flag layer
// entirely.
func Load(yamlPath string, fs *flag.FlagSet, v *flagValues) (Config, error) {
	cfg := Default()

	k := koanf.New(".")
	if yamlPath != "" {
		if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: load yaml: %w", err)
		}
	}

	envProvider := env.Provider(".", env.Opt{
		Prefix: "MEDIASRV_",
		TransformFunc: func(k, v string) (string, any) {
			return normalizeEnvKey(k), v
		},
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("config: load env: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	if fs != nil && v != nil {
		applyFlagOverrides(&cfg, fs, v)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
