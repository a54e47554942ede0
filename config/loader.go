// Package config provides unified configuration loading for agentrelay:
// defaults, YAML file, then environment-variable overrides.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("AGENTRELAY").
//	    Load()
//
// Precedence: defaults → YAML file → environment variables.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/agentrelay/handoff"
)

// Config is the complete agentrelay configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" env:"SERVER"`
	Handoff HandoffConfig `yaml:"handoff" env:"HANDOFF"`
	Redis   RedisConfig   `yaml:"redis" env:"REDIS"`
	Log     LogConfig     `yaml:"log" env:"LOG"`

	// Agents is the capability table. Empty means the built-in default
	// table is used.
	Agents []AgentConfig `yaml:"agents" env:"-"`
}

// ServerConfig configures the HTTP and metrics listeners.
type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port" env:"HTTP_PORT"`
	MetricsPort     int           `yaml:"metrics_port" env:"METRICS_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// HandoffConfig tunes validation thresholds.
type HandoffConfig struct {
	// CompatibilityThreshold is the exclusive minimum score a task must
	// reach against the target agent.
	CompatibilityThreshold float64 `yaml:"compatibility_threshold" env:"COMPATIBILITY_THRESHOLD"`
	// SuggestionLimit caps the alternatives attached to a rejection.
	SuggestionLimit int `yaml:"suggestion_limit" env:"SUGGESTION_LIMIT"`
	// MinSuggestionScore is the exclusive floor for suggesting an agent.
	MinSuggestionScore float64 `yaml:"min_suggestion_score" env:"MIN_SUGGESTION_SCORE"`
}

// RedisConfig configures the handoff journal backend. An empty Addr disables
// the journal.
type RedisConfig struct {
	Addr         string        `yaml:"addr" env:"ADDR"`
	Password     string        `yaml:"password" env:"PASSWORD"`
	DB           int           `yaml:"db" env:"DB"`
	PoolSize     int           `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int           `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	RecordTTL    time.Duration `yaml:"record_ttl" env:"RECORD_TTL"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// OutputPaths as understood by zap (e.g. stdout, file paths)
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// AgentConfig is one capability table entry.
type AgentConfig struct {
	Name           string   `yaml:"name"`
	PrimaryTasks   []string `yaml:"primary_tasks"`
	SecondaryTasks []string `yaml:"secondary_tasks"`
	Expertise      []string `yaml:"expertise"`
	RequiredInputs []string `yaml:"required_inputs"`
}

// Registry builds the capability registry configured by Agents, falling back
// to the built-in default table when none are configured.
func (c *Config) Registry() *handoff.Registry {
	if len(c.Agents) == 0 {
		return handoff.DefaultRegistry()
	}
	caps := make([]handoff.AgentCapability, 0, len(c.Agents))
	for _, a := range c.Agents {
		caps = append(caps, handoff.AgentCapability{
			AgentName:      a.Name,
			PrimaryTasks:   a.PrimaryTasks,
			SecondaryTasks: a.SecondaryTasks,
			Expertise:      a.Expertise,
			RequiredInputs: a.RequiredInputs,
		})
	}
	return handoff.NewRegistry(caps...)
}

// Loader loads configuration with a builder-style API.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "AGENTRELAY",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the YAML config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator adds a custom validation step.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load loads the configuration. Precedence: defaults → YAML file →
// environment variables.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing file falls back to defaults.
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv walks the config struct, overriding fields whose
// <prefix>_<env tag> variable is set.
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// Comma-separated string slices only.
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// MustLoad loads configuration from path, panicking on failure.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}
	if c.Server.HTTPPort == c.Server.MetricsPort {
		errs = append(errs, "HTTP and metrics ports must differ")
	}

	if c.Handoff.CompatibilityThreshold < 0 || c.Handoff.CompatibilityThreshold >= 1 {
		errs = append(errs, "compatibility_threshold must be in [0, 1)")
	}
	if c.Handoff.SuggestionLimit <= 0 {
		errs = append(errs, "suggestion_limit must be positive")
	}
	if c.Handoff.MinSuggestionScore < 0 || c.Handoff.MinSuggestionScore >= 1 {
		errs = append(errs, "min_suggestion_score must be in [0, 1)")
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}

	seen := make(map[string]struct{}, len(c.Agents))
	for _, a := range c.Agents {
		if a.Name == "" {
			errs = append(errs, "agent with empty name")
			continue
		}
		if _, dup := seen[a.Name]; dup {
			errs = append(errs, fmt.Sprintf("duplicate agent %q", a.Name))
		}
		seen[a.Name] = struct{}{}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}
