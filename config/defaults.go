package config

import "time"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server:  DefaultServerConfig(),
		Handoff: DefaultHandoffConfig(),
		Redis:   DefaultRedisConfig(),
		Log:     DefaultLogConfig(),
	}
}

// DefaultServerConfig returns the default listener configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// DefaultHandoffConfig returns the default validation thresholds.
func DefaultHandoffConfig() HandoffConfig {
	return HandoffConfig{
		CompatibilityThreshold: 0.5,
		SuggestionLimit:        3,
		MinSuggestionScore:     0.05,
	}
}

// DefaultRedisConfig returns the default journal backend configuration. The
// journal is disabled until an address is configured.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		RecordTTL:    24 * time.Hour,
	}
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stdout"},
	}
}
