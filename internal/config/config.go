package config

import (
	"net/url"
	"os"
	"strconv"
	"time"

	"biometric/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Aggregation AggregationConfig
	Debounce    DebounceConfig
	Server      ServerConfig
	Export      ExportConfig
	Logging     LoggingConfig
	Dev         DevConfig
}

// AggregationConfig points at the remote statistics service
type AggregationConfig struct {
	BaseURL         string
	CorrelationPath string
	SmartTablePath  string
	FrequencyPath   string
	Timeout         time.Duration
}

// DebounceConfig holds the coalescing windows per view kind
type DebounceConfig struct {
	Correlation time.Duration
	Descriptive time.Duration
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// ExportConfig holds export destination settings for the CLI
type ExportConfig struct {
	Dir string
}

// LoggingConfig holds zap logger settings
type LoggingConfig struct {
	Level       string
	Development bool
}

// DevConfig holds settings for the in-process development aggregator
type DevConfig struct {
	AggregatorPort string
	SampleRows     int
}

// Policy constants for the debounce windows and the aggregation timeout
const (
	DefaultCorrelationDebounce = 500 * time.Millisecond
	DefaultDescriptiveDebounce = 300 * time.Millisecond
	DefaultAggregationTimeout  = 60 * time.Second
)

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Aggregation: loadAggregationConfig(),
		Debounce:    loadDebounceConfig(),
		Server:      loadServerConfig(),
		Export:      loadExportConfig(),
		Logging:     loadLoggingConfig(),
		Dev:         loadDevConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// Default returns the configuration used when no environment is set
func Default() *Config {
	return &Config{
		Aggregation: AggregationConfig{
			BaseURL:         "http://localhost:8000/api/v1",
			CorrelationPath: "/stats/correlations",
			SmartTablePath:  "/stats/smart-table",
			FrequencyPath:   "/stats/frequency",
			Timeout:         DefaultAggregationTimeout,
		},
		Debounce: DebounceConfig{
			Correlation: DefaultCorrelationDebounce,
			Descriptive: DefaultDescriptiveDebounce,
		},
		Server:  ServerConfig{Port: "8080", GinMode: "debug"},
		Export:  ExportConfig{Dir: "."},
		Logging: LoggingConfig{Level: "info"},
		Dev:     DevConfig{AggregatorPort: "8000", SampleRows: 400},
	}
}

func loadAggregationConfig() AggregationConfig {
	def := Default().Aggregation
	return AggregationConfig{
		BaseURL:         getEnvOrDefault("AGGREGATION_BASE_URL", def.BaseURL),
		CorrelationPath: getEnvOrDefault("AGGREGATION_CORRELATION_PATH", def.CorrelationPath),
		SmartTablePath:  getEnvOrDefault("AGGREGATION_SMART_TABLE_PATH", def.SmartTablePath),
		FrequencyPath:   getEnvOrDefault("AGGREGATION_FREQUENCY_PATH", def.FrequencyPath),
		Timeout:         getEnvDurationOrDefault("AGGREGATION_TIMEOUT", def.Timeout),
	}
}

func loadDebounceConfig() DebounceConfig {
	return DebounceConfig{
		Correlation: getEnvDurationOrDefault("CORRELATION_DEBOUNCE", DefaultCorrelationDebounce),
		Descriptive: getEnvDurationOrDefault("DESCRIPTIVE_DEBOUNCE", DefaultDescriptiveDebounce),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func loadExportConfig() ExportConfig {
	return ExportConfig{
		Dir: getEnvOrDefault("EXPORT_DIR", "."),
	}
}

func loadLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:       getEnvOrDefault("LOG_LEVEL", "info"),
		Development: getEnvBoolOrDefault("LOG_DEVELOPMENT", false),
	}
}

func loadDevConfig() DevConfig {
	return DevConfig{
		AggregatorPort: getEnvOrDefault("DEV_AGGREGATOR_PORT", "8000"),
		SampleRows:     getEnvIntOrDefault("DEV_SAMPLE_ROWS", 400),
	}
}

func validateConfig(config *Config) error {
	if config.Aggregation.BaseURL == "" {
		return errors.ConfigInvalid("aggregation base URL is required")
	}
	if u, err := url.Parse(config.Aggregation.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.ConfigInvalid("aggregation base URL must be absolute")
	}
	if config.Aggregation.Timeout <= 0 {
		return errors.ConfigInvalid("aggregation timeout must be positive")
	}
	if config.Debounce.Correlation <= 0 || config.Debounce.Descriptive <= 0 {
		return errors.ConfigInvalid("debounce windows must be positive")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
