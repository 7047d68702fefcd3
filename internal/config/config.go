// Package config loads the engine's own tunables: future timeouts,
// an in-flight request limit, record-pool chunk size, and the
// metrics/tracing exporter settings (SPEC_FULL §6).
// The embedding UI's configuration is out of scope (spec §1), but the
// engine still needs a config story for its internal knobs, loaded
// the way the teacher's internal/config.LoadConfig does: defaults,
// then an optional YAML file, then environment variable overrides,
// then validation before anything starts.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rocprofvis/datamodel/pkg/enginetracing"
	"gopkg.in/yaml.v2"
)

// Config holds every engine-level tunable.
type Config struct {
	// FutureDefaultTimeoutMs is used by callers that want a sane
	// default rather than computing their own Future.Wait deadline.
	FutureDefaultTimeoutMs int64 `yaml:"future_default_timeout_ms"`

	// MaxInFlightRequests is loaded, overridable through
	// ROCPROFVIS_MAX_IN_FLIGHT and validated as positive, but no
	// component reads it: the loader starts one goroutine per request
	// and does not cap or reject in-flight requests.
	MaxInFlightRequests int `yaml:"max_in_flight_requests"`

	// RecordPoolChunkSize is loaded and validated but not read: record
	// pools always use datamodel.MemPoolChunk (1024) slots per chunk.
	RecordPoolChunkSize int `yaml:"record_pool_chunk_size"`

	// RefCacheDbInstanceCapacityHint is loaded but not read:
	// refcache.New takes no capacity and starts from an empty map.
	RefCacheDbInstanceCapacityHint int `yaml:"refcache_capacity_hint"`

	Metrics MetricsConfig        `yaml:"metrics"`
	Tracing enginetracing.Config `yaml:"tracing"`
	Log     LogConfig            `yaml:"log"`
}

// MetricsConfig toggles Prometheus instrumentation.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig configures the engine's logrus.Logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns the engine's built-in defaults.
func Default() Config {
	return Config{
		FutureDefaultTimeoutMs:         30_000,
		MaxInFlightRequests:            64,
		RecordPoolChunkSize:            1024,
		RefCacheDbInstanceCapacityHint: 4096,
		Metrics:                        MetricsConfig{Enabled: false},
		Tracing:                        enginetracing.DefaultConfig(),
		Log:                            LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds a Config from defaults, an optional YAML file, and
// environment variable overrides, then validates the result.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFile(configFile, &cfg); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configFile, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ROCPROFVIS_FUTURE_TIMEOUT_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.FutureDefaultTimeoutMs = n
		}
	}
	if v := os.Getenv("ROCPROFVIS_MAX_IN_FLIGHT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxInFlightRequests = n
		}
	}
	if v := os.Getenv("ROCPROFVIS_RECORD_POOL_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RecordPoolChunkSize = n
		}
	}
	if v := os.Getenv("ROCPROFVIS_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("ROCPROFVIS_TRACING_ENABLED"); v != "" {
		cfg.Tracing.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("ROCPROFVIS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate rejects obviously-broken configuration before the engine
// starts, mirroring the teacher's ValidateConfig gate.
func Validate(cfg *Config) error {
	if cfg.FutureDefaultTimeoutMs <= 0 {
		return fmt.Errorf("future_default_timeout_ms must be positive, got %d", cfg.FutureDefaultTimeoutMs)
	}
	if cfg.MaxInFlightRequests <= 0 {
		return fmt.Errorf("max_in_flight_requests must be positive, got %d", cfg.MaxInFlightRequests)
	}
	if cfg.RecordPoolChunkSize <= 0 {
		return fmt.Errorf("record_pool_chunk_size must be positive, got %d", cfg.RecordPoolChunkSize)
	}
	if cfg.Tracing.Enabled && cfg.Tracing.SampleRate < 0 {
		return fmt.Errorf("tracing.sample_rate must be >= 0, got %f", cfg.Tracing.SampleRate)
	}
	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}
	return nil
}

// FutureDefaultTimeout is a convenience accessor returning the
// timeout as a time.Duration.
func (c Config) FutureDefaultTimeout() time.Duration {
	return time.Duration(c.FutureDefaultTimeoutMs) * time.Millisecond
}
