package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, Validate(&cfg))
}

func TestLoadWithNoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().RecordPoolChunkSize, cfg.RecordPoolChunkSize)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	yamlBody := "future_default_timeout_ms: 5000\nmax_in_flight_requests: 8\nlog:\n  level: debug\n  format: json\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), cfg.FutureDefaultTimeoutMs)
	assert.Equal(t, 8, cfg.MaxInFlightRequests)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestEnvOverridesBeatFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_in_flight_requests: 8\n"), 0o644))

	t.Setenv("ROCPROFVIS_MAX_IN_FLIGHT", "3")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxInFlightRequests)
}

func TestValidateRejectsNonPositiveTimeout(t *testing.T) {
	cfg := Default()
	cfg.FutureDefaultTimeoutMs = 0
	assert.Error(t, Validate(&cfg))
}

func TestValidateRejectsBadLogFormat(t *testing.T) {
	cfg := Default()
	cfg.Log.Format = "xml"
	assert.Error(t, Validate(&cfg))
}

func TestValidateRejectsNegativeSampleRateWhenTracingEnabled(t *testing.T) {
	cfg := Default()
	cfg.Tracing.Enabled = true
	cfg.Tracing.SampleRate = -0.5
	assert.Error(t, Validate(&cfg))
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/path/engine.yaml")
	assert.Error(t, err)
}

func TestFutureDefaultTimeoutConversion(t *testing.T) {
	cfg := Default()
	cfg.FutureDefaultTimeoutMs = 2500
	assert.Equal(t, int64(2500), cfg.FutureDefaultTimeout().Milliseconds())
}
