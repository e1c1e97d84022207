package instrumentation

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	for _, key := range []string{
		"OTEL_SERVICE_NAME", "INSTRUMENTATION_ENABLED", "METRICS_EXPORTER", "TRACING_EXPORTER",
		"OTEL_TRACES_SAMPLER_ARG", "OTEL_METRIC_EXPORT_INTERVAL", "AUDIT_LOGGING_ENABLED", "AUDIT_LOGGING_INCLUDE_RESOURCE_IDS",
	} {
		t.Setenv(key, "")
	}

	config := DefaultConfig()

	assert.Equal(t, "workast-mcp", config.ServiceName)
	assert.True(t, config.Enabled)
	assert.Equal(t, ExporterPrometheus, config.MetricsExporter)
	assert.Equal(t, ExporterNone, config.TracingExporter)
	assert.Equal(t, 0.1, config.TraceSamplingRate)
	assert.Equal(t, DefaultMetricInterval, config.MetricInterval)
	assert.True(t, config.AuditLogging.Enabled)
	assert.False(t, config.AuditLogging.IncludeResourceIDs)
}

func TestDefaultConfig_FromEnv(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "test-service")
	t.Setenv("INSTRUMENTATION_ENABLED", "false")
	t.Setenv("METRICS_EXPORTER", "stdout")
	t.Setenv("TRACING_EXPORTER", "stdout")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.5")
	t.Setenv("OTEL_METRIC_EXPORT_INTERVAL", "30s")
	t.Setenv("AUDIT_LOGGING_INCLUDE_RESOURCE_IDS", "true")

	config := DefaultConfig()

	assert.Equal(t, "test-service", config.ServiceName)
	assert.False(t, config.Enabled)
	assert.Equal(t, "stdout", config.MetricsExporter)
	assert.Equal(t, "stdout", config.TracingExporter)
	assert.Equal(t, 0.5, config.TraceSamplingRate)
	assert.Equal(t, 30*time.Second, config.MetricInterval)
	assert.True(t, config.AuditLogging.IncludeResourceIDs)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		errContains string
	}{
		{
			name: "valid config with prometheus",
			config: Config{
				MetricsExporter: ExporterPrometheus,
				TracingExporter: ExporterNone,
			},
		},
		{
			name: "valid config with otlp",
			config: Config{
				MetricsExporter: ExporterPrometheus,
				TracingExporter: ExporterOTLP,
				OTLPEndpoint:    "localhost:4318",
			},
		},
		{
			name:        "sampling rate negative",
			config:      Config{TraceSamplingRate: -0.5},
			errContains: "sampling rate",
		},
		{
			name:        "sampling rate above 1",
			config:      Config{TraceSamplingRate: 1.5},
			errContains: "sampling rate",
		},
		{
			name:        "unknown metrics exporter",
			config:      Config{MetricsExporter: "statsd"},
			errContains: "invalid metrics exporter",
		},
		{
			name:        "unknown tracing exporter",
			config:      Config{TracingExporter: "zipkin"},
			errContains: "invalid tracing exporter",
		},
		{
			name:        "otlp tracing without endpoint",
			config:      Config{TracingExporter: ExporterOTLP},
			errContains: "OTLP endpoint is required",
		},
		{
			name:        "otlp metrics without endpoint",
			config:      Config{MetricsExporter: ExporterOTLP},
			errContains: "OTLP endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestConfig_ValidateReportsAllProblems(t *testing.T) {
	config := Config{TraceSamplingRate: 2, MetricsExporter: "statsd", TracingExporter: ExporterOTLP}

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sampling rate")
	assert.Contains(t, err.Error(), "invalid metrics exporter")
	assert.Contains(t, err.Error(), "OTLP endpoint is required when using OTLP tracing exporter")
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("WORKAST_TEST_STRING", "value")
	t.Setenv("WORKAST_TEST_BOOL", "true")
	t.Setenv("WORKAST_TEST_BAD_BOOL", "maybe")
	t.Setenv("WORKAST_TEST_FLOAT", "0.25")
	t.Setenv("WORKAST_TEST_BAD_FLOAT", "lots")
	t.Setenv("WORKAST_TEST_DURATION", "2m")

	assert.Equal(t, "value", envString("WORKAST_TEST_STRING", "default"))
	assert.Equal(t, "default", envString("WORKAST_TEST_UNSET", "default"))

	assert.True(t, envOr("WORKAST_TEST_BOOL", false, strconv.ParseBool))
	assert.True(t, envOr("WORKAST_TEST_BAD_BOOL", true, strconv.ParseBool))
	assert.False(t, envOr("WORKAST_TEST_UNSET", false, strconv.ParseBool))

	assert.Equal(t, 0.25, envOr("WORKAST_TEST_FLOAT", 1.0, parseFloat))
	assert.Equal(t, 0.1, envOr("WORKAST_TEST_BAD_FLOAT", 0.1, parseFloat))
	assert.Equal(t, 0.1, envOr("WORKAST_TEST_UNSET", 0.1, parseFloat))

	assert.Equal(t, 2*time.Minute, envOr("WORKAST_TEST_DURATION", time.Second, time.ParseDuration))
}
