package instrumentation

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Exporter types.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// DefaultMetricInterval is the export interval of push-based metric readers.
const DefaultMetricInterval = 10 * time.Second

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	// ServiceName is the name of the service (default: workast-mcp)
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// ServiceInstanceID identifies this process; empty falls back to the hostname
	ServiceInstanceID string

	// K8sNamespace and K8sPodName are attached to the resource when running in Kubernetes
	K8sNamespace string
	K8sPodName   string

	// Enabled turns metrics and tracing on (INSTRUMENTATION_ENABLED, default true)
	Enabled bool

	// MetricsExporter is one of prometheus, otlp, stdout (default prometheus)
	MetricsExporter string

	// TracingExporter is one of otlp, stdout, none (default none)
	TracingExporter string

	// OTLPEndpoint is the collector address without scheme, e.g. "localhost:4318"
	OTLPEndpoint string

	// OTLPInsecure sends OTLP over plain HTTP. Development only.
	OTLPInsecure bool

	// TraceSamplingRate is the ratio of root traces sampled, 0.0 to 1.0 (default 0.1)
	TraceSamplingRate float64

	// MetricInterval is how often otlp and stdout readers export
	MetricInterval time.Duration

	// DetailedLabels adds the normalized request path to upstream API metrics.
	DetailedLabels bool

	// AuditLogging configures audit logging behavior.
	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	// Enabled determines if audit logging is active (default: true)
	Enabled bool

	// IncludeResourceIDs controls whether the space or task IDs a tool acted on
	// are written to the audit log (default: false).
	IncludeResourceIDs bool
}

// DefaultConfig returns the configuration described by the environment,
// with defaults for everything unset.
func DefaultConfig() Config {
	return Config{
		ServiceName:       envString("OTEL_SERVICE_NAME", "workast-mcp"),
		ServiceVersion:    "unknown",
		ServiceInstanceID: envString("OTEL_SERVICE_INSTANCE_ID", ""),
		K8sNamespace:      envString("K8S_NAMESPACE", envString("POD_NAMESPACE", "")),
		K8sPodName:        envString("K8S_POD_NAME", envString("HOSTNAME", "")),
		Enabled:           envOr("INSTRUMENTATION_ENABLED", true, strconv.ParseBool),
		MetricsExporter:   envString("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:   envString("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:      envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      envOr("OTEL_EXPORTER_OTLP_INSECURE", false, strconv.ParseBool),
		TraceSamplingRate: envOr("OTEL_TRACES_SAMPLER_ARG", 0.1, parseFloat),
		MetricInterval:    envOr("OTEL_METRIC_EXPORT_INTERVAL", DefaultMetricInterval, time.ParseDuration),
		DetailedLabels:    envOr("METRICS_DETAILED_LABELS", false, strconv.ParseBool),
		AuditLogging: AuditLoggingConfig{
			Enabled:            envOr("AUDIT_LOGGING_ENABLED", true, strconv.ParseBool),
			IncludeResourceIDs: envOr("AUDIT_LOGGING_INCLUDE_RESOURCE_IDS", false, strconv.ParseBool),
		},
	}
}

// Validate reports every problem with the configuration at once.
// Empty exporter names are accepted and mean the default.
func (c *Config) Validate() error {
	var errs []error

	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		errs = append(errs, fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate))
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterOTLP, ExporterStdout:
	default:
		errs = append(errs, fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter))
	}

	switch c.TracingExporter {
	case "", ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		errs = append(errs, fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter))
	}

	if c.OTLPEndpoint == "" {
		if c.TracingExporter == ExporterOTLP {
			errs = append(errs, errors.New("OTLP endpoint is required when using OTLP tracing exporter"))
		}
		if c.MetricsExporter == ExporterOTLP {
			errs = append(errs, errors.New("OTLP endpoint is required when using OTLP metrics exporter"))
		}
	}

	return errors.Join(errs...)
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envOr parses the variable key, returning def when it is unset or does not parse.
func envOr[T any](key string, def T, parse func(string) (T, error)) T {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := parse(v)
	if err != nil {
		return def
	}
	return parsed
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
