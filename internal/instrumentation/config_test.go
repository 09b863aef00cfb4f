package instrumentation

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	for _, key := range []string{
		"OTEL_SERVICE_NAME", "INSTRUMENTATION_ENABLED", "METRICS_EXPORTER",
		"TRACING_EXPORTER", "METRICS_TEXTFILE", "OTEL_TRACES_SAMPLER_ARG",
	} {
		t.Setenv(key, "")
	}

	config := DefaultConfig()

	if config.ServiceName != "gmailcli" {
		t.Errorf("expected ServiceName 'gmailcli', got %q", config.ServiceName)
	}
	if !config.Enabled {
		t.Error("expected Enabled to be true by default")
	}
	if config.MetricsExporter != ExporterPrometheus {
		t.Errorf("expected MetricsExporter 'prometheus', got %q", config.MetricsExporter)
	}
	if config.TracingExporter != ExporterNone {
		t.Errorf("expected TracingExporter 'none', got %q", config.TracingExporter)
	}
	if config.TraceSamplingRate != 0.1 {
		t.Errorf("expected TraceSamplingRate 0.1, got %f", config.TraceSamplingRate)
	}
	if config.MetricsTextfile != "" {
		t.Errorf("expected no metrics textfile, got %q", config.MetricsTextfile)
	}
	if !config.AuditLogging.Enabled || config.AuditLogging.IncludePII {
		t.Errorf("unexpected audit defaults: %+v", config.AuditLogging)
	}
}

func TestDefaultConfig_FromEnvironment(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "mail-bot")
	t.Setenv("INSTRUMENTATION_ENABLED", "false")
	t.Setenv("METRICS_EXPORTER", "none")
	t.Setenv("TRACING_EXPORTER", "stdout")
	t.Setenv("METRICS_TEXTFILE", "/var/lib/node_exporter/gmailcli.prom")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "not-a-number")

	config := DefaultConfig()

	if config.ServiceName != "mail-bot" {
		t.Errorf("expected ServiceName 'mail-bot', got %q", config.ServiceName)
	}
	if config.Enabled {
		t.Error("expected Enabled to be false")
	}
	if config.MetricsExporter != ExporterNone {
		t.Errorf("expected MetricsExporter 'none', got %q", config.MetricsExporter)
	}
	if config.TracingExporter != ExporterStdout {
		t.Errorf("expected TracingExporter 'stdout', got %q", config.TracingExporter)
	}
	if config.MetricsTextfile != "/var/lib/node_exporter/gmailcli.prom" {
		t.Errorf("unexpected MetricsTextfile %q", config.MetricsTextfile)
	}
	if config.TraceSamplingRate != 0.1 {
		t.Errorf("invalid float should fall back to default, got %f", config.TraceSamplingRate)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "defaults",
			config: Config{MetricsExporter: ExporterPrometheus, TracingExporter: ExporterNone, TraceSamplingRate: 0.1},
		},
		{
			name:   "none metrics",
			config: Config{MetricsExporter: ExporterNone, TracingExporter: ExporterStdout, TraceSamplingRate: 1},
		},
		{
			name:    "sampling rate too high",
			config:  Config{TraceSamplingRate: 1.5},
			wantErr: true,
		},
		{
			name:    "sampling rate negative",
			config:  Config{TraceSamplingRate: -0.1},
			wantErr: true,
		},
		{
			name:    "unknown metrics exporter",
			config:  Config{MetricsExporter: "statsd"},
			wantErr: true,
		},
		{
			name:    "unknown tracing exporter",
			config:  Config{TracingExporter: "jaeger"},
			wantErr: true,
		},
		{
			name:    "otlp tracing without endpoint",
			config:  Config{TracingExporter: ExporterOTLP},
			wantErr: true,
		},
		{
			name:    "otlp metrics without endpoint",
			config:  Config{MetricsExporter: ExporterOTLP},
			wantErr: true,
		},
		{
			name:   "otlp with endpoint",
			config: Config{MetricsExporter: ExporterOTLP, TracingExporter: ExporterOTLP, OTLPEndpoint: "localhost:4318"},
		},
		{
			name:    "textfile without prometheus",
			config:  Config{MetricsExporter: ExporterNone, MetricsTextfile: "/tmp/metrics.prom"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected an error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
