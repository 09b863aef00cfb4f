package instrumentation

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testConfig(metrics, tracing string) Config {
	return Config{
		ServiceName:       "test-service",
		ServiceVersion:    "1.0.0",
		ServiceInstanceID: "test-instance",
		Enabled:           true,
		MetricsExporter:   metrics,
		TracingExporter:   tracing,
		TraceSamplingRate: 1,
	}
}

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if provider.Enabled() {
		t.Error("expected provider to be disabled")
	}
	if provider.Metrics() == nil {
		t.Error("expected metrics to be non-nil even when disabled")
	}
	if provider.Gatherer() != nil {
		t.Error("expected no gatherer when disabled")
	}
	if provider.Tracer("test") == nil {
		t.Error("expected a no-op tracer")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("expected no error on shutdown, got %v", err)
	}
}

func TestNewProvider_PrometheusTextfile(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	path := filepath.Join(t.TempDir(), "gmailcli.prom")
	config := testConfig(ExporterPrometheus, ExporterNone)
	config.MetricsTextfile = path

	provider, err := NewProvider(ctx, config)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if provider.Gatherer() == nil {
		t.Fatal("expected a prometheus gatherer")
	}

	m := provider.Metrics()
	m.RecordGoogleAPIOperation(ctx, ServiceGmail, "messages.list", StatusSuccess, 120*time.Millisecond)
	m.RecordCommand(ctx, "read", StatusSuccess, "default", 300*time.Millisecond)

	if err := provider.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected textfile to be written: %v", err)
	}
	text := string(data)
	for _, want := range []string{"google_api_operations_total", "command_invocations_total", "command_duration_seconds"} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q:\n%s", want, text)
		}
	}
}

func TestNewProvider_NoneExporter(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, testConfig(ExporterNone, ExporterNone))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	if provider.Gatherer() != nil {
		t.Error("expected no gatherer for the none exporter")
	}
	provider.Metrics().RecordOAuthAuth(ctx, OAuthResultSuccess)

	if err := provider.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err == nil {
		t.Error("expected an error writing a textfile without prometheus")
	}
	if err := provider.WriteTextfile(""); err != nil {
		t.Errorf("empty path should be a no-op, got %v", err)
	}
}

func TestNewProvider_StdoutExportersUseDiagnosticsWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var buf bytes.Buffer
	provider, err := NewProvider(ctx, testConfig(ExporterStdout, ExporterStdout), WithDiagnosticsWriter(&buf))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_, span := provider.Tracer("test").Start(ctx, "diagnostic-span")
	span.End()

	if err := provider.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if !strings.Contains(buf.String(), "diagnostic-span") {
		t.Errorf("expected span in diagnostics output, got %q", buf.String())
	}
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	tests := []Config{
		testConfig("statsd", ExporterNone),
		testConfig(ExporterPrometheus, "jaeger"),
		testConfig(ExporterOTLP, ExporterNone),
	}
	for _, config := range tests {
		if _, err := NewProvider(context.Background(), config); err == nil {
			t.Errorf("expected an error for %s/%s", config.MetricsExporter, config.TracingExporter)
		}
	}
}
