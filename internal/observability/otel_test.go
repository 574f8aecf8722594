package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/hopcraft/go-trip-backend/internal/config"
)

// keepGlobals restores the process-wide tracer provider and propagator
// after the test, since SetupOTel mutates both.
func keepGlobals(t *testing.T) {
	t.Helper()
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
}

func tracingConfig(insecure bool) config.OTELConfig {
	return config.OTELConfig{
		Enabled:     true,
		Insecure:    insecure,
		Endpoint:    "localhost:4317",
		ServiceName: "trip-backend-test",
		SampleRatio: 1.0,
	}
}

func TestSetupOTel_DisabledIsNoOp(t *testing.T) {
	keepGlobals(t)

	prevTP := otel.GetTracerProvider()
	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{Enabled: false}, "dev")
	if err != nil {
		t.Fatalf("SetupOTel disabled: %v", err)
	}
	if otel.GetTracerProvider() != prevTP {
		t.Fatalf("disabled setup replaced the tracer provider")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
}

func TestSetupOTel_InstallsProviderAndPropagator(t *testing.T) {
	keepGlobals(t)

	shutdown, err := SetupOTel(context.Background(), tracingConfig(true), "1.0.0")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Fatalf("global tracer provider not installed")
	}

	// Round-trip the propagator: a started span's context must inject
	// a traceparent entry.
	ctx, span := otel.Tracer("reverse-search").Start(context.Background(), "Search")
	span.End()
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	if carrier.Get("traceparent") == "" {
		t.Fatalf("propagator did not inject traceparent: %v", carrier)
	}
}

func TestSetupOTel_TLSCredentialsBranch(t *testing.T) {
	keepGlobals(t)

	shutdown, err := SetupOTel(context.Background(), tracingConfig(false), "1.0.0")
	if err != nil {
		t.Fatalf("SetupOTel with TLS: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	_, span := otel.Tracer("smart-multi").Start(context.Background(), "SmartMultiSearch")
	span.End()
}

func TestSetupOTel_CanceledContextStillInitializes(t *testing.T) {
	keepGlobals(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The OTLP gRPC exporter connects lazily, so setup succeeds even
	// when the context is already gone.
	shutdown, err := SetupOTel(ctx, tracingConfig(true), "1.0.0")
	if err != nil {
		t.Fatalf("SetupOTel on canceled ctx: %v", err)
	}
	_ = shutdown(context.Background())
}

func TestSetupOTel_ExporterFailureLeavesGlobals(t *testing.T) {
	keepGlobals(t)

	orig := newTraceExporter
	t.Cleanup(func() { newTraceExporter = orig })
	newTraceExporter = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return nil, errors.New("collector unreachable")
	}

	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()

	if _, err := SetupOTel(context.Background(), tracingConfig(true), "1.0.0"); err == nil {
		t.Fatalf("expected exporter error")
	}
	if otel.GetTracerProvider() != prevTP || otel.GetTextMapPropagator() != prevProp {
		t.Fatalf("globals mutated on failed setup")
	}
}

func TestSetupOTel_ResourceFailureLeavesGlobals(t *testing.T) {
	keepGlobals(t)

	orig := newTraceResource
	t.Cleanup(func() { newTraceResource = orig })
	newTraceResource = func(ctx context.Context, serviceName, version string) (*resource.Resource, error) {
		return nil, errors.New("bad resource attributes")
	}

	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()

	if _, err := SetupOTel(context.Background(), tracingConfig(true), "1.0.0"); err == nil {
		t.Fatalf("expected resource error")
	}
	if otel.GetTracerProvider() != prevTP || otel.GetTextMapPropagator() != prevProp {
		t.Fatalf("globals mutated on failed setup")
	}
}

func TestSetupOTel_ShutdownWithinDeadline(t *testing.T) {
	keepGlobals(t)

	shutdown, err := SetupOTel(context.Background(), tracingConfig(true), "1.0.0")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
