package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withSpanRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected int64 sum, got %T", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestDefaultConfigs(t *testing.T) {
	tc := DefaultTracerConfig("restkit")
	if tc.ServiceName != "restkit" || tc.Endpoint != "localhost:4318" || tc.SampleRate != 1.0 || !tc.Insecure {
		t.Errorf("unexpected tracer defaults %+v", tc)
	}
	mc := DefaultMeterConfig("restkit")
	if mc.Interval != 15*time.Second {
		t.Errorf("expected 15s interval, got %v", mc.Interval)
	}
}

func TestNewMetrics_Noop(t *testing.T) {
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}
	ctx := context.Background()
	metrics.RecordRequestStart(ctx)
	metrics.RecordRequestEnd(ctx, "svc", "GET", "200", 100*time.Millisecond)
	metrics.RecordTransfer(ctx, "svc", "completed", 10, time.Millisecond)
	metrics.RecordUnmatched(ctx, "svc", "image/png")
	metrics.RecordError(ctx, "NO_CODEC", "codec")
}

func TestMetrics_Recorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()
	metrics.RecordTransfer(ctx, "dl", "completed", 1024, time.Second)
	metrics.RecordTransfer(ctx, "dl", "cancelled", 512, time.Second)
	metrics.RecordUnmatched(ctx, "dl", "image/png")
	metrics.RecordRequestStart(ctx)
	metrics.RecordRequestEnd(ctx, "dl", "GET", "200", time.Millisecond)

	got := collect(t, reader)
	if n := sumOf(t, got["transfer.total"]); n != 2 {
		t.Errorf("expected 2 transfers, got %d", n)
	}
	if n := sumOf(t, got["transfer.bytes"]); n != 1536 {
		t.Errorf("expected 1536 bytes, got %d", n)
	}
	if n := sumOf(t, got["negotiation.unmatched"]); n != 1 {
		t.Errorf("expected 1 unmatched response, got %d", n)
	}
	if n := sumOf(t, got["request.active"]); n != 0 {
		t.Errorf("expected no active requests, got %d", n)
	}
	if n := sumOf(t, got["request.total"]); n != 1 {
		t.Errorf("expected 1 request, got %d", n)
	}
}

func TestCallContext(t *testing.T) {
	exporter := withSpanRecorder(t)

	cc := NewCallContext("users", "GET", "http://x/users", "req-1", nil)
	ctx, span := cc.Start(context.Background())
	if CallContextFromContext(ctx) != cc {
		t.Fatal("expected call context in ctx")
	}
	cc.End(ctx, span, 503, errors.New("unavailable"))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name != SpanHTTPRequest {
		t.Errorf("unexpected span name %q", s.Name)
	}
	attrs := make(map[string]any)
	for _, kv := range s.Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	if attrs[AttrStatusCode] != int64(503) {
		t.Errorf("expected status code attribute, got %v", attrs[AttrStatusCode])
	}
	if attrs[AttrRequestID] != "req-1" {
		t.Errorf("expected request id attribute, got %v", attrs[AttrRequestID])
	}
	if len(s.Events) == 0 {
		t.Error("expected recorded error event")
	}
}

func TestCallContextFromContext_NotSet(t *testing.T) {
	if CallContextFromContext(context.Background()) != nil {
		t.Error("expected nil without a call context")
	}
}

func TestSetSpanAttributeAndError(t *testing.T) {
	exporter := withSpanRecorder(t)

	ctx, span := StartSpan(context.Background(), SpanTransfer)
	SetSpanAttribute(ctx, AttrCodec, "json")
	SetSpanAttribute(ctx, AttrTransferredBytes, int64(100))
	SetSpanAttribute(ctx, "unsupported", struct{}{})
	SetSpanError(ctx, errors.New("boom"))
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 || len(spans[0].Attributes) != 2 {
		t.Fatalf("unexpected spans %+v", spans)
	}

	SetSpanAttribute(context.Background(), "key", "value")
	SetSpanError(context.Background(), errors.New("ignored"))
}

func TestInitTracerAndMeter(t *testing.T) {
	tc := DefaultTracerConfig("test")
	tp, err := InitTracer(context.Background(), &tc)
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	defer tp.Shutdown(context.Background())

	mc := DefaultMeterConfig("test")
	mp, err := InitMeter(context.Background(), &mc)
	if err != nil {
		t.Fatalf("InitMeter: %v", err)
	}
	defer mp.Shutdown(context.Background())
}
