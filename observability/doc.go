// Package observability wires OpenTelemetry tracing and metrics for the
// client: one span per outgoing request, transfer counters and negotiation
// fallbacks.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, &cfg)
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, &meterCfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("restkit"))
//	metrics.RecordTransfer(ctx, "downloads", "completed", n, elapsed)
package observability
