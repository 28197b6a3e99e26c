package observability

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CallContext tracks one outgoing request for tracing and metrics.
type CallContext struct {
	ClientName string
	Method     string
	URL        string
	RequestID  string
	StartTime  time.Time
	Metrics    *Metrics
}

// NewCallContext creates a call context. If metrics is nil, metric recording
// is skipped.
func NewCallContext(clientName, method, url, requestID string, metrics *Metrics) *CallContext {
	return &CallContext{
		ClientName: clientName,
		Method:     method,
		URL:        url,
		RequestID:  requestID,
		StartTime:  time.Now(),
		Metrics:    metrics,
	}
}

type callContextKey struct{}

// WithCallContext stores cc in ctx.
func WithCallContext(ctx context.Context, cc *CallContext) context.Context {
	return context.WithValue(ctx, callContextKey{}, cc)
}

// CallContextFromContext returns the CallContext stored in ctx, or nil.
func CallContextFromContext(ctx context.Context) *CallContext {
	if cc, ok := ctx.Value(callContextKey{}).(*CallContext); ok {
		return cc
	}
	return nil
}

// Start opens a client span for the call and records it as in flight.
func (cc *CallContext) Start(ctx context.Context) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, SpanHTTPRequest, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String(AttrClientName, cc.ClientName),
		attribute.String(AttrMethod, cc.Method),
		attribute.String(AttrURL, cc.URL),
	)
	if cc.RequestID != "" {
		span.SetAttributes(attribute.String(AttrRequestID, cc.RequestID))
	}
	if cc.Metrics != nil {
		cc.Metrics.RecordRequestStart(ctx)
	}
	return WithCallContext(ctx, cc), span
}

// End closes the span and records the finished call. statusCode is zero when
// no response was received.
func (cc *CallContext) End(ctx context.Context, span trace.Span, statusCode int, err error) {
	duration := time.Since(cc.StartTime)

	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
		span.SetAttributes(attribute.Int(AttrStatusCode, statusCode))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
	span.SetAttributes(attribute.Int64(AttrDurationMs, duration.Milliseconds()))
	span.End()

	if cc.Metrics != nil {
		cc.Metrics.RecordRequestEnd(ctx, cc.ClientName, cc.Method, status, duration)
	}
}

// Duration returns the elapsed time since the call started.
func (cc *CallContext) Duration() time.Duration {
	return time.Since(cc.StartTime)
}
