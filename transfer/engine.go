package transfer

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/observability"
)

// Engine runs copies for a named client, adding tracing, metrics and logs
// around Copy.
type Engine struct {
	name      string
	chunkSize int
	metrics   *observability.Metrics
	log       *logger.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithChunkSize sets the chunk size used when Options.ChunkSize is zero.
func WithChunkSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

// WithMetrics records every copy on m.
func WithMetrics(m *observability.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger replaces the component logger.
func WithLogger(l *logger.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine creates an engine for the named client.
func NewEngine(name string, opts ...EngineOption) *Engine {
	e := &Engine{
		name:      name,
		chunkSize: DefaultChunkSize,
		log:       logger.Get("transfer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ChunkSize returns the default chunk size.
func (e *Engine) ChunkSize() int { return e.chunkSize }

// Copy behaves like the package-level Copy.
func (e *Engine) Copy(ctx context.Context, dst io.Writer, src io.Reader, opts Options) (Progress, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = e.chunkSize
	}
	ctx, span := observability.StartSpan(ctx, observability.SpanTransfer)
	defer span.End()

	start := time.Now()
	c := newCopier(opts)
	p, err := c.run(ctx, dst, src)
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.String(observability.AttrClientName, e.name),
		attribute.String(observability.AttrOutcome, c.state.String()),
		attribute.Int64(observability.AttrTransferredBytes, p.TransferredBytes),
	)
	if e.metrics != nil {
		e.metrics.RecordTransfer(ctx, e.name, c.state.String(), p.TransferredBytes, elapsed)
	}

	fields := logger.Merge(
		logger.TransferFields(p.TransferredBytes, p.TotalBytes),
		logger.DurationFields("copy", elapsed),
	)
	log := e.log.WithContext(ctx)
	switch c.state {
	case Completed:
		log.Debug("transfer completed", fields)
	case Cancelled:
		log.Info("transfer cancelled", fields)
	default:
		span.RecordError(err)
		log.WithError(err).Warn("transfer failed", fields)
	}
	return p, err
}
