package httpclient

import (
	"github.com/kbukum/restkit/codec"
	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/observability"
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithTransport replaces the default net/http transport.
func WithTransport(t Transport) Option {
	return func(a *Adapter) {
		if t != nil {
			a.transport = t
		}
	}
}

// WithRegistry replaces the default codec registry.
func WithRegistry(r *codec.Registry) Option {
	return func(a *Adapter) {
		if r != nil {
			a.registry = r
		}
	}
}

// WithLogger replaces the component logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.log = l
		}
	}
}

// WithMetrics records requests, transfers and negotiation misses on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Adapter) { a.metrics = m }
}
