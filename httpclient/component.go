package httpclient

import (
	"context"
	"fmt"

	"github.com/kbukum/restkit/component"
	"github.com/kbukum/restkit/resilience"
)

// Component wraps an Adapter with lifecycle management. The adapter is
// created in Start.
type Component struct {
	adapter *Adapter
	config  Config
	opts    []Option
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a new HTTP client component.
func NewComponent(cfg Config, opts ...Option) *Component {
	return &Component{config: cfg, opts: opts}
}

// Name returns the component name.
func (c *Component) Name() string {
	if c.config.Name == "" {
		return "http"
	}
	return c.config.Name
}

// Start creates the adapter.
func (c *Component) Start(_ context.Context) error {
	a, err := New(c.config, c.opts...)
	if err != nil {
		return err
	}
	c.adapter = a
	return nil
}

// Stop closes the adapter and releases resources.
func (c *Component) Stop(ctx context.Context) error {
	if c.adapter != nil {
		return c.adapter.Close(ctx)
	}
	return nil
}

// Health reports unhealthy before Start or while the circuit is open, and
// degraded when every transfer slot is busy.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case c.adapter == nil:
		h.Status, h.Message = component.StatusUnhealthy, "not started"
	case !c.adapter.IsAvailable(ctx):
		h.Status = component.StatusUnhealthy
		h.Message = fmt.Sprintf("circuit %s after %d failures, %d calls rejected",
			resilience.StateOpen, c.adapter.cb.Failures(), c.adapter.cb.Counts().Rejected)
	case c.adapter.transfers != nil && c.adapter.transfers.Available() == 0:
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("all %d transfer slots in use, %d waiting",
			c.adapter.transfers.MaxConcurrent(), c.adapter.transfers.Waiting())
	}
	return h
}

// Describe returns the component description.
func (c *Component) Describe() component.Description {
	details := c.config.BaseURL
	if c.adapter != nil {
		details = fmt.Sprintf("%s codecs=%d chunk=%d", c.adapter.config.BaseURL,
			c.adapter.registry.Len(), c.adapter.engine.ChunkSize())
	}
	return component.Description{
		Name:    c.Name(),
		Type:    "http-client",
		Details: details,
	}
}

// Adapter returns the underlying HTTP adapter. Must be called after Start().
func (c *Component) Adapter() *Adapter {
	return c.adapter
}
