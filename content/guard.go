package content

import (
	"bytes"
	"context"
	"io"

	apperrors "github.com/kbukum/restkit/errors"
)

// IsBuffered reports whether b holds its full payload in memory. known is
// false when the transport body does not report its state.
func IsBuffered(b *Body) (buffered, known bool) {
	switch b.State() {
	case StateBuffered:
		return true, true
	case StateStreaming:
		return false, true
	default:
		return false, false
	}
}

// EnsureNotBuffered fails with CONTENT_ALREADY_BUFFERED when b is known to be
// buffered. It is a no-op for streaming bodies and for unknown state.
func EnsureNotBuffered(b *Body, operation string) error {
	if buffered, _ := IsBuffered(b); buffered {
		return apperrors.ContentAlreadyBuffered(operation)
	}
	return nil
}

// NewContextReader returns a reader that checks ctx before every Read.
func NewContextReader(ctx context.Context, r io.Reader) io.Reader {
	if ctx == nil || ctx.Done() == nil {
		return r
	}
	return &contextReader{ctx: ctx, r: r}
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// StreamingReader marks a transport stream as live.
func StreamingReader(rc io.ReadCloser) io.ReadCloser {
	return &reportingBody{ReadCloser: rc, buffered: false}
}

// BufferedReader wraps data as a transport body that reports itself buffered,
// as a transport that pre-reads responses would.
func BufferedReader(data []byte) io.ReadCloser {
	return &reportingBody{ReadCloser: io.NopCloser(bytes.NewReader(data)), buffered: true}
}

type reportingBody struct {
	io.ReadCloser
	buffered bool
}

func (r *reportingBody) Buffered() bool { return r.buffered }
