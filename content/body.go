// Package content tracks request and response payloads and whether they are
// still a live single-pass stream or already materialized in memory.
package content

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"

	"github.com/kbukum/restkit/charset"
	apperrors "github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/mediatype"
)

// State is the observed buffering state of a body.
type State int

const (
	// StateUnknown means the transport body does not report its state.
	StateUnknown State = iota
	// StateStreaming means the payload is an open, unread stream.
	StateStreaming
	// StateBuffered means the payload is fully held in memory.
	StateBuffered
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateBuffered:
		return "buffered"
	default:
		return "unknown"
	}
}

// BufferReporter is implemented by transport bodies that know whether their
// payload already sits in memory.
type BufferReporter interface {
	Buffered() bool
}

// Body is a request or response payload. It is owned by a single call; the
// first consumer to claim a streaming body is the only one that may read it.
type Body struct {
	contentType mediatype.MediaType
	declared    bool
	raw         string
	charset     string
	length      int64

	src     io.ReadCloser
	data    []byte
	memory  bool
	claimed atomic.Bool
	closed  atomic.Bool
}

// New wraps a transport stream. contentType is the raw header value; when it
// is empty or malformed the body is treated as UTF-8 application/octet-stream.
// length is the declared Content-Length, or -1 when unknown.
func New(src io.ReadCloser, contentType string, length int64) *Body {
	mt, ok := mediatype.ParseOrDefault(contentType, mediatype.OctetStream)
	b := &Body{
		contentType: mt,
		declared:    ok,
		raw:         contentType,
		length:      length,
		src:         src,
	}
	b.charset = resolveCharset(mt)
	return b
}

// FromBytes returns a materialized body over data.
func FromBytes(data []byte, contentType mediatype.MediaType) *Body {
	b := &Body{
		contentType: contentType,
		declared:    !contentType.IsZero(),
		raw:         contentType.String(),
		length:      int64(len(data)),
		data:        data,
		memory:      true,
	}
	if contentType.IsZero() {
		b.contentType = mediatype.OctetStream
		b.raw = ""
	}
	b.charset = resolveCharset(b.contentType)
	return b
}

func resolveCharset(mt mediatype.MediaType) string {
	cs := mt.Charset()
	if !charset.Supported(cs) {
		return charset.UTF8
	}
	if charset.IsUTF8(cs) {
		return charset.UTF8
	}
	return cs
}

// ContentType returns the parsed content type, application/octet-stream when
// none was declared.
func (b *Body) ContentType() mediatype.MediaType { return b.contentType }

// HasContentType reports whether a usable content type was declared.
func (b *Body) HasContentType() bool { return b.declared }

// RawContentType returns the header value as received.
func (b *Body) RawContentType() string { return b.raw }

// Charset returns the normalized charset, "utf-8" when absent or unsupported.
func (b *Body) Charset() string { return b.charset }

// Length returns the declared length, or -1 when unknown.
func (b *Body) Length() int64 { return b.length }

// State reports whether the payload is buffered, streaming or unknown.
func (b *Body) State() State {
	if b.memory || b.src == nil {
		return StateBuffered
	}
	if r, ok := b.src.(BufferReporter); ok {
		if r.Buffered() {
			return StateBuffered
		}
		return StateStreaming
	}
	return StateUnknown
}

// Stream claims the live stream for a single streaming consumer such as a
// progress-tracked save. It fails when the body is buffered or already claimed.
func (b *Body) Stream(operation string) (io.ReadCloser, error) {
	if err := EnsureNotBuffered(b, operation); err != nil {
		return nil, err
	}
	if err := b.claim(); err != nil {
		return nil, err
	}
	return b.src, nil
}

// Reader returns a reader for decoding. Materialized bodies may be read any
// number of times; a stream is handed out once.
func (b *Body) Reader() (io.Reader, error) {
	if b.memory {
		return bytes.NewReader(b.data), nil
	}
	if b.src == nil {
		return bytes.NewReader(nil), nil
	}
	if err := b.claim(); err != nil {
		return nil, err
	}
	return b.src, nil
}

// Bytes materializes the body. After it returns successfully the transport
// stream is closed and the body reports StateBuffered.
func (b *Body) Bytes(ctx context.Context) ([]byte, error) {
	if b.memory {
		return b.data, nil
	}
	if b.src == nil {
		b.memory = true
		return nil, nil
	}
	if err := b.claim(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(NewContextReader(ctx, b.src))
	_ = b.Close()
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.Cancelled(int64(len(data)), ctx.Err())
		}
		return nil, apperrors.TransferFailed(int64(len(data)), err)
	}
	b.data = data
	b.memory = true
	b.length = int64(len(data))
	return data, nil
}

// Close releases the transport stream. It is safe to call more than once.
func (b *Body) Close() error {
	if b.src == nil || !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	return b.src.Close()
}

func (b *Body) claim() error {
	if !b.claimed.CompareAndSwap(false, true) {
		return apperrors.BodyConsumed()
	}
	return nil
}
