// Package transfer copies a source stream into a sink in fixed-size chunks,
// reporting progress after every chunk and honoring cancellation between them.
package transfer

import (
	"context"
	"errors"
	"io"
	"sync"

	apperrors "github.com/kbukum/restkit/errors"
)

// DefaultChunkSize matches the buffer io.Copy uses.
const DefaultChunkSize = 32 * 1024

var chunkPool = sync.Pool{
	New: func() any {
		b := make([]byte, DefaultChunkSize)
		return &b
	},
}

// Flusher is implemented by sinks that buffer writes, such as *bufio.Writer.
type Flusher interface {
	Flush() error
}

// httpFlusher matches http.Flusher, whose Flush cannot fail.
type httpFlusher interface {
	Flush()
}

// Options configures a single copy.
type Options struct {
	// ChunkSize is the maximum number of bytes read per iteration.
	// Zero means DefaultChunkSize.
	ChunkSize int
	// TotalBytes seeds the total from a declared length. When nil the total
	// is inferred from the bytes read once the source is exhausted.
	TotalBytes *int64
	// OnProgress receives one snapshot per chunk and a final one with
	// IsCompleted set.
	OnProgress ProgressFunc
}

// KnownTotal returns a pointer for Options.TotalBytes, or nil when n is
// negative as Content-Length is when unknown.
func KnownTotal(n int64) *int64 {
	if n < 0 {
		return nil
	}
	return &n
}

// Copy reads src into dst chunk by chunk. ctx is checked before every chunk;
// once it is done the copy stops with a CANCELLED error and no completion
// snapshot is emitted. Read and write failures stop the copy with
// TRANSFER_FAILED, leaving dst partially written. The returned Progress is
// the last snapshot taken.
func Copy(ctx context.Context, dst io.Writer, src io.Reader, opts Options) (Progress, error) {
	c := newCopier(opts)
	return c.run(ctx, dst, src)
}

type copier struct {
	chunkSize  int
	total      *int64
	onProgress ProgressFunc
	state      State
	done       int64
}

func newCopier(opts Options) *copier {
	size := opts.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	var total *int64
	if opts.TotalBytes != nil {
		t := *opts.TotalBytes
		total = &t
	}
	return &copier{chunkSize: size, total: total, onProgress: opts.OnProgress}
}

func (c *copier) snapshot(completed bool) Progress {
	p := Progress{TransferredBytes: c.done, IsCompleted: completed}
	if c.total != nil {
		t := *c.total
		p.TotalBytes = &t
	}
	return p
}

func (c *copier) emit(p Progress) {
	if c.onProgress != nil {
		c.onProgress(p)
	}
}

func (c *copier) buffer() ([]byte, func()) {
	if c.chunkSize == DefaultChunkSize {
		bp := chunkPool.Get().(*[]byte)
		return *bp, func() { chunkPool.Put(bp) }
	}
	return make([]byte, c.chunkSize), func() {}
}

func (c *copier) run(ctx context.Context, dst io.Writer, src io.Reader) (Progress, error) {
	buf, release := c.buffer()
	defer release()

	c.state = Copying
	for {
		if err := ctx.Err(); err != nil {
			c.state = Cancelled
			return c.snapshot(false), apperrors.Cancelled(c.done, err)
		}

		n, rerr := readChunk(src, buf)
		if n > 0 {
			if err := c.write(dst, buf[:n]); err != nil {
				c.state = Failed
				return c.snapshot(false), apperrors.TransferFailed(c.done, err)
			}
			c.done += int64(n)
			c.emit(c.snapshot(false))
		}

		switch {
		case rerr == nil:
			continue
		case errors.Is(rerr, io.EOF):
			if c.total == nil {
				t := c.done
				c.total = &t
			}
			c.state = Completed
			p := c.snapshot(true)
			c.emit(p)
			return p, nil
		case ctx.Err() != nil:
			c.state = Cancelled
			return c.snapshot(false), apperrors.Cancelled(c.done, ctx.Err())
		default:
			c.state = Failed
			return c.snapshot(false), apperrors.TransferFailed(c.done, rerr)
		}
	}
}

// readChunk fills buf as far as the source allows, so that each non-final
// snapshot covers a full chunk unless the source ends. Errors from src,
// io.ErrUnexpectedEOF from a short HTTP body included, are returned as is.
func readChunk(src io.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := src.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (c *copier) write(dst io.Writer, p []byte) error {
	n, err := dst.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return io.ErrShortWrite
	}
	switch f := dst.(type) {
	case Flusher:
		return f.Flush()
	case httpFlusher:
		f.Flush()
	}
	return nil
}
