package codec

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"

	"github.com/kbukum/restkit/charset"
	"github.com/kbukum/restkit/content"
	apperrors "github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/mediatype"
	"github.com/kbukum/restkit/textbuf"
)

// Position selects where Register places a codec.
type Position int

const (
	// Append adds the codec with the lowest priority.
	Append Position = iota
	// Prepend adds the codec with the highest priority.
	Prepend
)

// Registry is an ordered codec list. Lookups never lock; Register publishes a
// new snapshot and is meant for setup time.
type Registry struct {
	codecs atomic.Pointer[[]*Codec]
}

// NewRegistry returns a registry holding codecs in the given order.
func NewRegistry(codecs ...*Codec) *Registry {
	r := &Registry{}
	list := make([]*Codec, 0, len(codecs))
	for _, c := range codecs {
		if c != nil {
			list = append(list, c)
		}
	}
	r.codecs.Store(&list)
	return r
}

// Register adds c at pos.
func (r *Registry) Register(c *Codec, pos Position) {
	if c == nil {
		return
	}
	for {
		old := r.codecs.Load()
		var cur []*Codec
		if old != nil {
			cur = *old
		}
		next := make([]*Codec, 0, len(cur)+1)
		if pos == Prepend {
			next = append(next, c)
			next = append(next, cur...)
		} else {
			next = append(next, cur...)
			next = append(next, c)
		}
		if r.codecs.CompareAndSwap(old, &next) {
			return
		}
	}
}

// With returns a new registry with overrides ahead of r's codecs, in the
// order given. r is left untouched.
func (r *Registry) With(overrides ...*Codec) *Registry {
	if len(overrides) == 0 {
		return r
	}
	return NewRegistry(append(append([]*Codec{}, overrides...), r.Codecs()...)...)
}

// Codecs returns the codecs in priority order.
func (r *Registry) Codecs() []*Codec {
	p := r.codecs.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Len returns the number of registered codecs.
func (r *Registry) Len() int { return len(r.Codecs()) }

// Tried lists the primary media types in priority order, for diagnostics.
func (r *Registry) Tried() []string {
	codecs := r.Codecs()
	out := make([]string, 0, len(codecs))
	for _, c := range codecs {
		out = append(out, c.Accepted.Essence())
	}
	return out
}

// SelectForEncode returns the first codec whose media type equals declared.
// Wildcards do not match on the outgoing side.
func (r *Registry) SelectForEncode(declared mediatype.MediaType) (*Codec, error) {
	for _, c := range r.Codecs() {
		if c.Produces(declared) {
			return c, nil
		}
	}
	return nil, apperrors.NoCodec(declared.String(), r.Tried())
}

// SelectForDecode returns the first codec, in registry order, that accepts
// actual, or nil when none does. A zero actual is treated as
// application/octet-stream.
func (r *Registry) SelectForDecode(actual mediatype.MediaType) *Codec {
	if actual.IsZero() {
		actual = mediatype.OctetStream
	}
	for _, c := range r.Codecs() {
		if c.Decode != nil && c.Accepts(actual) {
			return c
		}
	}
	return nil
}

// AcceptHeader renders every decodable media type, aliases included, in
// registry order. Duplicates are skipped.
func (r *Registry) AcceptHeader() string {
	var scratch [256]byte
	b := textbuf.New(scratch[:])
	seen := make(map[string]struct{})
	add := func(mt mediatype.MediaType) {
		key := mt.Essence()
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		if b.Len() > 0 {
			b.AppendString(", ")
		}
		mediatype.New(mt.Type(), mt.Subtype()).WithQuality(mt.Quality()).AppendTo(&b)
	}
	for _, c := range r.Codecs() {
		if c.Decode == nil {
			continue
		}
		add(c.Accepted)
		for _, alias := range c.Aliases {
			add(alias)
		}
	}
	return b.String()
}

// Encode serializes v as declared and returns a materialized body. When
// declared names a charset other than UTF-8 the encoded text is transcoded
// to it.
func (r *Registry) Encode(v any, declared mediatype.MediaType) (*content.Body, error) {
	c, err := r.SelectForEncode(declared)
	if err != nil {
		return nil, err
	}
	data, wire, err := c.Encode(v, declared)
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.EncodeFailed(declared.String(), err)
	}
	if wire.IsZero() {
		wire = declared
	}
	if cs, ok := wire.Param("charset"); ok && !c.Binary && !charset.IsUTF8(cs) {
		data, err = charset.FromUTF8(data, cs)
		if err != nil {
			return nil, err
		}
	}
	return content.FromBytes(data, wire), nil
}

// Decode selects a codec for body and decodes it into v. It returns the codec
// used, or nil with no error when no codec accepts the content type or the
// selected codec cannot fill v; the body is then left unread so the caller
// can keep it raw.
//
// A UTF-8 stream is fed to the codec as it arrives. Any other charset forces
// the body to be buffered and transcoded first.
func (r *Registry) Decode(ctx context.Context, body *content.Body, v any) (*Codec, error) {
	c := r.SelectForDecode(body.ContentType())
	if c == nil || v == nil {
		return c, nil
	}
	if !c.CanFill(v) {
		return nil, nil
	}
	src, err := r.source(ctx, c, body)
	if err != nil {
		return c, err
	}
	counted := &countingReader{r: src}
	if err := c.Decode(ctx, counted, v); err != nil {
		switch {
		case ctx.Err() != nil:
			return c, apperrors.Cancelled(counted.n, ctx.Err())
		case apperrors.IsAppError(err):
			return c, err
		default:
			return c, apperrors.DecodeFailed(contentTypeOf(body), r.Tried(), err)
		}
	}
	return c, nil
}

func (r *Registry) source(ctx context.Context, c *Codec, body *content.Body) (io.Reader, error) {
	if c.Binary || charset.IsUTF8(body.Charset()) {
		rd, err := body.Reader()
		if err != nil {
			return nil, err
		}
		return content.NewContextReader(ctx, rd), nil
	}
	data, err := body.Bytes(ctx)
	if err != nil {
		return nil, err
	}
	utf8, err := charset.ToUTF8(data, body.Charset())
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(utf8), nil
}

// countingReader tracks how much of the payload a codec consumed.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func contentTypeOf(body *content.Body) string {
	if raw := body.RawContentType(); raw != "" {
		return raw
	}
	return body.ContentType().String()
}
