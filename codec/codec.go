// Package codec negotiates payload formats. A Registry holds an ordered list
// of codecs; registration order is the priority order for decoding, and
// per-call overrides are composed by prepending them.
package codec

import (
	"context"
	"io"

	"github.com/kbukum/restkit/mediatype"
)

// EncodeFunc serializes v. declared is the content type the caller asked for;
// the returned media type is what goes on the wire, which lets a codec add
// parameters such as a multipart boundary.
type EncodeFunc func(v any, declared mediatype.MediaType) ([]byte, mediatype.MediaType, error)

// DecodeFunc deserializes UTF-8 input from r into v. Implementations that read
// incrementally should stop when ctx is done.
type DecodeFunc func(ctx context.Context, r io.Reader, v any) error

// Codec pairs an encoder and a decoder for one payload format.
type Codec struct {
	// Name identifies the codec in logs and errors.
	Name string
	// Accepted is the primary media type. Its quality is only used when
	// rendering an Accept header.
	Accepted mediatype.MediaType
	// Aliases are secondary media types tried when Accepted does not match.
	Aliases []mediatype.MediaType
	// Encode may be nil for decode-only codecs.
	Encode EncodeFunc
	// Decode may be nil for encode-only codecs.
	Decode DecodeFunc
	// Binary codecs see bytes as sent; the charset bridge is skipped.
	Binary bool
	// Fills reports whether Decode can populate v. When it returns false the
	// registry treats the payload as unmatched and leaves it raw. Nil means
	// any target is accepted.
	Fills func(v any) bool
}

// CanFill reports whether c can decode into v.
func (c *Codec) CanFill(v any) bool {
	return c.Fills == nil || c.Fills(v)
}

// Accepts reports whether the codec can decode actual: first against the
// primary media type, then against each alias.
func (c *Codec) Accepts(actual mediatype.MediaType) bool {
	if mediatype.Matches(c.Accepted, actual) {
		return true
	}
	for _, alias := range c.Aliases {
		if mediatype.Matches(alias, actual) {
			return true
		}
	}
	return false
}

// Produces reports whether the codec encodes exactly declared. Wildcards are
// compared literally.
func (c *Codec) Produces(declared mediatype.MediaType) bool {
	if c.Encode == nil {
		return false
	}
	if mediatype.SameEssence(c.Accepted, declared) {
		return true
	}
	for _, alias := range c.Aliases {
		if mediatype.SameEssence(alias, declared) {
			return true
		}
	}
	return false
}

// Simple adapts a marshal function that ignores the declared content type.
func Simple(marshal func(v any) ([]byte, error)) EncodeFunc {
	return func(v any, declared mediatype.MediaType) ([]byte, mediatype.MediaType, error) {
		data, err := marshal(v)
		return data, declared, err
	}
}
