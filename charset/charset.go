// Package charset bridges bodies between their declared character encoding
// and UTF-8, the working encoding of every codec.
//
// UTF-8 (and an absent charset) is the fast path: bytes and readers are
// returned untouched. Any other charset is transcoded in one pass with
// golang.org/x/text.
package charset

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	apperrors "github.com/kbukum/restkit/errors"
)

// UTF8 is the canonical name of the working charset.
const UTF8 = "utf-8"

// aliases pins the encodings whose WHATWG and IANA mappings disagree or
// carry BOM policy that matters for round trips.
var aliases = map[string]encoding.Encoding{
	"utf-16":     unicode.UTF16(unicode.BigEndian, unicode.UseBOM),
	"utf16":      unicode.UTF16(unicode.BigEndian, unicode.UseBOM),
	"utf-16be":   unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"utf-16le":   unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"iso-8859-1": charmap.ISO8859_1,
	"iso8859-1":  charmap.ISO8859_1,
	"latin1":     charmap.ISO8859_1,
	"latin-1":    charmap.ISO8859_1,
	"l1":         charmap.ISO8859_1,
}

// Normalize lower-cases name and strips surrounding quotes and whitespace.
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, `"'`)
	return strings.ToLower(name)
}

// IsUTF8 reports whether name denotes UTF-8. An empty name counts as UTF-8.
func IsUTF8(name string) bool {
	switch Normalize(name) {
	case "", "utf-8", "utf8", "unicode-1-1-utf-8":
		return true
	}
	return false
}

// Lookup resolves name to an encoding. UTF-8 resolves to unicode.UTF8.
func Lookup(name string) (encoding.Encoding, error) {
	n := Normalize(name)
	if IsUTF8(n) {
		return unicode.UTF8, nil
	}
	if enc, ok := aliases[n]; ok {
		return enc, nil
	}
	if enc, err := ianaindex.IANA.Encoding(n); err == nil && enc != nil {
		return enc, nil
	}
	if enc, err := htmlindex.Get(n); err == nil && enc != nil {
		return enc, nil
	}
	return nil, apperrors.UnsupportedCharset(name)
}

// Supported reports whether name can be transcoded.
func Supported(name string) bool {
	_, err := Lookup(name)
	return err == nil
}

// ToUTF8 converts data from the named charset to UTF-8. UTF-8 input is
// returned as is.
func ToUTF8(data []byte, name string) ([]byte, error) {
	if IsUTF8(name) {
		return data, nil
	}
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return nil, apperrors.UnsupportedCharset(name).WithCause(err)
	}
	return out, nil
}

// FromUTF8 converts UTF-8 data to the named charset. Runes the target cannot
// represent yield an error.
func FromUTF8(data []byte, name string) ([]byte, error) {
	if IsUTF8(name) {
		return data, nil
	}
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	out, _, err := transform.Bytes(enc.NewEncoder(), data)
	if err != nil {
		return nil, apperrors.UnsupportedCharset(name).WithCause(err)
	}
	return out, nil
}

// NewUTF8Reader returns r when name is UTF-8. Otherwise it drains r, transcodes
// the whole payload and returns a reader over the result.
func NewUTF8Reader(r io.Reader, name string) (io.Reader, error) {
	if IsUTF8(name) {
		return r, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	out, err := ToUTF8(data, name)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(out), nil
}
