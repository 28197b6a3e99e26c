// Package textbuf provides a growable text buffer that starts on caller-owned
// scratch memory and only moves to the heap once that scratch is exhausted.
//
// It is meant for short-lived string building such as header dumps, Accept
// header rendering and diagnostic messages:
//
//	var scratch [256]byte
//	b := textbuf.New(scratch[:])
//	b.AppendString("Content-Type: ")
//	b.AppendLine(ct)
//	s := b.String()
//
// A Buffer is not safe for concurrent use and is discarded after String.
package textbuf

import (
	"strconv"
	"unicode/utf8"
)

// Buffer is a write-once-then-read text accumulator.
type Buffer struct {
	buf   []byte
	grows int
}

// New returns a Buffer that writes into scratch until it runs out of room.
// Any existing contents of scratch are ignored.
func New(scratch []byte) Buffer {
	return Buffer{buf: scratch[:0]}
}

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int { return len(b.buf) }

// Cap returns the capacity of the current backing store.
func (b *Buffer) Cap() int { return cap(b.buf) }

// Grows reports how many times the backing store has been reallocated.
func (b *Buffer) Grows() int { return b.grows }

// reserve makes room for n more bytes. When the current backing store is too
// small it is replaced by one of max(required, 2*cap) bytes.
func (b *Buffer) reserve(n int) {
	required := len(b.buf) + n
	if required <= cap(b.buf) {
		return
	}
	newCap := cap(b.buf) * 2
	if newCap < required {
		newCap = required
	}
	grown := make([]byte, len(b.buf), newCap)
	copy(grown, b.buf)
	b.buf = grown
	b.grows++
}

// Append appends p.
func (b *Buffer) Append(p []byte) {
	b.reserve(len(p))
	b.buf = append(b.buf, p...)
}

// AppendString appends s.
func (b *Buffer) AppendString(s string) {
	b.reserve(len(s))
	b.buf = append(b.buf, s...)
}

// AppendByte appends a single byte.
func (b *Buffer) AppendByte(c byte) {
	b.reserve(1)
	b.buf = append(b.buf, c)
}

// AppendRune appends the UTF-8 encoding of r.
func (b *Buffer) AppendRune(r rune) {
	if r < utf8.RuneSelf {
		b.AppendByte(byte(r))
		return
	}
	n := utf8.RuneLen(r)
	if n < 0 {
		// invalid runes are written as U+FFFD
		n = utf8.RuneLen(utf8.RuneError)
	}
	b.reserve(n)
	b.buf = utf8.AppendRune(b.buf, r)
}

// AppendLine appends s followed by a newline.
func (b *Buffer) AppendLine(s string) {
	b.reserve(len(s) + 1)
	b.buf = append(b.buf, s...)
	b.buf = append(b.buf, '\n')
}

// AppendInt appends the decimal form of i.
func (b *Buffer) AppendInt(i int64) {
	var tmp [20]byte
	b.Append(strconv.AppendInt(tmp[:0], i, 10))
}

// AppendFloat appends f using the shortest 'f' representation with at most
// prec digits after the decimal point. Trailing zeros are trimmed.
func (b *Buffer) AppendFloat(f float64, prec int) {
	var tmp [32]byte
	out := strconv.AppendFloat(tmp[:0], f, 'f', prec, 64)
	if prec > 0 {
		for len(out) > 0 && out[len(out)-1] == '0' {
			out = out[:len(out)-1]
		}
		if len(out) > 0 && out[len(out)-1] == '.' {
			out = out[:len(out)-1]
		}
	}
	b.Append(out)
}

// Write implements io.Writer. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.Append(p)
	return len(p), nil
}

// WriteString implements io.StringWriter. It never fails.
func (b *Buffer) WriteString(s string) (int, error) {
	b.AppendString(s)
	return len(s), nil
}

// Bytes returns the written prefix. The slice aliases the buffer and is only
// valid until the next append.
func (b *Buffer) Bytes() []byte { return b.buf }

// String returns a copy of exactly the bytes written so far.
func (b *Buffer) String() string { return string(b.buf) }
