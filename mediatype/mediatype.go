// Package mediatype parses and compares HTTP media types of the form
//
//	type/subtype[;param=value]*[;q=0.0-1.0]
//
// as found in Content-Type and Accept headers. Matching is deliberately
// looser than RFC 7231: only type and subtype take part, so servers that add
// parameters such as charset still match a codec registered without them.
package mediatype

import (
	"strconv"
	"strings"

	apperrors "github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/textbuf"
)

// Wildcard matches any type or subtype.
const Wildcard = "*"

// DefaultCharset is assumed when a media type carries no usable charset.
const DefaultCharset = "utf-8"

// Param is a single media type parameter. Names are lower-cased.
type Param struct {
	Name  string
	Value string
}

// MediaType is an immutable parsed media type. The zero value is not a valid
// media type; use IsZero to detect it.
type MediaType struct {
	typ     string
	subtype string
	params  []Param
	quality float64
}

// Common media types.
var (
	Any         = New("*", "*")
	OctetStream = New("application", "octet-stream")
	JSON        = New("application", "json")
	XML         = New("application", "xml")
	Form        = New("application", "x-www-form-urlencoded")
	Multipart   = New("multipart", "form-data")
	TextPlain   = New("text", "plain")
	EventStream = New("text", "event-stream")
)

// New builds a media type from its parts with quality 1. Type and subtype are
// lower-cased; a "q" entry in params sets the quality instead of being kept.
func New(typ, subtype string, params ...Param) MediaType {
	mt := MediaType{
		typ:     strings.ToLower(typ),
		subtype: strings.ToLower(subtype),
		quality: 1,
	}
	for _, p := range params {
		name := strings.ToLower(p.Name)
		if name == "q" {
			if q, err := strconv.ParseFloat(p.Value, 64); err == nil {
				mt.quality = clamp(q)
			}
			continue
		}
		mt.params = append(mt.params, Param{Name: name, Value: p.Value})
	}
	return mt
}

// Type returns the lower-cased top-level type, possibly "*".
func (m MediaType) Type() string { return m.typ }

// Subtype returns the lower-cased subtype, possibly "*".
func (m MediaType) Subtype() string { return m.subtype }

// Quality returns the q value in [0,1]. It defaults to 1.
func (m MediaType) Quality() float64 { return m.quality }

// Essence returns "type/subtype" without parameters.
func (m MediaType) Essence() string { return m.typ + "/" + m.subtype }

// IsZero reports whether m is the zero value.
func (m MediaType) IsZero() bool { return m.typ == "" && m.subtype == "" }

// IsWildcard reports whether either the type or the subtype is "*".
func (m MediaType) IsWildcard() bool { return m.typ == Wildcard || m.subtype == Wildcard }

// Params returns a copy of the parameters in their original order, excluding q.
func (m MediaType) Params() []Param {
	if len(m.params) == 0 {
		return nil
	}
	out := make([]Param, len(m.params))
	copy(out, m.params)
	return out
}

// Param returns the value of the named parameter.
func (m MediaType) Param(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, p := range m.params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Charset returns the lower-cased charset parameter, or DefaultCharset when absent.
func (m MediaType) Charset() string {
	if cs, ok := m.Param("charset"); ok && cs != "" {
		return strings.ToLower(cs)
	}
	return DefaultCharset
}

// WithQuality returns a copy of m with the given quality, clamped to [0,1].
func (m MediaType) WithQuality(q float64) MediaType {
	m.params = m.Params()
	m.quality = clamp(q)
	return m
}

// WithParam returns a copy of m with name set to value, replacing any previous value.
func (m MediaType) WithParam(name, value string) MediaType {
	name = strings.ToLower(name)
	params := make([]Param, 0, len(m.params)+1)
	replaced := false
	for _, p := range m.params {
		if p.Name == name {
			params = append(params, Param{Name: name, Value: value})
			replaced = true
			continue
		}
		params = append(params, p)
	}
	if !replaced {
		params = append(params, Param{Name: name, Value: value})
	}
	m.params = params
	return m
}

// SameEssence reports whether a and b have equal type and subtype. Wildcards
// are compared literally.
func SameEssence(a, b MediaType) bool {
	return a.typ == b.typ && a.subtype == b.subtype
}

// Matches reports whether actual is acceptable to candidate. Type and subtype
// each match when equal or when either side is "*". Parameters are ignored.
func Matches(candidate, actual MediaType) bool {
	return matchPart(candidate.typ, actual.typ) && matchPart(candidate.subtype, actual.subtype)
}

func matchPart(a, b string) bool {
	return a == b || a == Wildcard || b == Wildcard
}

// String renders m in header form. The q parameter is omitted when it is 1.
func (m MediaType) String() string {
	var scratch [96]byte
	b := textbuf.New(scratch[:])
	m.AppendTo(&b)
	return b.String()
}

// AppendTo renders m into b.
func (m MediaType) AppendTo(b *textbuf.Buffer) {
	b.AppendString(m.typ)
	b.AppendByte('/')
	b.AppendString(m.subtype)
	for _, p := range m.params {
		b.AppendString("; ")
		b.AppendString(p.Name)
		b.AppendByte('=')
		appendValue(b, p.Value)
	}
	if m.quality < 1 {
		b.AppendString("; q=")
		b.AppendFloat(m.quality, 3)
	}
}

func appendValue(b *textbuf.Buffer, v string) {
	if v != "" && isToken(v) {
		b.AppendString(v)
		return
	}
	b.AppendByte('"')
	for i := 0; i < len(v); i++ {
		if v[i] == '"' || v[i] == '\\' {
			b.AppendByte('\\')
		}
		b.AppendByte(v[i])
	}
	b.AppendByte('"')
}

// MustParse is like Parse but panics on malformed input. It is intended for
// package-level codec declarations.
func MustParse(s string) MediaType {
	mt, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return mt
}

// Parse parses a Content-Type or single Accept element. Quality defaults to 1
// and is clamped to [0,1]. Malformed input yields an error with code
// MALFORMED_MEDIA_TYPE.
func Parse(s string) (MediaType, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return MediaType{}, apperrors.MalformedMediaType(raw, "empty value")
	}

	essence := s
	rest := ""
	if i := strings.IndexByte(s, ';'); i >= 0 {
		essence, rest = s[:i], s[i+1:]
	}
	essence = strings.TrimSpace(essence)
	slash := strings.IndexByte(essence, '/')
	if slash <= 0 || slash == len(essence)-1 {
		return MediaType{}, apperrors.MalformedMediaType(raw, "expected type/subtype")
	}
	typ, subtype := essence[:slash], essence[slash+1:]
	if !isToken(typ) || !isToken(subtype) {
		return MediaType{}, apperrors.MalformedMediaType(raw, "invalid character in type/subtype")
	}

	mt := MediaType{
		typ:     strings.ToLower(typ),
		subtype: strings.ToLower(subtype),
		quality: 1,
	}

	for {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			break
		}
		if rest[0] == ';' {
			rest = rest[1:]
			continue
		}
		name, value, remaining, err := consumeParam(rest)
		if err != nil {
			return MediaType{}, apperrors.MalformedMediaType(raw, err.Error())
		}
		rest = remaining
		if name == "q" {
			q, perr := strconv.ParseFloat(value, 64)
			if perr != nil {
				return MediaType{}, apperrors.MalformedMediaType(raw, "invalid quality value")
			}
			mt.quality = clamp(q)
			continue
		}
		mt.params = append(mt.params, Param{Name: name, Value: value})
	}
	return mt, nil
}

type parseError string

func (e parseError) Error() string { return string(e) }

// consumeParam reads one name=value pair from the front of s and returns the
// input left after it, including any ';' separator.
func consumeParam(s string) (name, value, rest string, err error) {
	eq := strings.IndexByte(s, '=')
	if eq < 0 {
		return "", "", "", parseError("parameter without value")
	}
	name = strings.ToLower(strings.TrimSpace(s[:eq]))
	if !isToken(name) {
		return "", "", "", parseError("invalid parameter name")
	}
	s = strings.TrimLeft(s[eq+1:], " \t")

	if strings.HasPrefix(s, `"`) {
		var sb strings.Builder
		for i := 1; i < len(s); i++ {
			switch c := s[i]; c {
			case '\\':
				if i+1 < len(s) {
					i++
					sb.WriteByte(s[i])
				}
			case '"':
				return name, sb.String(), s[i+1:], nil
			default:
				sb.WriteByte(c)
			}
		}
		return "", "", "", parseError("unterminated quoted string")
	}

	end := strings.IndexByte(s, ';')
	if end < 0 {
		end = len(s)
	}
	value = strings.TrimSpace(s[:end])
	if value == "" || !isToken(value) {
		return "", "", "", parseError("invalid parameter value")
	}
	return name, value, s[end:], nil
}

func clamp(q float64) float64 {
	switch {
	case q != q: // NaN
		return 0
	case q < 0:
		return 0
	case q > 1:
		return 1
	}
	return q
}

func isToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isTokenChar(s[i]) {
			return false
		}
	}
	return true
}

// isTokenChar reports whether c is an RFC 7230 tchar.
func isTokenChar(c byte) bool {
	if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
		return true
	}
	switch c {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}
