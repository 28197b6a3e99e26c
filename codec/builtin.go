package codec

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/kbukum/restkit/mediatype"
)

// JSON encodes with encoding/json. It also accepts text/json and
// application/problem+json responses.
func JSON() *Codec {
	return &Codec{
		Name:     "json",
		Accepted: mediatype.JSON,
		Aliases: []mediatype.MediaType{
			mediatype.New("text", "json"),
			mediatype.New("application", "problem+json"),
		},
		Encode: Simple(json.Marshal),
		Decode: func(_ context.Context, r io.Reader, v any) error {
			err := json.NewDecoder(r).Decode(v)
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		},
	}
}

// XML encodes with encoding/xml. It also accepts text/xml and
// application/problem+xml responses.
func XML() *Codec {
	return &Codec{
		Name:     "xml",
		Accepted: mediatype.XML.WithQuality(0.9),
		Aliases: []mediatype.MediaType{
			mediatype.New("text", "xml").WithQuality(0.9),
			mediatype.New("application", "problem+xml").WithQuality(0.9),
		},
		Encode: Simple(xml.Marshal),
		Decode: func(_ context.Context, r io.Reader, v any) error {
			dec := xml.NewDecoder(r)
			// Input is already UTF-8; the prolog's encoding is informational.
			dec.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }
			err := dec.Decode(v)
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		},
	}
}

// Form encodes url.Values or map[string]string as
// application/x-www-form-urlencoded and decodes into *url.Values.
func Form() *Codec {
	return &Codec{
		Name:     "form",
		Accepted: mediatype.Form.WithQuality(0.5),
		Encode: Simple(func(v any) ([]byte, error) {
			switch t := v.(type) {
			case url.Values:
				return []byte(t.Encode()), nil
			case map[string]string:
				vals := make(url.Values, len(t))
				for k, s := range t {
					vals.Set(k, s)
				}
				return []byte(vals.Encode()), nil
			case map[string][]string:
				return []byte(url.Values(t).Encode()), nil
			default:
				return nil, fmt.Errorf("form: unsupported type %T", v)
			}
		}),
		Decode: func(_ context.Context, r io.Reader, v any) error {
			dst, ok := v.(*url.Values)
			if !ok {
				return fmt.Errorf("form: cannot decode into %T", v)
			}
			data, err := io.ReadAll(r)
			if err != nil {
				return err
			}
			vals, err := url.ParseQuery(string(data))
			if err != nil {
				return err
			}
			*dst = vals
			return nil
		},
	}
}

// Text handles text/plain as strings. It decodes into *string, *[]byte or an
// io.Writer.
func Text() *Codec {
	return &Codec{
		Name:     "text",
		Accepted: mediatype.TextPlain.WithQuality(0.5),
		Encode:   Simple(marshalRaw),
		Decode:   unmarshalRaw,
		Fills:    rawTarget,
	}
}

// Bytes passes application/octet-stream through untouched. It is also the
// codec an absent Content-Type resolves to.
func Bytes() *Codec {
	return &Codec{
		Name:     "bytes",
		Accepted: mediatype.OctetStream.WithQuality(0.1),
		Encode:   Simple(marshalRaw),
		Decode:   unmarshalRaw,
		Fills:    rawTarget,
		Binary:   true,
	}
}

// Default returns a registry with JSON, XML, form, text and bytes, in that
// order.
func Default() *Registry {
	return NewRegistry(JSON(), XML(), Form(), Text(), Bytes())
}

func marshalRaw(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	case fmt.Stringer:
		return []byte(t.String()), nil
	case io.Reader:
		return io.ReadAll(t)
	default:
		return nil, fmt.Errorf("unsupported raw payload %T", v)
	}
}

// rawTarget reports whether v is something unmarshalRaw can write to.
func rawTarget(v any) bool {
	switch v.(type) {
	case *string, *[]byte, io.Writer:
		return true
	default:
		return false
	}
}

func unmarshalRaw(_ context.Context, r io.Reader, v any) error {
	switch dst := v.(type) {
	case *string:
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(r); err != nil {
			return err
		}
		*dst = buf.String()
		return nil
	case *[]byte:
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		*dst = data
		return nil
	case io.Writer:
		_, err := io.Copy(dst, r)
		return err
	default:
		return fmt.Errorf("cannot decode raw payload into %T", v)
	}
}
