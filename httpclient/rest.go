package httpclient

import (
	"context"
	"net/http"
	"reflect"

	"github.com/kbukum/restkit/codec"
	"github.com/kbukum/restkit/mediatype"
)

// TypedResponse wraps a response with a decoded body of type T.
type TypedResponse[T any] struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers map[string]string
	// ContentType is the declared content type, zero when none was sent.
	ContentType mediatype.MediaType
	// Data is the decoded response body.
	Data T
	// Decoded is false when no codec accepted the content type or the
	// target; Raw then holds the payload. string and []byte targets always
	// receive the raw body, a string transcoded to UTF-8, and Decoded only
	// reports whether a codec accepts the content type.
	Decoded bool
	// Raw is the buffered response body.
	Raw []byte
}

// RequestOption configures a single request.
type RequestOption func(*Request)

// WithHeader adds a header to the request.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Headers == nil {
			r.Headers = make(map[string]string)
		}
		r.Headers[key] = value
	}
}

// WithQueryParam adds a query parameter to the request.
func WithQueryParam(key, value string) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = make(map[string]string)
		}
		r.Query[key] = value
	}
}

// WithRequestAuth overrides authentication for the request.
func WithRequestAuth(auth *AuthConfig) RequestOption {
	return func(r *Request) {
		r.Auth = auth
	}
}

// WithContentType declares the content type of the request body.
func WithContentType(ct string) RequestOption {
	return func(r *Request) {
		r.ContentType = ct
	}
}

// WithCodecs adds codecs tried before the client's for this request.
func WithCodecs(codecs ...*codec.Codec) RequestOption {
	return func(r *Request) {
		r.Codecs = append(r.Codecs, codecs...)
	}
}

// Get performs a GET request and decodes the response into type T.
func Get[T any](a *Adapter, ctx context.Context, path string, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](a, ctx, http.MethodGet, path, nil, opts...)
}

// Post performs a POST request and decodes the response into type T.
func Post[T any](a *Adapter, ctx context.Context, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](a, ctx, http.MethodPost, path, body, opts...)
}

// Put performs a PUT request and decodes the response into type T.
func Put[T any](a *Adapter, ctx context.Context, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](a, ctx, http.MethodPut, path, body, opts...)
}

// Patch performs a PATCH request and decodes the response into type T.
func Patch[T any](a *Adapter, ctx context.Context, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](a, ctx, http.MethodPatch, path, body, opts...)
}

// Delete performs a DELETE request and decodes the response into type T.
func Delete[T any](a *Adapter, ctx context.Context, path string, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](a, ctx, http.MethodDelete, path, nil, opts...)
}

// doTyped executes a request and decodes the body through the codec
// registry. Status errors still attempt to decode the body into T.
func doTyped[T any](a *Adapter, ctx context.Context, method, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	req := Request{
		Method: method,
		Path:   path,
		Body:   body,
	}
	for _, opt := range opts {
		opt(&req)
	}

	resp, err := a.Do(ctx, req)
	if resp == nil {
		return nil, err
	}
	typed := &TypedResponse[T]{
		StatusCode:  resp.StatusCode,
		Headers:     resp.Headers,
		ContentType: resp.ContentType,
		Raw:         resp.Body,
	}
	if isRawTarget(&typed.Data) {
		typed.Decoded = resp.accepted()
		assignRaw(&typed.Data, resp)
		return typed, err
	}
	if err != nil {
		if len(resp.Body) > 0 {
			if ok, decErr := resp.Decode(ctx, &typed.Data); ok && decErr == nil {
				typed.Decoded = true
				return typed, err
			}
		}
		return nil, err
	}
	if len(resp.Body) == 0 {
		return typed, nil
	}
	typed.Decoded, err = resp.Decode(ctx, &typed.Data)
	if err != nil {
		return nil, err
	}
	if !typed.Decoded {
		assignRaw(&typed.Data, resp)
	}
	return typed, nil
}

// isRawTarget reports whether dst wants the payload itself rather than a
// decoded value.
func isRawTarget[T any](dst *T) bool {
	switch any(dst).(type) {
	case *string, *[]byte:
		return true
	default:
		return false
	}
}

// assignRaw stores the payload into a string, []byte or empty interface
// target. Other targets are left untouched.
func assignRaw[T any](dst *T, resp *Response) {
	switch v := any(dst).(type) {
	case *string:
		*v = resp.Text()
	case *[]byte:
		*v = resp.Body
	default:
		rv := reflect.ValueOf(dst).Elem()
		if rv.Kind() == reflect.Interface && rv.NumMethod() == 0 {
			rv.Set(reflect.ValueOf(resp.Body))
		}
	}
}
