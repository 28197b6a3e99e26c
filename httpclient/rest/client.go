package rest

import (
	"context"

	"github.com/kbukum/restkit/codec"
	"github.com/kbukum/restkit/httpclient"
)

// Client is a JSON-only REST client. It accepts and sends application/json
// (and its aliases) and nothing else.
type Client struct {
	http *httpclient.Adapter
}

// Response is a typed REST response.
type Response[T any] = httpclient.TypedResponse[T]

// New creates a REST client from the given config.
func New(cfg httpclient.Config, opts ...httpclient.Option) (*Client, error) {
	cfg.DefaultContentType = "application/json"
	opts = append([]httpclient.Option{httpclient.WithRegistry(codec.NewRegistry(codec.JSON()))}, opts...)
	a, err := httpclient.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{http: a}, nil
}

// NewFromAdapter creates a REST client from an existing adapter, keeping its
// codec registry.
func NewFromAdapter(a *httpclient.Adapter) *Client {
	return &Client{http: a}
}

// HTTP returns the underlying adapter.
func (c *Client) HTTP() *httpclient.Adapter {
	return c.http
}

// Name returns the client name.
func (c *Client) Name() string {
	return c.http.Name()
}

// IsAvailable reports whether requests are currently let through.
func (c *Client) IsAvailable(ctx context.Context) bool {
	return c.http.IsAvailable(ctx)
}

// Close releases idle connections.
func (c *Client) Close(ctx context.Context) error {
	return c.http.Close(ctx)
}

// RequestOption configures a single REST request.
type RequestOption = httpclient.RequestOption

// WithQuery sets query parameters on the request.
func WithQuery(params map[string]string) RequestOption {
	return func(r *httpclient.Request) {
		r.Query = params
	}
}

// WithHeaders sets headers on the request.
func WithHeaders(headers map[string]string) RequestOption {
	return func(r *httpclient.Request) {
		r.Headers = headers
	}
}

// WithAuth overrides authentication for the request.
func WithAuth(auth *httpclient.AuthConfig) RequestOption {
	return httpclient.WithRequestAuth(auth)
}

// Get performs a GET request and decodes the JSON response into type T.
func Get[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (*Response[T], error) {
	return httpclient.Get[T](c.http, ctx, path, opts...)
}

// Post performs a POST request with a JSON body and decodes the response into type T.
func Post[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (*Response[T], error) {
	return httpclient.Post[T](c.http, ctx, path, body, opts...)
}

// Put performs a PUT request with a JSON body and decodes the response into type T.
func Put[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (*Response[T], error) {
	return httpclient.Put[T](c.http, ctx, path, body, opts...)
}

// Patch performs a PATCH request with a JSON body and decodes the response into type T.
func Patch[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (*Response[T], error) {
	return httpclient.Patch[T](c.http, ctx, path, body, opts...)
}

// Delete performs a DELETE request and decodes the response into type T.
func Delete[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (*Response[T], error) {
	return httpclient.Delete[T](c.http, ctx, path, opts...)
}
