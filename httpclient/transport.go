package httpclient

import (
	"context"
	"crypto/tls"
	"net/http"

	"golang.org/x/net/http2"

	"github.com/kbukum/restkit/content"
)

// Transport performs the network exchange for a prepared request. The
// returned response body must be closed by the caller.
type Transport interface {
	Send(ctx context.Context, req *http.Request) (*http.Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *http.Request) (*http.Response, error)

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, req *http.Request) (*http.Response, error) {
	return f(ctx, req)
}

// HTTPTransport sends requests through a net/http client. Response bodies
// are marked as live streams so body state can be tracked.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport clones the default transport, optionally configured for
// HTTP/2 and a custom TLS config. The client carries no timeout; deadlines
// come from the context.
func NewHTTPTransport(enableHTTP2 bool, tlsCfg *tls.Config) (*HTTPTransport, error) {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if tlsCfg != nil {
		base.TLSClientConfig = tlsCfg
	}
	if enableHTTP2 {
		if err := http2.ConfigureTransport(base); err != nil {
			return nil, err
		}
	}
	return &HTTPTransport{client: &http.Client{Transport: base}}, nil
}

// WrapHTTPClient uses an existing client as the transport.
func WrapHTTPClient(c *http.Client) *HTTPTransport {
	return &HTTPTransport{client: c}
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := t.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	if resp.Body != nil {
		resp.Body = content.StreamingReader(resp.Body)
	}
	return resp, nil
}

// Client returns the underlying *http.Client.
func (t *HTTPTransport) Client() *http.Client {
	return t.client
}

// CloseIdleConnections closes idle keep-alive connections.
func (t *HTTPTransport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}
