// Package httpclient is an HTTP client whose request and response bodies are
// encoded and decoded by content-type negotiation.
//
// Outgoing structured bodies are encoded by the codec that produces the
// declared content type (Request.ContentType, else Config.DefaultContentType).
// Incoming bodies are decoded by the first registered codec whose accepted
// type matches the response Content-Type; when none matches the payload stays
// available raw. Streams and downloads go through the transfer engine with
// per-chunk progress and cooperative cancellation.
//
// # Basic Usage
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.example.com",
//	    Auth:    httpclient.BearerAuth("my-token"),
//	})
//
//	user, err := httpclient.Get[User](client, ctx, "/users/123")
//
// # Downloads
//
//	progress, err := client.SaveFile(ctx, httpclient.Request{
//	    Method: http.MethodGet,
//	    Path:   "/exports/latest",
//	}, "export.csv", httpclient.DownloadOptions{
//	    OnProgress: func(p transfer.Progress) { ... },
//	})
//
// # With Resilience
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL:        "https://api.example.com",
//	    Retry:          httpclient.DefaultRetryConfig(),
//	    CircuitBreaker: httpclient.DefaultCircuitBreakerConfig("my-api"),
//	})
//
// Subpackages:
//
//   - rest: JSON-preset client with generic typed methods
//   - sse: Server-Sent Events reader
package httpclient
