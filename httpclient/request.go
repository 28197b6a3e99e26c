package httpclient

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kbukum/restkit/charset"
	"github.com/kbukum/restkit/codec"
	"github.com/kbukum/restkit/content"
	apperrors "github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/httpclient/sse"
	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/mediatype"
	"github.com/kbukum/restkit/observability"
	"github.com/kbukum/restkit/transfer"
)

// Request describes an outbound HTTP request.
type Request struct {
	// Method is the HTTP method (GET, POST, PUT, PATCH, DELETE, etc).
	Method string
	// Path is appended to the client's BaseURL. Can be a full URL if BaseURL is empty.
	Path string
	// Headers are request-specific headers (merged with client defaults).
	Headers map[string]string
	// Query are URL query parameters.
	Query map[string]string
	// Body is the request body. io.Reader and []byte are sent as is; a
	// string is sent as UTF-8 text; a *MultipartBody as multipart/form-data;
	// anything else is encoded by the codec for ContentType.
	Body any
	// ContentType is the declared type of Body. Empty means the client's
	// DefaultContentType for structured values.
	ContentType string
	// Codecs are tried before the client's codecs for this request only.
	Codecs []*codec.Codec
	// Auth overrides the client-level auth for this request.
	Auth *AuthConfig
}

// Response is the result of an HTTP request with its body held in memory.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers map[string]string
	// Body is the buffered response body.
	Body []byte
	// ContentType is the declared content type, zero when none was sent.
	ContentType mediatype.MediaType
	// RequestID is the ID sent with the request.
	RequestID string

	neg *negotiator
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsError returns true if the status code is 4xx or 5xx.
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}

// Content returns the body as a buffered content.Body.
func (r *Response) Content() *content.Body {
	return content.FromBytes(r.Body, r.ContentType)
}

// Text returns the body as UTF-8, transcoding from the declared charset.
func (r *Response) Text() string {
	cs := r.Content().Charset()
	if charset.IsUTF8(cs) {
		return string(r.Body)
	}
	text, err := charset.ToUTF8(r.Body, cs)
	if err != nil {
		return string(r.Body)
	}
	return string(text)
}

// Decode decodes the body into v with the codec matching its content type.
// It returns false with no error when no codec accepts the type; Body then
// holds the raw payload.
func (r *Response) Decode(ctx context.Context, v any) (bool, error) {
	return r.negotiator().decode(ctx, r.Content(), v)
}

// accepted reports whether any codec accepts the body's content type.
func (r *Response) accepted() bool {
	return r.negotiator().registry.SelectForDecode(r.ContentType) != nil
}

func (r *Response) negotiator() *negotiator {
	if r.neg == nil {
		return defaultNegotiator()
	}
	return r.neg
}

// DownloadOptions configures a streaming save.
type DownloadOptions struct {
	// ChunkSize overrides the client's chunk size.
	ChunkSize int
	// OnProgress is called after every chunk and once on completion.
	OnProgress transfer.ProgressFunc
}

// StreamResponse wraps a streaming HTTP response.
type StreamResponse struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers map[string]string
	// ContentType is the declared content type, zero when none was sent.
	ContentType mediatype.MediaType
	// RequestID is the ID sent with the request.
	RequestID string
	// SSE is set for text/event-stream responses and owns the body stream.
	SSE sse.Reader
	// Body is the live response body.
	Body *content.Body

	neg    *negotiator
	engine *transfer.Engine
}

// Decode feeds the live body to the codec matching its content type. UTF-8
// bodies are decoded as they arrive.
func (r *StreamResponse) Decode(ctx context.Context, v any) (bool, error) {
	if r.neg == nil {
		return defaultNegotiator().decode(ctx, r.Body, v)
	}
	return r.neg.decode(ctx, r.Body, v)
}

// SaveTo copies the live body to w, reporting progress per chunk. It fails
// with CONTENT_ALREADY_BUFFERED when the body has been read into memory and
// with BODY_CONSUMED when another reader claimed it.
func (r *StreamResponse) SaveTo(ctx context.Context, w io.Writer, opts DownloadOptions) (transfer.Progress, error) {
	src, err := r.Body.Stream("save response body")
	if err != nil {
		return transfer.Progress{}, err
	}
	defer func() { _ = r.Body.Close() }()

	var total *int64
	if n := r.Body.Length(); n >= 0 {
		total = transfer.KnownTotal(n)
	}
	engine := r.engine
	if engine == nil {
		engine = transfer.NewEngine("http")
	}
	return engine.Copy(ctx, w, src, transfer.Options{
		ChunkSize:  opts.ChunkSize,
		TotalBytes: total,
		OnProgress: opts.OnProgress,
	})
}

// Close releases all resources associated with the stream.
func (r *StreamResponse) Close() error {
	if r.SSE != nil {
		_ = r.SSE.Close()
	}
	if r.Body != nil {
		return r.Body.Close()
	}
	return nil
}

// negotiator decodes bodies for one client, recording misses and failures.
type negotiator struct {
	client   string
	registry *codec.Registry
	log      *logger.Logger
	metrics  *observability.Metrics
}

func (a *Adapter) negotiator(reg *codec.Registry) *negotiator {
	return &negotiator{client: a.config.Name, registry: reg, log: a.log, metrics: a.metrics}
}

func defaultNegotiator() *negotiator {
	return &negotiator{client: "http", registry: codec.Default(), log: logger.Get("httpclient")}
}

func (n *negotiator) decode(ctx context.Context, body *content.Body, v any) (bool, error) {
	if v == nil {
		return false, nil
	}
	ctx, span := observability.StartSpan(ctx, observability.SpanDecode)
	defer span.End()
	essence := body.ContentType().Essence()
	span.SetAttributes(attribute.String(observability.AttrContentType, essence))

	c, err := n.registry.Decode(ctx, body, v)
	if c == nil && err == nil {
		if n.metrics != nil {
			n.metrics.RecordUnmatched(ctx, n.client, essence)
		}
		n.log.WithContext(ctx).Debug("no codec accepts content type", logger.Fields(
			logger.FieldContentType, body.RawContentType(),
		))
		return false, nil
	}
	if c != nil {
		span.SetAttributes(attribute.String(observability.AttrCodec, c.Name))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if appErr, ok := apperrors.AsAppError(err); ok && n.metrics != nil {
			n.metrics.RecordError(ctx, string(appErr.Code), "codec")
		}
		return false, err
	}
	return true, nil
}
