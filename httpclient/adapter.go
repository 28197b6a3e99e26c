package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/kbukum/restkit/codec"
	"github.com/kbukum/restkit/content"
	apperrors "github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/httpclient/sse"
	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/mediatype"
	"github.com/kbukum/restkit/observability"
	"github.com/kbukum/restkit/resilience"
	"github.com/kbukum/restkit/transfer"
)

var multipartFormData = mediatype.New("multipart", "form-data")

// Adapter is a configurable HTTP client. Request bodies are encoded and
// response bodies decoded by a codec registry chosen by content type;
// downloads stream through the transfer engine.
type Adapter struct {
	config    Config
	transport Transport
	registry  *codec.Registry
	engine    *transfer.Engine
	log       *logger.Logger
	metrics   *observability.Metrics
	cb        *resilience.CircuitBreaker
	rl        *resilience.RateLimiter
	transfers *resilience.Bulkhead
}

// New creates a new HTTP adapter with the given configuration.
func New(cfg Config, opts ...Option) (*Adapter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Adapter{
		config: cfg,
		log:    logger.Get("httpclient").WithFields(logger.Fields("client", cfg.Name)),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.transport == nil {
		tlsCfg, err := cfg.TLS.Build()
		if err != nil {
			return nil, NewValidationError(fmt.Sprintf("configure tls: %v", err))
		}
		t, err := NewHTTPTransport(cfg.HTTP2, tlsCfg)
		if err != nil {
			return nil, NewValidationError(fmt.Sprintf("configure transport: %v", err))
		}
		a.transport = t
	}
	if a.registry == nil {
		a.registry = codec.Default()
	}
	if _, err := a.registry.SelectForEncode(multipartFormData); err != nil {
		a.registry = a.registry.With(MultipartCodec())
	}
	a.engine = transfer.NewEngine(cfg.Name,
		transfer.WithChunkSize(cfg.ChunkSize),
		transfer.WithMetrics(a.metrics),
		transfer.WithLogger(a.log.WithComponent("transfer")),
	)

	if cfg.CircuitBreaker != nil {
		a.cb = resilience.NewCircuitBreaker(*cfg.CircuitBreaker)
	}
	if cfg.RateLimiter != nil {
		a.rl = resilience.NewRateLimiter(*cfg.RateLimiter)
	}
	if cfg.MaxConcurrentTransfers > 0 {
		a.transfers = resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          cfg.Name + "-transfers",
			MaxConcurrent: cfg.MaxConcurrentTransfers,
			MaxWait:       cfg.TransferWait,
			OnReject: func(name string, err error) {
				a.log.Warn("transfer slot unavailable", logger.ErrorFields(name, err))
			},
		})
	}
	return a, nil
}

// prepared is a request whose body has been encoded once so that retries
// resend the same bytes.
type prepared struct {
	req         Request
	registry    *codec.Registry
	data        []byte
	stream      io.Reader
	contentType string
}

func (a *Adapter) prepare(req Request) (*prepared, error) {
	p := &prepared{req: req, registry: a.registry.With(req.Codecs...)}
	switch v := req.Body.(type) {
	case nil:
		return p, nil
	case io.Reader:
		p.stream, p.contentType = v, req.ContentType
		return p, nil
	case []byte:
		p.data, p.contentType = v, req.ContentType
		return p, nil
	}

	declared := req.ContentType
	if declared == "" {
		switch req.Body.(type) {
		case string:
			declared = "text/plain; charset=utf-8"
		case *MultipartBody, MultipartBody:
			declared = multipartFormData.String()
		default:
			declared = a.config.DefaultContentType
		}
	}
	mt, err := mediatype.ParseCached(declared)
	if err != nil {
		return nil, err
	}
	body, err := p.registry.Encode(req.Body, mt)
	if err != nil {
		return nil, err
	}
	p.data, err = body.Bytes(context.Background())
	if err != nil {
		return nil, err
	}
	p.contentType = body.ContentType().String()
	return p, nil
}

// Do executes an HTTP request and returns the buffered response. Status
// errors return both the response and an *Error. The body is read fully so
// error classification and retries can see it; use DoStream to decode
// without buffering.
func (a *Adapter) Do(ctx context.Context, req Request) (*Response, error) {
	p, err := a.prepare(req)
	if err != nil {
		return nil, err
	}
	// A caller-supplied reader can only be sent once.
	if a.config.Retry == nil || p.stream != nil {
		return a.doOnce(ctx, p)
	}

	cfg := *a.config.Retry
	if cfg.RetryIf == nil {
		cfg.RetryIf = IsRetryable
	}
	onRetry := cfg.OnRetry
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		a.log.WithContext(ctx).WithError(err).Debug("retrying request", logger.Fields(
			logger.FieldAttempt, attempt,
			logger.FieldMethod, req.Method,
			logger.FieldURL, req.Path,
			"backoff_ms", backoff.Milliseconds(),
		))
		if onRetry != nil {
			onRetry(attempt, err, backoff)
		}
	}
	resp, err := resilience.Retry(ctx, cfg, func() (*Response, error) {
		return a.doOnce(ctx, p)
	})
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) && !apperrors.IsAppError(err) {
		err = classifyTransportError(ctx, err)
	}
	return resp, err
}

// doOnce executes a single attempt bounded by Config.Timeout.
func (a *Adapter) doOnce(ctx context.Context, p *prepared) (resp *Response, err error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	requestID := a.requestID(ctx, p.req)
	ctx = logger.ContextWithRequestID(ctx, requestID)
	cc := observability.NewCallContext(a.config.Name, p.req.Method, p.req.Path, requestID, a.metrics)
	ctx, span := cc.Start(ctx)
	status := 0
	defer func() { cc.End(ctx, span, status, err) }()

	httpResp, err := a.exchange(ctx, p, requestID)
	if err != nil {
		return nil, err
	}
	status = httpResp.StatusCode

	body := content.New(httpResp.Body, httpResp.Header.Get("Content-Type"), httpResp.ContentLength)
	data, err := body.Bytes(ctx)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewTimeoutError(err)
		}
		return nil, err
	}

	resp = &Response{
		StatusCode: status,
		Headers:    flattenHeaders(httpResp.Header),
		Body:       data,
		RequestID:  requestID,
		neg:        a.negotiator(p.registry),
	}
	if body.HasContentType() {
		resp.ContentType = body.ContentType()
	}
	a.log.WithContext(ctx).Debug("http request", logger.Merge(
		logger.Fields(
			logger.FieldMethod, p.req.Method,
			logger.FieldURL, p.req.Path,
			logger.FieldStatus, status,
			logger.FieldContentType, body.RawContentType(),
		),
		logger.DurationFields("request", cc.Duration()),
	))

	if classErr := ClassifyStatusCode(status, data); classErr != nil {
		classErr.ContentType = body.RawContentType()
		classErr.RequestID = requestID
		return resp, classErr
	}
	return resp, nil
}

// DoStream executes an HTTP request and returns the live response body.
// The caller must close the returned StreamResponse. Streams are bounded by
// ctx only and are never retried.
func (a *Adapter) DoStream(ctx context.Context, req Request) (*StreamResponse, error) {
	p, err := a.prepare(req)
	if err != nil {
		return nil, err
	}

	requestID := a.requestID(ctx, req)
	ctx = logger.ContextWithRequestID(ctx, requestID)
	cc := observability.NewCallContext(a.config.Name, req.Method, req.Path, requestID, a.metrics)
	spanCtx, span := cc.Start(ctx)

	httpResp, err := a.exchange(spanCtx, p, requestID)
	if err != nil {
		cc.End(spanCtx, span, 0, err)
		return nil, err
	}
	body := content.New(httpResp.Body, httpResp.Header.Get("Content-Type"), httpResp.ContentLength)

	if httpResp.StatusCode >= 400 {
		data, _ := body.Bytes(ctx)
		classErr := ClassifyStatusCode(httpResp.StatusCode, data)
		classErr.ContentType = body.RawContentType()
		classErr.RequestID = requestID
		cc.End(spanCtx, span, httpResp.StatusCode, classErr)
		return nil, classErr
	}
	cc.End(spanCtx, span, httpResp.StatusCode, nil)

	sr := &StreamResponse{
		StatusCode: httpResp.StatusCode,
		Headers:    flattenHeaders(httpResp.Header),
		Body:       body,
		RequestID:  requestID,
		neg:        a.negotiator(p.registry),
		engine:     a.engine,
	}
	if body.HasContentType() {
		sr.ContentType = body.ContentType()
	}
	if body.ContentType().Essence() == "text/event-stream" {
		rc, err := body.Stream("read event stream")
		if err != nil {
			_ = body.Close()
			return nil, err
		}
		sr.SSE = sse.NewReader(rc)
	}
	return sr, nil
}

// exchange builds and sends one request through the rate limiter and the
// circuit breaker. The caller owns the response body.
func (a *Adapter) exchange(ctx context.Context, p *prepared, requestID string) (*http.Response, error) {
	httpReq, err := a.buildRequest(ctx, p, requestID)
	if err != nil {
		return nil, err
	}

	if a.rl != nil {
		waited, err := a.rl.Wait(ctx)
		switch {
		case errors.Is(err, resilience.ErrRateLimited):
			return nil, &Error{Code: ErrCodeRateLimit, Message: err.Error(), Retryable: true, Err: err}
		case err != nil:
			return nil, classifyTransportError(ctx, err)
		case waited > 0:
			a.log.WithContext(ctx).Debug("rate limited", logger.DurationFields("wait", waited))
		}
	}
	if a.config.DumpHeaders {
		a.log.WithContext(ctx).Debug("request headers", logger.Fields("headers", DumpHeaders(httpReq.Header)))
	}

	var resp *http.Response
	send := func() error {
		r, err := a.transport.Send(ctx, httpReq)
		if err != nil {
			return classifyTransportError(ctx, err)
		}
		resp = r
		if r.StatusCode >= http.StatusInternalServerError {
			return errServerStatus
		}
		return nil
	}
	if a.cb != nil {
		err = a.cb.Execute(send)
	} else {
		err = send()
	}
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return nil, &Error{Code: ErrCodeConnection, Message: "circuit breaker open", Err: err}
	case err != nil && !errors.Is(err, errServerStatus):
		return nil, err
	}

	if a.config.DumpHeaders {
		a.log.WithContext(ctx).Debug("response headers", logger.Fields(
			logger.FieldStatus, resp.StatusCode,
			"headers", DumpHeaders(resp.Header),
		))
	}
	return resp, nil
}

// errServerStatus marks a 5xx response as a failure for the circuit breaker.
var errServerStatus = errors.New("server error status")

// buildRequest constructs an *http.Request from the adapter config and request.
func (a *Adapter) buildRequest(ctx context.Context, p *prepared, requestID string) (*http.Request, error) {
	req := p.req

	url := req.Path
	if a.config.BaseURL != "" && !strings.HasPrefix(req.Path, "http://") && !strings.HasPrefix(req.Path, "https://") {
		url = strings.TrimRight(a.config.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	}

	var body io.Reader
	switch {
	case p.stream != nil:
		body = p.stream
	case p.data != nil:
		body = bytes.NewReader(p.data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("create request: %v", err))
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	if body != nil && httpReq.Header.Get("Content-Type") == "" && p.contentType != "" {
		httpReq.Header.Set("Content-Type", p.contentType)
	}
	if httpReq.Header.Get("Accept") == "" {
		if accept := p.registry.AcceptHeader(); accept != "" {
			httpReq.Header.Set("Accept", accept)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", a.config.UserAgent)
	}
	httpReq.Header.Set(a.config.RequestIDHeader, requestID)

	auth := a.config.Auth
	if req.Auth != nil {
		auth = req.Auth
	}
	if err := auth.apply(httpReq); err != nil {
		return nil, err
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))
	return httpReq, nil
}

// requestID reuses an ID from the request headers or the context before
// generating a new one.
func (a *Adapter) requestID(ctx context.Context, req Request) string {
	for k, v := range req.Headers {
		if v != "" && strings.EqualFold(k, a.config.RequestIDHeader) {
			return v
		}
	}
	if id := logger.RequestIDFromContext(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// flattenHeaders converts multi-value headers to single-value.
func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}

// Name returns the client name.
func (a *Adapter) Name() string {
	return a.config.Name
}

// IsAvailable reports whether the circuit breaker, if any, lets requests through.
func (a *Adapter) IsAvailable(_ context.Context) bool {
	if a.cb != nil {
		return a.cb.State() != resilience.StateOpen
	}
	return true
}

// Registry returns the codec registry used for negotiation.
func (a *Adapter) Registry() *codec.Registry {
	return a.registry
}

// Engine returns the transfer engine used for downloads.
func (a *Adapter) Engine() *transfer.Engine {
	return a.engine
}

// Close releases idle connections held by the default transport.
func (a *Adapter) Close(_ context.Context) error {
	if t, ok := a.transport.(interface{ CloseIdleConnections() }); ok {
		t.CloseIdleConnections()
	}
	return nil
}

// GetConfig returns the adapter's configuration.
func (a *Adapter) GetConfig() Config {
	return a.config
}
