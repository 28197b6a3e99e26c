package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kbukum/restkit/codec"
	"github.com/kbukum/restkit/content"
	apperrors "github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/mediatype"
)

// ErrorCode classifies HTTP client errors.
type ErrorCode int

const (
	// ErrCodeTimeout indicates a request or connection timeout.
	ErrCodeTimeout ErrorCode = iota
	// ErrCodeConnection indicates a connection failure (refused, DNS, etc).
	ErrCodeConnection
	// ErrCodeAuth indicates an authentication/authorization failure (401/403).
	ErrCodeAuth
	// ErrCodeNotFound indicates the resource was not found (404).
	ErrCodeNotFound
	// ErrCodeRateLimit indicates rate limiting (429).
	ErrCodeRateLimit
	// ErrCodeValidation indicates a rejected request (other 4xx) or a request
	// that could not be built.
	ErrCodeValidation
	// ErrCodeServer indicates a server-side error (5xx).
	ErrCodeServer
)

var codeNames = map[ErrorCode]string{
	ErrCodeTimeout:    "timeout",
	ErrCodeConnection: "connection",
	ErrCodeAuth:       "auth",
	ErrCodeNotFound:   "not_found",
	ErrCodeRateLimit:  "rate_limit",
	ErrCodeValidation: "validation",
	ErrCodeServer:     "server",
}

// String returns the error code name.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "unknown"
}

// Error is a structured HTTP client error with classification. For status
// errors it keeps the buffered response body and its content type so the
// payload can still be decoded.
type Error struct {
	// StatusCode is the HTTP status code (0 for connection-level errors).
	StatusCode int
	// Code classifies the error.
	Code ErrorCode
	// Message describes the error.
	Message string
	// Retryable indicates whether the operation can be retried.
	Retryable bool
	// Body is the buffered response body (may be nil).
	Body []byte
	// ContentType is the raw Content-Type of Body.
	ContentType string
	// RequestID is the ID sent with the failed request.
	RequestID string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Decode decodes the error body into v through reg. It fails with
// DECODE_FAILED when no codec accepts the body's content type.
func (e *Error) Decode(ctx context.Context, reg *codec.Registry, v any) error {
	mt, _ := mediatype.ParseOrDefault(e.ContentType, mediatype.OctetStream)
	body := content.FromBytes(e.Body, mt)
	c, err := reg.Decode(ctx, body, v)
	if err != nil {
		return err
	}
	if c == nil {
		return apperrors.DecodeFailed(e.ContentType, reg.Tried(), errNoDecoder)
	}
	return nil
}

var errNoDecoder = errors.New("no codec accepts the error body")

// Problem is an RFC 7807 problem document.
type Problem struct {
	Type     string `json:"type,omitempty" xml:"type,omitempty"`
	Title    string `json:"title,omitempty" xml:"title,omitempty"`
	Status   int    `json:"status,omitempty" xml:"status,omitempty"`
	Detail   string `json:"detail,omitempty" xml:"detail,omitempty"`
	Instance string `json:"instance,omitempty" xml:"instance,omitempty"`
}

// Problem decodes the body as a problem document. ok is false when the body
// is not application/problem+json or application/problem+xml.
func (e *Error) Problem(ctx context.Context, reg *codec.Registry) (*Problem, bool) {
	mt, err := mediatype.ParseCached(e.ContentType)
	if err != nil || mt.Type() != "application" {
		return nil, false
	}
	if sub := mt.Subtype(); sub != "problem+json" && sub != "problem+xml" {
		return nil, false
	}
	var p Problem
	if err := e.Decode(ctx, reg, &p); err != nil {
		return nil, false
	}
	return &p, true
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(err error) *Error {
	return &Error{
		Code:      ErrCodeTimeout,
		Message:   err.Error(),
		Retryable: true,
		Err:       err,
	}
}

// NewConnectionError creates a connection error.
func NewConnectionError(err error) *Error {
	return &Error{
		Code:      ErrCodeConnection,
		Message:   err.Error(),
		Retryable: true,
		Err:       err,
	}
}

// NewValidationError creates an error for a request that could not be built.
func NewValidationError(msg string) *Error {
	return &Error{
		Code:      ErrCodeValidation,
		Message:   msg,
		Retryable: false,
	}
}

// ClassifyStatusCode converts an HTTP status code into a typed error.
// Returns nil for 2xx status codes.
func ClassifyStatusCode(statusCode int, body []byte) *Error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	e := &Error{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP %d", statusCode),
		Body:       body,
	}
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e.Code = ErrCodeAuth
	case statusCode == http.StatusNotFound:
		e.Code = ErrCodeNotFound
	case statusCode == http.StatusTooManyRequests:
		e.Code, e.Retryable = ErrCodeRateLimit, true
	case statusCode >= 400 && statusCode < 500:
		e.Code = ErrCodeValidation
	case statusCode >= 500:
		e.Code, e.Retryable = ErrCodeServer, true
	default:
		e.Code = ErrCodeServer
	}
	return e
}

// classifyTransportError maps a failed send. Cancellation by the caller is
// reported as CANCELLED so it is never retried.
func classifyTransportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return apperrors.Cancelled(0, ctx.Err())
	case ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError(err)
	case apperrors.IsAppError(err):
		return err
	default:
		return NewConnectionError(err)
	}
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool { return hasCode(err, ErrCodeTimeout) }

// IsConnection checks if an error is a connection error.
func IsConnection(err error) bool { return hasCode(err, ErrCodeConnection) }

// IsAuth checks if an error is an authentication error.
func IsAuth(err error) bool { return hasCode(err, ErrCodeAuth) }

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsRateLimit checks if an error is a rate-limit error.
func IsRateLimit(err error) bool { return hasCode(err, ErrCodeRateLimit) }

// IsServerError checks if an error is a server error.
func IsServerError(err error) bool { return hasCode(err, ErrCodeServer) }

// IsCancelled checks if the caller cancelled the operation.
func IsCancelled(err error) bool { return errors.Is(err, apperrors.ErrCancelled) }

// IsRetryable checks if an error is retryable, either as a classified HTTP
// error or as an AppError such as TRANSFER_FAILED.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Retryable
	}
	return false
}
