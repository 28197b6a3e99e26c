package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// StatusClientClosedRequest is the non-standard status used for cancelled calls.
const StatusClientClosedRequest = 499

// AppError is the unified error type for negotiation, body state and transfer failures.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the closest HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an *AppError with the same code, so the
// package sentinels can be matched with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// Sentinels for errors.Is. They carry only a code and must not be mutated.
var (
	ErrMalformedMediaType     = &AppError{Code: ErrCodeMalformedMediaType}
	ErrNoCodec                = &AppError{Code: ErrCodeNoCodec}
	ErrEncodeFailed           = &AppError{Code: ErrCodeEncodeFailed}
	ErrDecodeFailed           = &AppError{Code: ErrCodeDecodeFailed}
	ErrUnsupportedCharset     = &AppError{Code: ErrCodeUnsupportedCharset}
	ErrContentAlreadyBuffered = &AppError{Code: ErrCodeContentAlreadyBuffered}
	ErrBodyConsumed           = &AppError{Code: ErrCodeBodyConsumed}
	ErrTransferFailed         = &AppError{Code: ErrCodeTransferFailed}
	ErrCancelled              = &AppError{Code: ErrCodeCancelled}
)

// --- Constructors ---

// MalformedMediaType creates an error for a media type that does not parse.
func MalformedMediaType(value, reason string) *AppError {
	return &AppError{
		Code: ErrCodeMalformedMediaType, Message: fmt.Sprintf("malformed media type %q: %s", value, reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"value": value},
	}
}

// NoCodec creates an error for an outgoing content type no codec can encode.
// tried lists the accepted types of the registry in order.
func NoCodec(contentType string, tried []string) *AppError {
	return &AppError{
		Code: ErrCodeNoCodec, Message: fmt.Sprintf("no codec accepts content type %q (tried: %s)",
			contentType, strings.Join(tried, ", ")),
		HTTPStatus: http.StatusUnsupportedMediaType, Retryable: false,
		Details: map[string]any{"content_type": contentType, "tried": tried},
	}
}

// EncodeFailed creates an error for a codec that failed to encode a value.
func EncodeFailed(contentType string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeEncodeFailed, Message: fmt.Sprintf("encode %s body", contentType),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"content_type": contentType}, Cause: cause,
	}
}

// DecodeFailed creates an error for a body the selected codec could not decode.
func DecodeFailed(contentType string, tried []string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeDecodeFailed, Message: fmt.Sprintf("decode %q body (accepted types: %s)",
			contentType, strings.Join(tried, ", ")),
		HTTPStatus: http.StatusBadGateway, Retryable: false,
		Details: map[string]any{"content_type": contentType, "tried": tried}, Cause: cause,
	}
}

// UnsupportedCharset creates an error for a charset with no known transcoder.
func UnsupportedCharset(name string) *AppError {
	return &AppError{
		Code: ErrCodeUnsupportedCharset, Message: fmt.Sprintf("unsupported charset %q", name),
		HTTPStatus: http.StatusUnsupportedMediaType, Retryable: false,
		Details: map[string]any{"charset": name},
	}
}

// ContentAlreadyBuffered creates an error for a streaming operation attempted
// on a body whose bytes are already held in memory.
func ContentAlreadyBuffered(operation string) *AppError {
	return &AppError{
		Code:    ErrCodeContentAlreadyBuffered,
		Message: fmt.Sprintf("%s requires a live stream but the content is already buffered", operation),
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
		Details: map[string]any{"operation": operation},
	}
}

// BodyConsumed creates an error for a second read of a single-pass stream.
func BodyConsumed() *AppError {
	return &AppError{
		Code: ErrCodeBodyConsumed, Message: "body stream has already been consumed",
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
	}
}

// TransferFailed creates an error for an I/O failure after transferred bytes were copied.
func TransferFailed(transferred int64, cause error) *AppError {
	return &AppError{
		Code: ErrCodeTransferFailed, Message: fmt.Sprintf("transfer failed after %d bytes", transferred),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"transferred_bytes": transferred}, Cause: cause,
	}
}

// Cancelled creates an error for a cooperatively cancelled transfer. cause is
// normally the context error.
func Cancelled(transferred int64, cause error) *AppError {
	return &AppError{
		Code: ErrCodeCancelled, Message: fmt.Sprintf("cancelled after %d bytes", transferred),
		HTTPStatus: StatusClientClosedRequest, Retryable: false,
		Details: map[string]any{"transferred_bytes": transferred}, Cause: cause,
	}
}

// ConnectionFailed creates an error for a failed connection to a service.
func ConnectionFailed(service string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeConnectionFailed, Message: fmt.Sprintf("unable to connect to %s", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service}, Cause: cause,
	}
}

// Timeout creates an error for an operation that exceeded its deadline.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("%s timed out", operation),
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// Validation creates an error for invalid input or configuration.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// Internal creates an error for an unexpected internal failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "an unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}
