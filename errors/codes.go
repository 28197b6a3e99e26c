package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Negotiation errors
const (
	// ErrCodeMalformedMediaType indicates a content-type header that does not parse.
	ErrCodeMalformedMediaType ErrorCode = "MALFORMED_MEDIA_TYPE"
	// ErrCodeNoCodec indicates no registered codec accepts the declared content type.
	ErrCodeNoCodec ErrorCode = "NO_CODEC"
	// ErrCodeEncodeFailed indicates a codec failed to encode an outgoing value.
	ErrCodeEncodeFailed ErrorCode = "ENCODE_FAILED"
	// ErrCodeDecodeFailed indicates a codec failed to decode an incoming body.
	ErrCodeDecodeFailed ErrorCode = "DECODE_FAILED"
	// ErrCodeUnsupportedCharset indicates a charset the encoding bridge cannot transcode.
	ErrCodeUnsupportedCharset ErrorCode = "UNSUPPORTED_CHARSET"
)

// Body state errors
const (
	// ErrCodeContentAlreadyBuffered indicates a streaming operation on a body
	// that has already been read into memory.
	ErrCodeContentAlreadyBuffered ErrorCode = "CONTENT_ALREADY_BUFFERED"
	// ErrCodeBodyConsumed indicates a second reader claimed a single-pass stream.
	ErrCodeBodyConsumed ErrorCode = "BODY_CONSUMED"
)

// Transfer errors
const (
	// ErrCodeTransferFailed indicates an I/O failure during a streaming copy.
	ErrCodeTransferFailed ErrorCode = "TRANSFER_FAILED"
	// ErrCodeCancelled indicates the caller cancelled the operation.
	ErrCodeCancelled ErrorCode = "CANCELLED"
)

// Connection/Availability errors (retryable)
const (
	// ErrCodeConnectionFailed indicates a failed connection to a service.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Validation and internal errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTransferFailed:   true,
	ErrCodeConnectionFailed: true,
	ErrCodeTimeout:          true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
