package logger

import (
	"time"
)

// Field keys shared by the client, codec and transfer packages.
const (
	FieldService          = "service"
	FieldComponent        = "component"
	FieldRequestID        = "request_id"
	FieldOperation        = "operation"
	FieldStatus           = "status"
	FieldError            = "error"
	FieldDuration         = "duration_ms"
	FieldMethod           = "method"
	FieldURL              = "url"
	FieldContentType      = "content_type"
	FieldCodec            = "codec"
	FieldCharset          = "charset"
	FieldTransferredBytes = "transferred_bytes"
	FieldTotalBytes       = "total_bytes"
	FieldAttempt          = "attempt"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Info("saved", logger.Fields("path", p, "transferred_bytes", n))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldError:     err.Error(),
	}
}

// DurationFields creates fields for a timed operation.
func DurationFields(op string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldDuration:  d.Milliseconds(),
	}
}

// TransferFields describes the position of a streaming copy. total is
// omitted when unknown.
func TransferFields(transferred int64, total *int64) map[string]interface{} {
	m := map[string]interface{}{FieldTransferredBytes: transferred}
	if total != nil {
		m[FieldTotalBytes] = *total
	}
	return m
}

// Merge copies every map into a new one. Later keys win.
func Merge(fields ...map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for _, fm := range fields {
		for k, v := range fm {
			out[k] = v
		}
	}
	return out
}
