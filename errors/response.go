package errors

import (
	stderrors "errors"
)

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err wraps an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// TransferredBytes extracts the transferred_bytes detail from a transfer or
// cancellation error.
func TransferredBytes(err error) (int64, bool) {
	appErr, ok := AsAppError(err)
	if !ok {
		return 0, false
	}
	n, ok := appErr.Details["transferred_bytes"].(int64)
	return n, ok
}

// Tried extracts the ordered list of accepted types recorded on a negotiation error.
func Tried(err error) []string {
	appErr, ok := AsAppError(err)
	if !ok {
		return nil
	}
	tried, _ := appErr.Details["tried"].([]string)
	return tried
}
