package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeNoCodec, "no codec", http.StatusUnsupportedMediaType)
	if err.Code != ErrCodeNoCodec {
		t.Errorf("expected code %s, got %s", ErrCodeNoCodec, err.Code)
	}
	if err.Message != "no codec" {
		t.Errorf("expected message 'no codec', got %q", err.Message)
	}
	if err.HTTPStatus != http.StatusUnsupportedMediaType {
		t.Errorf("expected status %d, got %d", http.StatusUnsupportedMediaType, err.HTTPStatus)
	}
	if err.Retryable {
		t.Error("NO_CODEC should not be retryable")
	}
}

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeTransferFailed, "broken pipe", http.StatusBadGateway)
	if !err.Retryable {
		t.Error("TRANSFER_FAILED should be retryable")
	}
}

func TestAppError_Error_WithCause(t *testing.T) {
	err := EncodeFailed("application/json", io.ErrUnexpectedEOF)
	got := err.Error()
	if !strings.Contains(got, "ENCODE_FAILED") || !strings.Contains(got, "unexpected EOF") {
		t.Errorf("unexpected message: %s", got)
	}
	if !stderrors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("expected cause to unwrap")
	}
}

func TestAppError_IsMatchesByCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		want     bool
	}{
		{"no codec", NoCodec("text/csv", nil), ErrNoCodec, true},
		{"buffered", ContentAlreadyBuffered("save"), ErrContentAlreadyBuffered, true},
		{"cancelled", Cancelled(10, context.Canceled), ErrCancelled, true},
		{"transfer", TransferFailed(3, io.ErrClosedPipe), ErrTransferFailed, true},
		{"wrapped", fmt.Errorf("call: %w", MalformedMediaType("x", "bad")), ErrMalformedMediaType, true},
		{"different code", TransferFailed(3, nil), ErrCancelled, false},
		{"plain error", io.EOF, ErrCancelled, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := stderrors.Is(tc.err, tc.sentinel); got != tc.want {
				t.Errorf("errors.Is = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCancelled_UnwrapsContextError(t *testing.T) {
	err := Cancelled(42, context.Canceled)
	if !stderrors.Is(err, context.Canceled) {
		t.Error("expected context.Canceled in chain")
	}
	if err.HTTPStatus != StatusClientClosedRequest {
		t.Errorf("expected 499, got %d", err.HTTPStatus)
	}
	n, ok := TransferredBytes(err)
	if !ok || n != 42 {
		t.Errorf("expected 42 transferred bytes, got %d (ok=%v)", n, ok)
	}
}

func TestNoCodec_Diagnostics(t *testing.T) {
	tried := []string{"application/json", "application/xml"}
	err := NoCodec("text/csv", tried)
	msg := err.Error()
	for _, want := range []string{"text/csv", "application/json", "application/xml"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in message %q", want, msg)
		}
	}
	got := Tried(fmt.Errorf("wrap: %w", err))
	if len(got) != 2 || got[0] != "application/json" {
		t.Errorf("unexpected tried list: %v", got)
	}
}

func TestDecodeFailed_Details(t *testing.T) {
	err := DecodeFailed("application/json", []string{"application/json"}, io.ErrUnexpectedEOF)
	if err.Details["content_type"] != "application/json" {
		t.Errorf("expected content_type detail, got %v", err.Details["content_type"])
	}
	if err.HTTPStatus != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", err.HTTPStatus)
	}
}

func TestAppError_WithDetails(t *testing.T) {
	err := Internal(io.EOF).WithDetail("a", 1).WithDetails(map[string]any{"b": 2})
	if err.Details["a"] != 1 || err.Details["b"] != 2 {
		t.Errorf("unexpected details: %v", err.Details)
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", BodyConsumed())
	if !IsCode(err, ErrCodeBodyConsumed) {
		t.Error("expected BODY_CONSUMED")
	}
	if IsCode(err, ErrCodeCancelled) {
		t.Error("did not expect CANCELLED")
	}
	if IsCode(nil, ErrCodeCancelled) {
		t.Error("nil should never match")
	}
	if _, ok := TransferredBytes(io.EOF); ok {
		t.Error("plain error has no transferred bytes")
	}
}

func TestIsRetryableCode(t *testing.T) {
	for code, want := range map[ErrorCode]bool{
		ErrCodeTimeout:                true,
		ErrCodeConnectionFailed:       true,
		ErrCodeTransferFailed:         true,
		ErrCodeCancelled:              false,
		ErrCodeContentAlreadyBuffered: false,
		ErrCodeNoCodec:                false,
	} {
		if got := IsRetryableCode(code); got != want {
			t.Errorf("IsRetryableCode(%s) = %v, want %v", code, got, want)
		}
	}
}
