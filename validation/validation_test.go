package validation

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/kbukum/restkit/errors"
)

type clientConfig struct {
	BaseURL     string `mapstructure:"base_url" validate:"omitempty,url"`
	ContentType string `mapstructure:"content_type" validate:"omitempty,mediatype"`
	Charset     string `mapstructure:"charset" validate:"omitempty,charset"`
	Header      string `mapstructure:"request_id_header" validate:"omitempty,header"`
	ChunkSize   int    `mapstructure:"chunk_size" validate:"gte=0"`
	Name        string `validate:"required"`
}

func TestValidate_Valid(t *testing.T) {
	cfg := clientConfig{
		BaseURL:     "https://api.example.com",
		ContentType: "application/json; charset=utf-8",
		Charset:     "ISO-8859-1",
		Header:      "X-Request-ID",
		ChunkSize:   1024,
		Name:        "api",
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	cfg := clientConfig{
		ContentType: "json",
		Charset:     "klingon",
		Header:      "Bad Header",
		ChunkSize:   -1,
	}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !stderrors.Is(err, &errors.AppError{Code: errors.ErrCodeInvalidInput}) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"content_type", "charset", "request_id_header", "chunk_size", "name"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}

	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatal("expected AppError")
	}
	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok || len(fields) != 5 {
		t.Errorf("expected 5 field errors, got %v", appErr.Details["fields"])
	}
}

func TestValidator(t *testing.T) {
	tests := []struct {
		name  string
		check func(v *Validator)
		valid bool
	}{
		{"required ok", func(v *Validator) { v.Required("f", "x") }, true},
		{"required blank", func(v *Validator) { v.Required("f", "  ") }, false},
		{"media type ok", func(v *Validator) { v.MediaType("f", "text/plain; q=0.5") }, true},
		{"media type empty", func(v *Validator) { v.MediaType("f", "") }, true},
		{"media type bad", func(v *Validator) { v.MediaType("f", "text") }, false},
		{"charset ok", func(v *Validator) { v.Charset("f", "utf-16le") }, true},
		{"charset bad", func(v *Validator) { v.Charset("f", "nope") }, false},
		{"header ok", func(v *Validator) { v.HeaderName("f", "X-Trace") }, true},
		{"header bad", func(v *Validator) { v.HeaderName("f", "X Trace") }, false},
		{"headers bad value", func(v *Validator) { v.Headers("h", map[string]string{"X-A": "a\nb"}) }, false},
		{"headers ok", func(v *Validator) { v.Headers("h", map[string]string{"X-A": "b"}) }, true},
		{"url ok", func(v *Validator) { v.HTTPURL("f", "http://localhost:8080/x") }, true},
		{"url relative", func(v *Validator) { v.HTTPURL("f", "/x") }, false},
		{"url ftp", func(v *Validator) { v.HTTPURL("f", "ftp://host/x") }, false},
		{"uuid ok", func(v *Validator) { v.UUID("f", "6ba7b810-9dad-11d1-80b4-00c04fd430c8") }, true},
		{"uuid bad", func(v *Validator) { v.UUID("f", "xyz") }, false},
		{"min ok", func(v *Validator) { v.Min("f", 1, 0) }, true},
		{"min bad", func(v *Validator) { v.Min("f", -1, 0) }, false},
		{"oneof ok", func(v *Validator) { v.OneOf("f", "json", []string{"json", "console"}) }, true},
		{"oneof bad", func(v *Validator) { v.OneOf("f", "xml", []string{"json", "console"}) }, false},
		{"custom bad", func(v *Validator) { v.Custom(false, "f", "nope") }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := New()
			tc.check(v)
			if got := !v.HasErrors(); got != tc.valid {
				t.Errorf("expected valid=%v, errors %v", tc.valid, v.Errors())
			}
			if tc.valid && v.Validate() != nil {
				t.Error("Validate should return nil without errors")
			}
		})
	}
}

func TestValidator_Chaining(t *testing.T) {
	err := New().
		Required("name", "").
		MediaType("content_type", "bad").
		Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Message, "name: is required") || !strings.Contains(err.Message, "content_type:") {
		t.Errorf("unexpected message %q", err.Message)
	}
}
