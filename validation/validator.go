package validation

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/http/httpguts"

	"github.com/kbukum/restkit/charset"
	"github.com/kbukum/restkit/errors"
)

// Validator collects field errors for checks that struct tags cannot express.
type Validator struct {
	errors []FieldError
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new Validator.
func New() *Validator {
	return &Validator{errors: make([]FieldError, 0)}
}

// AddError adds a field error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

// HasErrors returns true if there are validation errors.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Validate returns an INVALID_INPUT AppError listing every field error, or
// nil when there are none.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}
	messages := make([]string, len(v.errors))
	for i, e := range v.errors {
		messages[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return errors.Validation(strings.Join(messages, "; ")).
		WithDetail("fields", v.errors)
}

// Required checks that a string is non-blank.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// MediaType checks that a non-empty value parses as type/subtype.
func (v *Validator) MediaType(field, value string) *Validator {
	if value != "" && !isMediaType(value) {
		v.AddError(field, "must be a media type of the form type/subtype")
	}
	return v
}

// Charset checks that a non-empty value names a supported charset.
func (v *Validator) Charset(field, value string) *Validator {
	if value != "" && !charset.Supported(value) {
		v.AddError(field, "must be a supported charset")
	}
	return v
}

// HeaderName checks that a non-empty value is a valid HTTP header name.
func (v *Validator) HeaderName(field, value string) *Validator {
	if value != "" && !httpguts.ValidHeaderFieldName(value) {
		v.AddError(field, "must be a valid header name")
	}
	return v
}

// Headers checks every name and value of a header map.
func (v *Validator) Headers(field string, headers map[string]string) *Validator {
	for name, value := range headers {
		if !httpguts.ValidHeaderFieldName(name) {
			v.AddError(field+"."+name, "must be a valid header name")
			continue
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			v.AddError(field+"."+name, "must be a valid header value")
		}
	}
	return v
}

// HTTPURL checks that a non-empty value is an absolute http or https URL.
func (v *Validator) HTTPURL(field, value string) *Validator {
	if value == "" {
		return v
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		v.AddError(field, "must be an absolute http(s) URL")
	}
	return v
}

// UUID checks that a non-empty value is a valid UUID.
func (v *Validator) UUID(field, value string) *Validator {
	if value == "" {
		return v
	}
	if _, err := uuid.Parse(value); err != nil {
		v.AddError(field, "must be a valid UUID")
	}
	return v
}

// Min checks that a number meets a minimum value.
func (v *Validator) Min(field string, value, minVal int) *Validator {
	if value < minVal {
		v.AddError(field, fmt.Sprintf("must be at least %d", minVal))
	}
	return v
}

// OneOf checks that a non-empty value is one of allowed.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" {
		return v
	}
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
	return v
}

// Custom applies a custom validation condition.
func (v *Validator) Custom(condition bool, field, message string) *Validator {
	if !condition {
		v.AddError(field, message)
	}
	return v
}
