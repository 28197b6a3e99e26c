package validation

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/net/http/httpguts"

	"github.com/kbukum/restkit/charset"
	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/mediatype"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// getValidator returns the singleton validator instance with the
// media-type, charset and header-name tags registered.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"mapstructure", "yaml", "json"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return toSnakeCase(fld.Name)
		})

		_ = validate.RegisterValidation("mediatype", func(fl validator.FieldLevel) bool {
			return isMediaType(fl.Field().String())
		})
		_ = validate.RegisterValidation("charset", func(fl validator.FieldLevel) bool {
			return charset.Supported(fl.Field().String())
		})
		_ = validate.RegisterValidation("header", func(fl validator.FieldLevel) bool {
			return httpguts.ValidHeaderFieldName(fl.Field().String())
		})
	})
	return validate
}

// Validate validates a struct using struct tags such as
// `validate:"omitempty,mediatype"` or `validate:"gte=0"`.
func Validate(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Validation("validation failed").WithCause(err)
	}

	v := New()
	for _, e := range validationErrors {
		v.AddError(e.Field(), formatValidationError(e))
	}
	return v.Validate()
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return "must be at least " + e.Param()
	case "max", "lte":
		return "must be at most " + e.Param()
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + e.Param()
	case "mediatype":
		return "must be a media type of the form type/subtype"
	case "charset":
		return "must be a supported charset"
	case "header":
		return "must be a valid header name"
	default:
		return "is invalid"
	}
}

func isMediaType(s string) bool {
	mt, err := mediatype.ParseCached(s)
	return err == nil && !mt.IsZero()
}

// toSnakeCase converts a field name to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		if r >= 'A' && r <= 'Z' {
			result.WriteRune(r + 32)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
