// Package validation checks configuration and request input.
//
// Struct tags go through go-playground/validator with three extra tags:
// mediatype, charset and header.
//
//	type Config struct {
//	    DefaultContentType string `validate:"omitempty,mediatype"`
//	    RequestIDHeader    string `validate:"omitempty,header"`
//	}
//	err := validation.Validate(cfg)
//
// Checks that tags cannot express use a Validator:
//
//	v := validation.New().HTTPURL("base_url", cfg.BaseURL)
//	if err := v.Validate(); err != nil { ... }
package validation
