// Package errors provides the unified error type used across restkit.
//
// Every failure mode of content negotiation, body state tracking and
// streaming transfer is an *AppError with a machine-readable code. The
// package-level sentinels match by code, so callers can write
//
//	if errors.Is(err, apperrors.ErrCancelled) { ... }
//
// and still unwrap to the underlying cause (for example context.Canceled).
package errors
