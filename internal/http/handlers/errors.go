// Package handlers defines the HTTP-layer error codes used across all API
// endpoints. These constants give clients a stable, machine-readable error
// taxonomy that supplements human-readable messages.
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - Generic codes mirror common HTTP status semantics.
//   - Domain-specific codes are reserved for business errors that the status
//     alone cannot convey.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeInvalidTenant    = "invalid_tenant"
	ErrCodeIngestFailed     = "ingest_failed"
	ErrCodeOAuthFailed      = "oauth_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
