// Package services implements the business logic for webhook dispatch,
// context retrieval, and tenant administration. This file centralizes the
// service-level error values so they can be consistently returned by service
// methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrEmptyQuery is returned when a context request carries no query text.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrCallNotFound indicates that the requested call record does not exist.
	ErrCallNotFound = errors.New("call not found")

	// ErrEmptyCorpus is returned when a corpus ingestion request carries no
	// markdown content.
	ErrEmptyCorpus = errors.New("corpus is empty")

	// ErrMalformedEvent is returned when a webhook body cannot be decoded
	// into a known message envelope.
	ErrMalformedEvent = errors.New("malformed webhook event")
)
