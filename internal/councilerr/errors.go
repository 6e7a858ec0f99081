// Package councilerr defines the sentinel error kinds shared across the
// council engine, its stores, and the HTTP transport that maps them to
// status codes.
package councilerr

import "errors"

var (
	// ErrNotFound is returned when a conversation lookup misses.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when a caller acts on a resource owned by a
	// different user or tenant.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned when a user message is appended to a
	// conversation that already has a turn running.
	ErrConflict = errors.New("conflict")

	// ErrValidation is returned for malformed caller input.
	ErrValidation = errors.New("validation failed")

	// ErrConfigMissing is returned when a tenant has no resolvable
	// personality, prompt, or model configuration.
	ErrConfigMissing = errors.New("configuration missing")

	// ErrUpstreamTransient marks an upstream failure worth retrying
	// (timeouts, 429, 5xx).
	ErrUpstreamTransient = errors.New("upstream transient error")

	// ErrUpstreamPermanent marks an upstream failure that retries will not
	// fix (4xx other than 429, malformed request).
	ErrUpstreamPermanent = errors.New("upstream permanent error")

	// ErrParseFailure marks a ranking or attribution block that could not
	// be parsed from a model response.
	ErrParseFailure = errors.New("parse failure")

	// ErrStageEmpty marks a council stage in which every personality
	// failed to respond.
	ErrStageEmpty = errors.New("stage produced no usable responses")
)
