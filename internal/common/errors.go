// Package common defines shared constants and sentinel errors used across
// the broker components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Request validation errors (missing or malformed input).
	ErrValidation = errors.New("validation error")

	// Failures of external collaborators (object storage, metadata table,
	// secret store, parameter store).
	ErrDependency = errors.New("dependency error")

	// Key-load or cryptographic signing failures. Fatal for the request.
	ErrSigning = errors.New("signing error")
)
