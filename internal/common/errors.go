// Package common defines shared constants and sentinel errors used across
// the account service layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound   = errors.New("not found")
	ErrorConstraint = errors.New("constraint violation")

	// Account errors.
	ErrorDuplicateUser     = errors.New("user already exists")
	ErrorPrincipalNotFound = errors.New("no such principal")
	ErrorValidation        = errors.New("validation error")

	// Notification errors. Delivery failures are retried by the task queue,
	// never by the caller.
	ErrorDelivery = errors.New("delivery failed")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Task token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
