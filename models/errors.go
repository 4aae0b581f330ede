package models

import "errors"

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")
	// ErrValidation wraps invalid input
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized is returned for missing or expired sessions and bad credentials
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the role does not allow the action
	ErrForbidden = errors.New("forbidden")
	// ErrUnavailable marks backend failures that should switch the monitor offline
	ErrUnavailable = errors.New("backend unavailable")
)
