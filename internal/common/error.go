// Package common defines shared constants and sentinel errors used across
// filevault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrEmailExists   = errors.New("email already registered")
	ErrDuplicateFile = errors.New("storage key already exists")

	// Service-level errors (generic/internal flow control).
	ErrInternal           = errors.New("internal error")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Registration/login validation errors.
	ErrMissingFields = errors.New("missing required fields")
	ErrInvalidEmail  = errors.New("invalid email format")

	// Upload/listing validation errors.
	ErrMissingFilename = errors.New("filename is required")
	ErrFilenameTooLong = errors.New("filename too long")
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file too large")
	ErrLimitTooHigh    = errors.New("limit too high")

	// Token lifecycle errors.
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenNotYetValid = errors.New("token not yet valid")
	ErrTokenMalformed   = errors.New("token malformed")
	ErrWrongTokenKind   = errors.New("wrong token kind")

	// Object-storage errors.
	ErrObjectMissing = errors.New("object missing from storage")
	ErrStorage       = errors.New("storage backend error")
)
