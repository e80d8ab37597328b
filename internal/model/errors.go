package model

import "errors"

var (
	// User related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Session related errors
	ErrInvalidSession = errors.New("invalid or expired session")

	// Access code related errors
	ErrAccessCodeInvalid  = errors.New("invalid or used access code")
	ErrAccessCodeNotFound = errors.New("access code not found")

	// Role related errors
	ErrRoleNotFound       = errors.New("role not found")
	ErrPermissionNotFound = errors.New("permission not found")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
