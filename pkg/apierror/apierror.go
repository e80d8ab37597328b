package apierror

import (
	"fmt"
	"net/http"
)

const (
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeBadRequest    = "BAD_REQUEST"
	CodeAlreadyExists = "ALREADY_EXISTS"
	CodeNotFound      = "NOT_FOUND"
	CodeInternal      = "INTERNAL_ERROR"
)

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

// Unauthenticated covers a missing, invalid or expired session.
func Unauthenticated(message string) *APIError {
	return New(CodeUnauthorized, message, "", http.StatusUnauthorized)
}

// Forbidden covers a valid session without the required role, permission or ownership.
func Forbidden(message string) *APIError {
	return New(CodeForbidden, message, "", http.StatusForbidden)
}

// Validation names the offending request field in Details.
func Validation(field string, message string) *APIError {
	return New(CodeBadRequest, message, field, http.StatusBadRequest)
}

// Conflict names the field whose uniqueness was violated.
func Conflict(field string, message string) *APIError {
	return New(CodeAlreadyExists, message, field, http.StatusConflict)
}

func NotFound(message string, id string) *APIError {
	return New(CodeNotFound, message, id, http.StatusNotFound)
}

func Internal() *APIError {
	return New(CodeInternal, "Unexpected server error", "", http.StatusInternalServerError)
}
