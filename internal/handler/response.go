package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-video-hub/internal/model"
	"go-video-hub/pkg/apierror"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	writeJSON(w, status, model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// writeError maps domain errors onto the response envelope. Unclassified
// errors are logged and reported as a generic 500; their text never reaches
// the client.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    apierror.CodeInternal,
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatus < http.StatusInternalServerError {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.Is(err, model.ErrInvalidCredentials) {
		status = http.StatusUnauthorized
		body.Code = apierror.CodeUnauthorized
		body.Message = "Invalid credentials"
	} else if errors.Is(err, model.ErrInvalidSession) || errors.Is(err, model.ErrUnauthorized) {
		status = http.StatusUnauthorized
		body.Code = apierror.CodeUnauthorized
		body.Message = "Authentication required"
	} else if errors.Is(err, model.ErrForbidden) {
		status = http.StatusForbidden
		body.Code = apierror.CodeForbidden
		body.Message = "Access denied"
	} else if errors.Is(err, model.ErrAccessCodeInvalid) {
		status = http.StatusBadRequest
		body.Code = apierror.CodeBadRequest
		body.Message = "Invalid or used access code."
		body.Details = "accessCode"
	} else if errors.Is(err, model.ErrAccessCodeNotFound) {
		status = http.StatusNotFound
		body.Code = apierror.CodeNotFound
		body.Message = "Access code not found"
	} else if errors.Is(err, model.ErrUserNotFound) {
		status = http.StatusNotFound
		body.Code = apierror.CodeNotFound
		body.Message = "User not found"
	} else if errors.Is(err, model.ErrRoleNotFound) {
		status = http.StatusNotFound
		body.Code = apierror.CodeNotFound
		body.Message = "Role not found"
	} else if errors.Is(err, model.ErrPermissionNotFound) {
		status = http.StatusBadRequest
		body.Code = apierror.CodeBadRequest
		body.Message = "Unknown permission"
		body.Details = "permissions"
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Code = apierror.CodeBadRequest
		body.Message = "Invalid input"
	} else {
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	writeJSON(w, status, model.APIResponse{
		Success: false,
		Error:   body,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		return apierror.Validation("body", "invalid JSON body")
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, name)), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.Validation(name, "invalid id")
	}
	return id, nil
}

func parseIntOrDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}
