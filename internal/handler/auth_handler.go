package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go-video-hub/internal/metrics"
	"go-video-hub/internal/middleware"
	"go-video-hub/internal/model"
	"go-video-hub/pkg/apierror"
)

type authenticator interface {
	Authenticate(ctx context.Context, identifier string, password string) (model.LoginResult, error)
}

type registrar interface {
	Register(ctx context.Context, req model.RegisterRequest) (model.User, error)
}

type codeVerifier interface {
	Verify(ctx context.Context, code string) error
}

type AuthHandler struct {
	auth    authenticator
	users   registrar
	codes   codeVerifier
	cookie  middleware.SessionCookie
	audit   auditLogger
	metrics *metrics.Metrics
}

func NewAuthHandler(auth authenticator, users registrar, codes codeVerifier, cookie middleware.SessionCookie, audit auditLogger, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{auth: auth, users: users, codes: codes, cookie: cookie, audit: audit, metrics: m}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	payload.Identifier = strings.TrimSpace(payload.Identifier)
	if payload.Identifier == "" {
		writeError(w, apierror.Validation("identifier", "identifier is required"))
		return
	}
	if payload.Password == "" {
		writeError(w, apierror.Validation("password", "password is required"))
		return
	}

	result, err := h.auth.Authenticate(r.Context(), payload.Identifier, payload.Password)
	actor := actorFromRequest(r)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			h.metrics.Login("failure")
		} else {
			h.metrics.Login("error")
		}
		h.audit.Log(r.Context(), model.AuditAuthLogin, actor, model.AuditStatusFailure, payload.Identifier, nil, err.Error())
		writeError(w, err)
		return
	}

	actor.UserID = result.User.ID
	actor.Username = result.User.Username
	actor.Role = result.User.Role
	h.metrics.Login("success")
	h.audit.Log(r.Context(), model.AuditAuthLogin, actor, model.AuditStatusSuccess, result.User.Username, nil, "")

	h.cookie.Set(w, result.Token)
	writeJSON(w, http.StatusOK, model.LoginResponse{Success: true, User: result.User})
}

// Logout expires the session cookie and sends the browser to the login page.
// It succeeds with or without an active session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookie.Clear(w)
	h.audit.Log(r.Context(), model.AuditAuthLogout, actorFromRequest(r), model.AuditStatusSuccess, "", nil, "")
	http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload model.RegisterRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.Register(r.Context(), payload)
	status, errText := auditStatus(err)
	h.audit.Log(r.Context(), model.AuditAuthRegister, actorFromRequest(r), status, strings.TrimSpace(payload.Username), nil, errText)
	h.metrics.Registration(registrationResult(err))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}

func (h *AuthHandler) VerifyAccessCode(w http.ResponseWriter, r *http.Request) {
	var payload model.VerifyAccessCodeRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	if err := h.codes.Verify(r.Context(), payload.Code); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.AccessCodeValidity{Valid: true}, nil)
}

// Me returns the caller as freshly resolved by the auth guard.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	perms := principal.Permissions
	if perms == nil {
		perms = []string{}
	}
	writeSuccess(w, http.StatusOK, model.AuthUser{
		ID:          principal.UserID,
		Username:    principal.Username,
		Email:       principal.Email,
		Role:        principal.Role,
		Permissions: perms,
	}, nil)
}

func registrationResult(err error) string {
	var apiErr *apierror.APIError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, model.ErrAccessCodeInvalid):
		return "invalid_code"
	case errors.As(err, &apiErr) && apiErr.HTTPStatus == http.StatusConflict:
		return "conflict"
	case errors.As(err, &apiErr) && apiErr.HTTPStatus == http.StatusBadRequest:
		return "invalid"
	default:
		return "error"
	}
}
