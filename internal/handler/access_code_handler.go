package handler

import (
	"context"
	"net/http"
	"strconv"

	"go-video-hub/internal/middleware"
	"go-video-hub/internal/model"
	"go-video-hub/pkg/apierror"
)

type codeManager interface {
	Generate(ctx context.Context, createdBy int64) (model.AccessCode, error)
	List(ctx context.Context) ([]model.AccessCode, error)
	Delete(ctx context.Context, id int64) error
}

type AccessCodeHandler struct {
	codes codeManager
	audit auditLogger
}

func NewAccessCodeHandler(codes codeManager, audit auditLogger) *AccessCodeHandler {
	return &AccessCodeHandler{codes: codes, audit: audit}
}

func (h *AccessCodeHandler) List(w http.ResponseWriter, r *http.Request) {
	codes, err := h.codes.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.AccessCodeList{Codes: codes}, nil)
}

func (h *AccessCodeHandler) Generate(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	code, err := h.codes.Generate(r.Context(), principal.UserID)
	status, errText := auditStatus(err)
	h.audit.Log(r.Context(), model.AuditAccessCodeGenerate, actorFromRequest(r), status, code.Code, nil, errText)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, code, nil)
}

func (h *AccessCodeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var payload model.DeleteByIDRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}
	if payload.ID <= 0 {
		writeError(w, apierror.Validation("id", "id is required"))
		return
	}

	err := h.codes.Delete(r.Context(), payload.ID)
	status, errText := auditStatus(err)
	h.audit.Log(r.Context(), model.AuditAccessCodeDelete, actorFromRequest(r), status,
		strconv.FormatInt(payload.ID, 10), nil, errText)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]int64{"id": payload.ID}, nil)
}
