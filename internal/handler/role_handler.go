package handler

import (
	"context"
	"net/http"
	"strconv"

	"go-video-hub/internal/model"
)

type roleManager interface {
	List(ctx context.Context) ([]model.Role, error)
	ListPermissions(ctx context.Context) ([]model.Permission, error)
	SetPermissions(ctx context.Context, roleID int64, names []string) (model.Role, error)
}

type RoleHandler struct {
	roles roleManager
	audit auditLogger
}

func NewRoleHandler(roles roleManager, audit auditLogger) *RoleHandler {
	return &RoleHandler{roles: roles, audit: audit}
}

func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"roles": roles}, nil)
}

func (h *RoleHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.roles.ListPermissions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"permissions": perms}, nil)
}

func (h *RoleHandler) SetPermissions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.SetRolePermissionsRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	role, err := h.roles.SetPermissions(r.Context(), id, payload.Permissions)
	status, errText := auditStatus(err)
	h.audit.Log(r.Context(), model.AuditRolePermissions, actorFromRequest(r), status, strconv.FormatInt(id, 10), payload, errText)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, role, nil)
}
