package handler

import (
	"context"
	"net/http"
	"strconv"

	"go-video-hub/internal/middleware"
	"go-video-hub/internal/model"
)

type userManager interface {
	List(ctx context.Context) ([]model.User, error)
	Get(ctx context.Context, id int64) (model.User, error)
	CreateByAdmin(ctx context.Context, req model.AdminCreateUserRequest) (model.User, error)
	UpdateByAdmin(ctx context.Context, id int64, req model.AdminUpdateUserRequest) (model.User, error)
	Delete(ctx context.Context, id int64, actorID int64) error
	UpdateProfile(ctx context.Context, userID int64, req model.UpdateProfileRequest) (model.User, error)
}

type UserHandler struct {
	users userManager
	audit auditLogger
}

func NewUserHandler(users userManager, audit auditLogger) *UserHandler {
	return &UserHandler{users: users, audit: audit}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.UserList{Users: users}, nil)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.AdminCreateUserRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.CreateByAdmin(r.Context(), payload)
	status, errText := auditStatus(err)
	h.audit.Log(r.Context(), model.AuditUserCreate, actorFromRequest(r), status, payload.Username,
		map[string]any{"role": payload.Role, "legacy_hash": payload.UseDemoSalt || payload.CustomSalt != ""}, errText)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, user, nil)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.AdminUpdateUserRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.UpdateByAdmin(r.Context(), id, payload)
	status, errText := auditStatus(err)
	h.audit.Log(r.Context(), model.AuditUserUpdate, actorFromRequest(r), status, strconv.FormatInt(id, 10), payload, errText)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	err = h.users.Delete(r.Context(), id, principal.UserID)
	status, errText := auditStatus(err)
	h.audit.Log(r.Context(), model.AuditUserDelete, actorFromRequest(r), status, strconv.FormatInt(id, 10), nil, errText)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]int64{"id": id}, nil)
}

// UpdateProfile runs behind RequireSelf, so the path id is the caller's own.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.UpdateProfileRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), id, payload)
	status, errText := auditStatus(err)
	h.audit.Log(r.Context(), model.AuditUserProfile, actorFromRequest(r), status, strconv.FormatInt(id, 10), payload, errText)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}
