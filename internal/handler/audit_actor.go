package handler

import (
	"context"
	"net/http"

	"go-video-hub/internal/middleware"
	"go-video-hub/internal/model"
)

type auditLogger interface {
	Log(ctx context.Context, action string, actor model.AuditActor, status string, resource string, details any, errText string)
}

func actorFromRequest(r *http.Request) model.AuditActor {
	actor := model.AuditActor{IP: middleware.ClientIP(r)}

	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return actor
	}

	actor.UserID = principal.UserID
	actor.Username = principal.Username
	actor.Role = principal.Role

	return actor
}

func auditStatus(err error) (string, string) {
	if err != nil {
		return model.AuditStatusFailure, err.Error()
	}
	return model.AuditStatusSuccess, ""
}
