package handler

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go-video-hub/internal/model"
	"go-video-hub/pkg/apierror"
)

type auditQuerier interface {
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error)
}

type AuditHandler struct {
	service auditQuerier
}

func NewAuditHandler(service auditQuerier) *AuditHandler {
	return &AuditHandler{service: service}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	query, err := parseAuditQuery(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}

	items, meta, err := h.service.Query(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.AuditListData{Items: items}, &meta)
}

// parseAuditQuery rejects malformed filters up front so they surface as 400
// instead of a database cast error.
func parseAuditQuery(values url.Values) (model.AuditQuery, error) {
	q := model.AuditQuery{
		Action: strings.TrimSpace(values.Get("action")),
		Status: strings.TrimSpace(values.Get("status")),
		Page:   parseIntOrDefault(values.Get("page"), 1),
		Limit:  parseIntOrDefault(values.Get("limit"), 50),
	}

	if raw := strings.TrimSpace(values.Get("actor_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return q, apierror.Validation("actor_id", "actor_id must be a positive integer")
		}
		q.ActorID = id
	}

	for _, bound := range []struct {
		field string
		dst   *string
	}{{"from", &q.From}, {"to", &q.To}} {
		raw := strings.TrimSpace(values.Get(bound.field))
		if raw == "" {
			continue
		}
		if _, err := time.Parse(time.RFC3339, raw); err != nil {
			return q, apierror.Validation(bound.field, bound.field+" must be an RFC 3339 timestamp")
		}
		*bound.dst = raw
	}

	return q, nil
}
