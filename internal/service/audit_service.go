package service

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go-video-hub/internal/event"
	"go-video-hub/internal/model"
	"go-video-hub/pkg/apierror"
)

type auditStore interface {
	Log(ctx context.Context, entry model.AuditEntry) error
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error)
}

type AuditService struct {
	store  auditStore
	bus    event.Bus
	logger *slog.Logger
}

func NewAuditService(store auditStore) *AuditService {
	return &AuditService{store: store, logger: slog.With("svc", "audit")}
}

// WithBus makes every stored entry visible on the admin live feed.
func (s *AuditService) WithBus(bus event.Bus) *AuditService {
	s.bus = bus
	return s
}

// Log records an entry. Store failures are logged and never reach the caller.
func (s *AuditService) Log(ctx context.Context, action string, actor model.AuditActor, status string, resource string, details any, errText string) {
	if s == nil {
		return
	}

	entry := model.AuditEntry{
		Action:     action,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		Actor:      actor,
		Status:     status,
		Resource:   resource,
		Details:    details,
		Error:      errText,
	}

	if err := s.store.Log(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("audit entry dropped", "action", action, "error", err)
		return
	}

	if s.bus != nil {
		s.bus.Publish(event.Event{Type: event.TypeAuditRecorded, Payload: entry, ActorID: actor.UserID, Timestamp: entry.OccurredAt})
	}
}

func (s *AuditService) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Limit > 200 {
		query.Limit = 200
	}

	if _, err := parseOptionalAuditTime(query.From); err != nil {
		return nil, model.Meta{}, apierror.New(apierror.CodeBadRequest, "invalid 'from' datetime format", query.From, http.StatusBadRequest)
	}
	if _, err := parseOptionalAuditTime(query.To); err != nil {
		return nil, model.Meta{}, apierror.New(apierror.CodeBadRequest, "invalid 'to' datetime format", query.To, http.StatusBadRequest)
	}

	return s.store.Query(ctx, query)
}

func parseOptionalAuditTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}
