package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-video-hub/internal/event"
	"go-video-hub/internal/model"
)

type mockAuditStore struct {
	mock.Mock
}

func (m *mockAuditStore) Log(ctx context.Context, entry model.AuditEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockAuditStore) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]model.AuditEntry), args.Get(1).(model.Meta), args.Error(2)
}

func TestAuditLogIsBestEffort(t *testing.T) {
	store := new(mockAuditStore)
	store.On("Log", mock.Anything, mock.MatchedBy(func(e model.AuditEntry) bool {
		return e.Action == model.AuditAuthLogin && e.Status == model.AuditStatusFailure && e.OccurredAt != ""
	})).Return(errors.New("disk full"))

	svc := NewAuditService(store)
	assert.NotPanics(t, func() {
		svc.Log(context.Background(), model.AuditAuthLogin, model.AuditActor{IP: "10.0.0.1"},
			model.AuditStatusFailure, "alice", nil, "invalid credentials")
	})
	store.AssertExpectations(t)

	var nilSvc *AuditService
	assert.NotPanics(t, func() {
		nilSvc.Log(context.Background(), model.AuditAuthLogin, model.AuditActor{}, model.AuditStatusSuccess, "", nil, "")
	})
}

func TestAuditQueryNormalizesPaging(t *testing.T) {
	store := new(mockAuditStore)
	store.On("Query", mock.Anything, model.AuditQuery{Action: "user.delete", Page: 1, Limit: 200}).
		Return([]model.AuditEntry{{Action: "user.delete"}}, model.Meta{Page: 1, Limit: 200, Total: 1, TotalPages: 1}, nil)

	items, meta, err := NewAuditService(store).Query(context.Background(), model.AuditQuery{Action: "user.delete", Page: -3, Limit: 5000})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, meta.Total)
	store.AssertExpectations(t)
}

func TestAuditQueryRejectsBadTimes(t *testing.T) {
	store := new(mockAuditStore)
	svc := NewAuditService(store)

	_, _, err := svc.Query(context.Background(), model.AuditQuery{From: "yesterday"})
	requireAPIError(t, err, http.StatusBadRequest, "yesterday")

	_, _, err = svc.Query(context.Background(), model.AuditQuery{To: "2026-13-01"})
	requireAPIError(t, err, http.StatusBadRequest, "2026-13-01")

	store.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
}

func TestAuditLogPublishesStoredEntries(t *testing.T) {
	store := new(mockAuditStore)
	store.On("Log", mock.Anything, mock.Anything).Return(nil).Once()
	store.On("Log", mock.Anything, mock.Anything).Return(errors.New("down")).Once()

	bus := event.NewBus()
	feed, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	svc := NewAuditService(store).WithBus(bus)
	actor := model.AuditActor{UserID: 7, Username: "root"}
	svc.Log(context.Background(), model.AuditAuthLogin, actor, model.AuditStatusSuccess, "root", nil, "")
	svc.Log(context.Background(), model.AuditAuthLogin, actor, model.AuditStatusSuccess, "root", nil, "")

	require.Len(t, feed, 1)
	got := <-feed
	assert.Equal(t, event.TypeAuditRecorded, got.Type)
	assert.Equal(t, int64(7), got.ActorID)
	entry, ok := got.Payload.(model.AuditEntry)
	require.True(t, ok)
	assert.Equal(t, model.AuditAuthLogin, entry.Action)
	store.AssertExpectations(t)
}
