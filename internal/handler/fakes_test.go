package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"go-video-hub/internal/middleware"
	"go-video-hub/internal/model"
)

type recordedAudit struct {
	Action   string
	Status   string
	Resource string
	ErrText  string
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []recordedAudit
}

func (f *fakeAudit) Log(_ context.Context, action string, _ model.AuditActor, status string, resource string, _ any, errText string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, recordedAudit{Action: action, Status: status, Resource: resource, ErrText: errText})
}

func (f *fakeAudit) last() recordedAudit {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		return recordedAudit{}
	}
	return f.entries[len(f.entries)-1]
}

type fakeAuthenticator struct {
	result model.LoginResult
	err    error
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, _ string, _ string) (model.LoginResult, error) {
	return f.result, f.err
}

// fakeRegistrar mimics the single-use access code flow.
type fakeRegistrar struct {
	mu    sync.Mutex
	codes map[string]bool
	next  int64
	err   error
}

func (f *fakeRegistrar) Register(_ context.Context, req model.RegisterRequest) (model.User, error) {
	if f.err != nil {
		return model.User{}, f.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	code := strings.ToUpper(strings.TrimSpace(req.AccessCode))
	if used, ok := f.codes[code]; !ok || used {
		return model.User{}, model.ErrAccessCodeInvalid
	}
	f.codes[code] = true
	f.next++
	return model.User{ID: f.next, Username: req.Username, Email: req.Email, Role: "user"}, nil
}

func (f *fakeRegistrar) Verify(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if used, ok := f.codes[strings.ToUpper(strings.TrimSpace(code))]; !ok || used {
		return model.ErrAccessCodeInvalid
	}
	return nil
}

type fakeCodes struct {
	codes   []model.AccessCode
	deleted []int64
	err     error
}

func (f *fakeCodes) Generate(_ context.Context, createdBy int64) (model.AccessCode, error) {
	if f.err != nil {
		return model.AccessCode{}, f.err
	}
	code := model.AccessCode{ID: int64(len(f.codes) + 1), Code: "ABCDEFGH", CreatedBy: &createdBy}
	f.codes = append(f.codes, code)
	return code, nil
}

func (f *fakeCodes) List(_ context.Context) ([]model.AccessCode, error) {
	return f.codes, f.err
}

func (f *fakeCodes) Delete(_ context.Context, id int64) error {
	for i, c := range f.codes {
		if c.ID == id {
			f.codes = append(f.codes[:i], f.codes[i+1:]...)
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return model.ErrAccessCodeNotFound
}

type fakeUsers struct {
	users map[int64]model.User
	err   error
}

func (f *fakeUsers) List(_ context.Context) ([]model.User, error) {
	out := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, f.err
}

func (f *fakeUsers) Get(_ context.Context, id int64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) CreateByAdmin(_ context.Context, req model.AdminCreateUserRequest) (model.User, error) {
	if f.err != nil {
		return model.User{}, f.err
	}
	id := int64(len(f.users) + 100)
	u := model.User{ID: id, Username: req.Username, Email: req.Email, Role: req.Role}
	f.users[id] = u
	return u, nil
}

func (f *fakeUsers) UpdateByAdmin(_ context.Context, id int64, req model.AdminUpdateUserRequest) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	f.users[id] = u
	return u, nil
}

func (f *fakeUsers) Delete(_ context.Context, id int64, _ int64) error {
	if _, ok := f.users[id]; !ok {
		return model.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, userID int64, req model.UpdateProfileRequest) (model.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	team := req.Team
	u.Team = &team
	f.users[userID] = u
	return u, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
}

func jsonRequest(t *testing.T, method string, target string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withPrincipal(req *http.Request, p model.Principal) *http.Request {
	return req.WithContext(middleware.WithPrincipal(req.Context(), p))
}

func withURLParam(req *http.Request, key string, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}
