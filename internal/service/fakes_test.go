package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-video-hub/internal/model"
	"go-video-hub/internal/password"
	"go-video-hub/pkg/apierror"
)

// memDB is an in-memory stand-in for the Postgres repositories.
type memDB struct {
	mu        sync.Mutex
	users     map[int64]model.User
	nextUser  int64
	codes     map[int64]model.AccessCode
	nextCode  int64
	roles     map[string]model.Role
	perms     map[int64][]string
	permCalls int
	insertErr error
}

func newMemDB() *memDB {
	return &memDB{
		users: map[int64]model.User{},
		codes: map[int64]model.AccessCode{},
		roles: map[string]model.Role{
			model.RoleAdmin: {ID: 1, Name: model.RoleAdmin},
			model.RoleUser:  {ID: 2, Name: model.RoleUser},
		},
		perms: map[int64][]string{
			1: {"manage_access_codes", "manage_users", "view_videos"},
			2: {"view_videos"},
		},
	}
}

func (db *memDB) roleName(id int64) string {
	for _, r := range db.roles {
		if r.ID == id {
			return r.Name
		}
	}
	return ""
}

func (db *memDB) insertUserLocked(u model.User) (model.User, error) {
	if db.insertErr != nil {
		return model.User{}, db.insertErr
	}
	for _, existing := range db.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return model.User{}, apierror.Conflict("username", "username already exists")
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return model.User{}, apierror.Conflict("email", "email already exists")
		}
	}
	db.nextUser++
	u.ID = db.nextUser
	u.Role = db.roleName(u.RoleID)
	u.CreatedAt = time.Now().UTC()
	db.users[u.ID] = u
	return u, nil
}

type memUsers struct{ *memDB }

func (s memUsers) FindByID(_ context.Context, id int64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	u.Role = s.roleName(u.RoleID)
	return u, nil
}

func (s memUsers) FindByIdentifier(_ context.Context, identifier string) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.User, 0)
	for _, u := range s.users {
		if strings.EqualFold(u.Username, identifier) || strings.EqualFold(u.Email, identifier) {
			u.Role = s.roleName(u.RoleID)
			out = append(out, u)
		}
	}
	return out, nil
}

func (s memUsers) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.LastLogin = &at
	s.users[id] = u
	return nil
}

func (s memUsers) List(context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s memUsers) Create(_ context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertUserLocked(u)
}

func (s memUsers) Update(_ context.Context, id int64, patch model.UserPatch) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	if patch.RoleID != nil {
		u.RoleID = *patch.RoleID
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Team != nil {
		if *patch.Team == "" {
			u.Team = nil
		} else {
			team := *patch.Team
			u.Team = &team
		}
	}
	u.Role = s.roleName(u.RoleID)
	s.users[id] = u
	return u, nil
}

func (s memUsers) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return model.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

type memCodes struct{ *memDB }

func (s memCodes) Create(_ context.Context, code string, createdBy int64) (model.AccessCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.Code == code {
			return model.AccessCode{}, apierror.Conflict("code", "code already exists")
		}
	}
	s.nextCode++
	c := model.AccessCode{ID: s.nextCode, Code: code, CreatedBy: &createdBy, CreatedAt: time.Now().UTC()}
	if u, ok := s.users[createdBy]; ok {
		name := u.Username
		c.CreatedByUsername = &name
	}
	s.codes[c.ID] = c
	return c, nil
}

func (s memCodes) FindByCode(_ context.Context, code string) (model.AccessCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.Code == code {
			return c, nil
		}
	}
	return model.AccessCode{}, model.ErrAccessCodeNotFound
}

func (s memCodes) List(context.Context) ([]model.AccessCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AccessCode, 0, len(s.codes))
	for _, c := range s.codes {
		out = append(out, c)
	}
	return out, nil
}

func (s memCodes) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[id]; !ok {
		return model.ErrAccessCodeNotFound
	}
	delete(s.codes, id)
	return nil
}

// ConsumeWithUser holds the lock for the whole unit, mirroring the row lock
// the Postgres transaction takes.
func (s memCodes) ConsumeWithUser(_ context.Context, code string, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *model.AccessCode
	for id := range s.codes {
		c := s.codes[id]
		if c.Code == code && !c.Used {
			target = &c
			break
		}
	}
	if target == nil {
		return model.User{}, model.ErrAccessCodeInvalid
	}

	created, err := s.insertUserLocked(u)
	if err != nil {
		return model.User{}, err
	}

	now := time.Now().UTC()
	target.Used = true
	target.UsedBy = &created.ID
	target.UsedAt = &now
	s.codes[target.ID] = *target
	return created, nil
}

type memRoles struct{ *memDB }

func (s memRoles) FindByName(_ context.Context, name string) (model.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[strings.ToLower(name)]
	if !ok {
		return model.Role{}, model.ErrRoleNotFound
	}
	return r, nil
}

func (s memRoles) PermissionsForRole(_ context.Context, roleID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permCalls++
	return append([]string(nil), s.perms[roleID]...), nil
}

type testEnv struct {
	db     *memDB
	hasher *password.Hasher
	tokens *TokenService
	cache  *PermissionCache
	auth   *AuthService
	codes  *AccessCodeService
	users  *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newMemDB()
	hasher, err := password.NewHasher(password.SchemeBcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := NewTokenService("test-secret", DefaultSessionTTL)
	require.NoError(t, err)

	cache := NewPermissionCache(memRoles{db}, 16, time.Minute)
	codes := NewAccessCodeService(memCodes{db})

	return &testEnv{
		db:     db,
		hasher: hasher,
		tokens: tokens,
		cache:  cache,
		auth:   NewAuthService(memUsers{db}, cache, hasher, tokens),
		codes:  codes,
		users:  NewUserService(memUsers{db}, memRoles{db}, codes, hasher),
	}
}

// seedUser stores a user with a legacy demo-salt credential for the given password.
func (e *testEnv) seedUser(t *testing.T, username, email, pass string, roleID int64) model.User {
	t.Helper()
	hash, err := e.hasher.HashLegacy(pass, password.ModeDemo, "")
	require.NoError(t, err)
	u, err := memUsers{e.db}.Create(context.Background(), model.User{
		Username: username, Email: email, PasswordHash: hash, RoleID: roleID,
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) seedCode(t *testing.T, code string) model.AccessCode {
	t.Helper()
	c, err := memCodes{e.db}.Create(context.Background(), code, 0)
	require.NoError(t, err)
	return c
}
