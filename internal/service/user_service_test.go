package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-video-hub/internal/model"
	"go-video-hub/internal/password"
	"go-video-hub/pkg/apierror"
)

func requireAPIError(t *testing.T, err error, status int, details string) {
	t.Helper()
	var apiErr *apierror.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	assert.Equal(t, status, apiErr.HTTPStatus)
	assert.Equal(t, details, apiErr.Details)
}

func aliceRequest() model.RegisterRequest {
	return model.RegisterRequest{
		Username:   "alice",
		Email:      "a@x.com",
		Password:   "pw",
		Team:       "T",
		AccessCode: "ABC12345",
	}
}

func TestRegisterConsumesCode(t *testing.T) {
	env := newTestEnv(t)
	env.seedCode(t, "ABC12345")
	ctx := context.Background()

	u, err := env.users.Register(ctx, aliceRequest())
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, model.RoleUser, u.Role)
	require.NotNil(t, u.Team)
	assert.Equal(t, "T", *u.Team)
	assert.True(t, strings.HasPrefix(u.PasswordHash, "$2a$"))

	code, err := memCodes{env.db}.FindByCode(ctx, "ABC12345")
	require.NoError(t, err)
	assert.True(t, code.Used)
	assert.Equal(t, u.ID, *code.UsedBy)

	res, err := env.auth.Authenticate(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)

	_, err = env.users.Register(ctx, aliceRequest())
	assert.ErrorIs(t, err, model.ErrAccessCodeInvalid)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		mutate func(*model.RegisterRequest)
		field  string
	}{
		{"missing username", func(r *model.RegisterRequest) { r.Username = " " }, "username"},
		{"bad username", func(r *model.RegisterRequest) { r.Username = "a b" }, "username"},
		{"short username", func(r *model.RegisterRequest) { r.Username = "al" }, "username"},
		{"missing email", func(r *model.RegisterRequest) { r.Email = "" }, "email"},
		{"bad email", func(r *model.RegisterRequest) { r.Email = "not-an-email" }, "email"},
		{"missing password", func(r *model.RegisterRequest) { r.Password = "" }, "password"},
		{"long password", func(r *model.RegisterRequest) { r.Password = strings.Repeat("x", 73) }, "password"},
		{"missing code", func(r *model.RegisterRequest) { r.AccessCode = "" }, "accessCode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := aliceRequest()
			tt.mutate(&req)
			_, err := env.users.Register(context.Background(), req)
			requireAPIError(t, err, http.StatusBadRequest, tt.field)
		})
	}
}

func TestRegisterConflictNamesFieldAndKeepsCode(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alice", "taken@x.com", "pw", 2)
	env.seedCode(t, "ABC12345")
	ctx := context.Background()

	_, err := env.users.Register(ctx, aliceRequest())
	requireAPIError(t, err, http.StatusConflict, "username")

	req := aliceRequest()
	req.Username = "alice2"
	req.Email = "TAKEN@x.com"
	_, err = env.users.Register(ctx, req)
	requireAPIError(t, err, http.StatusConflict, "email")

	assert.NoError(t, env.codes.Verify(ctx, "ABC12345"))
}

func TestRegisterUsesLegacySchemeWhenConfigured(t *testing.T) {
	env := newTestEnv(t)
	legacy, err := password.NewHasher(password.SchemeLegacy, 4)
	require.NoError(t, err)
	env.users.hasher = legacy
	env.seedCode(t, "ABC12345")

	u, err := env.users.Register(context.Background(), aliceRequest())
	require.NoError(t, err)
	salt, _, ok := strings.Cut(u.PasswordHash, ":")
	require.True(t, ok)
	assert.Len(t, salt, 32)
	assert.True(t, legacy.Verify("pw", u.PasswordHash))
}

func TestCreateByAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("default bcrypt", func(t *testing.T) {
		u, err := env.users.CreateByAdmin(ctx, model.AdminCreateUserRequest{
			Username: "mod", Email: "mod@x.com", Password: "pw", Role: "admin",
		})
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, u.Role)
		assert.True(t, strings.HasPrefix(u.PasswordHash, "$2a$"))
	})

	t.Run("demo salt", func(t *testing.T) {
		u, err := env.users.CreateByAdmin(ctx, model.AdminCreateUserRequest{
			Username: "demo", Email: "demo@x.com", Password: "pw", UseDemoSalt: true,
		})
		require.NoError(t, err)
		assert.Equal(t, model.RoleUser, u.Role)
		assert.Equal(t, "demo-salt:30c952fab122c3f9759f02a6d95c3758b246b4fee239957b2d4fee46e26170c4", u.PasswordHash)
	})

	t.Run("custom salt", func(t *testing.T) {
		u, err := env.users.CreateByAdmin(ctx, model.AdminCreateUserRequest{
			Username: "salty", Email: "salty@x.com", Password: "pw", CustomSalt: "pepper",
		})
		require.NoError(t, err)
		assert.Equal(t, "pepper:30c952fab122c3f9759f02a6d95c3758b246b4fee239957b2d4fee46e26170c4", u.PasswordHash)
	})

	t.Run("bad custom salt", func(t *testing.T) {
		_, err := env.users.CreateByAdmin(ctx, model.AdminCreateUserRequest{
			Username: "colon", Email: "colon@x.com", Password: "pw", CustomSalt: "a:b",
		})
		requireAPIError(t, err, http.StatusBadRequest, "customSalt")
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := env.users.CreateByAdmin(ctx, model.AdminCreateUserRequest{
			Username: "ghost", Email: "ghost@x.com", Password: "pw", Role: "overlord",
		})
		requireAPIError(t, err, http.StatusBadRequest, "role")
	})

	t.Run("no access code consumed", func(t *testing.T) {
		codes, err := env.codes.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, codes)
	})
}

func TestUpdateByAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, "dave", "dave@x.com", "pw", 2)

	role := "admin"
	team := "Editors"
	updated, err := env.users.UpdateByAdmin(ctx, u.ID, model.AdminUpdateUserRequest{Role: &role, Team: &team})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, updated.Role)
	require.NotNil(t, updated.Team)
	assert.Equal(t, "Editors", *updated.Team)

	bad := "nope"
	_, err = env.users.UpdateByAdmin(ctx, u.ID, model.AdminUpdateUserRequest{Email: &bad})
	requireAPIError(t, err, http.StatusBadRequest, "email")

	_, err = env.users.UpdateByAdmin(ctx, u.ID, model.AdminUpdateUserRequest{})
	requireAPIError(t, err, http.StatusBadRequest, "body")

	_, err = env.users.UpdateByAdmin(ctx, 999, model.AdminUpdateUserRequest{Team: &team})
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedUser(t, "admin", "admin@x.com", "pw", 1)
	u := env.seedUser(t, "erin", "erin@x.com", "pw", 2)

	requireAPIError(t, env.users.Delete(ctx, admin.ID, admin.ID), http.StatusBadRequest, "id")
	require.NoError(t, env.users.Delete(ctx, u.ID, admin.ID))
	assert.ErrorIs(t, env.users.Delete(ctx, u.ID, admin.ID), model.ErrUserNotFound)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "frank", "frank@x.com", "pw", 2)

	updated, err := env.users.UpdateProfile(context.Background(), u.ID, model.UpdateProfileRequest{Team: "Blue"})
	require.NoError(t, err)
	require.NotNil(t, updated.Team)
	assert.Equal(t, "Blue", *updated.Team)

	messy, err := env.users.UpdateProfile(context.Background(), u.ID, model.UpdateProfileRequest{Team: "  Blue\t\tSky\u200B "})
	require.NoError(t, err)
	require.NotNil(t, messy.Team)
	assert.Equal(t, "Blue Sky", *messy.Team)

	cleared, err := env.users.UpdateProfile(context.Background(), u.ID, model.UpdateProfileRequest{Team: ""})
	require.NoError(t, err)
	assert.Nil(t, cleared.Team)
}
