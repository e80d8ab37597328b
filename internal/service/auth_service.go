package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go-video-hub/internal/model"
	"go-video-hub/internal/password"
)

type credentialStore interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
	FindByIdentifier(ctx context.Context, identifier string) ([]model.User, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

type AuthService struct {
	users  credentialStore
	perms  *PermissionCache
	hasher *password.Hasher
	tokens *TokenService
	logger *slog.Logger
	now    func() time.Time
}

func NewAuthService(users credentialStore, perms *PermissionCache, hasher *password.Hasher, tokens *TokenService) *AuthService {
	return &AuthService{
		users:  users,
		perms:  perms,
		hasher: hasher,
		tokens: tokens,
		logger: slog.With("svc", "auth"),
		now:    time.Now,
	}
}

// Authenticate resolves identifier (username or email) and checks the password.
// Unknown identifiers and wrong passwords produce the same error.
func (s *AuthService) Authenticate(ctx context.Context, identifier string, pass string) (model.LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || pass == "" {
		s.hasher.VerifyNothing(pass)
		return model.LoginResult{}, model.ErrInvalidCredentials
	}

	matches, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		return model.LoginResult{}, fmt.Errorf("authenticate: %w", err)
	}

	switch len(matches) {
	case 0:
		s.hasher.VerifyNothing(pass)
		s.logger.Warn("login failed", "reason", "unknown identifier")
		return model.LoginResult{}, model.ErrInvalidCredentials
	case 1:
	default:
		s.hasher.VerifyNothing(pass)
		s.logger.Warn("login failed", "reason", "ambiguous identifier", "matches", len(matches))
		return model.LoginResult{}, model.ErrInvalidCredentials
	}

	user := matches[0]
	if !s.hasher.Verify(pass, user.PasswordHash) {
		s.logger.Warn("login failed", "reason", "password mismatch", "user_id", user.ID)
		return model.LoginResult{}, model.ErrInvalidCredentials
	}

	perms, err := s.perms.Get(ctx, user.RoleID)
	if err != nil {
		return model.LoginResult{}, fmt.Errorf("load permissions: %w", err)
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return model.LoginResult{}, err
	}
	user.LastLogin = &now

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return model.LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	return model.LoginResult{
		User:      authUser(user, perms),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *AuthService) ValidateToken(token string) (*model.AuthClaims, error) {
	return s.tokens.Verify(token)
}

// ResolvePrincipal loads the caller's current role and permissions from the
// store. A user deleted since the token was issued is an invalid session.
func (s *AuthService) ResolvePrincipal(ctx context.Context, userID int64) (model.Principal, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.Principal{}, model.ErrInvalidSession
	}
	if err != nil {
		return model.Principal{}, err
	}

	perms, err := s.perms.Get(ctx, user.RoleID)
	if err != nil {
		return model.Principal{}, fmt.Errorf("load permissions: %w", err)
	}

	return model.Principal{
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		RoleID:      user.RoleID,
		Role:        user.Role,
		Permissions: perms,
	}, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID int64) (model.AuthUser, error) {
	p, err := s.ResolvePrincipal(ctx, userID)
	if err != nil {
		return model.AuthUser{}, err
	}
	return model.AuthUser{
		ID:          p.UserID,
		Username:    p.Username,
		Email:       p.Email,
		Role:        p.Role,
		Permissions: p.Permissions,
	}, nil
}

func (s *AuthService) SessionTTL() time.Duration {
	return s.tokens.TTL()
}

func authUser(u model.User, perms []string) model.AuthUser {
	if perms == nil {
		perms = []string{}
	}
	return model.AuthUser{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Role:        u.Role,
		Permissions: perms,
	}
}
