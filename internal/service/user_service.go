package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"

	"go-video-hub/internal/model"
	"go-video-hub/internal/password"
	"go-video-hub/internal/util"
	"go-video-hub/pkg/apierror"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

const maxTeamRunes = 64

type userStore interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Create(ctx context.Context, u model.User) (model.User, error)
	Update(ctx context.Context, id int64, patch model.UserPatch) (model.User, error)
	Delete(ctx context.Context, id int64) error
}

type roleLookup interface {
	FindByName(ctx context.Context, name string) (model.Role, error)
}

type UserService struct {
	users  userStore
	roles  roleLookup
	codes  *AccessCodeService
	hasher *password.Hasher
	logger *slog.Logger
}

func NewUserService(users userStore, roles roleLookup, codes *AccessCodeService, hasher *password.Hasher) *UserService {
	return &UserService{
		users:  users,
		roles:  roles,
		codes:  codes,
		hasher: hasher,
		logger: slog.With("svc", "user"),
	}
}

// Register creates a self-service account with the fixed user role. The
// access code is consumed in the same transaction as the insert.
func (s *UserService) Register(ctx context.Context, req model.RegisterRequest) (model.User, error) {
	username, email, err := validateIdentity(req.Username, req.Email)
	if err != nil {
		return model.User{}, err
	}
	if err := validatePassword(req.Password); err != nil {
		return model.User{}, err
	}
	if strings.TrimSpace(req.AccessCode) == "" {
		return model.User{}, apierror.Validation("accessCode", "access code is required")
	}

	role, err := s.roles.FindByName(ctx, model.RoleUser)
	if err != nil {
		return model.User{}, fmt.Errorf("resolve default role: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		RoleID:       role.ID,
		Team:         optionalTeam(req.Team),
	}

	created, err := s.codes.Consume(ctx, req.AccessCode, u)
	if err != nil {
		return model.User{}, err
	}

	s.logger.Info("user registered", "user_id", created.ID, "username", created.Username)
	return created, nil
}

// CreateByAdmin bypasses the access-code gate. A demo or custom salt request
// stores the credential in the legacy format.
func (s *UserService) CreateByAdmin(ctx context.Context, req model.AdminCreateUserRequest) (model.User, error) {
	username, email, err := validateIdentity(req.Username, req.Email)
	if err != nil {
		return model.User{}, err
	}
	if err := validatePassword(req.Password); err != nil {
		return model.User{}, err
	}

	roleName := strings.TrimSpace(req.Role)
	if roleName == "" {
		roleName = model.RoleUser
	}
	role, err := s.roles.FindByName(ctx, roleName)
	if errors.Is(err, model.ErrRoleNotFound) {
		return model.User{}, apierror.Validation("role", "unknown role")
	}
	if err != nil {
		return model.User{}, fmt.Errorf("resolve role: %w", err)
	}

	var hash string
	switch {
	case req.UseDemoSalt:
		hash, err = s.hasher.HashLegacy(req.Password, password.ModeDemo, "")
	case strings.TrimSpace(req.CustomSalt) != "":
		hash, err = s.hasher.HashLegacy(req.Password, password.ModeCustom, req.CustomSalt)
		if errors.Is(err, password.ErrInvalidSalt) {
			return model.User{}, apierror.Validation("customSalt", "salt must not contain ':'")
		}
	default:
		hash, err = s.hasher.Hash(req.Password)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.users.Create(ctx, model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		RoleID:       role.ID,
	})
	if err != nil {
		return model.User{}, err
	}

	s.logger.Info("user created by admin", "user_id", created.ID, "role", created.Role)
	return created, nil
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

func (s *UserService) Get(ctx context.Context, id int64) (model.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *UserService) UpdateByAdmin(ctx context.Context, id int64, req model.AdminUpdateUserRequest) (model.User, error) {
	var patch model.UserPatch

	if req.Role != nil {
		role, err := s.roles.FindByName(ctx, strings.TrimSpace(*req.Role))
		if errors.Is(err, model.ErrRoleNotFound) {
			return model.User{}, apierror.Validation("role", "unknown role")
		}
		if err != nil {
			return model.User{}, fmt.Errorf("resolve role: %w", err)
		}
		patch.RoleID = &role.ID
	}

	if req.Email != nil {
		email, err := validateEmail(*req.Email)
		if err != nil {
			return model.User{}, err
		}
		patch.Email = &email
	}

	if req.Team != nil {
		team := util.CleanText(*req.Team, maxTeamRunes)
		patch.Team = &team
	}

	if patch.RoleID == nil && patch.Email == nil && patch.Team == nil {
		return model.User{}, apierror.Validation("body", "nothing to update")
	}

	return s.users.Update(ctx, id, patch)
}

func (s *UserService) Delete(ctx context.Context, id int64, actorID int64) error {
	if id == actorID {
		return apierror.Validation("id", "you cannot delete your own account")
	}
	return s.users.Delete(ctx, id)
}

// UpdateProfile edits the caller's own profile. Ownership is checked by the
// route guard before this runs.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req model.UpdateProfileRequest) (model.User, error) {
	team := util.CleanText(req.Team, maxTeamRunes)
	return s.users.Update(ctx, userID, model.UserPatch{Team: &team})
}

// bcrypt ignores input past 72 bytes, so longer passwords are refused outright.
const maxPasswordBytes = 72

func validatePassword(pass string) error {
	if pass == "" {
		return apierror.Validation("password", "password is required")
	}
	if len(pass) > maxPasswordBytes {
		return apierror.Validation("password", "password must be at most 72 bytes")
	}
	return nil
}

func validateIdentity(username string, email string) (string, string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", "", apierror.Validation("username", "username is required")
	}
	if !usernamePattern.MatchString(username) {
		return "", "", apierror.Validation("username", "username must be 3-32 letters, digits, '.', '_' or '-'")
	}

	email, err := validateEmail(email)
	if err != nil {
		return "", "", err
	}
	return username, email, nil
}

func validateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", apierror.Validation("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apierror.Validation("email", "email is not a valid address")
	}
	return email, nil
}

func optionalTeam(team string) *string {
	team = util.CleanText(team, maxTeamRunes)
	if team == "" {
		return nil
	}
	return &team
}
