package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go-video-hub/internal/model"
	"go-video-hub/pkg/apierror"
)

type roleStore interface {
	List(ctx context.Context) ([]model.Role, error)
	FindByID(ctx context.Context, id int64) (model.Role, error)
	ListPermissions(ctx context.Context) ([]model.Permission, error)
	ReplacePermissions(ctx context.Context, roleID int64, names []string) error
}

type RoleService struct {
	roles roleStore
	cache *PermissionCache
}

func NewRoleService(roles roleStore, cache *PermissionCache) *RoleService {
	return &RoleService{roles: roles, cache: cache}
}

func (s *RoleService) List(ctx context.Context) ([]model.Role, error) {
	return s.roles.List(ctx)
}

func (s *RoleService) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	return s.roles.ListPermissions(ctx)
}

// SetPermissions replaces the role's permission set and drops its cache entry
// so guards see the change on the next request.
func (s *RoleService) SetPermissions(ctx context.Context, roleID int64, names []string) (model.Role, error) {
	cleaned := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return model.Role{}, apierror.Validation("permissions", "permission names must not be empty")
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		cleaned = append(cleaned, name)
	}
	sort.Strings(cleaned)

	err := s.roles.ReplacePermissions(ctx, roleID, cleaned)
	if errors.Is(err, model.ErrPermissionNotFound) {
		return model.Role{}, apierror.Validation("permissions", "unknown permission")
	}
	if err != nil {
		return model.Role{}, err
	}

	s.cache.Invalidate(roleID)
	return s.roles.FindByID(ctx, roleID)
}
