package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-video-hub/internal/database"
	"go-video-hub/internal/model"
)

type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

const roleSelect = `SELECT r.id, r.name, r.description,
       COALESCE(array_agg(p.name ORDER BY p.name) FILTER (WHERE p.name IS NOT NULL), '{}')
FROM roles r
LEFT JOIN role_permissions rp ON rp.role_id = r.id
LEFT JOIN permissions p ON p.id = rp.permission_id`

func scanRole(row pgx.Row) (model.Role, error) {
	var role model.Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.Permissions)
	return role, err
}

func (r *RoleRepository) List(ctx context.Context) ([]model.Role, error) {
	rows, err := r.pool.Query(ctx, roleSelect+` GROUP BY r.id ORDER BY r.id`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	roles := make([]model.Role, 0)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (model.Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx,
		roleSelect+` WHERE lower(r.name) = lower($1) GROUP BY r.id`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Role{}, model.ErrRoleNotFound
	}
	if err != nil {
		return model.Role{}, fmt.Errorf("find role by name: %w", err)
	}
	return role, nil
}

func (r *RoleRepository) FindByID(ctx context.Context, id int64) (model.Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, roleSelect+` WHERE r.id = $1 GROUP BY r.id`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Role{}, model.ErrRoleNotFound
	}
	if err != nil {
		return model.Role{}, fmt.Errorf("find role by id: %w", err)
	}
	return role, nil
}

func (r *RoleRepository) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description FROM permissions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()

	perms := make([]model.Permission, 0)
	for rows.Next() {
		var p model.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (r *RoleRepository) PermissionsForRole(ctx context.Context, roleID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.name FROM permissions p
		 JOIN role_permissions rp ON rp.permission_id = p.id
		 WHERE rp.role_id = $1
		 ORDER BY p.name`, roleID)
	if err != nil {
		return nil, fmt.Errorf("permissions for role: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan permission name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ReplacePermissions swaps the role's permission set in one transaction.
// Names must already be de-duplicated.
func (r *RoleRepository) ReplacePermissions(ctx context.Context, roleID int64, names []string) error {
	return database.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, `SELECT id FROM roles WHERE id = $1 FOR UPDATE`, roleID).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrRoleNotFound
		}
		if err != nil {
			return fmt.Errorf("lock role: %w", err)
		}

		var known int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM permissions WHERE name = ANY($1)`, names).Scan(&known); err != nil {
			return fmt.Errorf("resolve permissions: %w", err)
		}
		if known != len(names) {
			return model.ErrPermissionNotFound
		}

		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return fmt.Errorf("clear role permissions: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_permissions (role_id, permission_id)
			 SELECT $1, id FROM permissions WHERE name = ANY($2)`, roleID, names); err != nil {
			return fmt.Errorf("insert role permissions: %w", err)
		}
		return nil
	})
}
