package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-video-hub/internal/database"
	"go-video-hub/internal/model"
)

const userColumns = `u.id, u.username, u.email, u.password_hash, u.role_id, r.name, u.team, u.created_at, u.last_login`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.RoleID, &u.Role,
		&u.Team, &u.CreatedAt, &u.LastLogin)
	return u, err
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM users u JOIN roles r ON r.id = u.role_id
		 WHERE u.id = $1`, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

// FindByIdentifier matches the identifier against username or email, case-insensitively.
// At most two rows are returned so callers can detect an ambiguous identifier.
func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) ([]model.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+`
		 FROM users u JOIN roles r ON r.id = u.role_id
		 WHERE lower(u.username) = lower($1) OR lower(u.email) = lower($1)
		 ORDER BY u.id
		 LIMIT 2`, strings.TrimSpace(identifier))
	if err != nil {
		return nil, fmt.Errorf("find user by identifier: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, 1)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Create(ctx context.Context, u model.User) (model.User, error) {
	return insertUser(ctx, r.pool, u)
}

// insertUser is shared with the access-code consume transaction.
func insertUser(ctx context.Context, q database.DBTX, u model.User) (model.User, error) {
	created, err := scanUser(q.QueryRow(ctx,
		`WITH ins AS (
		     INSERT INTO users (username, email, password_hash, role_id, team)
		     VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		     RETURNING *
		 )
		 SELECT ins.id, ins.username, ins.email, ins.password_hash, ins.role_id, r.name,
		        ins.team, ins.created_at, ins.last_login
		 FROM ins JOIN roles r ON r.id = ins.role_id`,
		u.Username, u.Email, u.PasswordHash, u.RoleID, teamValue(u.Team)))
	if err != nil {
		return model.User{}, fmt.Errorf("create user: %w", conflictError(err))
	}
	return created, nil
}

func teamValue(team *string) string {
	if team == nil {
		return ""
	}
	return strings.TrimSpace(*team)
}

func (r *UserRepository) Update(ctx context.Context, id int64, patch model.UserPatch) (model.User, error) {
	var team *string
	if patch.Team != nil {
		v := teamValue(patch.Team)
		team = &v
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET
		     role_id = COALESCE($2, role_id),
		     email   = COALESCE($3, email),
		     team    = CASE WHEN $4::text IS NULL THEN team ELSE NULLIF($4, '') END
		 WHERE id = $1`,
		id, patch.RoleID, patch.Email, team)
	if err != nil {
		return model.User{}, fmt.Errorf("update user: %w", conflictError(err))
	}
	if tag.RowsAffected() == 0 {
		return model.User{}, model.ErrUserNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+`
		 FROM users u JOIN roles r ON r.id = u.role_id
		 ORDER BY u.created_at DESC, u.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
