package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-video-hub/internal/database"
	"go-video-hub/internal/model"
)

type AccessCodeRepository struct {
	pool *pgxpool.Pool
}

func NewAccessCodeRepository(pool *pgxpool.Pool) *AccessCodeRepository {
	return &AccessCodeRepository{pool: pool}
}

func scanAccessCode(row pgx.Row) (model.AccessCode, error) {
	var c model.AccessCode
	err := row.Scan(&c.ID, &c.Code, &c.CreatedBy, &c.CreatedByUsername, &c.Used,
		&c.UsedBy, &c.UsedByUsername, &c.UsedAt, &c.CreatedAt)
	return c, err
}

func (r *AccessCodeRepository) Create(ctx context.Context, code string, createdBy int64) (model.AccessCode, error) {
	c, err := scanAccessCode(r.pool.QueryRow(ctx,
		`WITH ins AS (
		     INSERT INTO access_codes (code, created_by) VALUES ($1, NULLIF($2::bigint, 0))
		     RETURNING id, code, created_by, used, used_by, used_at, created_at
		 )
		 SELECT ins.id, ins.code, ins.created_by, cu.username, ins.used,
		        ins.used_by, NULL::text, ins.used_at, ins.created_at
		 FROM ins LEFT JOIN users cu ON cu.id = ins.created_by`, code, createdBy))
	if err != nil {
		return model.AccessCode{}, fmt.Errorf("create access code: %w", conflictError(err))
	}
	return c, nil
}

func (r *AccessCodeRepository) FindByCode(ctx context.Context, code string) (model.AccessCode, error) {
	c, err := scanAccessCode(r.pool.QueryRow(ctx,
		`SELECT ac.id, ac.code, ac.created_by, cu.username, ac.used,
		        ac.used_by, uu.username, ac.used_at, ac.created_at
		 FROM access_codes ac
		 LEFT JOIN users cu ON cu.id = ac.created_by
		 LEFT JOIN users uu ON uu.id = ac.used_by
		 WHERE ac.code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.AccessCode{}, model.ErrAccessCodeNotFound
	}
	if err != nil {
		return model.AccessCode{}, fmt.Errorf("find access code: %w", err)
	}
	return c, nil
}

func (r *AccessCodeRepository) List(ctx context.Context) ([]model.AccessCode, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ac.id, ac.code, ac.created_by, cu.username, ac.used,
		        ac.used_by, uu.username, ac.used_at, ac.created_at
		 FROM access_codes ac
		 LEFT JOIN users cu ON cu.id = ac.created_by
		 LEFT JOIN users uu ON uu.id = ac.used_by
		 ORDER BY ac.created_at DESC, ac.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list access codes: %w", err)
	}
	defer rows.Close()

	codes := make([]model.AccessCode, 0)
	for rows.Next() {
		c, err := scanAccessCode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan access code: %w", err)
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

func (r *AccessCodeRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM access_codes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete access code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrAccessCodeNotFound
	}
	return nil
}

// ConsumeWithUser creates the user and marks the code used in one transaction.
// The code row is locked first so concurrent consumers serialize on it; the
// loser sees used=true (or zero updated rows) and gets ErrAccessCodeInvalid.
func (r *AccessCodeRepository) ConsumeWithUser(ctx context.Context, code string, u model.User) (model.User, error) {
	var created model.User

	err := database.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		var codeID int64
		err := tx.QueryRow(ctx,
			`SELECT id FROM access_codes WHERE code = $1 AND used = false FOR UPDATE`, code).Scan(&codeID)
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrAccessCodeInvalid
		}
		if err != nil {
			return fmt.Errorf("lock access code: %w", err)
		}

		created, err = insertUser(ctx, tx, u)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`UPDATE access_codes SET used = true, used_by = $2, used_at = $3
			 WHERE id = $1 AND used = false`,
			codeID, created.ID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("mark access code used: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return model.ErrAccessCodeInvalid
		}
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	return created, nil
}
