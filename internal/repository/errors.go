package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"go-video-hub/pkg/apierror"
)

const uniqueViolation = "23505"

var constraintFields = map[string]string{
	"users_username_key":    "username",
	"users_email_key":       "email",
	"access_codes_code_key": "code",
}

// conflictError turns a unique violation into a 409 naming the colliding field.
// Any other error is returned as is.
func conflictError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}

	field, ok := constraintFields[pgErr.ConstraintName]
	if !ok {
		field = pgErr.ConstraintName
	}
	return apierror.Conflict(field, field+" already exists")
}
