package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"go-video-hub/internal/model"
)

const (
	accessCodeLength  = 8
	accessCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type accessCodeStore interface {
	Create(ctx context.Context, code string, createdBy int64) (model.AccessCode, error)
	FindByCode(ctx context.Context, code string) (model.AccessCode, error)
	List(ctx context.Context) ([]model.AccessCode, error)
	Delete(ctx context.Context, id int64) error
	ConsumeWithUser(ctx context.Context, code string, u model.User) (model.User, error)
}

// AccessCodeService gates self-registration behind single-use codes.
type AccessCodeService struct {
	codes    accessCodeStore
	generate func() (string, error)
	logger   *slog.Logger
}

func NewAccessCodeService(codes accessCodeStore) *AccessCodeService {
	return &AccessCodeService{
		codes:    codes,
		generate: GenerateAccessCode,
		logger:   slog.With("svc", "access_code"),
	}
}

// Verify reports whether code exists and is unused. It never mutates state.
func (s *AccessCodeService) Verify(ctx context.Context, code string) error {
	code = normalizeCode(code)
	if code == "" {
		return model.ErrAccessCodeInvalid
	}

	found, err := s.codes.FindByCode(ctx, code)
	if errors.Is(err, model.ErrAccessCodeNotFound) {
		return model.ErrAccessCodeInvalid
	}
	if err != nil {
		return fmt.Errorf("verify access code: %w", err)
	}
	if found.Used {
		return model.ErrAccessCodeInvalid
	}
	return nil
}

// Consume creates newUser and marks code used atomically.
func (s *AccessCodeService) Consume(ctx context.Context, code string, newUser model.User) (model.User, error) {
	code = normalizeCode(code)
	if code == "" {
		return model.User{}, model.ErrAccessCodeInvalid
	}

	created, err := s.codes.ConsumeWithUser(ctx, code, newUser)
	if err != nil {
		return model.User{}, err
	}

	s.logger.Info("access code consumed", "user_id", created.ID)
	return created, nil
}

// Generate stores a fresh code. A zero createdBy records an operator-issued code.
func (s *AccessCodeService) Generate(ctx context.Context, createdBy int64) (model.AccessCode, error) {
	code, err := s.generate()
	if err != nil {
		return model.AccessCode{}, fmt.Errorf("generate access code: %w", err)
	}
	return s.codes.Create(ctx, code, createdBy)
}

func (s *AccessCodeService) List(ctx context.Context) ([]model.AccessCode, error) {
	return s.codes.List(ctx)
}

func (s *AccessCodeService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return model.ErrAccessCodeNotFound
	}
	return s.codes.Delete(ctx, id)
}

// GenerateAccessCode draws accessCodeLength characters from A-Z0-9.
func GenerateAccessCode() (string, error) {
	limit := big.NewInt(int64(len(accessCodeCharset)))
	var b strings.Builder
	b.Grow(accessCodeLength)
	for i := 0; i < accessCodeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(accessCodeCharset[n.Int64()])
	}
	return b.String(), nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
