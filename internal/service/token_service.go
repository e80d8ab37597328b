package service

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-video-hub/internal/model"
	"go-video-hub/pkg/apierror"
)

// DefaultSessionTTL is the fixed lifetime of a session token.
const DefaultSessionTTL = 24 * time.Hour

var errInvalidSession = apierror.Unauthenticated("invalid or expired session")

type sessionClaims struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	RoleID   int64  `json:"role_id"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 session tokens. The token only
// identifies the caller; authorization never trusts its role claim.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

func (s *TokenService) Issue(user model.User) (string, time.Time, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)

	claims := sessionClaims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		RoleID:   user.RoleID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks signature and expiry. Every failure yields the same error.
func (s *TokenService) Verify(tokenString string) (*model.AuthClaims, error) {
	if tokenString == "" {
		return nil, errInvalidSession
	}

	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidSession
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, errInvalidSession
	}
	if claims.UserID <= 0 {
		return nil, errInvalidSession
	}

	return &model.AuthClaims{
		UserID:    claims.UserID,
		Username:  claims.Username,
		Email:     claims.Email,
		RoleID:    claims.RoleID,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
