package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"go-video-hub/internal/metrics"
	"go-video-hub/internal/model"
)

const (
	SessionCookieName = "auth-token"

	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
	LandingPath      = "/"
)

type sessionResolver interface {
	ValidateToken(token string) (*model.AuthClaims, error)
	ResolvePrincipal(ctx context.Context, userID int64) (model.Principal, error)
}

type contextKey string

const (
	principalContextKey contextKey = "principal"
	expiryContextKey    contextKey = "session_expiry"
)

// SessionCookie writes and expires the session cookie.
type SessionCookie struct {
	Secure bool
	MaxAge time.Duration
}

func (c SessionCookie) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (c SessionCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

type AuthMiddleware struct {
	resolver sessionResolver
	cookie   SessionCookie
	metrics  *metrics.Metrics
}

func NewAuthMiddleware(resolver sessionResolver, cookie SessionCookie, m *metrics.Metrics) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver, cookie: cookie, metrics: m}
}

var errNoSession = errors.New("no session cookie")

// authenticate resolves the caller from the session cookie. presented reports
// whether a cookie was sent, so callers know whether to expire it.
func (m *AuthMiddleware) authenticate(r *http.Request) (principal model.Principal, expiresAt time.Time, presented bool, err error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return model.Principal{}, time.Time{}, false, errNoSession
	}

	claims, err := m.resolver.ValidateToken(cookie.Value)
	if err != nil {
		return model.Principal{}, time.Time{}, true, model.ErrInvalidSession
	}

	principal, err = m.resolver.ResolvePrincipal(r.Context(), claims.UserID)
	if err != nil {
		return model.Principal{}, time.Time{}, true, err
	}
	noteUser(r, principal.UserID)
	return principal, claims.ExpiresAt, true, nil
}

func isSessionError(err error) bool {
	return errors.Is(err, errNoSession) || errors.Is(err, model.ErrInvalidSession)
}

// RequireAuth rejects API requests without a valid session with 401.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, expiresAt, presented, err := m.authenticate(r)
		if err != nil {
			if !isSessionError(err) {
				slog.Error("resolve principal failed", "error", err)
				writeJSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected server error")
				return
			}
			if presented {
				m.cookie.Clear(w)
			}
			m.metrics.Guard("api", "unauthenticated")
			message := "authentication required"
			if presented {
				message = "invalid or expired session"
			}
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), principal, expiresAt)))
	})
}

// RequireRoles allows only principals whose stored role is listed.
func (m *AuthMiddleware) RequireRoles(allowedRoles ...string) func(http.Handler) http.Handler {
	roleSet := toSet(allowedRoles)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			if _, exists := roleSet[strings.ToLower(principal.Role)]; !exists {
				m.metrics.Guard("api", "forbidden")
				writeJSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (m *AuthMiddleware) RequirePermission(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			if !principal.HasPermission(name) {
				m.metrics.Guard("api", "forbidden")
				writeJSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireSelf compares the path id against the session identity, never a
// client-supplied body field.
func (m *AuthMiddleware) RequireSelf(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid id")
				return
			}
			if id != principal.UserID {
				m.metrics.Guard("api", "forbidden")
				writeJSONError(w, http.StatusForbidden, "FORBIDDEN", "you can only modify your own profile")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequirePage sends anonymous visitors to the login page.
func (m *AuthMiddleware) RequirePage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, expiresAt, presented, err := m.authenticate(r)
		if err != nil {
			if !isSessionError(err) {
				slog.Error("resolve principal failed", "error", err)
				http.Error(w, "Unexpected server error", http.StatusInternalServerError)
				return
			}
			if presented {
				m.cookie.Clear(w)
			}
			m.metrics.Guard("page", "unauthenticated")
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), principal, expiresAt)))
	})
}

// RequirePageRoles must run after RequirePage.
func (m *AuthMiddleware) RequirePageRoles(allowedRoles ...string) func(http.Handler) http.Handler {
	roleSet := toSet(allowedRoles)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}
			if _, exists := roleSet[strings.ToLower(principal.Role)]; !exists {
				m.metrics.Guard("page", "forbidden")
				http.Redirect(w, r, UnauthorizedPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RedirectIfAuthenticated keeps logged-in users away from login and registration.
func (m *AuthMiddleware) RedirectIfAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, presented, err := m.authenticate(r)
		if err == nil {
			http.Redirect(w, r, LandingPath, http.StatusSeeOther)
			return
		}
		if presented && isSessionError(err) {
			m.cookie.Clear(w)
		}
		next.ServeHTTP(w, r)
	})
}

func WithPrincipal(ctx context.Context, principal model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// WithSession stores the principal together with the session's expiry.
func WithSession(ctx context.Context, principal model.Principal, expiresAt time.Time) context.Context {
	return context.WithValue(WithPrincipal(ctx, principal), expiryContextKey, expiresAt)
}

// SessionExpiry reports when the session that authenticated the request ends.
func SessionExpiry(ctx context.Context) (time.Time, bool) {
	expiresAt, ok := ctx.Value(expiryContextKey).(time.Time)
	return expiresAt, ok && !expiresAt.IsZero()
}

func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(model.Principal)
	return principal, ok
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return set
}
