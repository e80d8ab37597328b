package middleware

import (
	"net/http"
	"strings"
	"time"
)

const defaultRequestTimeout = 30 * time.Second

var timeoutBody = `{"success":false,"error":{"code":"REQUEST_TIMEOUT","message":"request timed out"}}`

// Timeout bounds API handlers. Upgrade requests pass through untouched since
// http.TimeoutHandler cannot hand over the connection.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		bounded := http.TimeoutHandler(next, timeout, timeoutBody)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isUpgrade(r) {
				next.ServeHTTP(w, r)
				return
			}
			bounded.ServeHTTP(w, r)
		})
	}
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}
