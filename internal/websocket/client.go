package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	ws "github.com/gorilla/websocket"

	"go-video-hub/internal/middleware"
	"go-video-hub/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64

	// defaultRecheck is how often an attached console's access is re-verified.
	defaultRecheck = 30 * time.Second
)

// PrincipalResolver reloads the caller's current role from the store.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, userID int64) (model.Principal, error)
}

type Client struct {
	hub       *Hub
	conn      *ws.Conn
	send      chan []byte
	userID    int64
	expiresAt time.Time
	access    *feedAccess
}

// feedAccess decides whether an attached console may keep receiving events.
type feedAccess struct {
	resolver PrincipalResolver
	roles    map[string]struct{}
}

// revoked returns a close reason once the session has ended or the user no
// longer holds one of the feed roles.
func (a *feedAccess) revoked(userID int64, expiresAt time.Time) string {
	if !expiresAt.IsZero() && !time.Now().Before(expiresAt) {
		return "session expired"
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	principal, err := a.resolver.ResolvePrincipal(ctx, userID)
	if err != nil {
		slog.Warn("audit feed access check failed", "user_id", userID, "error", err)
		return "session no longer valid"
	}
	if _, ok := a.roles[strings.ToLower(principal.Role)]; !ok {
		return "insufficient permissions"
	}
	return ""
}

// ServeWS upgrades an authenticated request and attaches it to the hub. The
// route must already be behind the auth guard; access is re-verified against
// the store every recheck interval and ends with the session.
func (h *Hub) ServeWS(resolver PrincipalResolver, allowedOrigins []string, roles ...string) http.HandlerFunc {
	access := &feedAccess{resolver: resolver, roles: make(map[string]struct{}, len(roles))}
	for _, role := range roles {
		access.roles[strings.ToLower(role)] = struct{}{}
	}

	upgrader := ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		expiresAt, _ := middleware.SessionExpiry(r.Context())

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "error", err)
			return
		}

		client := &Client{
			hub:       h,
			conn:      conn,
			send:      make(chan []byte, sendBuffer),
			userID:    principal.UserID,
			expiresAt: expiresAt,
			access:    access,
		}
		if !h.attach(client) {
			_ = conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseGoingAway, "shutting down"))
			_ = conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

// readPump only drains control frames; the feed is one-way.
func (c *Client) readPump() {
	defer func() {
		c.hub.detach(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseGoingAway, ws.CloseNormalClosure) {
				slog.Debug("websocket closed", "user_id", c.userID, "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	recheck := time.NewTicker(c.hub.recheckEvery)
	defer func() {
		ticker.Stop()
		recheck.Stop()
		_ = c.conn.Close()
	}()

	var expired <-chan time.Time
	if !c.expiresAt.IsZero() {
		timer := time.NewTimer(time.Until(c.expiresAt))
		defer timer.Stop()
		expired = timer.C
	}

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(ws.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(ws.PingMessage, nil); err != nil {
				return
			}
		case <-expired:
			c.closePolicy("session expired")
			return
		case <-recheck.C:
			if reason := c.access.revoked(c.userID, c.expiresAt); reason != "" {
				c.closePolicy(reason)
				return
			}
		}
	}
}

func (c *Client) closePolicy(reason string) {
	slog.Info("audit feed access revoked", "user_id", c.userID, "reason", reason)
	_ = c.conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.ClosePolicyViolation, reason),
		time.Now().Add(writeWait))
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set["*"]; ok {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
