//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-video-hub/internal/app"
	"go-video-hub/internal/config"
	"go-video-hub/internal/database"
)

// newServer runs the full stack against TEST_DATABASE_URL. Rows created by
// earlier runs are removed; the seeded roles and demo accounts stay.
func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, url, 4, 0)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.EnsureSchema(ctx))

	_, err = db.Pool.Exec(ctx, `DELETE FROM audit_entries`)
	require.NoError(t, err)
	_, err = db.Pool.Exec(ctx, `DELETE FROM access_codes`)
	require.NoError(t, err)
	_, err = db.Pool.Exec(ctx, `DELETE FROM users WHERE username NOT IN ('admin', 'user')`)
	require.NoError(t, err)

	cfg := &config.Config{
		ServerPort:          "0",
		RequestTimeout:      10 * time.Second,
		DatabaseURL:         url,
		JWTSecret:           "integration-secret",
		SessionTTL:          time.Hour,
		RateLimitRPM:        0,
		AuthRateLimitRPM:    1000,
		PermissionCacheSize: 16,
		PermissionCacheTTL:  time.Minute,
		PasswordScheme:      "bcrypt",
		BcryptCost:          4,
		OpenAPIPath:         "../../docs/openapi.yaml",
	}

	handler, cleanup, err := app.NewHandler(cfg, db)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func newClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar:           jar,
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
}

func postJSON(t *testing.T, client *http.Client, url string, body any) *http.Response {
	t.Helper()
	return doJSON(t, client, http.MethodPost, url, body)
}

func doJSON(t *testing.T, client *http.Client, method string, url string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, resp *http.Response) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func login(t *testing.T, server *httptest.Server, identifier string, password string) *http.Client {
	t.Helper()

	client := newClient(t)
	resp := postJSON(t, client, server.URL+"/api/auth/login", map[string]string{"identifier": identifier, "password": password})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return client
}
