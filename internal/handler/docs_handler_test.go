package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAPIServesCachedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte("openapi: 3.0.3\n"), 0o600))
	h := NewDocsHandler(path)

	rec := httptest.NewRecorder()
	h.OpenAPI(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Equal(t, "openapi: 3.0.3\n", rec.Body.String())
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	require.NoError(t, os.Remove(path))

	req := httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.OpenAPI(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = httptest.NewRecorder()
	h.OpenAPI(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOpenAPIMissingDocument(t *testing.T) {
	rec := httptest.NewRecorder()
	NewDocsHandler(filepath.Join(t.TempDir(), "missing.yaml")).OpenAPI(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	NewDocsHandler("  ").OpenAPI(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSwaggerUIPage(t *testing.T) {
	rec := httptest.NewRecorder()
	NewDocsHandler("").SwaggerUI(rec, httptest.NewRequest(http.MethodGet, "/swagger", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "url: '/openapi.yaml'")
	assert.Equal(t, swaggerCSP, rec.Header().Get("Content-Security-Policy"))
}
