package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
)

const swaggerCSP = "default-src 'self'; connect-src 'self' https://unpkg.com; script-src 'self' 'unsafe-inline' https://unpkg.com; style-src 'self' 'unsafe-inline' https://unpkg.com; img-src 'self' data: https://validator.swagger.io"

// DocsHandler serves the OpenAPI document and a Swagger UI page pointing at it.
// The document is read from disk on first request and kept in memory.
type DocsHandler struct {
	specPath string

	once    sync.Once
	content []byte
	etag    string
	loadErr error
}

func NewDocsHandler(specPath string) *DocsHandler {
	return &DocsHandler{specPath: strings.TrimSpace(specPath)}
}

func (h *DocsHandler) load() {
	h.content, h.loadErr = os.ReadFile(h.specPath)
	if h.loadErr != nil {
		slog.Warn("openapi document unavailable", "path", h.specPath, "error", h.loadErr)
		return
	}
	sum := sha256.Sum256(h.content)
	h.etag = `"` + hex.EncodeToString(sum[:8]) + `"`
}

func (h *DocsHandler) OpenAPI(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.specPath == "" {
		http.Error(w, "openapi document not configured", http.StatusNotFound)
		return
	}

	h.once.Do(h.load)
	if h.loadErr != nil {
		http.Error(w, "openapi document not found", http.StatusNotFound)
		return
	}

	w.Header().Set("ETag", h.etag)
	w.Header().Set("Cache-Control", "public, max-age=300")
	if r.Header.Get("If-None-Match") == h.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.content)
}

func (h *DocsHandler) SwaggerUI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Security-Policy", swaggerCSP)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(swaggerPage))
}

const swaggerPage = `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>Video Hub API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
        withCredentials: true,
        tryItOutEnabled: false
      });
    </script>
  </body>
</html>`
