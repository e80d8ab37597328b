package middleware

import (
	"encoding/json"
	"net/http"

	"go-video-hub/internal/model"
)

// writeJSONError emits the standard error envelope from middleware, which
// cannot reach the handler package's writer. Guard rejections are never cached.
func writeJSONError(w http.ResponseWriter, status int, code string, message string) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Error: &model.APIError{Code: code, Message: message},
	})
}
