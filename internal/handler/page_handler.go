package handler

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"go-video-hub/internal/middleware"
	"go-video-hub/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

type pageData struct {
	Title     string
	Principal *model.Principal
}

// PageHandler renders the server-side pages. Access control lives in the
// page guards mounted by the router.
type PageHandler struct {
	pages map[string]*template.Template
}

func NewPageHandler() (*PageHandler, error) {
	names := []string{"login", "register", "home", "admin", "unauthorized"}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, err
		}
		pages[name] = tmpl
	}
	return &PageHandler{pages: pages}, nil
}

func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login", "Sign in")
}

func (h *PageHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register", "Create account")
}

func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "home", "Video Hub")
}

func (h *PageHandler) Admin(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "admin", "Administration")
}

func (h *PageHandler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusForbidden, "unauthorized", "Access denied")
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, title string) {
	data := pageData{Title: title}
	if principal, ok := middleware.PrincipalFromContext(r.Context()); ok {
		data.Principal = &principal
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := h.pages[name].ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("render page", "page", name, "error", err)
	}
}
