package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-video-hub/internal/config"
	"go-video-hub/internal/handler"
	"go-video-hub/internal/metrics"
	"go-video-hub/internal/middleware"
	"go-video-hub/internal/websocket"
)

// Deps carries everything the route table mounts. Metrics and AuditFeed are
// optional; Principals is required whenever AuditFeed is set.
type Deps struct {
	Auth       *middleware.AuthMiddleware
	RateLimit  *middleware.RateLimitMiddleware
	Metrics    *metrics.Metrics
	AuditFeed  *websocket.Hub
	Principals websocket.PrincipalResolver

	Health      *handler.HealthHandler
	AuthHandler *handler.AuthHandler
	Users       *handler.UserHandler
	AccessCodes *handler.AccessCodeHandler
	Roles       *handler.RoleHandler
	Audit       *handler.AuditHandler
	Docs        *handler.DocsHandler
	Pages       *handler.PageHandler
}

func New(cfg *config.Config, d Deps) http.Handler {
	r := chi.NewRouter()

	rateLimit := d.RateLimit
	if rateLimit == nil {
		rateLimit = middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)
	}
	auth := d.Auth

	r.Use(middleware.RealIP(cfg.TrustedProxies))
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimit.Handler)

	r.Get("/health", d.Health.Check)
	if cfg.MetricsEnabled && d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	r.Get("/openapi.yaml", d.Docs.OpenAPI)
	r.Get("/swagger", d.Docs.SwaggerUI)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(ar chi.Router) {
			ar.Post("/login", d.AuthHandler.Login)
			ar.Post("/logout", d.AuthHandler.Logout)
			ar.Get("/logout", d.AuthHandler.Logout)
			ar.Post("/register", d.AuthHandler.Register)
			ar.Post("/access-codes/verify", d.AuthHandler.VerifyAccessCode)
			ar.With(auth.RequireAuth).Get("/me", d.AuthHandler.Me)
		})

		api.With(auth.RequireAuth, auth.RequireSelf("id")).Put("/users/{id}/profile", d.Users.UpdateProfile)

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(auth.RequireAuth, auth.RequireRoles("admin"))

			admin.Get("/users", d.Users.List)
			admin.Post("/users", d.Users.Create)
			admin.Get("/users/{id}", d.Users.Get)
			admin.Put("/users/{id}", d.Users.Update)
			admin.Delete("/users/{id}", d.Users.Delete)

			admin.Get("/access-codes", d.AccessCodes.List)
			admin.Post("/access-codes", d.AccessCodes.Generate)
			admin.Delete("/access-codes", d.AccessCodes.Delete)

			admin.Get("/roles", d.Roles.List)
			admin.Get("/permissions", d.Roles.ListPermissions)
			admin.Put("/roles/{id}/permissions", d.Roles.SetPermissions)

			admin.Get("/audit", d.Audit.List)
		})
	})

	// The live feed hijacks the connection, so it stays outside the timeout group.
	if d.AuditFeed != nil {
		r.With(auth.RequireAuth, auth.RequireRoles("admin")).
			Get("/ws/audit", d.AuditFeed.ServeWS(d.Principals, cfg.CORSOrigins, "admin"))
	}

	r.With(auth.RedirectIfAuthenticated).Get(middleware.LoginPath, d.Pages.Login)
	r.With(auth.RedirectIfAuthenticated).Get("/register", d.Pages.Register)
	r.With(auth.RequirePage).Get(middleware.LandingPath, d.Pages.Home)
	r.With(auth.RequirePage, auth.RequirePageRoles("admin")).Get("/admin", d.Pages.Admin)
	r.Get(middleware.UnauthorizedPath, d.Pages.Unauthorized)
	r.Get("/logout", d.AuthHandler.Logout)
	r.Post("/logout", d.AuthHandler.Logout)

	return r
}
