package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"go-video-hub/internal/config"
	"go-video-hub/internal/database"
	"go-video-hub/internal/event"
	"go-video-hub/internal/handler"
	"go-video-hub/internal/metrics"
	"go-video-hub/internal/middleware"
	"go-video-hub/internal/password"
	"go-video-hub/internal/repository"
	"go-video-hub/internal/router"
	"go-video-hub/internal/service"
	"go-video-hub/internal/websocket"
)

// credentialWindow is the Redis limiter window for login and registration.
const credentialWindow = time.Minute

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}
	slog.Info("database ready")

	appRouter, cleanup, err := NewHandler(cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server:       server,
		db:           db,
		cleanupFuncs: []func(){cleanup, db.Close},
	}, nil
}

// NewHandler wires repositories, services and handlers on top of db. The
// returned cleanup stops background work but leaves db open.
func NewHandler(cfg *config.Config, db *database.DB) (http.Handler, func(), error) {
	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	codeRepo := repository.NewAccessCodeRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	hasher, err := password.NewHasher(password.Scheme(cfg.PasswordScheme), cfg.BcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize password hasher: %w", err)
	}
	tokens, err := service.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	pages, err := handler.NewPageHandler()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse page templates: %w", err)
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New(prometheus.NewRegistry())
		m.WatchPool(db.Stats)
	}

	bus := event.NewBus()
	hubCtx, hubCancel := context.WithCancel(context.Background())
	hub := websocket.NewHub(bus)
	m.WatchAuditFeed(hub.Connected)
	go hub.Run(hubCtx)

	permCache := service.NewPermissionCache(roleRepo, cfg.PermissionCacheSize, cfg.PermissionCacheTTL)
	authService := service.NewAuthService(userRepo, permCache, hasher, tokens)
	codeService := service.NewAccessCodeService(codeRepo)
	userService := service.NewUserService(userRepo, roleRepo, codeService, hasher)
	roleService := service.NewRoleService(roleRepo, permCache)
	auditService := service.NewAuditService(auditRepo).WithBus(bus)

	cookie := middleware.SessionCookie{Secure: cfg.CookieSecure, MaxAge: tokens.TTL()}
	authMiddleware := middleware.NewAuthMiddleware(authService, cookie, m)
	rateLimit := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM).WithMetrics(m)

	cleanupFuncs := []func(){hubCancel}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		pingErr := client.Ping(pingCtx).Err()
		cancel()
		if pingErr != nil {
			// The local limiter still applies, so a missing Redis is not fatal.
			slog.Warn("redis unavailable, using per-instance rate limits", "addr", cfg.RedisAddr, "error", pingErr)
		}
		rateLimit.WithShared(middleware.NewRedisLimiter(client, cfg.AuthRateLimitRPM, credentialWindow, "videohub:ratelimit:auth"))
		cleanupFuncs = append(cleanupFuncs, func() { _ = client.Close() })
	}

	appRouter := router.New(cfg, router.Deps{
		Auth:        authMiddleware,
		RateLimit:   rateLimit,
		Metrics:     m,
		AuditFeed:   hub,
		Principals:  authService,
		Health:      handler.NewHealthHandler(db),
		AuthHandler: handler.NewAuthHandler(authService, userService, codeService, cookie, auditService, m),
		Users:       handler.NewUserHandler(userService, auditService),
		AccessCodes: handler.NewAccessCodeHandler(codeService, auditService),
		Roles:       handler.NewRoleHandler(roleService, auditService),
		Audit:       handler.NewAuditHandler(auditService),
		Docs:        handler.NewDocsHandler(cfg.OpenAPIPath),
		Pages:       pages,
	})

	cleanup := func() {
		for _, fn := range cleanupFuncs {
			fn()
		}
	}
	return appRouter, cleanup, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)

	// Connections are drained before the pool and hub go away.
	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}
