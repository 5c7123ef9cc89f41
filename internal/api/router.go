// Package api exposes the users service over HTTP.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Proton-105/users-backend/internal/errors"
	"github.com/Proton-105/users-backend/internal/idempotency"
	"github.com/Proton-105/users-backend/internal/lifecycle"
	"github.com/Proton-105/users-backend/internal/middleware"
	"github.com/Proton-105/users-backend/internal/ratelimit"
	"github.com/Proton-105/users-backend/internal/user"
	"github.com/Proton-105/users-backend/pkg/logger"
	"github.com/Proton-105/users-backend/pkg/metrics"
)

// Deps are the collaborators the router needs. Limiter, Idempotency and
// Probes may be nil. Client addresses are taken from forwarding headers only
// when the peer is one of TrustedProxies.
type Deps struct {
	Service        *user.Service
	Status         lifecycle.StatusSource
	Probes         lifecycle.HealthChecker
	Errors         *apperrors.Handler
	Limiter        ratelimit.Limiter
	Rules          *ratelimit.Rules
	Idempotency    idempotency.Manager
	IdempotencyTTL time.Duration
	TrustedProxies []string
	Log            *slog.Logger
}

// NewHandler returns the router wrapped with the correlation id middleware.
func NewHandler(deps Deps) (http.Handler, error) {
	r, err := NewRouter(deps)
	if err != nil {
		return nil, err
	}
	return logger.Middleware(r), nil
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Errors == nil {
		deps.Errors = apperrors.NewHandler(deps.Log, false)
	}
	if deps.Probes == nil {
		deps.Probes = lifecycle.NewProbes(deps.Log, nil)
	}

	r := gin.New()
	// Both /api/users and /api/users/ are registered explicitly.
	r.RedirectTrailingSlash = false
	r.HandleMethodNotAllowed = true
	if err := r.SetTrustedProxies(deps.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	r.Use(
		middleware.Recovery(deps.Errors),
		middleware.RequestLogger(deps.Log),
		middleware.Metrics(),
	)

	h := &handler{
		svc:    deps.Service,
		status: deps.Status,
		probes: deps.Probes,
		errors: deps.Errors,
		log:    deps.Log,
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"detail": "Method Not Allowed"})
	})

	r.GET("/livez", h.livez)
	r.GET("/readyz", h.readyz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.Use(middleware.RateLimit(deps.Limiter, deps.Rules, deps.Errors, deps.Log))
	api.GET("/status", h.appStatus)

	idem := middleware.Idempotency(deps.Idempotency, deps.IdempotencyTTL, deps.Log)

	users := api.Group("/users")
	for _, path := range []string{"", "/"} {
		users.POST(path, idem, h.createUsers)
		users.GET(path, h.listUsers)
		users.DELETE(path, h.clearUsers)
	}
	users.DELETE("/clear", h.clearUsers)
	users.GET("/:id", h.getUser)
	users.PATCH("/:id", h.updateUser)
	users.DELETE("/:id", h.deleteUser)

	return r, nil
}
