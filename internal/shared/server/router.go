package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumind-backend/internal/resumes"
	"resumind-backend/internal/shared/config"
	"resumind-backend/internal/shared/metrics"
	"resumind-backend/internal/shared/server/middleware"
	"resumind-backend/internal/shared/server/respond"
)

// RouterDeps carries the constructed handlers and probes the router wires up.
type RouterDeps struct {
	Config  config.Config
	Resumes *resumes.Handler
	Ready   func(ctx context.Context) error
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(),
		middleware.RateLimit(middleware.RateLimitConfig{
			GroupFor: rateLimitGroup,
			Rules: map[string]middleware.RateLimitRule{
				"DEFAULT": {Rate: 10, Burst: 30},
				"ANALYZE": {Rate: 0.2, Burst: 3},
			},
		}),
	)

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler(deps.Ready))
	api.GET("/metrics", metrics.Handler())
	registerMeRoutes(api)
	if deps.Resumes != nil {
		deps.Resumes.RegisterRoutes(api)
	}

	return r
}

// rateLimitGroup puts the expensive analyze endpoint on its own rule.
func rateLimitGroup(c *gin.Context) string {
	if c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/resumes/analyze" {
		return "ANALYZE"
	}
	return "DEFAULT"
}

func healthHandler(ready func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			if err := ready(c.Request.Context()); err != nil {
				respond.JSON(c, http.StatusServiceUnavailable, gin.H{"ok": false, "reason": err.Error()})
				return
			}
		}
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
