package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/caseqc/internal/auth"
	"github.com/persistorai/caseqc/internal/middleware"
	"github.com/persistorai/caseqc/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log       *logrus.Logger
	Pool      DBPinger // nil on the memory backend
	SchemaDB  *sql.DB  // nil on the memory backend
	Hub       *ws.Hub
	Verifier  *auth.Verifier
	Approvals ApprovalService
	Reviews   ReviewService
	Cases     CaseService
	Audits    AuditService

	CORSOrigins    []string
	Version        string
	Backend        string
	RateLimitRPS   float64
	RateLimitBurst int
}

// maxBodySize bounds request bodies; change-log values are the largest payloads.
const maxBodySize = 1 << 20 // 1 MB

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(maxBodySize))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(middleware.NewRateLimiter(ctx, deps.RateLimitRPS, deps.RateLimitBurst).Handler())
	r.Use(middleware.PrometheusMiddleware())
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	health := NewHealthHandler(deps.Pool, deps.SchemaDB, deps.Hub, log, deps.Version, deps.Backend)
	reviews := NewReviewHandler(deps.Approvals, deps.Reviews, log)
	changes := NewChangeLogHandler(deps.Approvals, deps.Reviews, log)
	audit := NewAuditHandler(deps.Audits, deps.Reviews, log)
	cases := NewCaseHandler(deps.Cases, log)

	// Health and readiness are unauthenticated.
	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	// All other API routes require authentication.
	bfGuard := middleware.NewBruteForceGuard(ctx, log)
	api.Use(middleware.BruteForceMiddleware(bfGuard))
	api.Use(middleware.AuthMiddleware(deps.Verifier, log, bfGuard))

	// Reviews.
	api.POST("/reviews", reviews.Create)
	api.GET("/reviews", reviews.List)
	api.GET("/reviews/:id", reviews.Get)
	api.POST("/reviews/:id/transitions", reviews.Transition)

	// Change log.
	api.POST("/reviews/:id/changes", changes.Record)
	api.GET("/reviews/:id/changes", changes.List)
	api.GET("/changes/:id", changes.Get)

	// Audit.
	api.GET("/reviews/:id/audit", audit.ForReview)
	api.GET("/audit", audit.Query)

	// Cases.
	api.PUT("/cases/:id", cases.Register)
	api.GET("/cases/:id", cases.Get)

	// WebSocket endpoint.
	if deps.Hub != nil {
		api.GET("/ws", wsHandler(ctx, log, deps.Hub, deps.CORSOrigins, deps.Verifier))
	}
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
// Metrics are served separately on the metrics listener.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps)

	return r
}
