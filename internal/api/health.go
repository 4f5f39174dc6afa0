// Package api provides HTTP handlers for the case QC review service.
package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/caseqc/internal/db"
	"github.com/persistorai/caseqc/internal/ws"
)

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	pool      DBPinger
	schema    *sql.DB
	hub       *ws.Hub
	log       *logrus.Logger
	version   string
	backend   string
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler. pool and schema are nil when the
// service runs on the in-memory store.
func NewHealthHandler(pool DBPinger, schema *sql.DB, hub *ws.Hub, log *logrus.Logger, version, backend string) *HealthHandler {
	return &HealthHandler{
		pool:      pool,
		schema:    schema,
		hub:       hub,
		log:       log,
		version:   version,
		backend:   backend,
		startTime: time.Now(),
	}
}

// readinessResponse is the JSON payload returned by the readiness endpoint.
type readinessResponse struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks"`
	SchemaVersion int64             `json:"schema_version,omitempty"`
}

// healthResponse is the JSON payload returned by the health/liveness endpoint.
type healthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Backend       string  `json:"backend"`
	Database      string  `json:"database"`
	WSClients     int     `json:"ws_clients"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Liveness handles GET /api/v1/health.
func (h *HealthHandler) Liveness(c *gin.Context) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		Backend:       h.backend,
		Database:      "connected",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	// Best-effort database ping (non-fatal for liveness).
	if h.pool != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.pool.HealthCheck(ctx); err != nil {
			resp.Database = "disconnected"
		}
	} else {
		resp.Database = "not_configured"
	}

	if h.hub != nil {
		resp.WSClients = h.hub.ClientCount()
	}

	c.JSON(http.StatusOK, resp)
}

// Readiness handles GET /api/v1/ready: checks the database and that its
// schema matches the migrations compiled into this binary.
func (h *HealthHandler) Readiness(c *gin.Context) {
	resp := readinessResponse{
		Status: "ready",
		Checks: map[string]string{
			"database": "ok",
			"schema":   "ok",
		},
	}
	statusCode := http.StatusOK

	if h.pool == nil {
		resp.Checks["database"] = "not_configured"
		resp.Checks["schema"] = "not_configured"
		c.JSON(statusCode, resp)

		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.pool.HealthCheck(ctx); err != nil {
		h.log.WithError(err).Error("readiness: database health check failed")
		resp.Checks["database"] = "error"
		resp.Checks["schema"] = "unknown"
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)

		return
	}

	if h.schema != nil {
		applied, err := db.AppliedVersion(ctx, h.schema)
		resp.SchemaVersion = applied

		if want := db.LatestVersion(); err == nil && applied != want {
			err = fmt.Errorf("schema version %d, binary expects %d", applied, want)
		}

		if err != nil {
			h.log.WithError(err).Error("readiness: schema check failed")
			resp.Checks["schema"] = "error"
			resp.Status = "not_ready"
			statusCode = http.StatusServiceUnavailable
		}
	}

	c.JSON(statusCode, resp)
}
