package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/caseqc/internal/httputil"
	"github.com/persistorai/caseqc/internal/models"
)

// ActorKey is the gin context key holding the authenticated models.Actor.
const ActorKey = "actor"

// authTimingFloor is the minimum response time for rejected tokens so that
// failures cannot be told apart by latency.
const authTimingFloor = 50 * time.Millisecond

// TokenVerifier resolves a bearer token to an actor.
type TokenVerifier interface {
	Verify(token string) (models.Actor, error)
}

// enforceTimingFloor sleeps if needed so the response takes at least authTimingFloor.
func enforceTimingFloor(start time.Time) {
	if elapsed := time.Since(start); elapsed < authTimingFloor {
		time.Sleep(authTimingFloor - elapsed)
	}
}

// AuthMiddleware returns Gin middleware that resolves the bearer token to an
// actor and stores it under ActorKey. If a BruteForceGuard is provided,
// failures are tracked per client IP.
func AuthMiddleware(verifier TokenVerifier, log *logrus.Logger, guards ...*BruteForceGuard) gin.HandlerFunc {
	var guard *BruteForceGuard
	if len(guards) > 0 {
		guard = guards[0]
	}

	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if c.Writer.Status() == http.StatusUnauthorized {
				enforceTimingFloor(start)
			}
		}()

		token := ExtractBearerToken(c)
		if token == "" {
			respondError(c, http.StatusUnauthorized, "unauthorized", "missing or invalid authorization header")
			return
		}

		actor, err := verifier.Verify(token)
		if err != nil {
			logAuthFailure(log, c, err)

			if guard != nil {
				guard.RecordFailure(c.ClientIP())
			}

			respondError(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		if guard != nil {
			guard.Reset(c.ClientIP())
		}

		c.Set(ActorKey, actor)
		c.Next()
	}
}

// ActorFrom returns the actor stored by AuthMiddleware, or the zero Actor.
func ActorFrom(c *gin.Context) models.Actor {
	if v, ok := c.Get(ActorKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}

	return models.Actor{}
}

// ExtractBearerToken extracts the token from the Authorization header.
func ExtractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// logAuthFailure logs a failed authentication attempt.
func logAuthFailure(log *logrus.Logger, c *gin.Context, err error) {
	log.WithFields(logrus.Fields{
		"client_ip":  c.ClientIP(),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"user_agent": c.Request.UserAgent(),
		"request_id": c.GetString(RequestIDKey),
		"reason":     err.Error(),
	}).Warn("authentication failed: invalid token")
}

// respondError delegates to the shared httputil.RespondError helper.
func respondError(c *gin.Context, code int, errCode, message string) {
	httputil.RespondError(c, code, errCode, message)
}
