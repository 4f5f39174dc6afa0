package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/caseqc/internal/httputil"
	"github.com/persistorai/caseqc/internal/metrics"
	"github.com/persistorai/caseqc/internal/models"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest    = "invalid_request"
	ErrCodeNotFound          = "not_found"
	ErrCodeInternalError     = "internal_error"
	ErrCodeUnauthorized      = "unauthorized"
	ErrCodeForbidden         = "forbidden"
	ErrCodeConflict          = "conflict"
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeValidationError   = "validation_error"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}

// respondServiceError maps an error returned by a review service onto its
// HTTP status. Persistence failures and anything unrecognised are logged and
// reported with a generic message.
func respondServiceError(c *gin.Context, log *logrus.Logger, err error, op string) {
	var transitionErr *models.TransitionError
	var validationErr *models.ValidationError

	switch {
	case errors.Is(err, models.ErrUnauthorized):
		respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
	case errors.As(err, &validationErr):
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, validationErr.Error())
	case errors.Is(err, models.ErrValidation):
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())
	case errors.Is(err, models.ErrNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, models.ErrAccessDenied):
		respondError(c, http.StatusForbidden, ErrCodeForbidden, "access denied")
	case errors.As(err, &transitionErr):
		metrics.ErrorsTotal.WithLabelValues(ErrCodeInvalidTransition).Inc()
		allowed := transitionErr.Allowed
		if allowed == nil {
			allowed = []models.ReviewStatus{}
		}
		httputil.RespondErrorDetail(c, http.StatusUnprocessableEntity, ErrCodeInvalidTransition, transitionErr.Error(), map[string]any{
			"current":   transitionErr.From,
			"requested": transitionErr.To,
			"allowed":   allowed,
			"role":      transitionErr.Role,
		})
	case errors.Is(err, models.ErrConflict):
		respondError(c, http.StatusConflict, ErrCodeConflict, "review was modified concurrently, reload and retry")
	case errors.Is(err, models.ErrDuplicateKey):
		respondError(c, http.StatusConflict, ErrCodeConflict, "resource already exists")
	default:
		log.WithError(err).WithField("op", op).Error("request failed")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}
