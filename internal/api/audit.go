package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/caseqc/internal/middleware"
	"github.com/persistorai/caseqc/internal/models"
)

// AuditHandler serves audit log endpoints.
type AuditHandler struct {
	audits  AuditService
	reviews ReviewService
	log     *logrus.Logger
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(audits AuditService, reviews ReviewService, log *logrus.Logger) *AuditHandler {
	return &AuditHandler{audits: audits, reviews: reviews, log: log}
}

// Query handles GET /api/v1/audit.
func (h *AuditHandler) Query(c *gin.Context) {
	opts := models.AuditQueryOpts{
		ReviewID:   c.Query("review_id"),
		CaseID:     c.Query("case_id"),
		Actor:      c.Query("actor"),
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
		Limit:      parseInt(c.Query("limit"), 50),
		Offset:     parseOffset(c.Query("offset")),
	}

	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid since format, use RFC3339")
			return
		}
		opts.Since = &t
	}

	actor := middleware.ActorFrom(c)

	entries, hasMore, err := h.audits.QueryAudit(c.Request.Context(), actor, opts)
	if err != nil {
		respondServiceError(c, h.log, err, "audit.query")
		return
	}

	h.log.WithFields(logrus.Fields{"action": "audit.query", "actor": actor.ID, "count": len(entries)}).Info("audit")

	c.JSON(http.StatusOK, gin.H{
		"data":     entries,
		"has_more": hasMore,
	})
}

// ForReview handles GET /api/v1/reviews/:id/audit.
func (h *AuditHandler) ForReview(c *gin.Context) {
	reviewID := c.Param("id")
	if err := validatePathID(reviewID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	limit := parseInt(c.Query("limit"), 50)
	offset := parseOffset(c.Query("offset"))

	entries, hasMore, err := h.reviews.ListReviewAudit(c.Request.Context(), middleware.ActorFrom(c), reviewID, limit, offset)
	if err != nil {
		respondServiceError(c, h.log, err, "review.audit")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     entries,
		"has_more": hasMore,
	})
}
