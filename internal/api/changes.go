package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/caseqc/internal/middleware"
	"github.com/persistorai/caseqc/internal/models"
)

// ChangeLogHandler serves change log endpoints.
type ChangeLogHandler struct {
	approvals ApprovalService
	reviews   ReviewService
	log       *logrus.Logger
}

// NewChangeLogHandler creates a ChangeLogHandler.
func NewChangeLogHandler(approvals ApprovalService, reviews ReviewService, log *logrus.Logger) *ChangeLogHandler {
	return &ChangeLogHandler{approvals: approvals, reviews: reviews, log: log}
}

// Record handles POST /api/v1/reviews/:id/changes.
func (h *ChangeLogHandler) Record(c *gin.Context) {
	reviewID := c.Param("id")
	if err := validatePathID(reviewID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	var req models.ChangeLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	actor := middleware.ActorFrom(c)

	entry, err := h.approvals.RecordChangeLogEntry(c.Request.Context(), actor, reviewID, req)
	if err != nil {
		respondServiceError(c, h.log, err, "changelog.record")

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":    "changelog.record",
		"actor":     actor.ID,
		"review_id": reviewID,
		"change_id": entry.ID,
		"field":     entry.FieldName,
	}).Info("audit")

	c.JSON(http.StatusCreated, entry)
}

// List handles GET /api/v1/reviews/:id/changes.
func (h *ChangeLogHandler) List(c *gin.Context) {
	reviewID := c.Param("id")
	if err := validatePathID(reviewID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	opts := models.ChangeLogListOpts{
		ReviewID:  reviewID,
		FieldName: c.Query("field_name"),
		AuthorID:  c.Query("author_id"),
		Limit:     parseInt(c.DefaultQuery("limit", "100"), 100),
		Offset:    parseOffset(c.DefaultQuery("offset", "0")),
	}

	entries, hasMore, err := h.reviews.ListChangeLogEntries(c.Request.Context(), middleware.ActorFrom(c), opts)
	if err != nil {
		respondServiceError(c, h.log, err, "changelog.list")

		return
	}

	c.JSON(http.StatusOK, gin.H{"changes": entries, "has_more": hasMore})
}

// Get handles GET /api/v1/changes/:id.
func (h *ChangeLogHandler) Get(c *gin.Context) {
	entryID := c.Param("id")
	if err := validatePathID(entryID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	entry, err := h.reviews.GetChangeLogEntry(c.Request.Context(), middleware.ActorFrom(c), entryID)
	if err != nil {
		respondServiceError(c, h.log, err, "changelog.get")

		return
	}

	c.JSON(http.StatusOK, entry)
}
