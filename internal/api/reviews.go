package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/caseqc/internal/middleware"
	"github.com/persistorai/caseqc/internal/models"
)

// ReviewHandler serves review lifecycle endpoints.
type ReviewHandler struct {
	approvals ApprovalService
	reviews   ReviewService
	log       *logrus.Logger
}

// NewReviewHandler creates a ReviewHandler.
func NewReviewHandler(approvals ApprovalService, reviews ReviewService, log *logrus.Logger) *ReviewHandler {
	return &ReviewHandler{approvals: approvals, reviews: reviews, log: log}
}

// Create handles POST /api/v1/reviews.
func (h *ReviewHandler) Create(c *gin.Context) {
	var req models.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	actor := middleware.ActorFrom(c)

	review, err := h.approvals.CreateReview(c.Request.Context(), actor, req)
	if err != nil {
		respondServiceError(c, h.log, err, "review.create")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "review.create", "actor": actor.ID, "review_id": review.ID, "case_id": review.CaseID}).Info("audit")

	c.JSON(http.StatusCreated, review)
}

// List handles GET /api/v1/reviews.
func (h *ReviewHandler) List(c *gin.Context) {
	opts := models.ReviewListOpts{
		Status:     models.ReviewStatus(c.Query("status")),
		ReviewerID: c.Query("reviewer_id"),
		CaseID:     c.Query("case_id"),
		Limit:      parseInt(c.DefaultQuery("limit", "50"), 50),
		Offset:     parseOffset(c.DefaultQuery("offset", "0")),
	}

	if mine := c.Query("mine"); mine != "" {
		v, err := strconv.ParseBool(mine)
		if err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "mine must be a boolean")

			return
		}
		opts.Mine = v
	}

	actor := middleware.ActorFrom(c)

	reviews, hasMore, err := h.reviews.ListReviews(c.Request.Context(), actor, opts)
	if err != nil {
		respondServiceError(c, h.log, err, "review.list")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "review.list", "actor": actor.ID, "status": opts.Status, "count": len(reviews)}).Info("audit")

	c.JSON(http.StatusOK, gin.H{"reviews": reviews, "has_more": hasMore})
}

// Get handles GET /api/v1/reviews/:id.
func (h *ReviewHandler) Get(c *gin.Context) {
	reviewID := c.Param("id")
	if err := validatePathID(reviewID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	actor := middleware.ActorFrom(c)

	review, err := h.reviews.GetReview(c.Request.Context(), actor, reviewID)
	if err != nil {
		respondServiceError(c, h.log, err, "review.get")

		return
	}

	c.JSON(http.StatusOK, review)
}

// Transition handles POST /api/v1/reviews/:id/transitions.
func (h *ReviewHandler) Transition(c *gin.Context) {
	reviewID := c.Param("id")
	if err := validatePathID(reviewID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	var req models.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	actor := middleware.ActorFrom(c)

	review, err := h.approvals.RequestTransition(c.Request.Context(), actor, reviewID, req)
	if err != nil {
		respondServiceError(c, h.log, err, "review.transition")

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":    "review.transition",
		"actor":     actor.ID,
		"review_id": review.ID,
		"to":        review.Status,
		"version":   review.Version,
	}).Info("audit")

	c.JSON(http.StatusOK, review)
}
