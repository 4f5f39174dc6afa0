package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/caseqc/internal/middleware"
	"github.com/persistorai/caseqc/internal/models"
)

// CaseHandler serves case registration and lookup.
type CaseHandler struct {
	cases CaseService
	log   *logrus.Logger
}

// NewCaseHandler creates a CaseHandler.
func NewCaseHandler(cases CaseService, log *logrus.Logger) *CaseHandler {
	return &CaseHandler{cases: cases, log: log}
}

// Register handles PUT /api/v1/cases/:id.
func (h *CaseHandler) Register(c *gin.Context) {
	caseID := c.Param("id")
	if err := validatePathID(caseID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	var req models.RegisterCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}
	req.ID = caseID

	actor := middleware.ActorFrom(c)

	registered, err := h.cases.RegisterCase(c.Request.Context(), actor, req)
	if err != nil {
		respondServiceError(c, h.log, err, "case.register")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "case.register", "actor": actor.ID, "case_id": caseID}).Info("audit")

	c.JSON(http.StatusOK, registered)
}

// Get handles GET /api/v1/cases/:id.
func (h *CaseHandler) Get(c *gin.Context) {
	caseID := c.Param("id")
	if err := validatePathID(caseID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	found, err := h.cases.GetCase(c.Request.Context(), middleware.ActorFrom(c), caseID)
	if err != nil {
		respondServiceError(c, h.log, err, "case.get")

		return
	}

	c.JSON(http.StatusOK, found)
}
