package handlers

import (
	"net/http"

	"github.com/campusdirectory/facility-api/internal/middleware"
	"github.com/campusdirectory/facility-api/internal/models"
	"github.com/campusdirectory/facility-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ReviewHandler handles review HTTP requests
type ReviewHandler struct {
	reviewService *services.ReviewService
	audit         auditLogger
	logger        *logrus.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviewService *services.ReviewService, auditService *services.AuditService, logger *logrus.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		audit:         auditLogger{service: auditService, logger: logger},
		logger:        logger,
	}
}

// List handles GET /api/v1/reviews and GET /api/v1/facilities/:id/reviews
func (h *ReviewHandler) List(c *gin.Context) {
	if c.Param("id") != "" {
		facilityID, err := parseID(c, "id", "facility")
		if err != nil {
			respondError(c, h.logger, err)
			return
		}

		reviews, err := h.reviewService.ListByFacility(c.Request.Context(), facilityID)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, CountResponse{Success: true, Count: len(reviews), Data: reviews})
		return
	}

	envelope, err := h.reviewService.List(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, envelope)
}

// Get handles GET /api/v1/reviews/:id
func (h *ReviewHandler) Get(c *gin.Context) {
	id, err := parseID(c, "id", "review")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	review, err := h.reviewService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, review)
}

// Create handles POST /api/v1/facilities/:id/reviews
func (h *ReviewHandler) Create(c *gin.Context) {
	facilityID, err := parseID(c, "id", "facility")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req models.ReviewInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	review, err := h.reviewService.Create(c.Request.Context(), middleware.GetPrincipal(c), facilityID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusCreated, review)
}

// Update handles PUT /api/v1/reviews/:id
func (h *ReviewHandler) Update(c *gin.Context) {
	id, err := parseID(c, "id", "review")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	review, err := h.reviewService.Update(c.Request.Context(), middleware.GetPrincipal(c), id, jsonBinder[models.ReviewInput](c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, review)
}

// Delete handles DELETE /api/v1/reviews/:id
func (h *ReviewHandler) Delete(c *gin.Context) {
	id, err := parseID(c, "id", "review")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	principal := middleware.GetPrincipal(c)
	if err := h.reviewService.Delete(c.Request.Context(), principal, id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.audit.safeLogResourceDelete(c, principal.ID, "review", id)
	respondData(c, http.StatusOK, gin.H{})
}
