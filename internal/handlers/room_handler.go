package handlers

import (
	"net/http"

	"github.com/campusdirectory/facility-api/internal/middleware"
	"github.com/campusdirectory/facility-api/internal/models"
	"github.com/campusdirectory/facility-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RoomHandler handles room HTTP requests
type RoomHandler struct {
	roomService *services.RoomService
	audit       auditLogger
	logger      *logrus.Logger
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(roomService *services.RoomService, auditService *services.AuditService, logger *logrus.Logger) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
		audit:       auditLogger{service: auditService, logger: logger},
		logger:      logger,
	}
}

// List handles GET /api/v1/rooms and GET /api/v1/facilities/:id/rooms.
// The nested form returns every room of the facility without paging.
func (h *RoomHandler) List(c *gin.Context) {
	if c.Param("id") != "" {
		facilityID, err := parseID(c, "id", "facility")
		if err != nil {
			respondError(c, h.logger, err)
			return
		}

		rooms, err := h.roomService.ListByFacility(c.Request.Context(), facilityID)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, CountResponse{Success: true, Count: len(rooms), Data: rooms})
		return
	}

	envelope, err := h.roomService.List(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, envelope)
}

// Get handles GET /api/v1/rooms/:id
func (h *RoomHandler) Get(c *gin.Context) {
	id, err := parseID(c, "id", "room")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	room, err := h.roomService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, room)
}

// Create handles POST /api/v1/facilities/:id/rooms
func (h *RoomHandler) Create(c *gin.Context) {
	facilityID, err := parseID(c, "id", "facility")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req models.RoomInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	room, err := h.roomService.Create(c.Request.Context(), middleware.GetPrincipal(c), facilityID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    room,
		"msg":     "Room Created",
	})
}

// Update handles PUT /api/v1/rooms/:id
func (h *RoomHandler) Update(c *gin.Context) {
	id, err := parseID(c, "id", "room")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	room, err := h.roomService.Update(c.Request.Context(), middleware.GetPrincipal(c), id, jsonBinder[models.RoomInput](c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, room)
}

// Delete handles DELETE /api/v1/rooms/:id
func (h *RoomHandler) Delete(c *gin.Context) {
	id, err := parseID(c, "id", "room")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	principal := middleware.GetPrincipal(c)
	if err := h.roomService.Delete(c.Request.Context(), principal, id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.audit.safeLogResourceDelete(c, principal.ID, "room", id)
	respondData(c, http.StatusOK, gin.H{})
}

// UploadPhotos handles PUT /api/v1/rooms/:id/photos
func (h *RoomHandler) UploadPhotos(c *gin.Context) {
	id, err := parseID(c, "id", "room")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	files, err := formPhotos(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	photos, err := h.roomService.AttachPhotos(c.Request.Context(), middleware.GetPrincipal(c), id, files)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, photos)
}

// DeletePhoto handles PUT /api/v1/rooms/:id/photos/:photoname
func (h *RoomHandler) DeletePhoto(c *gin.Context) {
	id, err := parseID(c, "id", "room")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	photos, err := h.roomService.DetachPhoto(c.Request.Context(), middleware.GetPrincipal(c), id, c.Param("photoname"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, photos)
}
