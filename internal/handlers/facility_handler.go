package handlers

import (
	"net/http"

	"github.com/campusdirectory/facility-api/internal/middleware"
	"github.com/campusdirectory/facility-api/internal/models"
	"github.com/campusdirectory/facility-api/internal/services"
	"github.com/campusdirectory/facility-api/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PhotoFormField is the multipart field holding uploaded photos
const PhotoFormField = "files"

// FacilityHandler handles facility HTTP requests
type FacilityHandler struct {
	facilityService *services.FacilityService
	audit           auditLogger
	logger          *logrus.Logger
}

// NewFacilityHandler creates a new facility handler. auditService may be nil.
func NewFacilityHandler(facilityService *services.FacilityService, auditService *services.AuditService, logger *logrus.Logger) *FacilityHandler {
	return &FacilityHandler{
		facilityService: facilityService,
		audit:           auditLogger{service: auditService, logger: logger},
		logger:          logger,
	}
}

// List handles GET /api/v1/facilities
func (h *FacilityHandler) List(c *gin.Context) {
	envelope, err := h.facilityService.List(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, envelope)
}

// Get handles GET /api/v1/facilities/:id
func (h *FacilityHandler) Get(c *gin.Context) {
	id, err := parseID(c, "id", "facility")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	facility, err := h.facilityService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, facility)
}

// Create handles POST /api/v1/facilities
func (h *FacilityHandler) Create(c *gin.Context) {
	var req models.FacilityInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	facility, err := h.facilityService.Create(c.Request.Context(), middleware.GetPrincipal(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusCreated, facility)
}

// Update handles PUT /api/v1/facilities/:id. The body overlays the stored
// fields, so partial updates keep whatever is omitted.
func (h *FacilityHandler) Update(c *gin.Context) {
	id, err := parseID(c, "id", "facility")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	facility, err := h.facilityService.Update(c.Request.Context(), middleware.GetPrincipal(c), id, jsonBinder[models.FacilityInput](c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, facility)
}

// Delete handles DELETE /api/v1/facilities/:id
func (h *FacilityHandler) Delete(c *gin.Context) {
	id, err := parseID(c, "id", "facility")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	principal := middleware.GetPrincipal(c)
	if err := h.facilityService.Delete(c.Request.Context(), principal, id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.audit.safeLogResourceDelete(c, principal.ID, "facility", id)
	respondData(c, http.StatusOK, gin.H{})
}

// UploadPhotos handles PUT /api/v1/facilities/:id/photos
func (h *FacilityHandler) UploadPhotos(c *gin.Context) {
	id, err := parseID(c, "id", "facility")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	files, err := formPhotos(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	photos, err := h.facilityService.AttachPhotos(c.Request.Context(), middleware.GetPrincipal(c), id, files)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, photos)
}

// DeletePhoto handles PUT /api/v1/facilities/:id/photos/:photoname
func (h *FacilityHandler) DeletePhoto(c *gin.Context) {
	id, err := parseID(c, "id", "facility")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	photos, err := h.facilityService.DetachPhoto(c.Request.Context(), middleware.GetPrincipal(c), id, c.Param("photoname"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, photos)
}

// jsonBinder overlays the request body onto an input prefilled from the
// stored resource
func jsonBinder[T any](c *gin.Context) services.Binder[T] {
	return func(in *T) error {
		if err := c.ShouldBindJSON(in); err != nil {
			return bindError(err)
		}
		return nil
	}
}

func formPhotos(c *gin.Context) ([]services.PhotoUpload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperror.New(apperror.KindValidationFailed, "Please upload a file", err)
	}
	return services.UploadsFromForm(form.File[PhotoFormField]), nil
}
