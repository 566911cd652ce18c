package controller

import (
	"net/http"

	"jobdispatch-backend/models"
	"jobdispatch-backend/services"
	"jobdispatch-backend/utils/logger"

	"github.com/gin-gonic/gin"
)

type TechnicianController struct {
	technicianService services.TechnicianServiceInterface
	logger            logger.Logger
	validator         *requestValidator
}

func NewTechnicianController(technicianService services.TechnicianServiceInterface, log logger.Logger) *TechnicianController {
	return &TechnicianController{
		technicianService: technicianService,
		logger:            log,
		validator:         newRequestValidator(),
	}
}

// GetTechnicians handles GET /api/v1/technicians
func (h *TechnicianController) GetTechnicians(c *gin.Context) {
	filter := models.TechnicianFilter{
		Availability: models.AvailabilityStatus(c.Query("availability")),
		Skill:        c.Query("skill"),
		Search:       c.Query("search"),
	}
	if filter.Availability != "" && !filter.Availability.IsValid() {
		respondBadRequest(c, "Invalid technician filter", "unknown availability", map[string]string{
			"availability": "unknown availability " + string(filter.Availability),
		})
		return
	}

	technicians, err := h.technicianService.GetTechnicians(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, "Failed to get technicians", err)
		return
	}

	respondOK(c, http.StatusOK, "Technicians retrieved successfully", gin.H{
		"technicians": technicians,
		"total":       len(technicians),
	})
}

// GetTechnician handles GET /api/v1/technicians/:id
func (h *TechnicianController) GetTechnician(c *gin.Context) {
	technician, err := h.technicianService.GetTechnician(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "Failed to get technician", err)
		return
	}

	respondOK(c, http.StatusOK, "Technician retrieved successfully", technician)
}

// CreateTechnician handles POST /api/v1/technicians
func (h *TechnicianController) CreateTechnician(c *gin.Context) {
	var req models.CreateTechnicianRequest
	if !bindJSON(c, h.validator, h.logger, &req) {
		return
	}

	technician, err := h.technicianService.CreateTechnician(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, "Failed to create technician", err)
		return
	}

	respondOK(c, http.StatusCreated, "Technician created successfully", technician)
}

// UpdateTechnician handles PATCH /api/v1/technicians/:id
func (h *TechnicianController) UpdateTechnician(c *gin.Context) {
	var req models.UpdateTechnicianRequest
	if !bindJSON(c, h.validator, h.logger, &req) {
		return
	}

	technician, err := h.technicianService.UpdateTechnician(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, "Failed to update technician", err)
		return
	}

	respondOK(c, http.StatusOK, "Technician updated successfully", technician)
}

// ReconcileCapacity handles POST /api/v1/technicians/reconcile
func (h *TechnicianController) ReconcileCapacity(c *gin.Context) {
	report, err := h.technicianService.ReconcileCapacity(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "Failed to reconcile technician capacity", err)
		return
	}

	respondOK(c, http.StatusOK, "Technician capacity reconciled", report)
}
