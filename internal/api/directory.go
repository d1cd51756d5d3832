package api

import (
	"net/http"

	"donation-api/internal/apperrors"
	"donation-api/internal/models"
	"donation-api/internal/response"
	"donation-api/internal/services"

	"github.com/gin-gonic/gin"
)

// DirectoryHandler serves school, governing body and equipment administration
type DirectoryHandler struct {
	svc      *services.DirectoryService
	resolver services.Directory
}

// NewDirectoryHandler creates a new directory handler. Lookups by ID go through
// resolver so they share the transaction engine's cache.
func NewDirectoryHandler(svc *services.DirectoryService, resolver services.Directory) *DirectoryHandler {
	if resolver == nil {
		resolver = svc
	}
	return &DirectoryHandler{svc: svc, resolver: resolver}
}

// CreateSchoolRequest represents create school request
type CreateSchoolRequest struct {
	Name         string `json:"name" binding:"required"`
	Code         string `json:"code"`
	District     string `json:"district"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email"`
}

// CreateGovernBodyRequest represents create governing body request
type CreateGovernBodyRequest struct {
	Name         string `json:"name" binding:"required"`
	Region       string `json:"region"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email"`
}

// CreateEquipmentRequest represents create equipment request
type CreateEquipmentRequest struct {
	Name        string `json:"name" binding:"required"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

func bindRequest(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.DomainErrorJSON(c, apperrors.WithMetadata(apperrors.CodeValidation,
			"Invalid request format: "+err.Error(), nil))
		return false
	}
	return true
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := toID(c.Param("id"))
	if err != nil {
		response.DomainErrorJSON(c, badField("id", err.Error()))
		return 0, false
	}
	return id, true
}

// CreateSchool creates a new school
func (h *DirectoryHandler) CreateSchool(c *gin.Context) {
	var req CreateSchoolRequest
	if !bindRequest(c, &req) {
		return
	}
	school := &models.School{Name: req.Name, Code: req.Code, District: req.District, ContactEmail: req.ContactEmail}
	if err := h.svc.CreateSchool(c.Request.Context(), school); err != nil {
		response.DomainErrorJSON(c, err)
		return
	}
	response.CreatedJSON(c, "School created successfully", school)
}

// GetSchools gets all schools
func (h *DirectoryHandler) GetSchools(c *gin.Context) {
	schools, err := h.svc.ListSchools(c.Request.Context())
	if err != nil {
		response.DomainErrorJSON(c, err)
		return
	}
	response.SuccessJSON(c, schools)
}

// GetSchool gets a school by ID
func (h *DirectoryHandler) GetSchool(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	school, err := h.resolver.ResolveSchool(c.Request.Context(), id)
	if err != nil {
		response.DomainErrorJSON(c, err)
		return
	}
	response.SuccessJSON(c, school)
}

// CreateGovernBody creates a new governing body
func (h *DirectoryHandler) CreateGovernBody(c *gin.Context) {
	var req CreateGovernBodyRequest
	if !bindRequest(c, &req) {
		return
	}
	body := &models.GovernBody{Name: req.Name, Region: req.Region, ContactEmail: req.ContactEmail}
	if err := h.svc.CreateGovernBody(c.Request.Context(), body); err != nil {
		response.DomainErrorJSON(c, err)
		return
	}
	response.CreatedJSON(c, "Governing body created successfully", body)
}

// GetGovernBodies gets all governing bodies
func (h *DirectoryHandler) GetGovernBodies(c *gin.Context) {
	bodies, err := h.svc.ListGovernBodies(c.Request.Context())
	if err != nil {
		response.DomainErrorJSON(c, err)
		return
	}
	response.SuccessJSON(c, bodies)
}

// GetGovernBody gets a governing body by ID
func (h *DirectoryHandler) GetGovernBody(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	body, err := h.resolver.ResolveGovernBody(c.Request.Context(), id)
	if err != nil {
		response.DomainErrorJSON(c, err)
		return
	}
	response.SuccessJSON(c, body)
}

// CreateEquipment creates a new equipment record
func (h *DirectoryHandler) CreateEquipment(c *gin.Context) {
	var req CreateEquipmentRequest
	if !bindRequest(c, &req) {
		return
	}
	equipment := &models.Equipment{Name: req.Name, Category: req.Category, Description: req.Description}
	if err := h.svc.CreateEquipment(c.Request.Context(), equipment); err != nil {
		response.DomainErrorJSON(c, err)
		return
	}
	response.CreatedJSON(c, "Equipment created successfully", equipment)
}

// GetEquipmentList gets all equipment
func (h *DirectoryHandler) GetEquipmentList(c *gin.Context) {
	equipment, err := h.svc.ListEquipment(c.Request.Context())
	if err != nil {
		response.DomainErrorJSON(c, err)
		return
	}
	response.SuccessJSON(c, equipment)
}

// GetEquipment gets an equipment record by ID
func (h *DirectoryHandler) GetEquipment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	equipment, err := h.resolver.ResolveEquipment(c.Request.Context(), id)
	if err != nil {
		response.DomainErrorJSON(c, err)
		return
	}
	response.SuccessJSON(c, equipment)
}

// Health reports service liveness
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "donation-api",
	})
}
