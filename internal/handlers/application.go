// internal/handlers/application.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/servicemart-backend/internal/i18n"
	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/services"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

type ApplicationHandler struct {
	applicationService *services.ApplicationService
}

func NewApplicationHandler(applicationService *services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applicationService: applicationService}
}

// POST /applications
func (h *ApplicationHandler) SubmitApplication(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.SubmitApplicationRequest
	if !decodeJSON(c, &req) {
		return
	}

	application, err := h.applicationService.SubmitApplication(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyApplicationSubmitted),
		"application": application,
	})
}

// GET /applications
func (h *ApplicationHandler) ListApplications(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	partnerID, ok := queryUUID(c, "partner_id")
	if !ok {
		return
	}

	applications, total, err := h.applicationService.ListApplications(c.Request.Context(), services.ApplicationFilter{
		Status:     models.ApplicationStatus(params.Status),
		PartnerID:  partnerID,
		Pagination: params,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(applications, total, params))
}

// GET /applications/:id
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	applicationID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	application, err := h.applicationService.GetApplication(c.Request.Context(), applicationID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"application": application})
}

// GET /partners/:id/application
func (h *ApplicationHandler) GetPartnerApplication(c *gin.Context) {
	partnerID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	application, err := h.applicationService.GetApplicationByPartner(c.Request.Context(), partnerID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"application": application})
}

// PUT /applications/:id/review
func (h *ApplicationHandler) ReviewApplication(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	applicationID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.ReviewApplicationRequest
	if !bindJSON(c, &req) {
		return
	}

	application, err := h.applicationService.ReviewApplication(c.Request.Context(), applicationID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyApplicationReviewed),
		"application": application,
	})
}

type approveApplicationBody struct {
	AdminNotes string `json:"admin_notes"`
}

type rejectApplicationBody struct {
	Reason     string `json:"reason" validate:"required,rejection_reason"`
	AdminNotes string `json:"admin_notes"`
}

// POST /applications/:id/approve
func (h *ApplicationHandler) ApproveApplication(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	applicationID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req approveApplicationBody
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	outcome, err := h.applicationService.ApproveApplication(c.Request.Context(), applicationID, req.AdminNotes)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyApplicationApproved),
		"outcome": outcome,
	})
}

// POST /applications/:id/reject
func (h *ApplicationHandler) RejectApplication(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	applicationID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req rejectApplicationBody
	if !bindJSON(c, &req) {
		return
	}

	outcome, err := h.applicationService.RejectApplication(c.Request.Context(), applicationID, req.Reason, req.AdminNotes)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyApplicationRejected),
		"outcome": outcome,
	})
}
