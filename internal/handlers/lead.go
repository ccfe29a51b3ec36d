// internal/handlers/lead.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/servicemart-backend/internal/i18n"
	"github.com/javajoker/servicemart-backend/internal/services"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

type LeadHandler struct {
	leadService *services.LeadService
}

func NewLeadHandler(leadService *services.LeadService) *LeadHandler {
	return &LeadHandler{leadService: leadService}
}

// POST /leads
func (h *LeadHandler) CreateLead(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreateLeadRequest
	if !bindJSON(c, &req) {
		return
	}

	lead, err := h.leadService.CreateLead(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyLeadCreated),
		"lead":    lead,
	})
}

// GET /leads
func (h *LeadHandler) ListLeads(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	leads, total, err := h.leadService.ListLeads(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(leads, total, params))
}

// GET /leads/:id
func (h *LeadHandler) GetLead(c *gin.Context) {
	leadID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	lead, err := h.leadService.GetLead(c.Request.Context(), leadID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"lead": lead})
}
