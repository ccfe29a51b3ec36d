// internal/handlers/partner.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/servicemart-backend/internal/i18n"
	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/services"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

type PartnerHandler struct {
	partnerService *services.PartnerService
	trialService   *services.TrialService
}

func NewPartnerHandler(partnerService *services.PartnerService, trialService *services.TrialService) *PartnerHandler {
	return &PartnerHandler{
		partnerService: partnerService,
		trialService:   trialService,
	}
}

// POST /partners
func (h *PartnerHandler) CreatePartner(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreatePartnerRequest
	if !bindJSON(c, &req) {
		return
	}

	partner, err := h.partnerService.CreatePartner(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPartnerCreated),
		"partner": partner,
	})
}

// GET /partners
func (h *PartnerHandler) ListPartners(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	filter := services.PartnerFilter{
		Status:      models.PartnerStatus(params.Status),
		PartnerType: models.PartnerType(c.Query("partner_type")),
		Pagination:  params,
	}

	partners, total, err := h.partnerService.ListPartners(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(partners, total, params))
}

// GET /partners/me
func (h *PartnerHandler) GetMyPartner(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	partner, err := h.partnerService.GetPartnerByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"partner": partner})
}

// GET /partners/:id
func (h *PartnerHandler) GetPartner(c *gin.Context) {
	partnerID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	partner, err := h.partnerService.GetPartner(c.Request.Context(), partnerID)
	if err != nil {
		respondError(c, err)
		return
	}

	completed, err := h.trialService.GetCompletedTrialCount(c.Request.Context(), partnerID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"partner":          partner,
		"completed_trials": completed,
	})
}

// PUT /partners/:id
func (h *PartnerHandler) UpdatePartner(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	partnerID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.UpdatePartnerRequest
	if !bindJSON(c, &req) {
		return
	}

	partner, err := h.partnerService.UpdatePartner(c.Request.Context(), partnerID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPartnerUpdated),
		"partner": partner,
	})
}

// PUT /partners/:id/status
func (h *PartnerHandler) UpdatePartnerStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	partnerID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status models.PartnerStatus `json:"status" validate:"required,oneof=pending approved rejected"`
	}
	if !bindJSON(c, &req) {
		return
	}

	partner, err := h.partnerService.UpdatePartnerStatus(c.Request.Context(), partnerID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPartnerUpdated),
		"partner": partner,
	})
}

type linkAccountBody struct {
	Email string `json:"email" validate:"required,email"`
}

func (b *linkAccountBody) Normalize() {
	b.Email = strings.ToLower(strings.TrimSpace(b.Email))
}

// POST /partners/:id/link
func (h *PartnerHandler) LinkPartnerAccount(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	partnerID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req linkAccountBody
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.partnerService.LinkPartnerAccount(c.Request.Context(), partnerID, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPartnerLinked),
		"result":  result,
	})
}

// GET /partners/:id/trials
func (h *PartnerHandler) ListPartnerTrials(c *gin.Context) {
	partnerID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	trials, err := h.trialService.ListTrialServices(c.Request.Context(), partnerID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"trials": trials})
}
