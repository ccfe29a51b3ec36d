// internal/handlers/trial.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/servicemart-backend/internal/i18n"
	"github.com/javajoker/servicemart-backend/internal/services"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

type TrialHandler struct {
	trialService *services.TrialService
}

func NewTrialHandler(trialService *services.TrialService) *TrialHandler {
	return &TrialHandler{trialService: trialService}
}

// POST /trials
func (h *TrialHandler) AssignTrial(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.AssignTrialRequest
	if !bindJSON(c, &req) {
		return
	}

	trial, err := h.trialService.AssignTrialService(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyTrialAssigned),
		"trial":   trial,
	})
}

// GET /trials/:id
func (h *TrialHandler) GetTrial(c *gin.Context) {
	trialID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	trial, err := h.trialService.GetTrialService(c.Request.Context(), trialID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"trial": trial})
}

// POST /trials/:id/complete
func (h *TrialHandler) CompleteTrial(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	trialID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.CompleteTrialRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	completion, err := h.trialService.CompleteTrialService(c.Request.Context(), trialID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyTrialCompleted),
		"completion": completion,
	})
}

// POST /trials/:id/fail
func (h *TrialHandler) FailTrial(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	trialID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.FailTrialRequest
	if !bindJSON(c, &req) {
		return
	}

	trial, err := h.trialService.FailTrialService(c.Request.Context(), trialID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyTrialFailed),
		"trial":   trial,
	})
}
