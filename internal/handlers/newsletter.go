// internal/handlers/newsletter.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/servicemart-backend/internal/i18n"
	"github.com/javajoker/servicemart-backend/internal/services"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

type NewsletterHandler struct {
	newsletterService *services.NewsletterService
}

func NewNewsletterHandler(newsletterService *services.NewsletterService) *NewsletterHandler {
	return &NewsletterHandler{newsletterService: newsletterService}
}

// POST /newsletter/subscribe
func (h *NewsletterHandler) Subscribe(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.SubscribeRequest
	if !bindJSON(c, &req) {
		return
	}

	subscriber, err := h.newsletterService.Subscribe(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyNewsletterSubscribed),
		"subscriber": subscriber,
	})
}

// GET /newsletter/unsubscribe?email=
// Linked from every newsletter email, so it is a GET.
func (h *NewsletterHandler) Unsubscribe(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	email := c.Query("email")
	if email == "" {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "email"), nil)
		return
	}

	if err := h.newsletterService.Unsubscribe(c.Request.Context(), email); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyNewsletterUnsubscribed)})
}

// GET /newsletter/subscribers
func (h *NewsletterHandler) ListSubscribers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	subscribers, total, err := h.newsletterService.ListSubscribers(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(subscribers, total, params))
}

// POST /newsletter/send
func (h *NewsletterHandler) SendNewsletter(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.SendNewsletterRequest
	if !bindJSON(c, &req) {
		return
	}

	queued, err := h.newsletterService.SendNewsletter(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyNewsletterQueued, queued),
		"queued":  queued,
	})
}
