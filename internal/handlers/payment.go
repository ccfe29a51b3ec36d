// internal/handlers/payment.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/servicemart-backend/internal/i18n"
	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/services"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
	orderService   *services.OrderService
}

func NewPaymentHandler(paymentService *services.PaymentService, orderService *services.OrderService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		orderService:   orderService,
	}
}

// POST /orders/:id/payment/confirm
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	userType, _ := utils.GetUserTypeFromContext(c)
	if _, err := h.orderService.GetOrderForUser(c.Request.Context(), orderID, userID, models.UserType(userType)); err != nil {
		respondError(c, err)
		return
	}

	order, err := h.paymentService.ConfirmPayment(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	key := i18n.KeyPaymentSuccess
	if order.PaymentStatus != models.PaymentStatusPaid && order.PaymentStatus != models.PaymentStatusNotRequired {
		key = i18n.KeyPaymentFailed
	}
	utils.SuccessResponse(c, gin.H{
		"message":         i18n.T(lang, key),
		"order":           order,
		"gateway_enabled": h.paymentService.Enabled(),
	})
}

// POST /orders/:id/mark-paid
func (h *PaymentHandler) MarkPaid(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	orderID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Reference string `json:"reference" validate:"max=255"`
	}
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	order, err := h.paymentService.MarkPaid(c.Request.Context(), orderID, req.Reference)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPaymentSuccess),
		"order":   order,
	})
}
