// internal/handlers/order.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/servicemart-backend/internal/i18n"
	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/services"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

type OrderHandler struct {
	orderService   *services.OrderService
	partnerService *services.PartnerService
}

func NewOrderHandler(orderService *services.OrderService, partnerService *services.PartnerService) *OrderHandler {
	return &OrderHandler{
		orderService:   orderService,
		partnerService: partnerService,
	}
}

// POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.orderService.CreateOrder(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	message := i18n.T(lang, i18n.KeyOrderCreated)
	if !result.Assigned {
		message = i18n.T(lang, i18n.KeyOrderUnassigned)
	}
	utils.CreatedResponse(c, gin.H{
		"message": message,
		"result":  result,
	})
}

// GET /orders
// Buyers see their purchases, partner accounts the orders routed to them and
// admins everything matching the query.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	filter := services.OrderFilter{PaginationParams: utils.GetPaginationParams(c)}

	serviceID, ok := queryUUID(c, "service_id")
	if !ok {
		return
	}
	filter.ServiceID = serviceID

	userType, _ := utils.GetUserTypeFromContext(c)
	switch {
	case userType == string(models.UserTypeAdmin):
		if filter.BuyerID, ok = queryUUID(c, "buyer_id"); !ok {
			return
		}
		if filter.PartnerID, ok = queryUUID(c, "partner_id"); !ok {
			return
		}
	case c.Query("role") == "partner":
		partner, err := h.partnerService.GetPartnerByUser(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		filter.PartnerID = &partner.ID
	default:
		filter.BuyerID = &userID
	}

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(orders, total, filter.PaginationParams))
}

// GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	userType, _ := utils.GetUserTypeFromContext(c)
	order, err := h.orderService.GetOrderForUser(c.Request.Context(), orderID, userID, models.UserType(userType))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"order": order})
}

// POST /orders/:id/assign
func (h *OrderHandler) AssignOrder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	orderID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	assigned, err := h.orderService.AssignOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	message := i18n.T(lang, i18n.KeyOrderAssigned)
	if !assigned {
		message = i18n.T(lang, i18n.KeyOrderUnassigned)
	}
	utils.SuccessResponse(c, gin.H{
		"message":  message,
		"assigned": assigned,
	})
}

// POST /orders/:id/complete
func (h *OrderHandler) CompleteOrder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	orderID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.CompleteOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyOrderCompleted),
		"order":   order,
	})
}

// POST /orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.CancelOrder(c.Request.Context(), orderID, userID, isAdmin(c))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyOrderCancelled),
		"order":   order,
	})
}

// POST /orders/:id/refund
func (h *OrderHandler) RefundOrder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	orderID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.RefundOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.RefundOrder(c.Request.Context(), orderID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyOrderRefunded),
		"order":   order,
	})
}
