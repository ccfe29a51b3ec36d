// internal/handlers/admin.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/servicemart-backend/internal/i18n"
	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/services"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

type AdminHandler struct {
	adminService *services.AdminService
}

func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// GET /admin/dashboard/stats
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.adminService.GetDashboardStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"stats": stats,
	})
}

// GET /admin/users
func (h *AdminHandler) GetUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := services.AdminUserFilter{
		PaginationParams: params,
	}

	if userType := c.Query("user_type"); userType != "" {
		uType := models.UserType(userType)
		filter.UserType = &uType
	}

	if status := c.Query("status"); status != "" {
		uStatus := models.UserStatus(status)
		filter.Status = &uStatus
	}

	users, total, err := h.adminService.ListUsers(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(users, total, params)
	utils.PaginatedResponse(c, result)
}

// PUT /admin/users/:id/status
func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	adminID, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		Status models.UserStatus `json:"status" validate:"required,oneof=active suspended"`
	}
	if !bindJSON(c, &req) {
		return
	}

	if err := h.adminService.UpdateUserStatus(c.Request.Context(), userID, req.Status, adminID); err != nil {
		respondError(c, err)
		return
	}

	message := i18n.T(lang, i18n.KeyAdminUserUnsuspended)
	if req.Status == models.UserStatusSuspended {
		message = i18n.T(lang, i18n.KeyAdminUserSuspended)
	}

	utils.SuccessResponse(c, gin.H{
		"message": message,
	})
}

// GET /admin/settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.adminService.GetSettings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"settings": settings,
	})
}

// GET /admin/settings/:category/:key
func (h *AdminHandler) GetSetting(c *gin.Context) {
	var value interface{}
	if err := h.adminService.GetSetting(c.Request.Context(), c.Param("category"), c.Param("key"), &value); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"category": c.Param("category"),
		"key":      c.Param("key"),
		"value":    value,
	})
}

// PUT /admin/settings/:category/:key
func (h *AdminHandler) UpdateSetting(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	adminID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.UpdateSettingRequest
	if !bindJSON(c, &req) {
		return
	}

	setting, err := h.adminService.UpdateSetting(c.Request.Context(), c.Param("category"), c.Param("key"), &req, adminID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAdminSettingsUpdated),
		"setting": setting,
	})
}

// GET /admin/audit-logs
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	logs, total, err := h.adminService.ListAuditLogs(c.Request.Context(), params, c.Query("resource_type"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(logs, total, params))
}
