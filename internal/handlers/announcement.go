// internal/handlers/announcement.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/servicemart-backend/internal/i18n"
	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/services"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

type AnnouncementHandler struct {
	announcementService *services.AnnouncementService
}

func NewAnnouncementHandler(announcementService *services.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{announcementService: announcementService}
}

// GET /announcements/active
// Anonymous callers see announcements targeted at everyone.
func (h *AnnouncementHandler) ListActive(c *gin.Context) {
	group := models.UserGroupAll
	if userType, ok := utils.GetUserTypeFromContext(c); ok {
		group = services.GroupForUserType(models.UserType(userType))
	}

	announcements, err := h.announcementService.FetchActiveAnnouncements(c.Request.Context(), time.Now().UTC(), group)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"announcements": announcements})
}

// GET /announcements
func (h *AnnouncementHandler) ListAnnouncements(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	announcements, total, err := h.announcementService.ListAnnouncements(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(announcements, total, params))
}

// GET /announcements/:id
func (h *AnnouncementHandler) GetAnnouncement(c *gin.Context) {
	announcementID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	announcement, err := h.announcementService.GetAnnouncement(c.Request.Context(), announcementID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"announcement": announcement})
}

// POST /announcements
func (h *AnnouncementHandler) CreateAnnouncement(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.CreateAnnouncementRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.announcementService.CreateAnnouncement(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAnnouncementCreated),
		"result":  result,
	})
}

// DELETE /announcements/:id
func (h *AnnouncementHandler) DeleteAnnouncement(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	announcementID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.announcementService.DeleteAnnouncement(c.Request.Context(), announcementID); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyAnnouncementDeleted)})
}
