// internal/handlers/assignment.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/servicemart-backend/internal/i18n"
	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/services"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

type AssignmentHandler struct {
	assignmentService *services.AssignmentService
}

func NewAssignmentHandler(assignmentService *services.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService}
}

// POST /assignments
func (h *AssignmentHandler) AssignPartner(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.AssignPartnerRequest
	if !bindJSON(c, &req) {
		return
	}

	assignment, err := h.assignmentService.AssignPartnerToService(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyAssignmentCreated),
		"assignment": assignment,
	})
}

// GET /assignments
func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	serviceID, ok := queryUUID(c, "service_id")
	if !ok {
		return
	}
	partnerID, ok := queryUUID(c, "partner_id")
	if !ok {
		return
	}

	assignments, err := h.assignmentService.ListAssignments(c.Request.Context(), services.AssignmentFilter{
		ServiceID: serviceID,
		PartnerID: partnerID,
		Status:    models.AssignmentStatus(c.Query("status")),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"assignments": assignments,
		"strategy":    h.assignmentService.Strategy(c.Request.Context()),
	})
}

// GET /assignments/select/:service_id
// Previews which partner the active strategy would pick without assigning.
func (h *AssignmentHandler) PreviewSelection(c *gin.Context) {
	serviceID, ok := paramUUID(c, "service_id")
	if !ok {
		return
	}

	partnerID, err := h.assignmentService.SelectPartnerForService(c.Request.Context(), serviceID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"partner_id": partnerID,
		"strategy":   h.assignmentService.Strategy(c.Request.Context()),
	})
}

// POST /assignments/:id/complete
func (h *AssignmentHandler) CompleteAssignment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	assignmentID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	assignment, err := h.assignmentService.CompleteAssignment(c.Request.Context(), assignmentID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyAssignmentCompleted),
		"assignment": assignment,
	})
}
