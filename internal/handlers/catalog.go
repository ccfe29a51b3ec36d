// internal/handlers/catalog.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/servicemart-backend/internal/i18n"
	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/services"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

type CatalogHandler struct {
	catalogService *services.CatalogService
}

func NewCatalogHandler(catalogService *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// Categories

// GET /catalog/categories
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalogService.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"categories": categories})
}

// POST /catalog/categories
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.catalogService.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyCategoryCreated),
		"category": category,
	})
}

// GET /catalog/categories/:id/subcategories
func (h *CatalogHandler) ListSubcategories(c *gin.Context) {
	categoryID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	subcategories, err := h.catalogService.ListSubcategories(c.Request.Context(), categoryID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"subcategories": subcategories})
}

// POST /catalog/subcategories
func (h *CatalogHandler) CreateSubcategory(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreateSubcategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	subcategory, err := h.catalogService.CreateSubcategory(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeySubcategoryCreated),
		"subcategory": subcategory,
	})
}

// Services

// GET /catalog/services
func (h *CatalogHandler) ListServices(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	filter := services.ServiceFilter{PaginationParams: utils.GetPaginationParams(c)}

	if status := c.Query("status"); status != "" && isAdmin(c) {
		s := models.ServiceStatus(status)
		filter.ServiceStatus = &s
	} else if !isAdmin(c) {
		s := models.ServiceStatusActive
		filter.ServiceStatus = &s
	}
	if serviceType := c.Query("service_type"); serviceType != "" {
		t := models.ServiceType(serviceType)
		filter.ServiceType = &t
	}

	var err error
	if filter.Featured, err = queryBool(c, "featured"); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "featured"), nil)
		return
	}
	if filter.IsFree, err = queryBool(c, "is_free"); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "is_free"), nil)
		return
	}
	if filter.PriceMin, err = queryFloat(c, "price_min"); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "price_min"), nil)
		return
	}
	if filter.PriceMax, err = queryFloat(c, "price_max"); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "price_max"), nil)
		return
	}

	views, total, err := h.catalogService.FetchServices(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(views, total, filter.PaginationParams))
}

// GET /catalog/services/:id
func (h *CatalogHandler) GetService(c *gin.Context) {
	serviceID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	view, err := h.catalogService.GetServiceByID(c.Request.Context(), serviceID)
	if err != nil {
		respondError(c, err)
		return
	}
	if view.Status != models.ServiceStatusActive && !isAdmin(c) {
		utils.NotFoundResponse(c, "service")
		return
	}

	utils.SuccessResponse(c, gin.H{"service": view})
}

// POST /catalog/services
func (h *CatalogHandler) CreateService(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.CreateServiceRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.catalogService.CreateService(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyServiceCreated),
		"service": view,
	})
}

// PUT /catalog/services/:id
func (h *CatalogHandler) UpdateService(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	serviceID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateServiceRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.catalogService.UpdateService(c.Request.Context(), serviceID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyServiceUpdated),
		"service": view,
	})
}

// POST /catalog/services/:id/archive
func (h *CatalogHandler) ArchiveService(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	serviceID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.ArchiveService(c.Request.Context(), serviceID); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyServiceArchived)})
}

// DELETE /catalog/services/:id
func (h *CatalogHandler) DeleteService(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	serviceID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteService(c.Request.Context(), serviceID); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyServiceDeleted)})
}

func queryBool(c *gin.Context, name string) (*bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func queryFloat(c *gin.Context, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
