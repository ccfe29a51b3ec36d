// internal/services/catalog_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/javajoker/servicemart-backend/internal/config"
	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

// CategoryNameCache holds the category and subcategory id to name map.
// Implementations treat every failure as a miss.
type CategoryNameCache interface {
	Names(ctx context.Context) (map[string]string, bool)
	Store(ctx context.Context, names map[string]string)
	Invalidate(ctx context.Context)
}

type CatalogService struct {
	db     *gorm.DB
	config *config.Config
	cache  CategoryNameCache
}

type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty" validate:"max=50"`
	SortOrder   int    `json:"sort_order"`
}

type CreateSubcategoryRequest struct {
	CategoryID  uuid.UUID `json:"category_id" validate:"required"`
	Name        string    `json:"name" validate:"required,max=100"`
	Description string    `json:"description,omitempty"`
}

type CreateServiceRequest struct {
	Title           string                 `json:"title" validate:"required,min=3,max=255"`
	Description     string                 `json:"description"`
	Price           float64                `json:"price" validate:"min=0"`
	Category        string                 `json:"category" validate:"max=255"`
	Subcategory     string                 `json:"subcategory" validate:"max=255"`
	Features        []string               `json:"features,omitempty"`
	FAQs            []models.FAQ           `json:"faqs,omitempty"`
	ServiceType     models.ServiceType     `json:"service_type" validate:"omitempty,oneof=Project Task Prompt"`
	Status          models.ServiceStatus   `json:"status" validate:"omitempty,oneof=draft active inactive archived"`
	IsFree          bool                   `json:"is_free"`
	Featured        bool                   `json:"featured"`
	ServiceLocation models.ServiceLocation `json:"service_location" validate:"omitempty,oneof=online onsite hybrid both"`
	DeliveryTime    string                 `json:"delivery_time" validate:"max=100"`
	ImageURL        string                 `json:"image_url" validate:"omitempty,url"`
}

type UpdateServiceRequest struct {
	Title           *string                 `json:"title,omitempty" validate:"omitempty,min=3,max=255"`
	Description     *string                 `json:"description,omitempty"`
	Price           *float64                `json:"price,omitempty" validate:"omitempty,min=0"`
	Category        *string                 `json:"category,omitempty" validate:"omitempty,max=255"`
	Subcategory     *string                 `json:"subcategory,omitempty" validate:"omitempty,max=255"`
	Features        []string                `json:"features,omitempty"`
	FAQs            []models.FAQ            `json:"faqs,omitempty"`
	ServiceType     *models.ServiceType     `json:"service_type,omitempty" validate:"omitempty,oneof=Project Task Prompt"`
	Status          *models.ServiceStatus   `json:"status,omitempty" validate:"omitempty,oneof=draft active inactive archived"`
	IsFree          *bool                   `json:"is_free,omitempty"`
	Featured        *bool                   `json:"featured,omitempty"`
	ServiceLocation *models.ServiceLocation `json:"service_location,omitempty" validate:"omitempty,oneof=online onsite hybrid both"`
	DeliveryTime    *string                 `json:"delivery_time,omitempty" validate:"omitempty,max=100"`
	ImageURL        *string                 `json:"image_url,omitempty" validate:"omitempty,url"`
}

type ServiceFilter struct {
	utils.PaginationParams
	ServiceStatus *models.ServiceStatus `json:"status,omitempty"`
	ServiceType   *models.ServiceType   `json:"service_type,omitempty"`
	Featured      *bool                 `json:"featured,omitempty"`
	IsFree        *bool                 `json:"is_free,omitempty"`
	PriceMin      *float64              `json:"price_min,omitempty"`
	PriceMax      *float64              `json:"price_max,omitempty"`
}

// ServiceView is a service with its category references resolved to names.
type ServiceView struct {
	models.Service
	Category            string `json:"category"`
	Subcategory         string `json:"subcategory"`
	HasAvailablePartner bool   `json:"has_available_partner"`
}

func NewCatalogService(db *gorm.DB, cfg *config.Config, cache CategoryNameCache) *CatalogService {
	return &CatalogService{
		db:     db,
		config: cfg,
		cache:  cache,
	}
}

// Categories

func (s *CatalogService) CreateCategory(ctx context.Context, req *CreateCategoryRequest) (*models.ServiceCategory, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("validation failed: %v", err)
	}

	category := &models.ServiceCategory{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Icon:        req.Icon,
		SortOrder:   req.SortOrder,
	}
	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, classifyDBError(err, constraintMessages{
			Duplicate: "category already exists",
			Reference: "invalid category",
			Check:     "validation failed",
		})
	}

	s.invalidateNames(ctx)
	return category, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.ServiceCategory, error) {
	var categories []models.ServiceCategory
	if err := s.db.WithContext(ctx).Order("sort_order ASC, name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *CatalogService) CreateSubcategory(ctx context.Context, req *CreateSubcategoryRequest) (*models.ServiceSubcategory, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("validation failed: %v", err)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ServiceCategory{}).Where("id = ?", req.CategoryID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to look up category: %w", err)
	}
	if count == 0 {
		return nil, newError(ErrInvalidReference, "invalid category")
	}

	subcategory := &models.ServiceSubcategory{
		CategoryID:  req.CategoryID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}
	if err := s.db.WithContext(ctx).Create(subcategory).Error; err != nil {
		return nil, classifyDBError(err, constraintMessages{
			Duplicate: "subcategory already exists",
			Reference: "invalid category",
			Check:     "validation failed",
		})
	}

	s.invalidateNames(ctx)
	return subcategory, nil
}

func (s *CatalogService) ListSubcategories(ctx context.Context, categoryID uuid.UUID) ([]models.ServiceSubcategory, error) {
	var subcategories []models.ServiceSubcategory
	if err := s.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order("name ASC").
		Find(&subcategories).Error; err != nil {
		return nil, fmt.Errorf("failed to list subcategories: %w", err)
	}
	return subcategories, nil
}

// Services

func (s *CatalogService) CreateService(ctx context.Context, createdBy uuid.UUID, req *CreateServiceRequest) (*ServiceView, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("validation failed: %v", err)
	}

	ctx, cancel := boundedContext(ctx, s.config.Workflow.WriteTimeout)
	defer cancel()

	categoryRef, err := s.categoryRefForName(ctx, req.Category)
	if err != nil {
		return nil, err
	}
	subcategoryRef, err := s.subcategoryRefForName(ctx, categoryRef, req.Subcategory)
	if err != nil {
		return nil, err
	}

	service := &models.Service{
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Price:           req.Price,
		Category:        storedCategory(categoryRef),
		Subcategory:     storedCategory(subcategoryRef),
		Features:        datatypes.NewJSONSlice(compactLinks(req.Features)),
		FAQs:            datatypes.NewJSONSlice(compactFAQs(req.FAQs)),
		ServiceType:     req.ServiceType,
		Status:          req.Status,
		IsFree:          req.IsFree,
		Featured:        req.Featured,
		ServiceLocation: req.ServiceLocation,
		DeliveryTime:    strings.TrimSpace(req.DeliveryTime),
		ImageURL:        req.ImageURL,
		CreatedBy:       &createdBy,
	}
	if service.ServiceType == "" {
		service.ServiceType = models.ServiceTypeProject
	}
	if service.Status == "" {
		service.Status = models.ServiceStatusDraft
	}
	if service.ServiceLocation == "" {
		service.ServiceLocation = models.ServiceLocationOnline
	}
	if service.IsFree {
		service.Price = 0
	}

	if err := s.db.WithContext(ctx).Create(service).Error; err != nil {
		return nil, classifyWriteError(ctx, err, defaultConstraintMessages)
	}

	logrus.WithFields(logrus.Fields{
		"service_id": service.ID,
		"created_by": createdBy,
	}).Info("service created")

	return s.GetServiceByID(ctx, service.ID)
}

func (s *CatalogService) UpdateService(ctx context.Context, serviceID uuid.UUID, req *UpdateServiceRequest) (*ServiceView, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("validation failed: %v", err)
	}

	ctx, cancel := boundedContext(ctx, s.config.Workflow.WriteTimeout)
	defer cancel()

	var service models.Service
	if err := s.db.WithContext(ctx).First(&service, "id = ?", serviceID).Error; err != nil {
		return nil, lookupError(err, "service")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}

	categoryRef := ParseCategoryRef(service.Category)
	if req.Category != nil {
		ref, err := s.categoryRefForName(ctx, *req.Category)
		if err != nil {
			return nil, err
		}
		categoryRef = ref
		updates["category"] = storedCategory(ref)
	}
	if req.Subcategory != nil {
		ref, err := s.subcategoryRefForName(ctx, categoryRef, *req.Subcategory)
		if err != nil {
			return nil, err
		}
		updates["subcategory"] = storedCategory(ref)
	}

	if req.Features != nil {
		updates["features"] = datatypes.NewJSONSlice(compactLinks(req.Features))
	}
	if req.FAQs != nil {
		updates["faqs"] = datatypes.NewJSONSlice(compactFAQs(req.FAQs))
	}
	if req.ServiceType != nil {
		updates["service_type"] = *req.ServiceType
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.IsFree != nil {
		updates["is_free"] = *req.IsFree
		if *req.IsFree {
			updates["price"] = 0
		}
	}
	if req.Featured != nil {
		updates["featured"] = *req.Featured
	}
	if req.ServiceLocation != nil {
		updates["service_location"] = *req.ServiceLocation
	}
	if req.DeliveryTime != nil {
		updates["delivery_time"] = strings.TrimSpace(*req.DeliveryTime)
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&service).Updates(updates).Error; err != nil {
			return nil, classifyWriteError(ctx, err, defaultConstraintMessages)
		}
	}

	return s.GetServiceByID(ctx, serviceID)
}

func (s *CatalogService) GetServiceByID(ctx context.Context, serviceID uuid.UUID) (*ServiceView, error) {
	var service models.Service
	if err := s.db.WithContext(ctx).First(&service, "id = ?", serviceID).Error; err != nil {
		return nil, lookupError(err, "service")
	}

	names, err := s.categoryNames(ctx)
	if err != nil {
		return nil, err
	}
	available, err := s.HasAvailablePartner(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	view := toServiceView(service, names)
	view.HasAvailablePartner = available
	return &view, nil
}

// FetchServices lists services. A category filter matches both the category
// row id and its literal name.
func (s *CatalogService) FetchServices(ctx context.Context, filter ServiceFilter) ([]ServiceView, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Service{})

	if filter.ServiceStatus != nil {
		query = query.Where("status = ?", *filter.ServiceStatus)
	}
	if filter.ServiceType != nil {
		query = query.Where("service_type = ?", *filter.ServiceType)
	}
	if filter.Featured != nil {
		query = query.Where("featured = ?", *filter.Featured)
	}
	if filter.IsFree != nil {
		query = query.Where("is_free = ?", *filter.IsFree)
	}
	if filter.PriceMin != nil {
		query = query.Where("price >= ?", *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		query = query.Where("price <= ?", *filter.PriceMax)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		values := []string{category}
		ref, err := s.categoryRefForName(ctx, category)
		if err != nil {
			return nil, 0, err
		}
		if stored := storedCategory(ref); stored != category {
			values = append(values, stored)
		}
		if id, ok := ref.(CategoryByID); ok {
			var row models.ServiceCategory
			if err := s.db.WithContext(ctx).Select("name").First(&row, "id = ?", id.ID).Error; err == nil {
				values = append(values, row.Name)
			}
		}
		query = query.Where("category IN ?", values)
	}
	if filter.Search != "" {
		searchTerm := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", searchTerm, searchTerm)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count services: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "title", "price"}
	query = utils.ApplySort(query, filter.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var services []models.Service
	if err := query.Find(&services).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch services: %w", err)
	}

	names, err := s.categoryNames(ctx)
	if err != nil {
		return nil, 0, err
	}
	available, err := s.availableServiceIDs(ctx, services)
	if err != nil {
		return nil, 0, err
	}

	views := make([]ServiceView, 0, len(services))
	for _, service := range services {
		view := toServiceView(service, names)
		view.HasAvailablePartner = available[service.ID]
		views = append(views, view)
	}
	return views, total, nil
}

// ArchiveService hides a service from buyers without deleting it.
func (s *CatalogService) ArchiveService(ctx context.Context, serviceID uuid.UUID) error {
	result := s.db.WithContext(ctx).Model(&models.Service{}).
		Where("id = ?", serviceID).
		Update("status", models.ServiceStatusArchived)
	if result.Error != nil {
		return fmt.Errorf("failed to archive service: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("service")
	}
	return nil
}

// DeleteService soft-deletes a service that has never been ordered.
func (s *CatalogService) DeleteService(ctx context.Context, serviceID uuid.UUID) error {
	var orders int64
	if err := s.db.WithContext(ctx).Model(&models.Order{}).Where("service_id = ?", serviceID).Count(&orders).Error; err != nil {
		return fmt.Errorf("failed to count orders: %w", err)
	}
	if orders > 0 {
		return newError(ErrInvalidTransition, "service has orders; archive it instead")
	}

	result := s.db.WithContext(ctx).Delete(&models.Service{}, "id = ?", serviceID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete service: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("service")
	}
	return nil
}

// HasAvailablePartner reports whether an approved partner can take orders for the service.
func (s *CatalogService) HasAvailablePartner(ctx context.Context, serviceID uuid.UUID) (bool, error) {
	var count int64
	err := eligibleAssignments(s.db.WithContext(ctx), serviceID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check partner availability: %w", err)
	}
	return count > 0, nil
}

func (s *CatalogService) availableServiceIDs(ctx context.Context, services []models.Service) (map[uuid.UUID]bool, error) {
	available := make(map[uuid.UUID]bool, len(services))
	if len(services) == 0 {
		return available, nil
	}
	ids := make([]uuid.UUID, 0, len(services))
	for _, service := range services {
		ids = append(ids, service.ID)
	}

	var rows []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.ServicePartnerAssignment{}).
		Joins("JOIN partners ON partners.id = service_partner_assignments.partner_id").
		Where("service_partner_assignments.service_id IN ?", ids).
		Where("service_partner_assignments.status = ? AND partners.status = ?",
			models.AssignmentStatusAvailable, models.PartnerStatusApproved).
		Distinct().
		Pluck("service_partner_assignments.service_id", &rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check partner availability: %w", err)
	}
	for _, id := range rows {
		available[id] = true
	}
	return available, nil
}

// categoryRefForName maps a caller-supplied category to what is stored: the
// row id when a category with exactly that name exists, else the literal name.
func (s *CatalogService) categoryRefForName(ctx context.Context, value string) (CategoryRef, error) {
	ref := ParseCategoryRef(value)
	name, ok := ref.(CategoryByName)
	if !ok {
		return ref, nil
	}

	var category models.ServiceCategory
	err := s.db.WithContext(ctx).Where("name = ?", name.Name).First(&category).Error
	switch {
	case err == nil:
		return CategoryByID{ID: category.ID}, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return name, nil
	default:
		return nil, fmt.Errorf("failed to resolve category: %w", err)
	}
}

func (s *CatalogService) subcategoryRefForName(ctx context.Context, category CategoryRef, value string) (CategoryRef, error) {
	ref := ParseCategoryRef(value)
	name, ok := ref.(CategoryByName)
	if !ok {
		return ref, nil
	}

	query := s.db.WithContext(ctx).Where("name = ?", name.Name)
	if id, ok := category.(CategoryByID); ok {
		query = query.Where("category_id = ?", id.ID)
	}

	var subcategory models.ServiceSubcategory
	err := query.First(&subcategory).Error
	switch {
	case err == nil:
		return CategoryByID{ID: subcategory.ID}, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return name, nil
	default:
		return nil, fmt.Errorf("failed to resolve subcategory: %w", err)
	}
}

// categoryNames returns the id to name map for categories and subcategories,
// served from the cache when present.
func (s *CatalogService) categoryNames(ctx context.Context) (map[string]string, error) {
	if s.cache != nil {
		if names, ok := s.cache.Names(ctx); ok {
			return names, nil
		}
	}

	var categories []models.ServiceCategory
	if err := s.db.WithContext(ctx).Select("id", "name").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	var subcategories []models.ServiceSubcategory
	if err := s.db.WithContext(ctx).Select("id", "name").Find(&subcategories).Error; err != nil {
		return nil, fmt.Errorf("failed to load subcategories: %w", err)
	}

	names := make(map[string]string, len(categories)+len(subcategories))
	for _, c := range categories {
		names[c.ID.String()] = c.Name
	}
	for _, sc := range subcategories {
		names[sc.ID.String()] = sc.Name
	}

	if s.cache != nil {
		s.cache.Store(ctx, names)
	}
	return names, nil
}

func (s *CatalogService) invalidateNames(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func toServiceView(service models.Service, names map[string]string) ServiceView {
	return ServiceView{
		Service:     service,
		Category:    displayName(ParseCategoryRef(service.Category), names),
		Subcategory: displayName(ParseCategoryRef(service.Subcategory), names),
	}
}

func compactFAQs(faqs []models.FAQ) []models.FAQ {
	out := make([]models.FAQ, 0, len(faqs))
	for _, faq := range faqs {
		q, a := strings.TrimSpace(faq.Question), strings.TrimSpace(faq.Answer)
		if q == "" && a == "" {
			continue
		}
		out = append(out, models.FAQ{Question: q, Answer: a})
	}
	return out
}

// eligibleAssignments selects available assignments whose partner is approved.
func eligibleAssignments(db *gorm.DB, serviceID uuid.UUID) *gorm.DB {
	return db.Model(&models.ServicePartnerAssignment{}).
		Joins("JOIN partners ON partners.id = service_partner_assignments.partner_id").
		Where("service_partner_assignments.service_id = ?", serviceID).
		Where("service_partner_assignments.status = ? AND partners.status = ?",
			models.AssignmentStatusAvailable, models.PartnerStatusApproved)
}
