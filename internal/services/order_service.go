// internal/services/order_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/servicemart-backend/internal/config"
	"github.com/javajoker/servicemart-backend/internal/database"
	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

type OrderService struct {
	db          *gorm.DB
	config      *config.Config
	settings    *AdminService
	assignments *AssignmentService
	payments    *PaymentService
}

type CreateOrderRequest struct {
	ServiceID uuid.UUID `json:"service_id" validate:"required"`
	Notes     string    `json:"notes,omitempty" validate:"max=2000"`
}

type RefundOrderRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

// OrderResult is a created order together with its assignment and payment state.
type OrderResult struct {
	Order        *models.Order `json:"order"`
	Assigned     bool          `json:"assigned"`
	ClientSecret string        `json:"client_secret,omitempty"`
}

type OrderFilter struct {
	utils.PaginationParams
	BuyerID   *uuid.UUID
	PartnerID *uuid.UUID
	ServiceID *uuid.UUID
}

func NewOrderService(db *gorm.DB, cfg *config.Config, settings *AdminService, assignments *AssignmentService, payments *PaymentService) *OrderService {
	return &OrderService{
		db:          db,
		config:      cfg,
		settings:    settings,
		assignments: assignments,
		payments:    payments,
	}
}

// CreateOrder places a pending order and tries to assign it right away. An
// order with no eligible partner stays pending.
func (s *OrderService) CreateOrder(ctx context.Context, buyerID uuid.UUID, req *CreateOrderRequest) (*OrderResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("validation failed: %v", err)
	}

	var service models.Service
	if err := s.db.WithContext(ctx).First(&service, "id = ?", req.ServiceID).Error; err != nil {
		return nil, lookupError(err, "service")
	}
	if service.Status != models.ServiceStatusActive {
		return nil, validationError("service is not available for ordering")
	}

	amount := service.Price
	if service.IsFree {
		amount = 0
	}
	feePercent := s.config.Payment.PlatformFeePercent
	if s.settings != nil {
		feePercent = s.settings.FloatSetting(ctx, SettingCategoryPayments, SettingKeyPlatformFeePercent, feePercent)
	}

	order := &models.Order{
		BuyerID:       buyerID,
		ServiceID:     service.ID,
		Status:        models.OrderStatusPending,
		Amount:        amount,
		PlatformFee:   platformFee(amount, feePercent),
		PaymentStatus: models.PaymentStatusNotRequired,
		Notes:         strings.TrimSpace(req.Notes),
	}

	result := &OrderResult{Order: order}
	if amount > 0 {
		order.PaymentStatus = models.PaymentStatusPending
		intent, err := s.payments.StartPayment(ctx, buyerID, service.ID, amount)
		if err != nil {
			return nil, err
		}
		if intent != nil {
			order.PaymentReference = intent.ID
			result.ClientSecret = intent.ClientSecret
		}
	}

	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, classifyDBError(err, constraintMessages{
			Duplicate: "order already exists",
			Reference: "invalid buyer or service",
			Check:     "validation failed",
		})
	}

	assigned, err := s.assignments.AssignServiceToPartner(ctx, order.ID, service.ID)
	if err != nil {
		logrus.WithError(err).WithField("order_id", order.ID).Warn("order assignment failed, order left pending")
	}
	result.Assigned = assigned

	fresh, err := s.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	result.Order = fresh
	return result, nil
}

// AssignOrder retries partner assignment for a pending order.
func (s *OrderService) AssignOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	return s.assignments.AssignServiceToPartner(ctx, order.ID, order.ServiceID)
}

func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).
		Preload("Service").Preload("Partner").
		First(&order, "id = ?", orderID).Error; err != nil {
		return nil, lookupError(err, "order")
	}
	return &order, nil
}

// GetOrderForUser returns the order when the user is its buyer, the linked
// account of its partner, or an admin.
func (s *OrderService) GetOrderForUser(ctx context.Context, orderID, userID uuid.UUID, userType models.UserType) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userType == models.UserTypeAdmin || order.BuyerID == userID {
		return order, nil
	}
	if order.Partner != nil && order.Partner.UserID != nil && *order.Partner.UserID == userID {
		return order, nil
	}
	return nil, notFound("order")
}

func (s *OrderService) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})
	if filter.BuyerID != nil {
		query = query.Where("buyer_id = ?", *filter.BuyerID)
	}
	if filter.PartnerID != nil {
		query = query.Where("partner_id = ?", *filter.PartnerID)
	}
	if filter.ServiceID != nil {
		query = query.Where("service_id = ?", *filter.ServiceID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	allowedSortFields := []string{"created_at", "amount", "status", "assigned_at"}
	query = utils.ApplySort(query.Preload("Service"), filter.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return orders, total, nil
}

// CompleteOrder closes an assigned order and its assignment together.
func (s *OrderService) CompleteOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusAssigned {
			return newError(ErrInvalidTransition, fmt.Sprintf("cannot complete an order in status %s", order.Status))
		}
		if order.AssignmentID != nil {
			if err := completeAssignment(tx, *order.AssignmentID); err != nil {
				return err
			}
		}
		now := time.Now().UTC()
		return tx.Model(order).Updates(map[string]interface{}{
			"status":       models.OrderStatusCompleted,
			"completed_at": &now,
		}).Error
	})
	if err != nil {
		return nil, classifyDBError(err, defaultConstraintMessages)
	}
	return s.GetOrder(ctx, orderID)
}

// CancelOrder cancels an unpaid order on behalf of its buyer or an admin.
// A claimed assignment becomes available again.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, userID uuid.UUID, isAdmin bool) (*models.Order, error) {
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if !isAdmin && order.BuyerID != userID {
			return notFound("order")
		}
		if order.Status != models.OrderStatusPending && order.Status != models.OrderStatusAssigned {
			return newError(ErrInvalidTransition, fmt.Sprintf("cannot cancel an order in status %s", order.Status))
		}
		if order.PaymentStatus == models.PaymentStatusPaid {
			return newError(ErrInvalidTransition, "paid orders must be refunded")
		}
		if err := releaseAssignment(tx, order); err != nil {
			return err
		}
		now := time.Now().UTC()
		return tx.Model(order).Updates(map[string]interface{}{
			"status":       models.OrderStatusCancelled,
			"cancelled_at": &now,
		}).Error
	})
	if err != nil {
		return nil, classifyDBError(err, defaultConstraintMessages)
	}
	return s.GetOrder(ctx, orderID)
}

// RefundOrder returns payment for a paid order. The gateway refund runs
// before the order is marked refunded.
func (s *OrderService) RefundOrder(ctx context.Context, orderID uuid.UUID, req *RefundOrderRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("validation failed: %v", err)
	}

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != models.PaymentStatusPaid {
		return nil, newError(ErrInvalidTransition, "only paid orders can be refunded")
	}

	if err := s.payments.refundPayment(ctx, order); err != nil {
		return nil, err
	}

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		locked, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if locked.Status == models.OrderStatusAssigned {
			if err := releaseAssignment(tx, locked); err != nil {
				return err
			}
		}
		return tx.Model(locked).Updates(map[string]interface{}{
			"status":         models.OrderStatusRefunded,
			"payment_status": models.PaymentStatusRefunded,
			"refund_reason":  strings.TrimSpace(req.Reason),
		}).Error
	})
	if err != nil {
		return nil, classifyDBError(err, defaultConstraintMessages)
	}

	logrus.WithFields(logrus.Fields{
		"order_id": orderID,
		"amount":   order.Amount,
	}).Info("order refunded")
	return s.GetOrder(ctx, orderID)
}

func lockOrder(tx *gorm.DB, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", orderID).Error; err != nil {
		return nil, lookupError(err, "order")
	}
	return &order, nil
}

func releaseAssignment(tx *gorm.DB, order *models.Order) error {
	if order.AssignmentID == nil {
		return nil
	}
	return tx.Model(&models.ServicePartnerAssignment{}).
		Where("id = ? AND status = ?", *order.AssignmentID, models.AssignmentStatusAssigned).
		Updates(map[string]interface{}{
			"status":   models.AssignmentStatusAvailable,
			"order_id": nil,
		}).Error
}
