// internal/services/payment_service.go
package services

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"
	"gorm.io/gorm"

	"github.com/javajoker/servicemart-backend/internal/config"
	"github.com/javajoker/servicemart-backend/internal/models"
)

// PaymentGateway is the card processor used for paid orders.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (*PaymentIntent, error)
	PaymentIntentStatus(ctx context.Context, paymentIntentID string) (string, error)
	Refund(ctx context.Context, paymentIntentID string, amount float64) error
}

type PaymentIntent struct {
	ID           string `json:"payment_id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// StripeGateway implements PaymentGateway with Stripe payment intents.
type StripeGateway struct{}

func NewStripeGateway(cfg config.PaymentConfig) *StripeGateway {
	stripe.Key = cfg.StripeSecretKey
	return &StripeGateway{}
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toCents(amount)),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

func (g *StripeGateway) PaymentIntentStatus(ctx context.Context, paymentIntentID string) (string, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := paymentintent.Get(paymentIntentID, params)
	if err != nil {
		return "", fmt.Errorf("failed to get payment intent: %w", err)
	}
	return string(pi.Status), nil
}

func (g *StripeGateway) Refund(ctx context.Context, paymentIntentID string, amount float64) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Amount:        stripe.Int64(toCents(amount)),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("failed to process refund: %w", err)
	}
	return nil
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// PaymentService tracks the payment state of orders. A nil gateway means
// payments are not configured and paid orders wait for manual settlement.
type PaymentService struct {
	db      *gorm.DB
	config  *config.Config
	gateway PaymentGateway
}

func NewPaymentService(db *gorm.DB, cfg *config.Config, gateway PaymentGateway) *PaymentService {
	return &PaymentService{
		db:      db,
		config:  cfg,
		gateway: gateway,
	}
}

func (s *PaymentService) Enabled() bool {
	return s.gateway != nil
}

// StartPayment opens a payment intent for an order amount.
func (s *PaymentService) StartPayment(ctx context.Context, buyerID, serviceID uuid.UUID, amount float64) (*PaymentIntent, error) {
	if !s.Enabled() {
		return nil, nil
	}
	currency := s.config.Payment.Currency
	if currency == "" {
		currency = "usd"
	}
	return s.gateway.CreatePaymentIntent(ctx, amount, currency, map[string]string{
		"buyer_id":   buyerID.String(),
		"service_id": serviceID.String(),
	})
}

// ConfirmPayment syncs an order's payment status from the gateway.
func (s *PaymentService) ConfirmPayment(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		return nil, lookupError(err, "order")
	}
	if order.PaymentStatus != models.PaymentStatusPending {
		return &order, nil
	}
	if order.PaymentReference == "" || !s.Enabled() {
		return nil, validationError("order has no payment to confirm")
	}

	status, err := s.gateway.PaymentIntentStatus(ctx, order.PaymentReference)
	if err != nil {
		return nil, err
	}
	if status != string(stripe.PaymentIntentStatusSucceeded) {
		return &order, nil
	}

	if err := s.db.WithContext(ctx).Model(&order).Update("payment_status", models.PaymentStatusPaid).Error; err != nil {
		return nil, fmt.Errorf("failed to update order payment: %w", err)
	}
	order.PaymentStatus = models.PaymentStatusPaid
	return &order, nil
}

// MarkPaid records a manual settlement by an admin.
func (s *PaymentService) MarkPaid(ctx context.Context, orderID uuid.UUID, reference string) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		return nil, lookupError(err, "order")
	}
	if order.PaymentStatus != models.PaymentStatusPending {
		return nil, newError(ErrInvalidTransition, fmt.Sprintf("cannot mark payment %s as paid", order.PaymentStatus))
	}

	updates := map[string]interface{}{"payment_status": models.PaymentStatusPaid}
	if reference != "" {
		updates["payment_reference"] = reference
	}
	if err := s.db.WithContext(ctx).Model(&order).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update order payment: %w", err)
	}
	order.PaymentStatus = models.PaymentStatusPaid
	if reference != "" {
		order.PaymentReference = reference
	}
	return &order, nil
}

// refundPayment returns the money for a paid order. Orders settled outside
// the gateway are refunded manually.
func (s *PaymentService) refundPayment(ctx context.Context, order *models.Order) error {
	if order.PaymentReference == "" || !s.Enabled() {
		return nil
	}
	return s.gateway.Refund(ctx, order.PaymentReference, order.Amount)
}

func platformFee(amount, percent float64) float64 {
	if amount <= 0 || percent <= 0 {
		return 0
	}
	return math.Round(amount*percent) / 100
}

