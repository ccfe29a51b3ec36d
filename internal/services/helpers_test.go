package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/servicemart-backend/internal/config"
	"github.com/javajoker/servicemart-backend/internal/database/dbtest"
	"github.com/javajoker/servicemart-backend/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		JWT: config.JWTConfig{
			SecretKey:       "test-secret",
			AccessTokenTTL:  1,
			RefreshTokenTTL: 24,
		},
		Payment: config.PaymentConfig{
			Currency:           "usd",
			PlatformFeePercent: 10,
		},
		Email: config.EmailConfig{
			FromEmail: "noreply@servicemart.test",
			FromName:  "ServiceMart",
		},
		Frontend: config.FrontendConfig{BaseURL: "https://app.servicemart.test"},
		Workflow: config.WorkflowConfig{
			WriteTimeout:           5 * time.Second,
			TrialApprovalThreshold: 3,
			AssignmentStrategy:     StrategyRandom,
			EmailMaxRetries:        3,
			EmailDispatchSchedule:  "@every 1m",
			EmailBatchSize:         10,
		},
	}
}

// fakeMailer records sent messages and fails while err is set.
type fakeMailer struct {
	mu   sync.Mutex
	sent []EmailMessage
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) failWith(msg string) {
	m.mu.Lock()
	m.err = errors.New(msg)
	m.mu.Unlock()
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// testEnv wires every service over one in-memory store.
type testEnv struct {
	db            *gorm.DB
	cfg           *config.Config
	mailer        *fakeMailer
	outbox        *EmailOutbox
	notifications *NotificationService
	admin         *AdminService
	auth          *AuthService
	users         *UserService
	partners      *PartnerService
	leads         *LeadService
	applications  *ApplicationService
	trials        *TrialService
	catalog       *CatalogService
	assignments   *AssignmentService
	payments      *PaymentService
	orders        *OrderService
	announcements *AnnouncementService
	newsletter    *NewsletterService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := dbtest.New(t)
	cfg := testConfig()
	mailer := &fakeMailer{}

	env := &testEnv{db: db, cfg: cfg, mailer: mailer}
	env.outbox = NewEmailOutbox(db, mailer, cfg.Workflow.EmailMaxRetries, cfg.Workflow.EmailBatchSize)
	env.notifications = NewNotificationService(db, cfg)
	env.admin = NewAdminService(db)
	env.auth = NewAuthService(db, cfg, env.notifications, env.outbox)
	env.users = NewUserService(db)
	env.partners = NewPartnerService(db, cfg, env.users)
	env.leads = NewLeadService(db)
	env.applications = NewApplicationService(db, cfg, env.partners, env.leads, env.notifications, env.outbox)
	env.trials = NewTrialService(db, cfg, env.admin, env.notifications)
	env.catalog = NewCatalogService(db, cfg, nil)
	env.assignments = NewAssignmentService(db, cfg, env.admin, env.notifications, env.outbox)
	env.payments = NewPaymentService(db, cfg, nil)
	env.orders = NewOrderService(db, cfg, env.admin, env.assignments, env.payments)
	env.announcements = NewAnnouncementService(db, cfg, env.notifications, env.outbox)
	env.newsletter = NewNewsletterService(db, cfg, env.outbox)
	return env
}

func createUser(t *testing.T, db *gorm.DB, email string, userType models.UserType) *models.User {
	t.Helper()
	user := &models.User{
		Email:         email,
		FullName:      "Test User",
		UserType:      userType,
		Status:        models.UserStatusActive,
		DashboardMode: models.DashboardModeBuyer,
	}
	require.NoError(t, user.SetPassword("Passw0rd!"))
	require.NoError(t, db.Create(user).Error)
	return user
}

func createPartner(t *testing.T, db *gorm.DB, email string, status models.PartnerStatus) *models.Partner {
	t.Helper()
	partner := &models.Partner{
		PartnerType:  models.PartnerTypeAgency,
		BusinessName: "Acme Studio",
		ContactName:  "Ada",
		ContactEmail: email,
		Status:       status,
	}
	require.NoError(t, db.Create(partner).Error)
	return partner
}

func createService(t *testing.T, db *gorm.DB, title string, price float64) *models.Service {
	t.Helper()
	service := &models.Service{
		Title:           title,
		Price:           price,
		ServiceType:     models.ServiceTypeProject,
		Status:          models.ServiceStatusActive,
		ServiceLocation: models.ServiceLocationOnline,
	}
	require.NoError(t, db.Create(service).Error)
	return service
}

func createAssignment(t *testing.T, db *gorm.DB, serviceID, partnerID uuid.UUID) *models.ServicePartnerAssignment {
	t.Helper()
	assignment := &models.ServicePartnerAssignment{
		ServiceID:      serviceID,
		PartnerID:      partnerID,
		Status:         models.AssignmentStatusAvailable,
		CommissionType: models.PartnerTypeAgency,
	}
	require.NoError(t, db.Create(assignment).Error)
	return assignment
}

func createOrder(t *testing.T, db *gorm.DB, buyerID, serviceID uuid.UUID) *models.Order {
	t.Helper()
	order := &models.Order{
		BuyerID:       buyerID,
		ServiceID:     serviceID,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusNotRequired,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func strPtr(v string) *string { return &v }
