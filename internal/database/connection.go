// internal/database/connection.go
package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/servicemart-backend/internal/config"
	"github.com/javajoker/servicemart-backend/internal/models"
)

var DB *gorm.DB

// GormConfig returns the gorm settings shared by the server and the test stores.
// TranslateError turns driver constraint errors into gorm sentinels; timestamps are UTC.
func GormConfig(logLevel string) *gorm.Config {
	mode := logger.Silent
	if logLevel == "info" {
		mode = logger.Info
	}
	return &gorm.Config{
		Logger:         logger.Default.LogMode(mode),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), GormConfig(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithFields(logrus.Fields{"host": cfg.Host, "database": cfg.Database}).Info("Database connection established")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed")
	}
}

// AllModels lists every table owned by the service, in dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.PasswordReset{},
		&models.Partner{},
		&models.PartnerLead{},
		&models.PartnerApplication{},
		&models.ServiceCategory{},
		&models.ServiceSubcategory{},
		&models.Service{},
		&models.TrialService{},
		&models.ServicePartnerAssignment{},
		&models.Order{},
		&models.Announcement{},
		&models.Notification{},
		&models.NewsletterSubscriber{},
		&models.EmailJob{},
		&models.AdminSettings{},
		&models.AuditLog{},
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if db.Dialector.Name() == "postgres" {
		if err := createIndexes(db); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	logrus.Info("Database migrations completed")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// Partners
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_partners_contact_email_lower ON partners(lower(contact_email))",
		"CREATE INDEX IF NOT EXISTS idx_partners_type_status ON partners(partner_type, status)",

		// Users
		"CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users(lower(email))",
		"CREATE INDEX IF NOT EXISTS idx_users_type_status ON users(user_type, status)",

		// Applications and trials
		"CREATE INDEX IF NOT EXISTS idx_partner_applications_date ON partner_applications(application_date DESC)",
		"CREATE INDEX IF NOT EXISTS idx_trial_services_partner_status ON trial_services(partner_id, status)",

		// Catalog
		"CREATE INDEX IF NOT EXISTS idx_services_status_featured ON services(status, featured)",
		"CREATE INDEX IF NOT EXISTS idx_services_created_at ON services(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_services_search ON services USING GIN(to_tsvector('english', title || ' ' || coalesce(description, '')))",

		// Orders
		"CREATE INDEX IF NOT EXISTS idx_orders_buyer_created ON orders(buyer_id, created_at DESC)",

		// Announcements
		"CREATE INDEX IF NOT EXISTS idx_announcements_active ON announcements(start_date, end_date)",

		// Outbox
		"CREATE INDEX IF NOT EXISTS idx_email_jobs_due ON email_jobs(status, next_retry_at)",

		// Audit
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			logrus.WithError(err).WithField("index", index).Warn("Failed to create index")
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// SeedInitialData creates the default admin account, platform settings and categories.
func SeedInitialData(db *gorm.DB, cfg *config.Config) error {
	logrus.Info("Seeding initial data...")

	// Create default admin user
	var adminCount int64
	db.Model(&models.User{}).Where("user_type = ?", models.UserTypeAdmin).Count(&adminCount)

	var adminID *uuid.UUID
	if adminCount == 0 {
		admin := &models.User{
			Email:    "admin@servicemart.io",
			FullName: "System Administrator",
			UserType: models.UserTypeAdmin,
			Status:   models.UserStatusActive,
			ProfileData: models.JSONB{
				"role": "super_admin",
			},
		}

		if err := admin.SetPassword("admin123!@#"); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}
		adminID = &admin.ID

		logrus.Info("Default admin user created")
	}

	defaultSettings := []struct {
		category    string
		key         string
		value       interface{}
		dataType    string
		description string
	}{
		{"general", "platform_name", "ServiceMart", "string", "Platform name displayed to users"},
		{"assignment", "strategy", cfg.Workflow.AssignmentStrategy, "string", "Partner selection strategy: random, round_robin, rating_based or combined"},
		{"trials", "approval_threshold", cfg.Workflow.TrialApprovalThreshold, "integer", "Completed trials required for automatic partner approval"},
		{"payments", "platform_fee_percentage", cfg.Payment.PlatformFeePercent, "float", "Platform fee percentage for orders"},
	}

	for _, s := range defaultSettings {
		var count int64
		db.Model(&models.AdminSettings{}).Where("category = ? AND key = ?", s.category, s.key).Count(&count)
		if count > 0 {
			continue
		}

		raw, err := json.Marshal(s.value)
		if err != nil {
			return fmt.Errorf("failed to encode setting %s.%s: %w", s.category, s.key, err)
		}
		setting := models.AdminSettings{
			Category:    s.category,
			Key:         s.key,
			Value:       models.SettingValue(raw),
			DataType:    s.dataType,
			Description: s.description,
			UpdatedBy:   adminID,
		}
		if err := db.Create(&setting).Error; err != nil {
			logrus.WithError(err).Warnf("Failed to create setting %s.%s", s.category, s.key)
		}
	}

	defaultCategories := []models.ServiceCategory{
		{Name: "Design", Icon: "palette", SortOrder: 1},
		{Name: "Development", Icon: "code", SortOrder: 2},
		{Name: "Marketing", Icon: "megaphone", SortOrder: 3},
		{Name: "Writing", Icon: "pen", SortOrder: 4},
		{Name: "Consulting", Icon: "briefcase", SortOrder: 5},
	}
	for _, category := range defaultCategories {
		var count int64
		db.Model(&models.ServiceCategory{}).Where("name = ?", category.Name).Count(&count)
		if count == 0 {
			if err := db.Create(&category).Error; err != nil {
				logrus.WithError(err).Warnf("Failed to create category %s", category.Name)
			}
		}
	}

	logrus.Info("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
