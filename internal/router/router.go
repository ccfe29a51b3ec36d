// internal/router/router.go
package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/javajoker/servicemart-backend/internal/config"
	"github.com/javajoker/servicemart-backend/internal/handlers"
	"github.com/javajoker/servicemart-backend/internal/metrics"
	"github.com/javajoker/servicemart-backend/internal/middleware"
	"github.com/javajoker/servicemart-backend/internal/services"
	"github.com/javajoker/servicemart-backend/internal/utils"
)

// Dependencies are the collaborators built outside the router. Nil fields
// fall back to the defaults derived from the config.
type Dependencies struct {
	Outbox  *services.EmailOutbox
	Cache   services.CategoryNameCache
	Gateway services.PaymentGateway
	Storage *services.StorageService
}

func Initialize(db *gorm.DB, cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Outbox == nil {
		deps.Outbox = services.NewEmailOutbox(db, services.NewSMTPMailer(cfg.Email), cfg.Workflow.EmailMaxRetries, cfg.Workflow.EmailBatchSize)
	}
	if deps.Storage == nil {
		storageService, err := services.NewStorageService(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		deps.Storage = storageService
	}

	// Initialize services
	notificationService := services.NewNotificationService(db, cfg)
	adminService := services.NewAdminService(db)
	userService := services.NewUserService(db)
	authService := services.NewAuthService(db, cfg, notificationService, deps.Outbox)
	partnerService := services.NewPartnerService(db, cfg, userService)
	leadService := services.NewLeadService(db)
	applicationService := services.NewApplicationService(db, cfg, partnerService, leadService, notificationService, deps.Outbox)
	trialService := services.NewTrialService(db, cfg, adminService, notificationService)
	catalogService := services.NewCatalogService(db, cfg, deps.Cache)
	assignmentService := services.NewAssignmentService(db, cfg, adminService, notificationService, deps.Outbox)
	paymentService := services.NewPaymentService(db, cfg, deps.Gateway)
	orderService := services.NewOrderService(db, cfg, adminService, assignmentService, paymentService)
	announcementService := services.NewAnnouncementService(db, cfg, notificationService, deps.Outbox)
	newsletterService := services.NewNewsletterService(db, cfg, deps.Outbox)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	partnerHandler := handlers.NewPartnerHandler(partnerService, trialService)
	leadHandler := handlers.NewLeadHandler(leadService)
	applicationHandler := handlers.NewApplicationHandler(applicationService)
	trialHandler := handlers.NewTrialHandler(trialService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	assignmentHandler := handlers.NewAssignmentHandler(assignmentService)
	orderHandler := handlers.NewOrderHandler(orderService, partnerService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, orderService)
	announcementHandler := handlers.NewAnnouncementHandler(announcementService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	newsletterHandler := handlers.NewNewsletterHandler(newsletterService)
	uploadHandler := handlers.NewUploadHandler(deps.Storage)
	adminHandler := handlers.NewAdminHandler(adminService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	r.Use(metrics.Middleware())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	r.GET("/health", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": "1.0.0",
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	auth := middleware.AuthRequired()
	admin := middleware.AdminRequired()

	v1 := r.Group("/v1")
	{
		// Authentication routes
		authGroup := v1.Group("/auth")
		authGroup.Use(middleware.AuthRateLimit())
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/logout", auth, authHandler.Logout)
			authGroup.POST("/refresh", authHandler.RefreshToken)
			authGroup.POST("/forgot-password", authHandler.ForgotPassword)
			authGroup.POST("/reset-password", authHandler.ResetPassword)
			authGroup.GET("/me", auth, authHandler.GetProfile)
		}

		// User routes
		users := v1.Group("/users/me")
		users.Use(auth)
		{
			users.PUT("/profile", userHandler.UpdateProfile)
			users.PUT("/password", userHandler.ChangePassword)
			users.GET("/preferences", userHandler.GetPreferences)
			users.PUT("/preferences", userHandler.SetDashboardMode)
		}

		// Partner routes
		partners := v1.Group("/partners")
		{
			partners.POST("", middleware.PublicFormRateLimit(), partnerHandler.CreatePartner)
			partners.GET("/me", auth, partnerHandler.GetMyPartner)

			managed := partners.Group("")
			managed.Use(auth, admin)
			{
				managed.GET("", partnerHandler.ListPartners)
				managed.GET("/:id", partnerHandler.GetPartner)
				managed.PUT("/:id", partnerHandler.UpdatePartner)
				managed.PUT("/:id/status", partnerHandler.UpdatePartnerStatus)
				managed.POST("/:id/link", partnerHandler.LinkPartnerAccount)
				managed.GET("/:id/trials", partnerHandler.ListPartnerTrials)
				managed.GET("/:id/application", applicationHandler.GetPartnerApplication)
			}
		}

		// Lead routes
		leads := v1.Group("/leads")
		{
			leads.POST("", middleware.PublicFormRateLimit(), leadHandler.CreateLead)
			leads.GET("", auth, admin, leadHandler.ListLeads)
			leads.GET("/:id", auth, admin, leadHandler.GetLead)
		}

		// Application routes
		applications := v1.Group("/applications")
		{
			applications.POST("", middleware.PublicFormRateLimit(), applicationHandler.SubmitApplication)

			review := applications.Group("")
			review.Use(auth, admin)
			{
				review.GET("", applicationHandler.ListApplications)
				review.GET("/:id", applicationHandler.GetApplication)
				review.PUT("/:id/review", applicationHandler.ReviewApplication)
				review.POST("/:id/approve", applicationHandler.ApproveApplication)
				review.POST("/:id/reject", applicationHandler.RejectApplication)
			}
		}

		// Trial routes
		trials := v1.Group("/trials")
		trials.Use(auth, admin)
		{
			trials.POST("", trialHandler.AssignTrial)
			trials.GET("/:id", trialHandler.GetTrial)
			trials.POST("/:id/complete", trialHandler.CompleteTrial)
			trials.POST("/:id/fail", trialHandler.FailTrial)
		}

		// Catalog routes
		catalog := v1.Group("/catalog")
		{
			catalog.GET("/categories", catalogHandler.ListCategories)
			catalog.GET("/categories/:id/subcategories", catalogHandler.ListSubcategories)
			catalog.GET("/services", middleware.OptionalAuth(), catalogHandler.ListServices)
			catalog.GET("/services/:id", middleware.OptionalAuth(), catalogHandler.GetService)

			manage := catalog.Group("")
			manage.Use(auth, admin)
			{
				manage.POST("/categories", catalogHandler.CreateCategory)
				manage.POST("/subcategories", catalogHandler.CreateSubcategory)
				manage.POST("/services", catalogHandler.CreateService)
				manage.PUT("/services/:id", catalogHandler.UpdateService)
				manage.POST("/services/:id/archive", catalogHandler.ArchiveService)
				manage.DELETE("/services/:id", catalogHandler.DeleteService)
			}
		}

		// Assignment routes
		assignments := v1.Group("/assignments")
		assignments.Use(auth, admin)
		{
			assignments.POST("", assignmentHandler.AssignPartner)
			assignments.GET("", assignmentHandler.ListAssignments)
			assignments.GET("/select/:service_id", assignmentHandler.PreviewSelection)
			assignments.POST("/:id/complete", assignmentHandler.CompleteAssignment)
		}

		// Order routes
		orders := v1.Group("/orders")
		orders.Use(auth)
		{
			orders.POST("", orderHandler.CreateOrder)
			orders.GET("", orderHandler.ListOrders)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.POST("/:id/cancel", orderHandler.CancelOrder)
			orders.POST("/:id/payment/confirm", paymentHandler.ConfirmPayment)

			orders.POST("/:id/assign", admin, orderHandler.AssignOrder)
			orders.POST("/:id/complete", admin, orderHandler.CompleteOrder)
			orders.POST("/:id/refund", admin, orderHandler.RefundOrder)
			orders.POST("/:id/mark-paid", admin, paymentHandler.MarkPaid)
		}

		// Announcement routes
		announcements := v1.Group("/announcements")
		{
			announcements.GET("/active", middleware.OptionalAuth(), announcementHandler.ListActive)

			manage := announcements.Group("")
			manage.Use(auth, admin)
			{
				manage.GET("", announcementHandler.ListAnnouncements)
				manage.GET("/:id", announcementHandler.GetAnnouncement)
				manage.POST("", announcementHandler.CreateAnnouncement)
				manage.DELETE("/:id", announcementHandler.DeleteAnnouncement)
			}
		}

		// Notification routes
		notifications := v1.Group("/notifications")
		notifications.Use(auth)
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.PUT("/read-all", notificationHandler.MarkAllRead)
			notifications.PUT("/:id/read", notificationHandler.MarkRead)
		}

		// Newsletter routes
		newsletter := v1.Group("/newsletter")
		{
			newsletter.POST("/subscribe", middleware.PublicFormRateLimit(), newsletterHandler.Subscribe)
			newsletter.GET("/unsubscribe", newsletterHandler.Unsubscribe)
			newsletter.GET("/subscribers", auth, admin, newsletterHandler.ListSubscribers)
			newsletter.POST("/send", auth, admin, newsletterHandler.SendNewsletter)
		}

		uploads := v1.Group("/uploads")
		uploads.Use(auth)
		{
			uploads.POST("", middleware.UploadRateLimit(), uploadHandler.UploadFiles)
			uploads.GET("/presign", uploadHandler.PresignFile)
			uploads.DELETE("", admin, uploadHandler.DeleteFile)
		}

		// Admin routes
		adminGroup := v1.Group("/admin")
		adminGroup.Use(auth, admin)
		{
			adminGroup.GET("/dashboard/stats", adminHandler.GetDashboardStats)
			adminGroup.GET("/users", adminHandler.GetUsers)
			adminGroup.PUT("/users/:id/status", adminHandler.UpdateUserStatus)
			adminGroup.GET("/settings", adminHandler.GetSettings)
			adminGroup.GET("/settings/:category/:key", adminHandler.GetSetting)
			adminGroup.PUT("/settings/:category/:key", adminHandler.UpdateSetting)
			adminGroup.GET("/audit-logs", adminHandler.GetAuditLogs)
		}
	}

	// Local uploads are served from disk when S3 is not configured
	if cfg.AWS.AccessKeyID == "" {
		r.Static("/uploads", cfg.Server.UploadDir)
	}

	return r, nil
}
