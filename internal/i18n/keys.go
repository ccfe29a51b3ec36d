// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthLogoutSuccess      = "auth.logout_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAuthPasswordReset      = "auth.password_reset"
	KeyAuthPasswordResetDone  = "auth.password_reset_success"

	// Users
	KeyUserProfileUpdated  = "user.profile_updated"
	KeyUserPasswordChanged = "user.password_changed"
	KeyUserNotFound        = "user.not_found"
	KeyUserSuspended       = "user.suspended"

	// Partners
	KeyPartnerCreated  = "partner.created"
	KeyPartnerUpdated  = "partner.updated"
	KeyPartnerNotFound = "partner.not_found"
	KeyPartnerLinked   = "partner.linked"

	// Leads
	KeyLeadCreated  = "lead.created"
	KeyLeadNotFound = "lead.not_found"

	// Applications
	KeyApplicationSubmitted = "application.submitted"
	KeyApplicationApproved  = "application.approved"
	KeyApplicationRejected  = "application.rejected"
	KeyApplicationReviewed  = "application.reviewed"
	KeyApplicationNotFound  = "application.not_found"

	// Trials
	KeyTrialAssigned  = "trial.assigned"
	KeyTrialCompleted = "trial.completed"
	KeyTrialFailed    = "trial.failed"
	KeyTrialNotFound  = "trial.not_found"

	// Catalog
	KeyCategoryCreated    = "category.created"
	KeySubcategoryCreated = "subcategory.created"
	KeyServiceCreated     = "service.created"
	KeyServiceUpdated     = "service.updated"
	KeyServiceArchived    = "service.archived"
	KeyServiceDeleted     = "service.deleted"
	KeyServiceNotFound    = "service.not_found"

	// Assignments
	KeyAssignmentCreated   = "assignment.created"
	KeyAssignmentCompleted = "assignment.completed"
	KeyAssignmentNotFound  = "assignment.not_found"

	// Orders
	KeyOrderCreated    = "order.created"
	KeyOrderAssigned   = "order.assigned"
	KeyOrderUnassigned = "order.unassigned"
	KeyOrderCompleted  = "order.completed"
	KeyOrderCancelled  = "order.cancelled"
	KeyOrderRefunded   = "order.refunded"
	KeyOrderNotFound   = "order.not_found"

	// Payments
	KeyPaymentSuccess = "payment.success"
	KeyPaymentFailed  = "payment.failed"

	// Announcements and notifications
	KeyAnnouncementCreated  = "announcement.created"
	KeyAnnouncementDeleted  = "announcement.deleted"
	KeyAnnouncementNotFound = "announcement.not_found"
	KeyNotificationRead     = "notification.read"
	KeyNotificationNotFound = "notification.not_found"

	// Newsletter
	KeyNewsletterSubscribed   = "newsletter.subscribed"
	KeyNewsletterUnsubscribed = "newsletter.unsubscribed"
	KeyNewsletterQueued       = "newsletter.queued"
	KeySubscriberNotFound     = "subscriber.not_found"

	// Admin
	KeyAdminAccessDenied    = "admin.access_denied"
	KeyAdminUserSuspended   = "admin.user_suspended"
	KeyAdminUserUnsuspended = "admin.user_unsuspended"
	KeyAdminSettingsUpdated = "admin.settings_updated"
	KeySettingNotFound      = "setting.not_found"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
	KeyValidationTooShort = "validation.too_short"
	KeyValidationEmail    = "validation.invalid_email"
	KeyValidationPassword = "validation.invalid_password"

	// File Upload
	KeyFileUploadSuccess = "file.upload_success"
	KeyFileUploadFailed  = "file.upload_failed"
	KeyFileInvalidType   = "file.invalid_type"
	KeyFileTooLarge      = "file.too_large"

	// Generic failures
	KeyRequestTimeout = "request.timeout"
	KeyRateLimited    = "request.rate_limited"
	KeyConflict       = "request.conflict"
)
