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
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthLogoutSuccess      = "auth.logout_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAuthCodeSent           = "auth.code_sent"
	KeyAuthCodeInvalid        = "auth.code_invalid"
	KeyAuthCodeExpired        = "auth.code_expired"
	KeyAuthCodeSendFailed     = "auth.code_send_failed"
	KeyAuthCodeVerified       = "auth.code_verified"
	KeyAuthResetRequested     = "auth.reset_requested"
	KeyAuthPasswordReset      = "auth.password_reset"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthAccountSuspended   = "auth.account_suspended"
	KeyAuthTooManyAttempts    = "auth.too_many_attempts"
	KeyAuthResetNotVerified   = "auth.reset_not_verified"
	KeyAuthPasswordChanged    = "auth.password_changed"

	// Users
	KeyUserProfileUpdated = "user.profile_updated"
	KeyUserStatusUpdated  = "user.status_updated"

	// Catalog
	KeyProductNotFound  = "product.not_found"
	KeyCategoryNotFound = "category.not_found"
	KeyVariantNotFound  = "variant.not_found"
	KeyProductCreated   = "product.created"
	KeyProductUpdated   = "product.updated"
	KeyProductDeleted   = "product.deleted"
	KeyReviewSubmitted  = "review.submitted"
	KeyProductShared    = "product.shared"
	KeyWhatsAppTracked  = "product.whatsapp_tracked"
	KeyCategoryCreated  = "category.created"
	KeyCategoryUpdated  = "category.updated"
	KeyCategoryDeleted  = "category.deleted"
	KeyItemDeleted      = "item.deleted"

	// Cart
	KeyCartItemAdded    = "cart.item_added"
	KeyCartUpdated      = "cart.updated"
	KeyCartItemRemoved  = "cart.item_removed"
	KeyCartItemNotFound = "cart_item.not_found"
	KeyCartEmpty        = "cart.empty"

	// Orders
	KeyOrderPlaced        = "order.placed"
	KeyOrderFailed        = "order.failed"
	KeyOrderNotFound      = "order.not_found"
	KeyOrderSlipRequired  = "order.slip_required"
	KeyOrderEmailSubject  = "order.email_subject"
	KeyOrderAdminSubject  = "order.admin_subject"
	KeyPaymentIntentReady = "payment.intent_ready"
	KeyPaymentFailed      = "payment.failed"
	KeyPaymentDisabled    = "payment.disabled"
	KeyPaymentConfirmed   = "payment.confirmed"
	KeyOrderStatusUpdated = "order.status_updated"

	// Contact
	KeyContactSent          = "contact.sent"
	KeyContactNotFound      = "contact_message.not_found"
	KeyNotificationNotFound = "notification.not_found"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"

	// Admin
	KeyAdminAccessDenied = "admin.access_denied"
	KeyAdminMarkedRead   = "admin.marked_read"

	// Generic failures
	KeyRequestConflict    = "request.conflict"
	KeyServiceUnavailable = "service.unavailable"
	KeyInternalError      = "internal.error"

	// Rate limiting
	KeyRateLimitExceeded = "rate_limit.exceeded"
)
