// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/javajoker/projectstore/internal/config"
	"github.com/javajoker/projectstore/internal/events"
	"github.com/javajoker/projectstore/internal/handlers"
	"github.com/javajoker/projectstore/internal/middleware"
	"github.com/javajoker/projectstore/internal/services"
	"github.com/javajoker/projectstore/internal/utils"
)

// Infrastructure holds the backends chosen at startup.
type Infrastructure struct {
	Storage    *services.StorageService
	Images     services.ImageHook
	Challenges services.ChallengeStore
	Notifier   *services.NotificationService
	Publisher  events.Publisher
	// Payments overrides the Stripe client when set.
	Payments services.IntentGateway
}

type Services struct {
	Auth    *services.AuthService
	Cart    *services.CartService
	Order   *services.OrderService
	Catalog *services.CatalogService
	Product *services.ProductService
	Contact *services.ContactService
	Payment *services.PaymentService
	User    *services.UserService
	Admin   *services.AdminService
	Sitemap *services.SitemapService
}

func NewServices(db *gorm.DB, cfg *config.Config, infra Infrastructure) *Services {
	cartService := services.NewCartService(db)
	paymentService := services.NewPaymentService(db, cfg)
	if infra.Payments != nil {
		paymentService.WithGateway(infra.Payments)
	}

	return &Services{
		Auth:    services.NewAuthService(db, cfg, infra.Challenges, infra.Notifier, cartService),
		Cart:    cartService,
		Order:   services.NewOrderService(db, infra.Storage, infra.Publisher),
		Catalog: services.NewCatalogService(db),
		Product: services.NewProductService(db, infra.Storage, infra.Images),
		Contact: services.NewContactService(db, infra.Publisher),
		Payment: paymentService,
		User:    services.NewUserService(db),
		Admin:   services.NewAdminService(db),
		Sitemap: services.NewSitemapService(db, infra.Storage, cfg.Frontend),
	}
}

func Initialize(cfg *config.Config, svc *Services) *gin.Engine {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(svc.Auth)
	cartHandler := handlers.NewCartHandler(svc.Cart)
	orderHandler := handlers.NewOrderHandler(svc.Order)
	productHandler := handlers.NewProductHandler(svc.Catalog)
	contactHandler := handlers.NewContactHandler(svc.Contact)
	paymentHandler := handlers.NewPaymentHandler(svc.Payment)
	userHandler := handlers.NewUserHandler(svc.User)
	adminHandler := handlers.NewAdminHandler(svc.Admin, svc.Order, svc.User)
	catalogAdminHandler := handlers.NewCatalogAdminHandler(svc.Product)
	sitemapHandler := handlers.NewSitemapHandler(svc.Sitemap)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	secureCookie := cfg.IsProduction()

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.Session())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	r.GET("/sitemap.xml", sitemapHandler.Sitemap)

	// API v1 routes
	v1 := r.Group("/v1")
	v1.Use(middleware.OptionalAuth())
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", middleware.EnsureSession(secureCookie), authHandler.Register)
			auth.POST("/register/verify", middleware.OTPRateLimit(), authHandler.VerifyRegistration)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", middleware.AuthRequired(), authHandler.Logout)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/password/forgot", middleware.EnsureSession(secureCookie), authHandler.ForgotPassword)
			auth.POST("/password/verify", middleware.OTPRateLimit(), authHandler.VerifyPasswordReset)
			auth.POST("/password/reset", authHandler.ResetPassword)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// User routes
		users := v1.Group("/users")
		users.Use(middleware.AuthRequired())
		{
			users.GET("/profile", userHandler.GetProfile)
			users.PUT("/profile", userHandler.UpdateProfile)
			users.PUT("/password", userHandler.ChangePassword)
			users.GET("/likes", userHandler.GetLikedProducts)
		}

		// Catalog routes
		v1.GET("/products", productHandler.GetProducts)
		v1.GET("/projects", productHandler.GetProjects)
		v1.GET("/search", productHandler.Search)
		v1.GET("/categories/:slug", productHandler.GetCategory)
		v1.GET("/detail/:slug", productHandler.GetProduct)

		products := v1.Group("/products")
		{
			products.POST("/:id/share", productHandler.Share)
			products.POST("/:id/whatsapp", productHandler.WhatsAppOrder)

			// Authenticated routes
			protected := products.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("/:id/like", productHandler.ToggleLike)
				protected.POST("/:id/reviews", productHandler.SubmitReview)
			}
		}

		// Cart routes
		cart := v1.Group("/cart")
		{
			cart.GET("/count", cartHandler.Count)

			session := cart.Group("")
			session.Use(middleware.EnsureSession(secureCookie))
			{
				session.GET("", cartHandler.GetCart)
				session.POST("/items", cartHandler.AddItem)
				session.PUT("/items", cartHandler.UpdateItem)
				session.DELETE("/items/:id", cartHandler.RemoveItem)
			}
		}

		// Order routes
		orders := v1.Group("/orders")
		{
			orders.POST("", middleware.UploadRateLimit(), orderHandler.PlaceOrder)
			orders.GET("/confirmation", orderHandler.Confirmation)
			orders.GET("/history", middleware.AuthRequired(), orderHandler.History)
			orders.GET("/:id", orderHandler.GetOrder)
		}

		// Payment routes
		payments := v1.Group("/payments")
		{
			payments.GET("/config", paymentHandler.GetConfig)
			payments.POST("/intent", paymentHandler.CreatePaymentIntent)
			payments.POST("/confirm", paymentHandler.ConfirmPayment)
		}

		v1.POST("/contact", middleware.AuthRateLimit(), contactHandler.Submit)

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLog(svc.Admin))
		{
			// Dashboard
			admin.GET("/dashboard/stats", adminHandler.GetDashboardStats)

			// User management
			adminUsers := admin.Group("/users")
			{
				adminUsers.GET("", adminHandler.GetUsers)
				adminUsers.PUT("/:id/status", adminHandler.UpdateUserStatus)
			}

			// Catalog management
			categories := admin.Group("/categories")
			{
				categories.GET("", catalogAdminHandler.ListCategories)
				categories.POST("", catalogAdminHandler.CreateCategory)
				categories.PUT("/:id", catalogAdminHandler.UpdateCategory)
				categories.DELETE("/:id", catalogAdminHandler.DeleteCategory)
			}

			adminProducts := admin.Group("/products")
			{
				adminProducts.GET("", catalogAdminHandler.ListProducts)
				adminProducts.POST("", catalogAdminHandler.CreateProduct)
				adminProducts.GET("/:id", catalogAdminHandler.GetProduct)
				adminProducts.PUT("/:id", catalogAdminHandler.UpdateProduct)
				adminProducts.PUT("/:id/image", middleware.UploadRateLimit(), catalogAdminHandler.SetProductImage)
				adminProducts.DELETE("/:id", catalogAdminHandler.DeleteProduct)
				adminProducts.POST("/:id/variants", catalogAdminHandler.CreateVariant)
				adminProducts.POST("/:id/images", middleware.UploadRateLimit(), catalogAdminHandler.AddGalleryImage)
				adminProducts.POST("/:id/specifications", catalogAdminHandler.AddSpecification)
				adminProducts.POST("/:id/features", catalogAdminHandler.AddFeature)
			}

			admin.PUT("/variants/:id", catalogAdminHandler.UpdateVariant)
			admin.PUT("/variants/:id/image", middleware.UploadRateLimit(), catalogAdminHandler.SetVariantImage)
			admin.DELETE("/variants/:id", catalogAdminHandler.DeleteVariant)
			admin.DELETE("/images/:id", catalogAdminHandler.DeleteGalleryImage)
			admin.DELETE("/specifications/:id", catalogAdminHandler.DeleteSpecification)
			admin.DELETE("/features/:id", catalogAdminHandler.DeleteFeature)

			// Orders
			adminOrders := admin.Group("/orders")
			{
				adminOrders.GET("", adminHandler.GetOrders)
				adminOrders.GET("/:id", adminHandler.GetOrder)
				adminOrders.PUT("/:id/payment-status", adminHandler.UpdatePaymentStatus)
			}

			// Contact messages and notifications
			admin.GET("/messages", adminHandler.GetContactMessages)
			admin.PUT("/messages/:id/read", adminHandler.MarkContactMessageRead)
			admin.GET("/notifications", adminHandler.GetNotifications)
			admin.PUT("/notifications/:id/read", adminHandler.MarkNotificationRead)

			admin.GET("/audit-logs", adminHandler.GetAuditLogs)
		}
	}

	// Local media
	if !usesS3(cfg) {
		r.Static(cfg.Media.BaseURL, cfg.Media.Root)
	}

	return r
}

func usesS3(cfg *config.Config) bool {
	return cfg.AWS.AccessKeyID != ""
}
