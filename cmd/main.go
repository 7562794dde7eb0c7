package main

import (
	"fmt"

	"github.com/BurakKama/fullstack-mobile-app/internal/handler"
	"github.com/BurakKama/fullstack-mobile-app/internal/middleware"
	"github.com/BurakKama/fullstack-mobile-app/internal/model"
	"github.com/BurakKama/fullstack-mobile-app/internal/upload"
	"github.com/BurakKama/fullstack-mobile-app/pkg/config"
	"github.com/BurakKama/fullstack-mobile-app/pkg/database"
	"github.com/BurakKama/fullstack-mobile-app/pkg/jwtutil"
	"github.com/BurakKama/fullstack-mobile-app/pkg/logger"
	"github.com/BurakKama/fullstack-mobile-app/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting marketplace service...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	if err := database.Initialize(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Apply schema migrations before accepting any traffic
	if err := database.Migrate(database.GetDB()); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}
	log.Info("Database migrations applied")

	// Initialize JWT utility with the configured secrets
	jwtutil.Initialize(&cfg.JWT)
	handler.InitAuthHandler(cfg)
	log.Info("JWT utility initialized")

	// Initialize upload storage
	if err := upload.Initialize(&cfg.Upload); err != nil {
		log.Fatal("Failed to initialize upload storage", zap.Error(err))
	}

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized")

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(echomiddleware.BodyLimit(fmt.Sprintf("%dM", cfg.Upload.MaxSizeMB)))
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)
	e.Static(cfg.Upload.URLPrefix, cfg.Upload.Dir)

	// Credential endpoints are rate limited
	authLimiter := middleware.NewRateLimiter(&cfg.RateLimit)

	auth := e.Group("/api/auth")
	auth.POST("/register", handler.Register, authLimiter.Middleware)
	auth.POST("/login", handler.Login, authLimiter.Middleware)
	auth.POST("/refresh-token", handler.RefreshToken)
	auth.GET("/profile", handler.Profile, middleware.Auth)
	auth.PUT("/profile", handler.UpdateProfile, middleware.Auth)
	auth.DELETE("/delete", handler.DeleteSelf, middleware.Auth)

	// Business routes - listing is public, mutation is owner-scoped
	businesses := e.Group("/api/businesses")
	businesses.GET("/all", handler.ListAllBusinesses)
	businesses.GET("/:businessId/products", handler.ListBusinessProducts)
	businesses.GET("", handler.ListOwnBusinesses, middleware.Auth)
	businesses.POST("", handler.CreateBusiness, middleware.Auth, middleware.RequireRole(model.RoleBusiness, model.RoleAdmin))
	businesses.PUT("/update-self", handler.UpdateOwnBusiness, middleware.Auth, middleware.RequireRole(model.RoleBusiness, model.RoleAdmin))
	businesses.DELETE("/delete-self", handler.DeleteOwnBusiness, middleware.Auth, middleware.RequireRole(model.RoleBusiness, model.RoleAdmin))

	// Product routes - catalog is public, mutation is owner-scoped
	products := e.Group("/api/products")
	products.GET("", handler.ListProducts)
	products.GET("/:id", handler.GetProduct)
	products.POST("", handler.CreateProduct, middleware.Auth, middleware.RequireRole(model.RoleBusiness, model.RoleAdmin))
	products.PUT("/:id", handler.UpdateProduct, middleware.Auth, middleware.RequireRole(model.RoleBusiness, model.RoleAdmin))
	products.DELETE("/:id", handler.DeleteProduct, middleware.Auth, middleware.RequireRole(model.RoleBusiness, model.RoleAdmin))
	products.POST("/:id/upload-image", handler.UploadProductImage, middleware.Auth, middleware.RequireRole(model.RoleBusiness, model.RoleAdmin))

	// Admin routes - role admin only, bypass ownership checks
	admin := e.Group("/api/admin", middleware.Auth, middleware.RequireRole(model.RoleAdmin))
	admin.GET("/users", handler.AdminListUsers)
	admin.PUT("/users/:id/role", handler.AdminUpdateUserRole)
	admin.DELETE("/users/:id", handler.AdminDeleteUser)
	admin.GET("/businesses", handler.AdminListBusinesses)
	admin.PUT("/businesses/:id", handler.AdminUpdateBusiness)
	admin.DELETE("/businesses/:id", handler.AdminDeleteBusiness)
	admin.GET("/products", handler.AdminListProducts)
	admin.PUT("/products/:id", handler.AdminUpdateProduct)
	admin.DELETE("/products/:id", handler.AdminDeleteProduct)

	// Start server
	log.Info("Starting server", zap.String("port", cfg.Server.Port))
	if err := e.Start(":" + cfg.Server.Port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
