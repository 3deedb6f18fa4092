package main

import (
	"portal-service/internal/handler"
	"portal-service/internal/middleware"
	"portal-service/internal/repository"
	"portal-service/internal/tenant"
	"portal-service/pkg/config"
	"portal-service/pkg/database"
	"portal-service/pkg/logger"
	"portal-service/prometheus"

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
	log.Info("Starting portal service...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	if err := database.Initialize(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized")

	// Wire handlers
	users := repository.NewUserRepository(database.GetDB())
	resolver := tenant.NewResolver(database.GetDB(), log)
	authHandler := handler.NewAuthHandler(users)
	itemHandler := handler.NewItemHandler(resolver, cfg.Server.IsProduction())

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// API routes
	api := e.Group("/api")
	api.POST("/auth/login", authHandler.Login)
	api.GET("/items/getItems", itemHandler.GetItems)

	// Get server port from configuration
	port := cfg.Server.Port

	// Start server
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
