package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"poolride/internal/config"
	"poolride/internal/handlers"
	"poolride/internal/middleware"
	"poolride/internal/models"
	"poolride/internal/repositories/mongodb"
	"poolride/internal/services"
	"poolride/pkg/cache"
	"poolride/pkg/database"
	"poolride/pkg/logger"
	"poolride/pkg/websocket"
	"poolride/routes"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: cfg.App.LogFormat,
		Output: "stdout",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Connect to MongoDB and run migrations
	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Close()

	migrator := database.NewMigrator(db.Database)
	if err := migrator.Up(); err != nil {
		appLogger.Fatalf("Failed to run migrations: %v", err)
	}

	// Connect to Redis
	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLogger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisCache.Close()

	cacheService := services.NewCacheService(redisCache)

	// Initialize repositories
	rideRepo := mongodb.NewRideRepository(db.Database, cacheService)
	userRepo := mongodb.NewUserRepository(db.Database)
	cityRepo := mongodb.NewCityRepository(db.Database)
	eventRepo := mongodb.NewEventRepository(db.Database)

	// Initialize websocket hub. Ride rooms are joinable by participants and
	// admins only.
	wsHandler := websocket.NewHandler(func(ctx context.Context, userID primitive.ObjectID, role string, rideID primitive.ObjectID) bool {
		if role == string(models.RoleAdmin) {
			return true
		}
		ride, err := rideRepo.GetByID(ctx, rideID)
		if err != nil {
			return false
		}
		return ride.IsParticipant(userID)
	})

	// Initialize services
	statsService := services.NewStatsService(eventRepo, userRepo, cityRepo, appLogger)
	poolingService := services.NewPoolingService(rideRepo, statsService, appLogger)
	rideService := services.NewRideService(
		rideRepo, userRepo, cityRepo,
		poolingService, statsService, cacheService,
		wsHandler, appLogger,
	)

	// Initialize handlers
	rideHandler := handlers.NewRideHandler(rideService)

	// Initialize Gin router
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(appLogger))

	// API routes
	v1 := router.Group("/api/v1")
	{
		routes.SetupRideRoutes(v1, rideHandler, cfg.Security.JWTSecret)
	}
	routes.SetupWebSocketRoutes(router, wsHandler, cfg.Security.JWTSecret)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if err := db.Ping(); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": cfg.App.Version,
		})
	})

	// Start server
	addr := fmt.Sprintf(":%d", cfg.App.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		appLogger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Errorf("Forced shutdown: %v", err)
	}
}
