package main

import (
	"context"
	"log"
	"os"
	"time"

	"fleetd/cmd"
	"fleetd/internal/assets"
	"fleetd/internal/auditlog"
	"fleetd/internal/core/logger"
	"fleetd/internal/custody"
	"fleetd/internal/database"
	"fleetd/internal/lifecycle"
	"fleetd/internal/locations"
	"fleetd/internal/middleware"
	"fleetd/internal/people"
	"fleetd/internal/repository"
	"fleetd/internal/users"
	"fleetd/internal/warehouse"
	"fleetd/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load .env file, but don't overwrite system environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, falling back to system environment variables.")
	}

	cmd.Execute(ctx)
}

func main() {
	zapLogger := logger.NewLogger()
	defer zapLogger.Sync()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		zapLogger.Fatal("DATABASE_URL environment variable is not set")
	}

	db, err := database.NewPostgresConnection(dbURL)
	if err != nil {
		zapLogger.Fatal("failed to connect to the database", zap.Error(err))
	}
	defer db.Close()

	zapLogger.Info("connected to the database")

	repo := repository.NewRepository(db)

	auditRepo := auditlog.NewRepository(repo)
	assetRepo := assets.NewRepository(repo)
	custodyRepo := custody.NewRepository(repo)
	personRepo := people.NewRepository(repo)
	locationRepo := locations.NewRepository(repo)
	userRepo := users.NewRepository(repo)

	assetService := assets.NewService(repo, repo, assetRepo, auditRepo, custodyRepo, auditRepo, zapLogger)
	custodyService := custody.NewService(repo, repo, custodyRepo, assetRepo, auditRepo, zapLogger)
	lifecycleService := lifecycle.NewService(repo, repo, assetRepo, custodyRepo, auditRepo, zapLogger)
	warehouseService := warehouse.NewService(repo, repo, assetRepo, custodyRepo, auditRepo, lifecycleService, zapLogger)

	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TimeoutMiddleware(30 * time.Second))
	router.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(100, time.Minute)))

	router.GET("/health", middleware.HealthCheckHandler())

	security.RegisterRoutes(router, repo)
	assets.RegisterRoutes(router, assetService)
	custody.RegisterRoutes(router, custodyService)
	lifecycle.RegisterRoutes(router, lifecycleService)
	warehouse.RegisterRoutes(router, warehouseService, assetRepo)
	auditlog.RegisterRoutes(router, auditRepo)
	people.RegisterRoutes(router, personRepo)
	locations.RegisterRoutes(router, locationRepo)
	users.RegisterRoutes(router, userRepo)

	host := os.Getenv("APP_HOST")
	if host == "" {
		host = ":8080"
	}

	if err := router.Run(host); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}
