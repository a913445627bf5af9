// Package main provides the entry point for the Sentinel API server
// @title Sentinel API
// @version 1.0
// @description Authentication and session management API.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token authentication
// @Security BearerAuth
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"sentinel/internal/api/routes"
	"sentinel/internal/auth"
	"sentinel/internal/config"
	"sentinel/internal/database"
	"sentinel/internal/maintenance"
	"sentinel/internal/ratelimit"
	"sentinel/internal/repository/postgres"
	"sentinel/internal/validation"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Parse command line flags
	envFile := flag.String("env", ".env", "Path to env file")
	flag.Parse()

	// Load environment file
	if err := godotenv.Load(*envFile); err != nil && *envFile == ".env" {
		log.Printf("Warning: %v", err)
	}

	// Load configuration
	cfg := &config.Config{}
	if err := cfg.LoadFromEnv(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.Database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize validators
	validation.Initialize()

	// Load signing keys
	tokens, err := auth.NewTokenIssuerFromFiles(
		cfg.Auth.PrivateKeyPath,
		cfg.Auth.PublicKeyPath,
		cfg.Auth.AccessTokenDuration,
		cfg.Auth.RefreshTokenDuration,
	)
	if err != nil {
		log.Fatalf("Failed to load signing keys: %v", err)
	}

	// Connect the rate-limit store. No address means rate limiting is off.
	limiter := ratelimit.NewLimiter(nil, cfg.Redis.Timeout)
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		limiter = ratelimit.NewLimiter(redisClient, cfg.Redis.Timeout)
	} else {
		log.Println("REDIS_ADDR not set, rate limiting disabled")
	}

	// Start background cleanup of expired sessions and old login attempts
	maintenanceManager := maintenance.NewManager(
		postgres.NewSessionRepository(db),
		postgres.NewLoginAttemptRepository(db),
	)
	if err := maintenanceManager.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start maintenance jobs: %v", err)
	}
	defer maintenanceManager.Stop()

	// Setup routes
	router := routes.SetupRoutes(cfg, db, tokens, limiter)

	// Convert port string to int
	port, err := strconv.Atoi(cfg.API.Port)
	if err != nil {
		log.Fatalf("Invalid port number: %v", err)
	}

	// Create server with graceful shutdown
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on port %d", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 5 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
