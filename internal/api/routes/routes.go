// Package routes handles the setup and configuration of API routes
package routes

import (
	"database/sql"

	"github.com/gin-gonic/gin"

	"sentinel/internal/api/handlers"
	"sentinel/internal/api/middleware"
	"sentinel/internal/auth"
	"sentinel/internal/config"
	"sentinel/internal/email"
	"sentinel/internal/ratelimit"
	"sentinel/internal/repository/postgres"
)

// SetupRoutes configures all API routes and their handlers
func SetupRoutes(cfg *config.Config, db *sql.DB, tokens *auth.TokenIssuer, limiter *ratelimit.Limiter) *gin.Engine {
	r := gin.Default()

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	backupCodeRepo := postgres.NewBackupCodeRepository(db)
	loginAttemptRepo := postgres.NewLoginAttemptRepository(db)

	// Initialize services
	emailService := email.NewService(&cfg.Email)
	authService := auth.NewService(
		cfg,
		tokens,
		auth.NewTwoFactorManager(cfg.TwoFactor.Issuer),
		userRepo,
		sessionRepo,
		backupCodeRepo,
		loginAttemptRepo,
		emailService,
	)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(tokens, userRepo)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(limiter, &cfg.RateLimit)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	authHandler := handlers.NewAuthHandler(authService)
	twoFactorHandler := handlers.NewTwoFactorHandler(authService)

	// Apply the global per-IP limit to everything
	r.Use(rateLimitMiddleware.Global())

	loginLimit := rateLimitMiddleware.PerRoute(cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow.Seconds())

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Health check (no authentication required)
		v1.GET("/health", healthHandler.Health)

		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", loginLimit, authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.GET("/verify-email", authHandler.VerifyEmail)
			authGroup.POST("/resend-verification", authHandler.ResendVerification)

			// Routes requiring authentication
			protected := authGroup.Group("", authMiddleware.AuthRequired())
			{
				protected.POST("/logout", authHandler.Logout)
				protected.POST("/logout-all", authHandler.LogoutAll)
				protected.GET("/me", authHandler.Me)
				protected.GET("/sessions", authHandler.Sessions)
			protected.DELETE("/sessions/:id", authHandler.RevokeSession)
				protected.POST("/password/change", authHandler.ChangePassword)

				twofa := protected.Group("/2fa")
				{
					twofa.POST("/setup", twoFactorHandler.Setup)
					twofa.POST("/enable", twoFactorHandler.Enable)
					twofa.POST("/disable", twoFactorHandler.Disable)
					twofa.POST("/verify", twoFactorHandler.Verify)
				}
			}
		}
	}

	return r
}
