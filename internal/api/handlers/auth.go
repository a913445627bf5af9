package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"sentinel/internal/api/middleware"
	"sentinel/internal/auth"
	"sentinel/internal/models"
)

// AuthHandler handles HTTP requests for authentication and account management
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// respondError maps service errors to HTTP statuses. Anything unmapped
// is an internal error and its detail stays out of the response.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidSession),
		errors.Is(err, auth.ErrInvalidTwoFactor):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrEmailNotVerified), errors.Is(err, auth.ErrRegistrationClosed):
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrAccountLocked):
		c.JSON(http.StatusLocked, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrEmailExists):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrSamePassword),
		errors.Is(err, auth.ErrTwoFactorNotConfigured),
		errors.Is(err, auth.ErrInvalidVerification),
		errors.Is(err, auth.ErrVerificationExpired):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "internal server error"})
	}
}

func requestMeta(c *gin.Context) auth.RequestMeta {
	return auth.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
}

// Register godoc
// @Summary Register a new account
// @Description Create an unverified account and send the verification email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Registration data"
// @Success 201 {object} models.SuccessResponse "Account created"
// @Failure 400 {object} models.ErrorResponse "Invalid request or weak password"
// @Failure 403 {object} models.ErrorResponse "Registration closed"
// @Failure 409 {object} models.ErrorResponse "Email already registered"
// @Failure 429 {object} models.ErrorResponse "Rate limit exceeded"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if _, err := h.authService.Register(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.SuccessResponse{
		Message: "account created, check your email to verify the address",
	})
}

// Login godoc
// @Summary Log in
// @Description Authenticate and return the token pair. When 2FA is enabled and no second factor was supplied, the response carries requires_2fa=true with empty tokens.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Credentials with optional second factor"
// @Success 200 {object} models.TokenResponse "Login successful or second factor required"
// @Failure 400 {object} models.ErrorResponse "Invalid request format"
// @Failure 401 {object} models.ErrorResponse "Invalid credentials or 2FA code"
// @Failure 403 {object} models.ErrorResponse "Email not verified"
// @Failure 423 {object} models.ErrorResponse "Account temporarily locked"
// @Failure 429 {object} models.ErrorResponse "Rate limit exceeded"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.authService.Authenticate(c.Request.Context(), &req, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}

	if result.RequiresTwoFactor {
		c.JSON(http.StatusOK, models.TokenResponse{
			TokenType:         "bearer",
			RequiresTwoFactor: true,
		})
		return
	}

	tokens, err := h.authService.CreateSession(c.Request.Context(), result.User, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// Refresh godoc
// @Summary Refresh the access token
// @Description Exchange a valid refresh token for a new access token. The refresh token stays the same.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RefreshRequest true "Refresh token"
// @Success 200 {object} models.TokenResponse "New access token"
// @Failure 400 {object} models.ErrorResponse "Invalid request format"
// @Failure 401 {object} models.ErrorResponse "Invalid or expired session"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	tokens, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// Logout godoc
// @Summary Log out
// @Description Revoke the session bound to the refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.LogoutRequest true "Refresh token"
// @Success 200 {object} models.SuccessResponse "Logged out"
// @Failure 400 {object} models.ErrorResponse "Invalid request format"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req models.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), user.ID, req.RefreshToken); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "logged out"})
}

// LogoutAll godoc
// @Summary Log out everywhere
// @Description Revoke every active session for the account
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SuccessResponse "All sessions revoked"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}

	if err := h.authService.LogoutAll(c.Request.Context(), user.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "all sessions revoked"})
}

// Me godoc
// @Summary Get the current account
// @Description Return the authenticated user's profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserProfile "Current account"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, models.UserProfile{
		ID:               user.ID.String(),
		Name:             user.Name,
		Email:            user.Email,
		EmailVerified:    user.EmailVerified,
		TwoFactorEnabled: user.TwoFactorEnabled,
		LastLoginAt:      user.LastLoginAt,
		CreatedAt:        user.CreatedAt,
	})
}

// Sessions godoc
// @Summary List active sessions
// @Description List the account's active sessions, marking the one that made this request
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.SessionInfo "Active sessions"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/sessions [get]
func (h *AuthHandler) Sessions(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}

	sessions, err := h.authService.Sessions(c.Request.Context(), user.ID, middleware.CurrentSessionToken(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// RevokeSession godoc
// @Summary Revoke a session
// @Description Revoke one of the caller's sessions by the id returned from the sessions listing
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Success 200 {object} models.SuccessResponse "Session revoked"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 404 {object} models.ErrorResponse "Session not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/sessions/{id} [delete]
func (h *AuthHandler) RevokeSession(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}

	if err := h.authService.RevokeSession(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "session revoked"})
}

// ChangePassword godoc
// @Summary Change password
// @Description Replace the password after verifying the current one. Every session is revoked afterwards.
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} models.SuccessResponse "Password changed"
// @Failure 400 {object} models.ErrorResponse "Weak or unchanged password"
// @Failure 401 {object} models.ErrorResponse "Current password incorrect"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/password/change [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "password changed, log in again"})
}

// VerifyEmail godoc
// @Summary Verify an email address
// @Description Confirm the address behind a verification token
// @Tags auth
// @Produce json
// @Param token query string true "Verification token"
// @Success 200 {object} models.SuccessResponse "Email verified"
// @Failure 400 {object} models.ErrorResponse "Invalid or expired token"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/verify-email [get]
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "missing verification token"})
		return
	}

	if err := h.authService.VerifyEmail(c.Request.Context(), token); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "email verified, you can now log in"})
}

// ResendVerification godoc
// @Summary Resend the verification email
// @Description Issue a fresh verification token. The response is the same whether or not the address exists.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.ResendVerificationRequest true "Email address"
// @Success 200 {object} models.SuccessResponse "Verification email sent if the address exists"
// @Failure 400 {object} models.ErrorResponse "Invalid request format"
// @Failure 429 {object} models.ErrorResponse "Rate limit exceeded"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req models.ResendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.authService.ResendVerification(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "if the address exists, a new verification link was sent",
	})
}
