package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sentinel/internal/api/middleware"
	"sentinel/internal/auth"
	"sentinel/internal/models"
)

// TwoFactorHandler handles HTTP requests for the second-factor lifecycle
type TwoFactorHandler struct {
	authService *auth.Service
}

// NewTwoFactorHandler creates a new two-factor handler
func NewTwoFactorHandler(authService *auth.Service) *TwoFactorHandler {
	return &TwoFactorHandler{authService: authService}
}

// Setup godoc
// @Summary Start 2FA enrollment
// @Description Generate a TOTP secret, QR code and backup codes. 2FA stays disabled until the enable call confirms the authenticator. Running setup again replaces everything.
// @Tags 2fa
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.TwoFactorSetupResponse "Enrollment material"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/2fa/setup [post]
func (h *TwoFactorHandler) Setup(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}

	setup, err := h.authService.SetupTwoFactor(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, setup)
}

// Enable godoc
// @Summary Enable 2FA
// @Description Turn on 2FA after a valid TOTP code proves the authenticator was enrolled
// @Tags 2fa
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.EnableTwoFactorRequest true "TOTP code from the authenticator"
// @Success 200 {object} models.SuccessResponse "2FA enabled"
// @Failure 400 {object} models.ErrorResponse "Setup not started"
// @Failure 401 {object} models.ErrorResponse "Unauthorized or invalid code"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/2fa/enable [post]
func (h *TwoFactorHandler) Enable(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req models.EnableTwoFactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.authService.EnableTwoFactor(c.Request.Context(), user.ID, req.TOTPCode); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "2FA enabled"})
}

// Disable godoc
// @Summary Disable 2FA
// @Description Turn off 2FA, drop the secret and remove the backup codes
// @Tags 2fa
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SuccessResponse "2FA disabled"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/2fa/disable [post]
func (h *TwoFactorHandler) Disable(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}

	if err := h.authService.DisableTwoFactor(c.Request.Context(), user.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "2FA disabled"})
}

// Verify godoc
// @Summary Verify a second factor
// @Description Check a TOTP or backup code outside the login flow. A matching backup code is consumed.
// @Tags 2fa
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.VerifyTwoFactorRequest true "TOTP or backup code"
// @Success 200 {object} models.VerifyTwoFactorResponse "Verification result"
// @Failure 400 {object} models.ErrorResponse "2FA not configured"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/2fa/verify [post]
func (h *TwoFactorHandler) Verify(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req models.VerifyTwoFactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	valid, err := h.authService.VerifyTwoFactor(c.Request.Context(), user.ID, req.TOTPCode, req.BackupCode)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.VerifyTwoFactorResponse{Valid: valid})
}
