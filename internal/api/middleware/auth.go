package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"sentinel/internal/auth"
	"sentinel/internal/models"
	"sentinel/internal/repository"
)

// Context keys set by AuthRequired
const (
	ContextUserKey         = "user"
	ContextSessionTokenKey = "session_token"
)

type AuthMiddleware struct {
	tokens   *auth.TokenIssuer
	userRepo repository.UserRepository
}

func NewAuthMiddleware(tokens *auth.TokenIssuer, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:   tokens,
		userRepo: userRepo,
	}
}

// AuthRequired validates the bearer access token and loads the account
// into the request context
func (m *AuthMiddleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no authorization header"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			c.Abort()
			return
		}

		claims := m.tokens.Verify(parts[1], auth.TokenTypeAccess)
		if claims == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
			c.Abort()
			return
		}

		user, err := m.userRepo.GetByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextSessionTokenKey, claims.ID)

		c.Next()
	}
}

// CurrentUser returns the account loaded by AuthRequired
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}

// CurrentSessionToken returns the session token bound to the caller's
// access token
func CurrentSessionToken(c *gin.Context) string {
	return c.GetString(ContextSessionTokenKey)
}
