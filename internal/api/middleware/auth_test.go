package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/auth"
	"sentinel/internal/models"
	"sentinel/internal/testutil"
)

func testIssuer(t *testing.T) *auth.TokenIssuer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubDER,
	})

	issuer, err := auth.NewTokenIssuer(privPEM, pubPEM, 30*time.Minute, 720*time.Hour)
	require.NoError(t, err)
	return issuer
}

func authTestRouter(t *testing.T) (*gin.Engine, *auth.TokenIssuer, *models.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	issuer := testIssuer(t)
	user := &models.User{ID: uuid.New(), Email: "alice@example.com", EmailVerified: true}

	users := testutil.NewMemUserRepo()
	require.NoError(t, users.Create(context.Background(), user))

	m := NewAuthMiddleware(issuer, users)

	router := gin.New()
	router.GET("/protected", m.AuthRequired(), func(c *gin.Context) {
		current, ok := CurrentUser(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{
			"email":         current.Email,
			"session_token": CurrentSessionToken(c),
		})
	})
	return router, issuer, user
}

func TestAuthRequiredAcceptsValidToken(t *testing.T) {
	router, issuer, user := authTestRouter(t)

	token, err := issuer.IssueAccessToken(user.ID, user.Email, "session-1")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice@example.com")
	assert.Contains(t, w.Body.String(), "session-1")
}

func TestAuthRequiredRejectsMissingHeader(t *testing.T) {
	router, _, _ := authTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredRejectsMalformedHeader(t *testing.T) {
	router, _, _ := authTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic abc123")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredRejectsRefreshToken(t *testing.T) {
	router, issuer, user := authTestRouter(t)

	token, err := issuer.IssueRefreshToken(user.ID, user.Email, "session-1")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredRejectsUnknownUser(t *testing.T) {
	router, issuer, _ := authTestRouter(t)

	token, err := issuer.IssueAccessToken(uuid.New(), "ghost@example.com", "session-1")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
