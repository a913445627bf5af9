package auth

import (
	"crypto/rsa"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type claim values
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims carries the JWT payload for both access and refresh tokens
type Claims struct {
	Email     string `json:"email,omitempty"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies RS256 JWTs
type TokenIssuer struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenIssuer builds an issuer from PEM-encoded RSA keys
func NewTokenIssuer(privatePEM, publicPEM []byte, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}

	return &TokenIssuer{
		privateKey: privateKey,
		publicKey:  publicKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// NewTokenIssuerFromFiles builds an issuer from PEM key files on disk
func NewTokenIssuerFromFiles(privatePath, publicPath string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	privatePEM, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}

	publicPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}

	return NewTokenIssuer(privatePEM, publicPEM, accessTTL, refreshTTL)
}

// AccessTTL returns the access token lifetime
func (t *TokenIssuer) AccessTTL() time.Duration {
	return t.accessTTL
}

// IssueAccessToken signs a short-lived access token bound to a session
func (t *TokenIssuer) IssueAccessToken(userID uuid.UUID, email, sessionToken string) (string, error) {
	return t.issue(userID, email, TokenTypeAccess, sessionToken, t.accessTTL)
}

// IssueRefreshToken signs a long-lived refresh token bound to a session
func (t *TokenIssuer) IssueRefreshToken(userID uuid.UUID, email, sessionToken string) (string, error) {
	return t.issue(userID, email, TokenTypeRefresh, sessionToken, t.refreshTTL)
}

func (t *TokenIssuer) issue(userID uuid.UUID, email, tokenType, sessionToken string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        sessionToken,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(t.privateKey)
}

// Verify parses and validates a token of the expected type. It returns
// nil on any failure so callers cannot distinguish why a token was
// rejected.
func (t *TokenIssuer) Verify(tokenString, expectedType string) *Claims {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.publicKey, nil
	})
	if err != nil || !token.Valid {
		return nil
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.TokenType != expectedType {
		return nil
	}

	return claims
}
