package httpapi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWT authentication for the peermesh HTTP API. Tokens gate only the
// host-facing management endpoints, never overlay connections.

// JWTClaims represents the JWT token claims
type JWTClaims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// JWTAuth handles JWT token creation and validation
type JWTAuth struct {
	secretKey []byte
	tokenTTL  time.Duration
}

// NewJWTAuth creates a new JWT authentication handler
func NewJWTAuth(secretKey string) *JWTAuth {
	return &JWTAuth{
		secretKey: []byte(secretKey),
		tokenTTL:  24 * time.Hour,
	}
}

// GenerateToken creates a new JWT token for a client
func (j *JWTAuth) GenerateToken(clientID string) (string, time.Time, error) {
	if clientID == "" {
		return "", time.Time{}, errors.New("clientID cannot be empty")
	}

	now := time.Now()
	expiresAt := now.Add(j.tokenTTL)

	claims := JWTClaims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken validates a JWT token and returns the claims
func (j *JWTAuth) ValidateToken(tokenString string) (*JWTClaims, error) {
	if tokenString == "" {
		return nil, errors.New("token cannot be empty")
	}

	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.ClientID == "" {
		return nil, errors.New("token has no client ID")
	}

	return claims, nil
}
