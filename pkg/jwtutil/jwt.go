package jwtutil

import (
	"errors"
	"time"

	"github.com/BurakKama/fullstack-mobile-app/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.JWTConfig

// ErrNotInitialized is returned when token operations run before Initialize
var ErrNotInitialized = errors.New("jwtutil: not initialized")

// Initialize injects the JWT configuration. Must be called once at startup,
// before any token is issued or validated.
func Initialize(jwtConfig *config.JWTConfig) {
	cfg = jwtConfig
}

// UserClaims represents the access token claims
type UserClaims struct {
	UserID   uint   `json:"user_id"`
	Email    string `json:"email"`
	UserType string `json:"user_type"`
	jwt.RegisteredClaims
}

// RefreshClaims represents the refresh token claims. Carries only the user id
// and the token id used to look the token up in the refresh token registry.
type RefreshClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// GenerateAccessToken creates a short-lived access token carrying the
// user's identity and role.
func GenerateAccessToken(userID uint, email, userType string) (string, error) {
	if cfg == nil {
		return "", ErrNotInitialized
	}

	claims := UserClaims{
		UserID:   userID,
		Email:    email,
		UserType: userType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cfg.AccessExpiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.AccessSigningKey))
}

// GenerateRefreshToken creates a longer-lived refresh token signed with the
// refresh secret. The token id ties it to a row in the refresh token registry.
func GenerateRefreshToken(userID uint, tokenID string) (string, error) {
	if cfg == nil {
		return "", ErrNotInitialized
	}

	claims := RefreshClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cfg.RefreshExpiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.RefreshSigningKey))
}

// ValidateAccessToken validates and parses an access token
func ValidateAccessToken(tokenString string) (*UserClaims, error) {
	if cfg == nil {
		return nil, ErrNotInitialized
	}

	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.AccessSigningKey), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}

// ValidateRefreshToken validates and parses a refresh token
func ValidateRefreshToken(tokenString string) (*RefreshClaims, error) {
	if cfg == nil {
		return nil, ErrNotInitialized
	}

	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.RefreshSigningKey), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*RefreshClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
