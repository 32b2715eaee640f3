// internal/utils/jwt.go
package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	tokenIssuer     = "projectstore"
	refreshAudience = "refresh"
)

// JWTClaims are the claims of an access token.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

var jwtSecret = []byte("your-secret-key-change-in-production")

var ErrInvalidToken = errors.New("invalid token")

func SetJWTSecret(secret string) {
	jwtSecret = []byte(secret)
}

// registeredClaims fills the standard claims for a token valid for ttlHours.
func registeredClaims(userID uuid.UUID, ttlHours int, audience ...string) jwt.RegisteredClaims {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlHours) * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    tokenIssuer,
		Subject:   userID.String(),
	}
	if len(audience) > 0 {
		claims.Audience = audience
	}
	return claims
}

func sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
}

// parse verifies signature, expiry and issuer and fills claims.
func parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// GenerateJWT issues an access token.
func GenerateJWT(userID uuid.UUID, username, role string, ttlHours int) (string, error) {
	return sign(JWTClaims{
		UserID:           userID.String(),
		Username:         username,
		Role:             role,
		RegisteredClaims: registeredClaims(userID, ttlHours),
	})
}

// ValidateJWT accepts access tokens only; refresh tokens carry an audience.
func ValidateJWT(tokenString string) (*JWTClaims, error) {
	var claims JWTClaims
	if err := parse(tokenString, &claims); err != nil {
		return nil, err
	}
	if claims.Issuer != tokenIssuer || len(claims.Audience) > 0 || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// GenerateRefreshToken issues a refresh token whose subject is the user ID.
func GenerateRefreshToken(userID uuid.UUID, ttlHours int) (string, error) {
	return sign(registeredClaims(userID, ttlHours, refreshAudience))
}

// ValidateRefreshToken returns the user ID of a valid refresh token.
func ValidateRefreshToken(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	if err := parse(tokenString, &claims); err != nil {
		return "", err
	}
	if claims.Issuer != tokenIssuer || !claims.VerifyAudience(refreshAudience, true) {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
