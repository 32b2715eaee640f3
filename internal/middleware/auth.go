// internal/middleware/auth.go
package middleware

import (
	"strings"

	"github.com/javajoker/projectstore/internal/i18n"
	"github.com/javajoker/projectstore/internal/models"
	"github.com/javajoker/projectstore/internal/utils"

	"github.com/gin-gonic/gin"
)

// bearerClaims returns the validated claims of the request's bearer token.
func bearerClaims(c *gin.Context) (*utils.JWTClaims, bool, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, false, nil
	}

	// Extract token from "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, true, utils.ErrInvalidToken
	}

	claims, err := utils.ValidateJWT(parts[1])
	if err != nil {
		return nil, true, err
	}
	return claims, true, nil
}

func setClaims(c *gin.Context, claims *utils.JWTClaims) {
	c.Set("user_id", claims.UserID)
	c.Set("username", claims.Username)
	c.Set("role", claims.Role)
}

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)

		claims, present, err := bearerClaims(c)
		if !present {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthRequired))
			c.Abort()
			return
		}
		if err != nil {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := utils.GetRoleFromContext(c)
		if !exists || role != string(models.UserRoleAdmin) {
			utils.ForbiddenResponse(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuth sets the user when a valid token is sent and otherwise
// lets the request through as anonymous.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _, err := bearerClaims(c)
		if claims != nil && err == nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}
