// internal/middleware/session.go
package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/projectstore/internal/models"
	"github.com/javajoker/projectstore/internal/utils"
)

const (
	SessionCookie = "session_key"
	SessionHeader = "X-Session-Key"

	sessionKeyLength = 40
	sessionMaxAge    = 14 * 24 * 60 * 60
)

var sessionKeyPattern = regexp.MustCompile(`^[A-Za-z0-9]{20,64}$`)

// Session reads the anonymous session key from the cookie or the
// X-Session-Key header. Malformed keys are ignored.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(SessionHeader)
		if key == "" {
			key, _ = c.Cookie(SessionCookie)
		}
		if sessionKeyPattern.MatchString(key) {
			c.Set("session_key", key)
		}
		c.Next()
	}
}

// EnsureSession mints a session key for callers that have none. Routes that
// create a cart or an OTP challenge need one.
func EnsureSession(secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetSessionKey(c) == "" {
			key, err := utils.GenerateRandomString(sessionKeyLength)
			if err != nil {
				logrus.WithError(err).Error("Failed to generate session key")
				utils.InternalErrorResponse(c, "")
				c.Abort()
				return
			}
			c.Set("session_key", key)
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, key, sessionMaxAge, "/", "", secureCookie, true)
		}
		c.Header(SessionHeader, GetSessionKey(c))
		c.Next()
	}
}

func GetSessionKey(c *gin.Context) string {
	return c.GetString("session_key")
}

// GetOwner returns the cart/order owner of the request: the authenticated
// user when a valid token was sent, otherwise the anonymous session. The
// result is invalid when neither is present.
func GetOwner(c *gin.Context) models.Owner {
	if userID, ok := utils.GetUserIDFromContext(c); ok {
		if id, err := uuid.Parse(userID); err == nil {
			return models.AuthenticatedOwner(id)
		}
	}
	if key := GetSessionKey(c); key != "" {
		return models.AnonymousOwner(key)
	}
	return models.Owner{}
}
