// internal/middleware/logging.go
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/projectstore/internal/services"
)

const maxAuditBody = 64 << 10

// AuditRecorder persists admin mutations.
type AuditRecorder interface {
	RecordAudit(ctx context.Context, entry services.AuditEntry) error
}

// AuditLog records every non-GET request of the group it is attached to.
// The row is written after the response, off the request goroutine.
func AuditLog(recorder AuditRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		var requestBody []byte
		if c.Request.Body != nil && strings.HasPrefix(c.ContentType(), "application/json") {
			requestBody, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxAuditBody))
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		c.Next()

		entry := services.AuditEntry{
			Action:       c.Request.Method + " " + c.FullPath(),
			ResourceType: extractResourceType(c.Request.URL.Path),
			Values:       auditValues(requestBody),
			IPAddress:    c.ClientIP(),
			UserAgent:    c.Request.UserAgent(),
			StatusCode:   c.Writer.Status(),
		}
		if userID, ok := c.Get("user_id"); ok {
			if parsed, err := uuid.Parse(userID.(string)); err == nil {
				entry.UserID = &parsed
			}
		}
		if resourceID := extractResourceID(c.Request.URL.Path); resourceID != nil {
			entry.ResourceID = resourceID
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := recorder.RecordAudit(ctx, entry); err != nil {
				logrus.WithError(err).Error("Failed to create audit log")
			}
		}()
	}
}

func auditValues(body []byte) map[string]interface{} {
	if len(body) == 0 {
		return nil
	}
	var values map[string]interface{}
	if err := json.Unmarshal(body, &values); err != nil {
		return nil
	}
	for key := range values {
		if strings.Contains(strings.ToLower(key), "password") {
			values[key] = "[redacted]"
		}
	}
	return values
}

// extractResourceType returns the first path segment after /api/v1/admin.
func extractResourceType(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if part == "admin" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	if len(parts) > 0 && parts[0] != "" {
		return parts[len(parts)-1]
	}
	return "unknown"
}

func extractResourceID(path string) *uuid.UUID {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if id, err := uuid.Parse(parts[i]); err == nil {
			return &id
		}
	}
	return nil
}

// RequestLogger logs one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logrus.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   status,
			"duration": time.Since(start).Milliseconds(),
			"ip":       c.ClientIP(),
		})
		if userID, ok := c.Get("user_id"); ok {
			entry = entry.WithField("user_id", userID)
		}
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request processed")
		}
	}
}
