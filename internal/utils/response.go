// internal/utils/response.go
package utils

import (
	"net/http"

	"github.com/javajoker/projectstore/internal/i18n"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// failure describes one error class of the envelope. key is the message
// used when the caller passes none.
type failure struct {
	status int
	code   string
	key    string
	args   []interface{}
}

var (
	badRequest    = failure{http.StatusBadRequest, "BAD_REQUEST", i18n.KeyValidationInvalid, []interface{}{"request"}}
	invalidInput  = failure{http.StatusBadRequest, "VALIDATION_ERROR", i18n.KeyValidationInvalid, []interface{}{"input"}}
	unauthorized  = failure{http.StatusUnauthorized, "UNAUTHORIZED", i18n.KeyAuthRequired, nil}
	forbidden     = failure{http.StatusForbidden, "FORBIDDEN", i18n.KeyAdminAccessDenied, nil}
	notFound      = failure{http.StatusNotFound, "NOT_FOUND", "", nil}
	conflict      = failure{http.StatusConflict, "CONFLICT", i18n.KeyRequestConflict, nil}
	tooMany       = failure{http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", i18n.KeyRateLimitExceeded, nil}
	internalError = failure{http.StatusInternalServerError, "INTERNAL_ERROR", i18n.KeyInternalError, nil}
	unavailable   = failure{http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", i18n.KeyServiceUnavailable, nil}
)

func (f failure) write(c *gin.Context, message string, details interface{}) {
	if message == "" && f.key != "" {
		message = i18n.T(GetLangFromContext(c), f.key, f.args...)
	}
	ErrorResponse(c, f.status, f.code, message, details)
}

func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

func SuccessResponseWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: meta})
}

func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string, details interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message, Details: details},
	})
}

func BadRequestResponse(c *gin.Context, message string, details interface{}) {
	badRequest.write(c, message, details)
}

func ValidationErrorResponse(c *gin.Context, errors []ValidationError) {
	invalidInput.write(c, "", errors)
}

func UnauthorizedResponse(c *gin.Context, message string) {
	unauthorized.write(c, message, nil)
}

func ForbiddenResponse(c *gin.Context, message string) {
	forbidden.write(c, message, nil)
}

// NotFoundResponse uses the "<resource>.not_found" translation.
func NotFoundResponse(c *gin.Context, resource string) {
	notFound.write(c, i18n.T(GetLangFromContext(c), resource+".not_found"), nil)
}

func ConflictResponse(c *gin.Context, message string) {
	conflict.write(c, message, nil)
}

func TooManyRequestsResponse(c *gin.Context) {
	tooMany.write(c, "", nil)
}

func ServiceUnavailableResponse(c *gin.Context, message string) {
	unavailable.write(c, message, nil)
}

func InternalErrorResponse(c *gin.Context, message string) {
	internalError.write(c, message, nil)
}

// PaginatedResponse writes a page of results with headers and meta.
func PaginatedResponse(c *gin.Context, result PaginationResult) {
	SetPaginationHeaders(c, result)
	SuccessResponseWithMeta(c, result.Data, gin.H{
		"pagination": gin.H{
			"page":        result.Page,
			"limit":       result.Limit,
			"total":       result.Total,
			"total_pages": result.TotalPages,
		},
	})
}

func contextString(c *gin.Context, key string) (string, bool) {
	value, exists := c.Get(key)
	if !exists {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

func GetLangFromContext(c *gin.Context) string {
	if lang, ok := contextString(c, "lang"); ok && lang != "" {
		return lang
	}
	return "en"
}

func GetUserIDFromContext(c *gin.Context) (string, bool) {
	return contextString(c, "user_id")
}

func GetRoleFromContext(c *gin.Context) (string, bool) {
	return contextString(c, "role")
}
