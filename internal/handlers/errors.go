// internal/handlers/errors.go
package handlers

import (
	"errors"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/projectstore/internal/i18n"
	"github.com/javajoker/projectstore/internal/services"
	"github.com/javajoker/projectstore/internal/utils"
)

// Errors whose message is translated instead of echoed.
var translatedErrors = []struct {
	err error
	key string
}{
	{services.ErrCartEmpty, i18n.KeyCartEmpty},
	{services.ErrPaymentSlipRequired, i18n.KeyOrderSlipRequired},
	{services.ErrCodeMismatch, i18n.KeyAuthCodeInvalid},
	{services.ErrChallengeMissing, i18n.KeyAuthCodeExpired},
	{services.ErrTooManyAttempts, i18n.KeyAuthTooManyAttempts},
	{services.ErrResetNotVerified, i18n.KeyAuthResetNotVerified},
	{services.ErrInvalidLogin, i18n.KeyAuthInvalidCredentials},
	{services.ErrAccountSuspended, i18n.KeyAuthAccountSuspended},
	{services.ErrCodeDelivery, i18n.KeyAuthCodeSendFailed},
}

var errorKinds = []error{
	services.ErrValidation,
	services.ErrNotFound,
	services.ErrConflict,
	services.ErrUnauthorized,
	services.ErrForbidden,
	services.ErrUnavailable,
}

// respondError maps a service error to the response envelope. resource
// names the entity used for not-found messages.
func respondError(c *gin.Context, err error, resource string) {
	respondErrorWith(c, err, resource, i18n.KeyInternalError)
}

// respondErrorWith is respondError with the message key used for
// unclassified failures.
func respondErrorWith(c *gin.Context, err error, resource, failureKey string) {
	lang := utils.GetLangFromContext(c)

	if validationErrors := utils.GetValidationErrors(err); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	var fieldErr *services.FieldError
	if errors.As(err, &fieldErr) {
		utils.ValidationErrorResponse(c, fieldErrors(fieldErr))
		return
	}

	switch {
	case errors.Is(err, services.ErrValidation):
		utils.BadRequestResponse(c, publicMessage(lang, err), nil)
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, resource)
	case errors.Is(err, services.ErrConflict):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyRequestConflict))
	case errors.Is(err, services.ErrUnauthorized):
		utils.UnauthorizedResponse(c, publicMessage(lang, err))
	case errors.Is(err, services.ErrForbidden):
		utils.ForbiddenResponse(c, publicMessage(lang, err))
	case errors.Is(err, services.ErrUnavailable):
		utils.ServiceUnavailableResponse(c, publicMessage(lang, err))
	default:
		_ = c.Error(err)
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
		utils.InternalErrorResponse(c, i18n.T(lang, failureKey))
	}
}

// publicMessage returns the caller-facing text of a classified error: a
// translation when one exists, otherwise the detail after the kind prefix.
func publicMessage(lang string, err error) string {
	for _, t := range translatedErrors {
		if errors.Is(err, t.err) {
			return i18n.T(lang, t.key)
		}
	}
	msg := err.Error()
	for _, kind := range errorKinds {
		if idx := strings.Index(msg, kind.Error()+": "); idx >= 0 {
			return msg[idx+len(kind.Error())+2:]
		}
	}
	return msg
}

func fieldErrors(fieldErr *services.FieldError) []utils.ValidationError {
	fields := make([]string, 0, len(fieldErr.Fields))
	for field := range fieldErr.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := make([]utils.ValidationError, 0, len(fields))
	for _, field := range fields {
		out = append(out, utils.ValidationError{Field: field, Tag: "invalid", Message: fieldErr.Fields[field]})
	}
	return out
}

// bindJSON binds and validates a JSON body, writing the error response on
// failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	lang := utils.GetLangFromContext(c)
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}

// bindForm is bindJSON for form and multipart bodies.
func bindForm(c *gin.Context, req interface{}) bool {
	lang := utils.GetLangFromContext(c)
	if err := c.ShouldBind(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}

func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, name), nil)
		return uuid.Nil, false
	}
	return id, true
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.UnauthorizedResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyAuthInvalidToken))
		return uuid.Nil, false
	}
	return userID, true
}
