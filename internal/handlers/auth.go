// internal/handlers/auth.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/projectstore/internal/i18n"
	"github.com/javajoker/projectstore/internal/middleware"
	"github.com/javajoker/projectstore/internal/services"
	"github.com/javajoker/projectstore/internal/utils"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

func authPayload(message string, resp *services.AuthResponse) gin.H {
	return gin.H{
		"message":       message,
		"user":          resp.User,
		"token":         resp.AccessToken,
		"refresh_token": resp.RefreshToken,
		"token_type":    resp.TokenType,
		"expires_in":    resp.ExpiresIn,
	}
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.StartRegistration(c.Request.Context(), middleware.GetSessionKey(c), &req); err != nil {
		respondError(c, err, "user")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAuthCodeSent),
	})
}

// POST /auth/register/verify
func (h *AuthHandler) VerifyRegistration(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.VerifyCodeRequest
	if !bindJSON(c, &req) {
		return
	}

	authResponse, err := h.authService.VerifyRegistration(c.Request.Context(), middleware.GetSessionKey(c), req.Code)
	if err != nil {
		respondError(c, err, "challenge")
		return
	}

	utils.CreatedResponse(c, authPayload(i18n.T(lang, i18n.KeyAuthRegisterSuccess), authResponse))
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	authResponse, err := h.authService.Login(c.Request.Context(), middleware.GetSessionKey(c), &req)
	if err != nil {
		respondError(c, err, "user")
		return
	}

	utils.SuccessResponse(c, authPayload(i18n.T(lang, i18n.KeyAuthLoginSuccess), authResponse))
}

// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	// Tokens are stateless; the client drops them.
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAuthLogoutSuccess),
	})
}

// POST /auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	authResponse, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err, "user")
		return
	}

	utils.SuccessResponse(c, authPayload(i18n.T(lang, i18n.KeySuccess), authResponse))
}

// POST /auth/password/forgot
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.StartPasswordReset(c.Request.Context(), middleware.GetSessionKey(c), &req); err != nil {
		respondError(c, err, "user")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAuthResetRequested),
	})
}

// POST /auth/password/verify
func (h *AuthHandler) VerifyPasswordReset(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.VerifyCodeRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.VerifyPasswordReset(c.Request.Context(), middleware.GetSessionKey(c), req.Code); err != nil {
		respondError(c, err, "challenge")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAuthCodeVerified),
	})
}

// POST /auth/password/reset
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.SetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ConfirmPasswordReset(c.Request.Context(), middleware.GetSessionKey(c), &req); err != nil {
		respondError(c, err, "challenge")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAuthPasswordReset),
	})
}

// GET /auth/me
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "user")
		return
	}

	utils.SuccessResponse(c, user)
}
