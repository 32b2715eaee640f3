// internal/services/auth_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/projectstore/internal/config"
	"github.com/javajoker/projectstore/internal/database"
	"github.com/javajoker/projectstore/internal/models"
	"github.com/javajoker/projectstore/internal/utils"
)

var (
	ErrCodeMismatch     = fmt.Errorf("%w: invalid verification code", ErrValidation)
	ErrChallengeMissing = fmt.Errorf("%w: verification session expired or invalid", ErrValidation)
	ErrTooManyAttempts  = fmt.Errorf("%w: too many invalid codes, please start again", ErrValidation)
	ErrResetNotVerified = fmt.Errorf("%w: verify the reset code first", ErrForbidden)
	ErrInvalidLogin     = fmt.Errorf("%w: username and password did not match", ErrUnauthorized)
	ErrAccountSuspended = fmt.Errorf("%w: account is suspended", ErrForbidden)
	ErrCodeDelivery     = fmt.Errorf("%w: failed to send verification code", ErrUnavailable)
)

type AuthService struct {
	db         *gorm.DB
	cfg        *config.Config
	challenges ChallengeStore
	notifier   *NotificationService
	carts      *CartService
}

type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type RegisterRequest struct {
	Username        string `json:"username" form:"username" validate:"required,username"`
	Email           string `json:"email" form:"email" validate:"required,email,max=254"`
	Password        string `json:"password" form:"password" validate:"required,strong_password"`
	ConfirmPassword string `json:"confirm_password" form:"confirmpassword" validate:"required,eqfield=Password"`
	FirstName       string `json:"first_name,omitempty" form:"first_name" validate:"max=150"`
	LastName        string `json:"last_name,omitempty" form:"last_name" validate:"max=150"`
	Phone           string `json:"phone,omitempty" form:"phone" validate:"omitempty,phone"`
}

type VerifyCodeRequest struct {
	Code string `json:"otp" form:"otp" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

type SetPasswordRequest struct {
	NewPassword     string `json:"new_password" form:"new_password1" validate:"required,strong_password"`
	ConfirmPassword string `json:"confirm_password" form:"new_password2" validate:"required,eqfield=NewPassword"`
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"` // in seconds
}

// pendingRegistration is what a registration challenge carries until the
// code is confirmed. The password is already hashed.
type pendingRegistration struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

type pendingReset struct {
	UserID uuid.UUID `json:"user_id"`
}

func NewAuthService(db *gorm.DB, cfg *config.Config, challenges ChallengeStore, notifier *NotificationService, carts *CartService) *AuthService {
	return &AuthService{
		db:         db,
		cfg:        cfg,
		challenges: challenges,
		notifier:   notifier,
		carts:      carts,
	}
}

// StartRegistration validates the form, holds it against sessionKey and
// mails a 6-digit code. No user row is written until the code is confirmed.
func (s *AuthService) StartRegistration(ctx context.Context, sessionKey string, req *RegisterRequest) error {
	if sessionKey == "" {
		return fmt.Errorf("%w: session required", ErrValidation)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.TrimSpace(req.Email)
	if err := s.checkAvailable(ctx, req.Username, req.Email); err != nil {
		return err
	}

	candidate := &models.User{}
	if err := candidate.SetPassword(req.Password); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	payload, err := json.Marshal(pendingRegistration{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: candidate.PasswordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        strings.TrimSpace(req.Phone),
	})
	if err != nil {
		return err
	}

	if err := s.issueChallenge(ctx, ChallengeRegistration, sessionKey, payload, req.Email, req.Username); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{"username": req.Username, "email": req.Email}).Info("Registration code issued")
	return nil
}

// VerifyRegistration confirms the code and creates the account. A wrong
// code leaves the challenge in place until the attempt limit is reached.
func (s *AuthService) VerifyRegistration(ctx context.Context, sessionKey, code string) (*AuthResponse, error) {
	ch, err := s.checkCode(ctx, ChallengeRegistration, sessionKey, code)
	if err != nil {
		return nil, err
	}

	var pending pendingRegistration
	if err := json.Unmarshal(ch.Payload, &pending); err != nil {
		s.challenges.Delete(ctx, ChallengeRegistration, sessionKey)
		return nil, ErrChallengeMissing
	}

	// The username or email may have been taken since the code was issued.
	if err := s.checkAvailable(ctx, pending.Username, pending.Email); err != nil {
		s.challenges.Delete(ctx, ChallengeRegistration, sessionKey)
		return nil, err
	}

	user := &models.User{
		Username:     pending.Username,
		Email:        pending.Email,
		FirstName:    pending.FirstName,
		LastName:     pending.LastName,
		PasswordHash: pending.PasswordHash,
		Role:         models.UserRoleCustomer,
		Status:       models.UserStatusActive,
	}
	now := time.Now()
	user.LastLoginAt = &now

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			if database.IsDuplicate(err) {
				return fmt.Errorf("%w: username or email already taken", ErrConflict)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		if pending.Phone != "" {
			profile := &models.UserProfile{UserID: user.ID, Phone: pending.Phone}
			if err := tx.Create(profile).Error; err != nil {
				return fmt.Errorf("failed to create profile: %w", err)
			}
			user.Profile = profile
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			s.challenges.Delete(ctx, ChallengeRegistration, sessionKey)
		}
		return nil, err
	}

	if err := s.challenges.Delete(ctx, ChallengeRegistration, sessionKey); err != nil {
		logrus.WithError(err).Warn("Failed to clear registration challenge")
	}

	s.mergeCart(ctx, sessionKey, user.ID)

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("User registered")
	return s.issueTokens(user)
}

func (s *AuthService) Login(ctx context.Context, sessionKey string, req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))

	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidLogin
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	// Verify password
	if err := user.CheckPassword(req.Password); err != nil {
		logrus.WithField("username", username).Warn("Login failed")
		return nil, ErrInvalidLogin
	}

	if user.Status == models.UserStatusSuspended {
		return nil, ErrAccountSuspended
	}

	// Update last login time
	now := time.Now()
	user.LastLoginAt = &now
	if err := s.db.WithContext(ctx).Model(&user).UpdateColumn("last_login_at", now).Error; err != nil {
		logrus.WithError(err).Warn("Failed to record last login")
	}

	s.mergeCart(ctx, sessionKey, user.ID)

	return s.issueTokens(&user)
}

func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	userIDStr, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID in token", ErrUnauthorized)
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user not found", ErrUnauthorized)
	}
	if user.Status == models.UserStatusSuspended {
		return nil, ErrAccountSuspended
	}

	return s.issueTokens(user)
}

func (s *AuthService) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Profile").Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &user, nil
}

// StartPasswordReset mails a code when an account with email exists. The
// result does not reveal whether it does.
func (s *AuthService) StartPasswordReset(ctx context.Context, sessionKey string, req *ForgotPasswordRequest) error {
	if sessionKey == "" {
		return fmt.Errorf("%w: session required", ErrValidation)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	var user models.User
	if err := s.db.WithContext(ctx).Where("LOWER(email) = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithField("email", email).Info("Password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("database error: %w", err)
	}

	payload, err := json.Marshal(pendingReset{UserID: user.ID})
	if err != nil {
		return err
	}
	return s.issueChallenge(ctx, ChallengeReset, sessionKey, payload, user.Email, user.Username)
}

// VerifyPasswordReset moves the reset challenge to the verified state.
func (s *AuthService) VerifyPasswordReset(ctx context.Context, sessionKey, code string) error {
	ch, err := s.checkCode(ctx, ChallengeReset, sessionKey, code)
	if err != nil {
		return err
	}
	ch.Verified = true
	if err := s.challenges.Update(ctx, ChallengeReset, sessionKey, ch); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrChallengeMissing
		}
		return err
	}
	return nil
}

// ConfirmPasswordReset sets the new password of a verified reset challenge
// and ends it.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, sessionKey string, req *SetPasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	ch, err := s.challenges.Get(ctx, ChallengeReset, sessionKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrChallengeMissing
		}
		return err
	}
	if !ch.Verified {
		return ErrResetNotVerified
	}

	var pending pendingReset
	if err := json.Unmarshal(ch.Payload, &pending); err != nil {
		s.challenges.Delete(ctx, ChallengeReset, sessionKey)
		return ErrChallengeMissing
	}

	user, err := s.GetUser(ctx, pending.UserID)
	if err != nil {
		s.challenges.Delete(ctx, ChallengeReset, sessionKey)
		return err
	}
	if err := user.SetPassword(req.NewPassword); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(user).UpdateColumn("password_hash", user.PasswordHash).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.challenges.Delete(ctx, ChallengeReset, sessionKey); err != nil {
		logrus.WithError(err).Warn("Failed to clear reset challenge")
	}

	logrus.WithField("user_id", user.ID).Info("Password reset")
	return nil
}

func (s *AuthService) issueChallenge(ctx context.Context, namespace, sessionKey string, payload []byte, email, username string) error {
	code, err := utils.GenerateOTPCode()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	ch := &Challenge{Code: code, Payload: payload, IssuedAt: time.Now().UTC()}
	if err := s.challenges.Put(ctx, namespace, sessionKey, ch, s.cfg.OTP.TTL); err != nil {
		return err
	}

	if err := s.notifier.SendVerificationCode(ctx, email, username, code, namespace); err != nil {
		logrus.WithError(err).WithField("email", email).Error("Failed to send verification code")
		s.challenges.Delete(ctx, namespace, sessionKey)
		return ErrCodeDelivery
	}
	return nil
}

// checkCode compares code with the live challenge and counts failures.
func (s *AuthService) checkCode(ctx context.Context, namespace, sessionKey, code string) (*Challenge, error) {
	if sessionKey == "" {
		return nil, ErrChallengeMissing
	}
	ch, err := s.challenges.Get(ctx, namespace, sessionKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrChallengeMissing
		}
		return nil, err
	}

	if utils.CodesEqual(code, ch.Code) {
		return ch, nil
	}

	ch.Attempts++
	if ch.Attempts >= s.cfg.OTP.MaxAttempts {
		s.challenges.Delete(ctx, namespace, sessionKey)
		logrus.WithField("challenge", namespace).Warn("Challenge invalidated after too many attempts")
		return nil, ErrTooManyAttempts
	}
	if err := s.challenges.Update(ctx, namespace, sessionKey, ch); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return nil, ErrCodeMismatch
}

func (s *AuthService) checkAvailable(ctx context.Context, username, email string) error {
	fields := &FieldError{}
	var count int64
	db := s.db.WithContext(ctx).Model(&models.User{})
	if err := db.Where("username = ?", username).Count(&count).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if count > 0 {
		fields.Add("username", "A user with that username already exists.")
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("LOWER(email) = ?", strings.ToLower(email)).Count(&count).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if count > 0 {
		fields.Add("email", "User with same email address already exist!")
	}
	if !fields.Empty() {
		return fields
	}
	return nil
}

func (s *AuthService) mergeCart(ctx context.Context, sessionKey string, userID uuid.UUID) {
	if s.carts == nil || sessionKey == "" {
		return
	}
	if err := s.carts.MergeAnonymous(ctx, sessionKey, userID); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("Failed to merge session cart")
	}
}

func (s *AuthService) issueTokens(user *models.User) (*AuthResponse, error) {
	accessToken, err := utils.GenerateJWT(user.ID, user.Username, string(user.Role), s.cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := utils.GenerateRefreshToken(user.ID, s.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.cfg.JWT.AccessTokenTTL * 3600, // Convert hours to seconds
	}, nil
}
