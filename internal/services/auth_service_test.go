package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/projectstore/internal/models"
	"github.com/javajoker/projectstore/internal/services/servicestest"
	"github.com/javajoker/projectstore/internal/utils"
)

type authFixture struct {
	db         *gorm.DB
	auth       *AuthService
	carts      *CartService
	challenges *MemoryChallengeStore
	mailer     *servicestest.RecordingMailer
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := newTestDB(t)
	cfg := testConfig(t)
	challenges := NewMemoryChallengeStore()
	mailer := &servicestest.RecordingMailer{}
	carts := NewCartService(db)
	return &authFixture{
		db:         db,
		auth:       NewAuthService(db, cfg, challenges, NewNotificationService(db, cfg, mailer), carts),
		carts:      carts,
		challenges: challenges,
		mailer:     mailer,
	}
}

func (f *authFixture) code(t *testing.T, namespace string) string {
	t.Helper()
	ch, err := f.challenges.Get(context.Background(), namespace, testSession)
	require.NoError(t, err)
	return ch.Code
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func registration() *RegisterRequest {
	return &RegisterRequest{
		Username:        "Dana",
		Email:           "dana@example.com",
		Password:        "Secret#123",
		ConfirmPassword: "Secret#123",
		FirstName:       "Dana",
		Phone:           "+923001234567",
	}
}

func TestRegistrationFlow(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	require.NoError(t, f.auth.StartRegistration(ctx, testSession, registration()))

	sent := f.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"dana@example.com"}, sent[0].To)
	assert.Equal(t, "Verify Your Email Address", sent[0].Subject)
	code := f.code(t, ChallengeRegistration)
	assert.Len(t, code, 6)
	assert.Contains(t, sent[0].Body, code)

	// No account until the code is confirmed.
	var users int64
	require.NoError(t, f.db.Model(&models.User{}).Count(&users).Error)
	assert.Zero(t, users)

	_, err := f.auth.VerifyRegistration(ctx, testSession, wrongCode(code))
	require.ErrorIs(t, err, ErrCodeMismatch)

	resp, err := f.auth.VerifyRegistration(ctx, testSession, " "+code+" ")
	require.NoError(t, err)
	assert.Equal(t, "dana", resp.User.Username)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)
	require.NotNil(t, resp.User.Profile)
	assert.Equal(t, "+923001234567", resp.User.Profile.Phone)

	claims, err := utils.ValidateJWT(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID.String(), claims.UserID)
	assert.Equal(t, string(models.UserRoleCustomer), claims.Role)

	// The challenge is consumed.
	_, err = f.auth.VerifyRegistration(ctx, testSession, code)
	assert.ErrorIs(t, err, ErrChallengeMissing)
}

func TestRegistrationRejectsTakenUsernameAndEmail(t *testing.T) {
	f := newAuthFixture(t)
	seedUser(t, f.db, "dana", "DANA@example.com", "Secret#123")

	err := f.auth.StartRegistration(context.Background(), testSession, registration())
	var fields *FieldError
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields.Fields, "username")
	assert.Contains(t, fields.Fields, "email")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, f.mailer.Sent())
}

func TestRegistrationValidatesPassword(t *testing.T) {
	f := newAuthFixture(t)
	req := registration()
	req.Password = "weak"
	req.ConfirmPassword = "weak"

	err := f.auth.StartRegistration(context.Background(), testSession, req)
	require.Error(t, err)
	tags := map[string]string{}
	for _, e := range utils.GetValidationErrors(err) {
		tags[e.Field] = e.Tag
	}
	assert.Equal(t, "strong_password", tags["password"])
}

func TestRegistrationNeedsSession(t *testing.T) {
	f := newAuthFixture(t)
	err := f.auth.StartRegistration(context.Background(), "", registration())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestVerificationAttemptCap(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	require.NoError(t, f.auth.StartRegistration(ctx, testSession, registration()))
	code := f.code(t, ChallengeRegistration)
	bad := wrongCode(code)

	for i := 0; i < 4; i++ {
		_, err := f.auth.VerifyRegistration(ctx, testSession, bad)
		require.ErrorIs(t, err, ErrCodeMismatch, "attempt %d", i+1)
	}
	_, err := f.auth.VerifyRegistration(ctx, testSession, bad)
	require.ErrorIs(t, err, ErrTooManyAttempts)

	// Even the right code is useless now.
	_, err = f.auth.VerifyRegistration(ctx, testSession, code)
	assert.ErrorIs(t, err, ErrChallengeMissing)
}

func TestVerificationExpires(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	require.NoError(t, f.auth.StartRegistration(ctx, testSession, registration()))
	code := f.code(t, ChallengeRegistration)

	later := time.Now().Add(11 * time.Minute)
	f.challenges.SetClock(func() time.Time { return later })

	_, err := f.auth.VerifyRegistration(ctx, testSession, code)
	assert.ErrorIs(t, err, ErrChallengeMissing)
}

func TestVerificationCodeDeliveryFailure(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.mailer.Err = errors.New("smtp down")

	err := f.auth.StartRegistration(ctx, testSession, registration())
	require.ErrorIs(t, err, ErrCodeDelivery)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = f.challenges.Get(ctx, ChallengeRegistration, testSession)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := seedUser(t, f.db, "erin", "erin@example.com", "Secret#123")

	require.NoError(t, f.auth.StartPasswordReset(ctx, testSession, &ForgotPasswordRequest{Email: "ERIN@example.com"}))
	sent := f.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Password Reset Code", sent[0].Subject)
	code := f.code(t, ChallengeReset)

	newPassword := &SetPasswordRequest{NewPassword: "Changed#456", ConfirmPassword: "Changed#456"}
	require.ErrorIs(t, f.auth.ConfirmPasswordReset(ctx, testSession, newPassword), ErrResetNotVerified)

	require.ErrorIs(t, f.auth.VerifyPasswordReset(ctx, testSession, wrongCode(code)), ErrCodeMismatch)
	require.NoError(t, f.auth.VerifyPasswordReset(ctx, testSession, code))
	require.NoError(t, f.auth.ConfirmPasswordReset(ctx, testSession, newPassword))

	_, err := f.auth.Login(ctx, "", &LoginRequest{Username: "erin", Password: "Secret#123"})
	assert.ErrorIs(t, err, ErrInvalidLogin)
	resp, err := f.auth.Login(ctx, "", &LoginRequest{Username: "erin", Password: "Changed#456"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, resp.User.ID)

	assert.ErrorIs(t, f.auth.ConfirmPasswordReset(ctx, testSession, newPassword), ErrChallengeMissing)
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	require.NoError(t, f.auth.StartPasswordReset(ctx, testSession, &ForgotPasswordRequest{Email: "nobody@example.com"}))
	assert.Empty(t, f.mailer.Sent())
	assert.ErrorIs(t, f.auth.VerifyPasswordReset(ctx, testSession, "123456"), ErrChallengeMissing)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := seedUser(t, f.db, "frank", "frank@example.com", "Secret#123")

	_, err := f.auth.Login(ctx, "", &LoginRequest{Username: "frank", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidLogin)
	_, err = f.auth.Login(ctx, "", &LoginRequest{Username: "nobody", Password: "Secret#123"})
	assert.ErrorIs(t, err, ErrInvalidLogin)

	resp, err := f.auth.Login(ctx, "", &LoginRequest{Username: " Frank ", Password: "Secret#123"})
	require.NoError(t, err)
	assert.NotNil(t, resp.User.LastLoginAt)

	refreshed, err := f.auth.RefreshToken(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, refreshed.User.ID)

	_, err = f.auth.RefreshToken(ctx, resp.AccessToken+"x")
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, f.db.Model(user).Update("status", models.UserStatusSuspended).Error)
	_, err = f.auth.Login(ctx, "", &LoginRequest{Username: "frank", Password: "Secret#123"})
	assert.ErrorIs(t, err, ErrAccountSuspended)
}

func TestLoginMergesSessionCart(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := seedUser(t, f.db, "gina", "gina@example.com", "Secret#123")
	product := seedProduct(t, f.db, seedCategory(t, f.db, "Drones"), "Quad Frame", "1500", 0)

	_, err := f.carts.AddItem(ctx, models.AnonymousOwner(testSession), &AddToCartRequest{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, testSession, &LoginRequest{Username: "gina", Password: "Secret#123"})
	require.NoError(t, err)

	count, err := f.carts.Count(ctx, models.AuthenticatedOwner(user.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	count, err = f.carts.Count(ctx, models.AnonymousOwner(testSession))
	require.NoError(t, err)
	assert.Zero(t, count)
}
