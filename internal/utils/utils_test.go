package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTPCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateOTPCode()
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9]{6}$`, code)
	}
}

func TestCodesEqual(t *testing.T) {
	assert.True(t, CodesEqual(" 042017 ", "042017"))
	assert.False(t, CodesEqual("042018", "042017"))
	assert.False(t, CodesEqual("", ""))
	assert.False(t, CodesEqual("42017", "042017"))
}

func TestJWTRoundTrip(t *testing.T) {
	SetJWTSecret("unit-test-secret")
	id := uuid.New()

	token, err := GenerateJWT(id, "amna", "customer", 1)
	require.NoError(t, err)
	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, id.String(), claims.UserID)
	assert.Equal(t, "customer", claims.Role)

	refresh, err := GenerateRefreshToken(id, 24)
	require.NoError(t, err)
	subject, err := ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, id.String(), subject)

	// Access and refresh tokens are not interchangeable.
	_, err = ValidateRefreshToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = ValidateJWT(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	SetJWTSecret("another-secret")
	_, err = ValidateJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredJWT(t *testing.T) {
	SetJWTSecret("unit-test-secret")
	token, err := GenerateJWT(uuid.New(), "amna", "customer", -1)
	require.NoError(t, err)
	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestPaginationClamp(t *testing.T) {
	p := PaginationParams{Page: 9, Limit: CatalogPageSize}
	p.Clamp(25)
	assert.Equal(t, 3, p.Page)

	p = PaginationParams{Page: 4, Limit: CatalogPageSize}
	p.Clamp(0)
	assert.Equal(t, 1, p.Page)

	result := CreatePaginationResult(nil, 25, PaginationParams{Page: 1, Limit: CatalogPageSize})
	assert.Equal(t, 3, result.TotalPages)
}

type signup struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,strong_password"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Method   string `json:"payment_method" validate:"required,payment_method"`
}

func TestValidators(t *testing.T) {
	valid := signup{Username: "amna.k", Password: "Secret#123", Phone: "+92 300 1234567", Method: "card"}
	require.NoError(t, ValidateStruct(&valid))

	tests := []struct {
		name   string
		mutate func(*signup)
		field  string
		tag    string
	}{
		{"weak password", func(s *signup) { s.Password = "secret123" }, "password", "strong_password"},
		{"bad username", func(s *signup) { s.Username = "a b" }, "username", "username"},
		{"bad phone", func(s *signup) { s.Phone = "call me" }, "phone", "phone"},
		{"bad payment method", func(s *signup) { s.Method = "barter" }, "payment_method", "payment_method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			errs := GetValidationErrors(ValidateStruct(&s))
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Equal(t, tt.tag, errs[0].Tag)
			assert.NotEmpty(t, errs[0].Message)
		})
	}
}
