package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/projectstore/internal/config"
	"github.com/javajoker/projectstore/internal/database"
	"github.com/javajoker/projectstore/internal/events"
	"github.com/javajoker/projectstore/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	return db
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "test",
		JWT: config.JWTConfig{
			SecretKey:       "test-secret",
			AccessTokenTTL:  1,
			RefreshTokenTTL: 24,
		},
		Email: config.EmailConfig{
			FromEmail:  "register@projectstore.pk",
			FromName:   "ProjectStore",
			AdminEmail: "admin@projectstore.pk",
		},
		Media: config.MediaConfig{
			Root:           t.TempDir(),
			BaseURL:        "/media",
			MaxWidth:       800,
			MaxHeight:      600,
			Quality:        85,
			WatermarkText:  "ProjectStore",
			WatermarkAlpha: 0.25,
			KeepOriginals:  true,
		},
		OTP:      config.OTPConfig{TTL: 10 * time.Minute, MaxAttempts: 5},
		Payment:  config.PaymentConfig{Currency: "pkr"},
		I18n:     config.I18nConfig{DefaultLocale: "en"},
		Frontend: config.FrontendConfig{BaseURL: "https://projectstore.pk/"},
	}
}

func newTestStorage(t *testing.T, cfg *config.Config) *StorageService {
	t.Helper()
	storage, err := NewStorageService(cfg)
	require.NoError(t, err)
	return storage
}

func seedCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name, IsActive: true}
	require.NoError(t, db.Create(category).Error)
	return category
}

func seedProduct(t *testing.T, db *gorm.DB, category *models.Category, name, price string, discount int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:               name,
		CategoryID:         category.ID,
		SKU:                strings.ToUpper(strings.ReplaceAll(name, " ", "-")),
		Price:              decimal.RequireFromString(price),
		DiscountPercentage: discount,
		Stock:              10,
		Availability:       true,
		IsActive:           true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func deactivate(t *testing.T, db *gorm.DB, product *models.Product) {
	t.Helper()
	require.NoError(t, db.Model(product).UpdateColumn("is_active", false).Error)
}

func seedUser(t *testing.T, db *gorm.DB, username, email, password string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    email,
		Role:     models.UserRoleCustomer,
		Status:   models.UserStatusActive,
	}
	require.NoError(t, user.SetPassword(password))
	require.NoError(t, db.Create(user).Error)
	return user
}

func decimalEqual(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// fileHeader builds an uploaded file the way a multipart request would.
func fileHeader(t *testing.T, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File[field][0]
}
