package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("OTP_TTL_MINUTES", "15")
	t.Setenv("IMAGE_KEEP_ORIGINALS", "false")
	t.Setenv("WATERMARK_ALPHA", "0.4")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://projectstore.pk,https://admin.projectstore.pk")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.OTP.TTL)
	assert.False(t, cfg.Media.KeepOriginals)
	assert.InDelta(t, 0.4, cfg.Media.WatermarkAlpha, 1e-9)
	assert.Equal(t, []string{"https://projectstore.pk", "https://admin.projectstore.pk"}, cfg.Frontend.AllowedOrigins)
}

func TestValidateProduction(t *testing.T) {
	cfg := &Config{
		Environment: "production",
		JWT:         JWTConfig{SecretKey: "your-secret-key-change-in-production"},
		Database:    DatabaseConfig{Driver: "postgres", Password: "pw"},
		OTP:         OTPConfig{MaxAttempts: 5},
	}
	assert.Error(t, cfg.Validate())

	cfg.JWT.SecretKey = "a-real-secret"
	assert.NoError(t, cfg.Validate())

	cfg.Database.Password = ""
	assert.Error(t, cfg.Validate())

	cfg.Database.Password = "pw"
	cfg.Media.WatermarkAlpha = 1.5
	assert.Error(t, cfg.Validate())
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "store", Password: "it's secret", Database: "projectstore", SSLMode: "disable"}
	assert.Equal(t,
		`host=db port=5432 user=store password='it\'s secret' dbname=projectstore sslmode=disable TimeZone=UTC`,
		d.DSN())

	d.Password = ""
	assert.NotContains(t, d.DSN(), "password=")

	lite := DatabaseConfig{Database: "store.db"}
	assert.Equal(t, "store.db?_pragma=foreign_keys(1)", lite.SQLiteDSN())
	lite.Database = "file::memory:?cache=shared"
	assert.Equal(t, "file::memory:?cache=shared", lite.SQLiteDSN())
}

func TestRedisAddr(t *testing.T) {
	r := RedisConfig{Host: "cache", Port: "6379"}
	assert.True(t, r.Enabled())
	assert.Equal(t, "cache:6379", r.Addr())
	assert.False(t, (&RedisConfig{}).Enabled())
}
