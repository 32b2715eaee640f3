package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSitemapBuild(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig(t)
	sitemap := NewSitemapService(db, newTestStorage(t, cfg), cfg.Frontend)

	sensors := seedCategory(t, db, "Sensors")
	product := seedProduct(t, db, sensors, "Heart Rate Sensor", "650", 0)
	require.NoError(t, db.Model(product).UpdateColumn("main_image", "products/main/heart_wm.jpg").Error)
	hidden := seedProduct(t, db, sensors, "Retired Sensor", "10", 0)
	deactivate(t, db, hidden)

	out, err := sitemap.Build(context.Background())
	require.NoError(t, err)
	doc := string(out)

	assert.True(t, strings.HasPrefix(doc, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, doc, `xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"`)
	assert.Contains(t, doc, "<loc>https://projectstore.pk/</loc>")
	assert.Contains(t, doc, "<loc>https://projectstore.pk/detail/heart-rate-sensor/</loc>")
	assert.Contains(t, doc, "<image:loc>https://projectstore.pk/media/products/main/heart_wm.jpg</image:loc>")
	assert.Contains(t, doc, "<loc>https://projectstore.pk/category/sensors/</loc>")
	assert.Contains(t, doc, "<loc>https://projectstore.pk/contact/</loc>")
	assert.NotContains(t, doc, "retired-sensor")
}

func TestSitemapAbsolute(t *testing.T) {
	s := &SitemapService{baseURL: "https://projectstore.pk"}
	assert.Equal(t, "https://cdn.example.com/a.jpg", s.absolute("https://cdn.example.com/a.jpg"))
	assert.Equal(t, "https://projectstore.pk/media/a.jpg", s.absolute("media/a.jpg"))
	assert.Equal(t, "https://projectstore.pk/media/a.jpg", s.absolute("/media/a.jpg"))
}
