// internal/services/sitemap_service.go
package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/javajoker/projectstore/internal/config"
	"github.com/javajoker/projectstore/internal/models"
)

const (
	sitemapNS      = "http://www.sitemaps.org/schemas/sitemap/0.9"
	sitemapImageNS = "http://www.google.com/schemas/sitemap-image/1.1"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	Image   string       `xml:"xmlns:image,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string         `xml:"loc"`
	LastMod    string         `xml:"lastmod,omitempty"`
	ChangeFreq string         `xml:"changefreq"`
	Priority   string         `xml:"priority"`
	Images     []sitemapImage `xml:"image:image,omitempty"`
}

type sitemapImage struct {
	Loc string `xml:"image:loc"`
}

// SitemapService renders /sitemap.xml for the storefront.
type SitemapService struct {
	db      *gorm.DB
	storage *StorageService
	baseURL string
}

func NewSitemapService(db *gorm.DB, storage *StorageService, cfg config.FrontendConfig) *SitemapService {
	return &SitemapService{
		db:      db,
		storage: storage,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// Build returns the XML document.
func (s *SitemapService) Build(ctx context.Context) ([]byte, error) {
	db := s.db.WithContext(ctx)
	set := sitemapURLSet{XMLNS: sitemapNS, Image: sitemapImageNS}

	set.URLs = append(set.URLs, sitemapURL{Loc: s.url("/"), ChangeFreq: "daily", Priority: "1.0"})

	var products []models.Product
	if err := db.Where("is_active = ?", true).Order("is_project, name").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	for _, p := range products {
		u := sitemapURL{
			Loc:        s.url("/detail/" + p.Slug + "/"),
			LastMod:    p.UpdatedAt.UTC().Format(time.RFC3339),
			ChangeFreq: "daily",
			Priority:   "0.8",
		}
		if p.MainImage != "" {
			u.Images = []sitemapImage{{Loc: s.absolute(s.storage.URL(p.MainImage))}}
		}
		set.URLs = append(set.URLs, u)
	}

	var categories []models.Category
	if err := db.Where("is_active = ?", true).Order("name").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	for _, c := range categories {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        s.url("/category/" + c.Slug + "/"),
			LastMod:    c.UpdatedAt.UTC().Format(time.RFC3339),
			ChangeFreq: "weekly",
			Priority:   "0.9",
		})
	}

	for _, page := range []string{"/product/", "/project/", "/contact/"} {
		set.URLs = append(set.URLs, sitemapURL{Loc: s.url(page), ChangeFreq: "weekly", Priority: "0.3"})
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode sitemap: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

func (s *SitemapService) url(path string) string {
	return s.baseURL + path
}

// absolute prefixes site-relative media URLs with the site base.
func (s *SitemapService) absolute(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return s.baseURL + u
}
