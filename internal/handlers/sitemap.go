// internal/handlers/sitemap.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/projectstore/internal/services"
)

type SitemapHandler struct {
	sitemapService *services.SitemapService
}

func NewSitemapHandler(sitemapService *services.SitemapService) *SitemapHandler {
	return &SitemapHandler{sitemapService: sitemapService}
}

// GET /sitemap.xml
func (h *SitemapHandler) Sitemap(c *gin.Context) {
	body, err := h.sitemapService.Build(c.Request.Context())
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", body)
}
