// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/projectstore/internal/i18n"
)

// I18nMiddleware picks the first Accept-Language tag that has a locale
// file, falling back to defaultLang.
func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("lang", negotiateLanguage(c.GetHeader("Accept-Language"), defaultLang))
		c.Next()
	}
}

func negotiateLanguage(header, defaultLang string) string {
	supported := make(map[string]bool)
	for _, lang := range i18n.GetSupportedLanguages() {
		supported[lang] = true
	}

	// Handle cases like "en-GB,en;q=0.9"
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.Split(part, ";")[0])
		if tag == "" {
			continue
		}
		tag = strings.ReplaceAll(tag, "-", "_")
		if supported[tag] {
			return tag
		}
		if base := strings.SplitN(tag, "_", 2)[0]; supported[base] {
			return base
		}
	}
	return defaultLang
}
