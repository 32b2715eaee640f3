package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogFallback(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en.json": {Data: []byte(`{"greeting": "Hello %s", "bye": "Goodbye"}`)},
		"locales/ur.json": {Data: []byte(`{"greeting": "Salaam %s"}`)},
	}
	c := &Catalog{messages: make(map[string]map[string]string)}
	require.NoError(t, c.Load(fsys, "locales"))

	assert.Equal(t, []string{"en", "ur"}, c.Languages())
	assert.Equal(t, "Salaam Ali", c.T("ur", "greeting", "Ali"))
	assert.Equal(t, "Goodbye", c.T("ur", "bye"))
	assert.Equal(t, "Goodbye", c.T("fr", "bye"))
	assert.Equal(t, "missing.key", c.T("en", "missing.key"))
}

func TestCatalogRejectsBadJSON(t *testing.T) {
	fsys := fstest.MapFS{"locales/en.json": {Data: []byte(`{`)}}
	c := &Catalog{messages: make(map[string]map[string]string)}
	assert.Error(t, c.Load(fsys, "locales"))
}

func TestEmbeddedLocales(t *testing.T) {
	require.NoError(t, Initialize())
	assert.Contains(t, GetSupportedLanguages(), DefaultLanguage)
	assert.Equal(t, "Invalid input", T("en", KeyValidationInvalid, "input"))
	assert.Equal(t, "Too many requests. Please slow down.", T("en", KeyRateLimitExceeded))
}
