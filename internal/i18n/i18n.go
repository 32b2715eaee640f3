// internal/i18n/i18n.go
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
)

// DefaultLanguage is used when a key is missing in the requested language.
const DefaultLanguage = "en"

//go:embed locales/*.json
var localeFS embed.FS

// Catalog maps language to message key to format string.
type Catalog struct {
	mu       sync.RWMutex
	messages map[string]map[string]string
}

var (
	catalog  *Catalog
	loadOnce sync.Once
	loadErr  error
)

// Initialize loads the embedded locale files once.
func Initialize() error {
	loadOnce.Do(func() {
		c := &Catalog{messages: make(map[string]map[string]string)}
		if loadErr = c.Load(localeFS, "locales"); loadErr == nil {
			catalog = c
		}
	})
	return loadErr
}

// Load reads every <lang>.json file under dir of fsys.
func (c *Catalog) Load(fsys fs.FS, dir string) error {
	files, err := fs.Glob(fsys, path.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("list locales: %w", err)
	}
	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("read locale %s: %w", file, err)
		}
		var messages map[string]string
		if err := json.Unmarshal(data, &messages); err != nil {
			return fmt.Errorf("decode locale %s: %w", file, err)
		}
		lang := strings.TrimSuffix(path.Base(file), ".json")

		c.mu.Lock()
		c.messages[lang] = messages
		c.mu.Unlock()
	}
	return nil
}

// T formats key in lang, then in DefaultLanguage, and returns the key
// itself when neither has it.
func (c *Catalog) T(lang, key string, args ...interface{}) string {
	c.mu.RLock()
	text, ok := c.messages[lang][key]
	if !ok {
		text, ok = c.messages[DefaultLanguage][key]
	}
	c.mu.RUnlock()

	if !ok {
		return key
	}
	if len(args) == 0 {
		return text
	}
	return fmt.Sprintf(text, args...)
}

// Languages lists the loaded languages in sorted order.
func (c *Catalog) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	langs := make([]string, 0, len(c.messages))
	for lang := range c.messages {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

func T(lang, key string, args ...interface{}) string {
	if catalog == nil {
		return key
	}
	return catalog.T(lang, key, args...)
}

func GetSupportedLanguages() []string {
	if catalog == nil {
		return []string{DefaultLanguage}
	}
	return catalog.Languages()
}
