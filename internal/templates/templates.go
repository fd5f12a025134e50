// Package templates implements the Message Template Cache (C2): parametric
// message strings loaded from YAML at startup, formatted with named
// substitutions at call time. A missing template falls back to a literal
// default rather than failing the caller, matching the teacher's tolerant
// loader idiom (internal/items, internal/npc loaders log and continue).
package templates

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/gridkeep/server/internal/logger"
)

// Cache holds the loaded templates, keyed by template key.
type Cache struct {
	mu        sync.RWMutex
	templates map[string]string
}

type fileFormat struct {
	Messages map[string]string `yaml:"messages"`
}

// Load reads a YAML file of key -> template string pairs.
func Load(path string) (*Cache, error) {
	c := &Cache{templates: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warning("message template file not found, starting with empty cache", "path", path)
			return c, nil
		}
		return nil, fmt.Errorf("failed to read message templates: %w", err)
	}

	var parsed fileFormat
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse message templates YAML: %w", err)
	}

	c.templates = parsed.Messages
	if c.templates == nil {
		c.templates = make(map[string]string)
	}
	return c, nil
}

// Set installs or overrides a template at runtime (used by tests).
func (c *Cache) Set(key, template string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates[key] = template
}

// All returns a snapshot copy of every loaded template, keyed by key. Used
// to seed the repository's GetAllGameMessages response without reloading
// the same YAML file a second time.
func (c *Cache) All() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.templates))
	for k, v := range c.templates {
		out[k] = v
	}
	return out
}

var tokenPattern = regexp.MustCompile(`\{(\w+)\}|\[(\w+)\]`)

// Format substitutes named arguments into the template for key. `{name}`
// tokens substitute a single value; `[name]` tokens substitute a
// comma-joined list when the argument is a []string. Missing keys fall
// back to a generic literal message rather than erroring.
func (c *Cache) Format(key string, args map[string]any) string {
	c.mu.RLock()
	tmpl, ok := c.templates[key]
	c.mu.RUnlock()

	if !ok {
		logger.Warning("message template missing, using literal fallback", "key", key)
		return fallback(key, args)
	}

	return tokenPattern.ReplaceAllStringFunc(tmpl, func(tok string) string {
		name := strings.Trim(tok, "{}[]")
		val, present := args[name]
		if !present {
			return tok
		}
		if list, isList := val.([]string); isList {
			return strings.Join(list, ", ")
		}
		return fmt.Sprintf("%v", val)
	})
}

// fallback renders a best-effort literal message when a template key is
// not in the cache, so a missing data file degrades gracefully instead of
// breaking the handler.
func fallback(key string, args map[string]any) string {
	if name, ok := args["name"]; ok {
		return fmt.Sprintf("%s: %v", key, name)
	}
	return key
}
