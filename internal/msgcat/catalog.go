// Package msgcat holds the user-facing status strings as text/template
// snippets keyed by dotted names ("drill.main").
package msgcat

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var defaultFS embed.FS

var (
	ErrUnknownKey   = errors.New("unknown message key")
	ErrDuplicateKey = errors.New("duplicate message key")
)

// Catalog is a flat key -> template table. Later layers replace earlier ones.
type Catalog struct {
	mu    sync.RWMutex
	texts map[string]string
	tmpls map[string]*template.Template
}

// New loads the embedded English messages, then every *.yaml/*.yml file in
// overrideDir when it is set. A key may appear in only one override file.
func New(overrideDir string) (*Catalog, error) {
	c := &Catalog{texts: map[string]string{}, tmpls: map[string]*template.Template{}}
	base, err := readLayer(defaultFS)
	if err != nil {
		return nil, fmt.Errorf("embedded messages: %w", err)
	}
	c.apply(base)
	if dir := strings.TrimSpace(overrideDir); dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("messages dir: %w", err)
		}
		over, err := readLayer(os.DirFS(dir))
		if err != nil {
			return nil, fmt.Errorf("messages dir %s: %w", dir, err)
		}
		c.apply(over)
	}
	return c, nil
}

// Default is New(""). It panics because the embedded file ships in the binary.
func Default() *Catalog {
	c, err := New("")
	if err != nil {
		panic(err)
	}
	return c
}

// readLayer merges the YAML files at the root of fsys in name order.
func readLayer(fsys fs.FS) (map[string]string, error) {
	names, err := fs.Glob(fsys, "*")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	layer := map[string]string{}
	origin := map[string]string{}
	for _, name := range names {
		if ext := strings.ToLower(path.Ext(name)); ext != ".yaml" && ext != ".yml" {
			continue
		}
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		var doc map[string]any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		flat := map[string]string{}
		if err := flatten(doc, "", flat); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		for k, v := range flat {
			if prev, dup := origin[k]; dup {
				return nil, fmt.Errorf("%w %q in %s and %s", ErrDuplicateKey, k, prev, name)
			}
			origin[k] = name
			layer[k] = v
		}
	}
	return layer, nil
}

func flatten(node any, prefix string, out map[string]string) error {
	switch v := node.(type) {
	case nil:
		return nil
	case string:
		if prefix == "" {
			return errors.New("top-level string without a key")
		}
		out[prefix] = v
		return nil
	case map[string]any:
		for k, child := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if err := flatten(child, key, out); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%s: want a string or a mapping, got %T", prefix, v)
	}
}

func (c *Catalog) apply(layer map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range layer {
		c.texts[k] = v
		delete(c.tmpls, k)
	}
}

// Keys lists the loaded keys in order.
func (c *Catalog) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.texts))
	for k := range c.texts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Render executes the template for key. Fields missing from data are errors.
func (c *Catalog) Render(key string, data any) (string, error) {
	t, err := c.lookup(strings.TrimSpace(key))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Text is Render that falls back to the key itself, for status lines.
func (c *Catalog) Text(key string, data any) string {
	if s, err := c.Render(key, data); err == nil {
		return s
	}
	return key
}

func (c *Catalog) lookup(key string) (*template.Template, error) {
	c.mu.RLock()
	t, cached := c.tmpls[key]
	text, ok := c.texts[key]
	c.mu.RUnlock()
	if cached {
		return t, nil
	}
	if !ok || strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	t, err := template.New(key).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", key, err)
	}
	c.mu.Lock()
	c.tmpls[key] = t
	c.mu.Unlock()
	return t, nil
}
