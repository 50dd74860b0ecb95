// Package hostconfig exposes the host application's configuration file as a
// flat item lookup. YAML (and therefore JSON) and TOML files are supported.
package hostconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for file extensions other than .yaml, .yml,
// .json and .toml.
var ErrUnsupportedFormat = errors.New("unsupported host config format")

// Config is a read-only view of the host configuration.
type Config struct {
	path  string
	items map[string]any
}

// Load reads and parses the host configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	items, err := parse(filepath.Ext(path), data)
	if err != nil {
		return nil, err
	}

	return &Config{path: path, items: items}, nil
}

// FromMap wraps an already parsed mapping.
func FromMap(items map[string]any) *Config {
	if items == nil {
		items = map[string]any{}
	}
	return &Config{items: items}
}

func parse(ext string, data []byte) (map[string]any, error) {
	items := map[string]any{}

	switch strings.ToLower(ext) {
	case ".yaml", ".yml", ".json":
		if err := yaml.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("parse TOML: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if items == nil {
		items = map[string]any{}
	}
	return items, nil
}

// Item returns the value stored under key. Missing keys and explicit nulls
// report false.
func (c *Config) Item(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.items[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Path returns the file the configuration was loaded from, if any.
func (c *Config) Path() string {
	return c.path
}
