package extension

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest is the on-disk descriptor that enables an extension. An empty file
// is a valid manifest.
//
//	disabled: false
//	settings:
//	  reactions: true
type Manifest struct {
	Disabled bool           `yaml:"disabled"`
	Settings map[string]any `yaml:"settings"`
	// Source is the file the manifest was read from, if any.
	Source string `yaml:"-"`
}

// ReadManifest parses the manifest at file.
func ReadManifest(file string) (Manifest, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", file, err)
	}
	m.Source = file
	return m, nil
}

// Bool returns a boolean setting or def.
func (m Manifest) Bool(key string, def bool) bool {
	if v, ok := m.Settings[key].(bool); ok {
		return v
	}
	return def
}

// String returns a string setting or def.
func (m Manifest) String(key, def string) string {
	if v, ok := m.Settings[key].(string); ok {
		return v
	}
	return def
}

// Int returns an integer setting or def.
func (m Manifest) Int(key string, def int) int {
	switch v := m.Settings[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

// IsManifest reports whether name looks like an extension manifest. Names
// starting with an underscore are private and never loaded.
func IsManifest(name string) bool {
	if strings.HasPrefix(name, "_") {
		return false
	}
	switch filepath.Ext(name) {
	case ".yml", ".yaml":
		return true
	}
	return false
}

// Dotted converts a manifest file under root into an extension path: the file
// is taken relative to root's parent, separators become dots and the extension
// is dropped, so "cogs/owner.yml" becomes "cogs.owner".
func Dotted(root, file string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absFile, err := filepath.Abs(file)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(filepath.Dir(absRoot), absFile)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", file, root)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return strings.Join(strings.Split(filepath.ToSlash(rel), "/"), "."), nil
}
