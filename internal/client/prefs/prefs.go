// Package prefs persists client preferences as YAML in the user config dir.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"lorewiki/internal/client/api"
	"lorewiki/internal/client/view"
)

// Prefs are the settings that survive between runs.
type Prefs struct {
	Theme  string `yaml:"theme"`
	Server string `yaml:"server"`
}

// Default returns the preferences used when no file exists.
func Default() Prefs {
	return Prefs{Theme: string(view.ThemeDark), Server: api.DefaultServer}
}

// DefaultPath returns <user config dir>/lorewiki/prefs.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "lorewiki", "prefs.yaml"), nil
}

// Load reads path. A missing file yields Default; blank fields are filled
// from Default.
func Load(path string) (Prefs, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("read prefs: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Default(), fmt.Errorf("parse prefs %s: %w", path, err)
	}

	d := Default()
	if p.Server == "" {
		p.Server = d.Server
	}
	p.Theme = string(view.ParseTheme(p.Theme))
	return p, nil
}

// Save writes p to path, creating the directory if needed.
func Save(path string, p Prefs) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return os.Rename(tmp, path)
}
