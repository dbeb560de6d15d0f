// Package profile reads reader profiles for the command line tool. A
// profile file carries the reader's standing interests, a goal for one
// document and optional selection overrides.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrEmptyProfile is returned when a file has no profile text.
var ErrEmptyProfile = errors.New("profile text is empty")

// Profile is the content of a profile file. Zero values mean "use the
// configured default".
type Profile struct {
	Profile   string  `toml:"profile" yaml:"profile"`
	Goal      string  `toml:"goal" yaml:"goal"`
	Density   float64 `toml:"density" yaml:"density"`
	Threshold float64 `toml:"threshold" yaml:"threshold"`
	Pages     string  `toml:"pages" yaml:"pages"`
}

// Load reads a profile by file extension: .toml, .yaml/.yml, or any other
// extension as plain profile text.
func Load(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes data in the format named by ext.
func Parse(data []byte, ext string) (Profile, error) {
	var p Profile
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.Unmarshal(data, &p); err != nil {
			return Profile{}, fmt.Errorf("parse toml profile: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &p); err != nil {
			return Profile{}, fmt.Errorf("parse yaml profile: %w", err)
		}
	default:
		p.Profile = string(data)
	}

	p.Profile = strings.TrimSpace(p.Profile)
	p.Goal = strings.TrimSpace(p.Goal)
	p.Pages = strings.TrimSpace(p.Pages)
	if p.Profile == "" {
		return Profile{}, ErrEmptyProfile
	}
	if p.Density < 0 || p.Density > 1 {
		return Profile{}, fmt.Errorf("density must be within 0..1, got %v", p.Density)
	}
	if p.Threshold < 0 || p.Threshold > 1 {
		return Profile{}, fmt.Errorf("threshold must be within 0..1, got %v", p.Threshold)
	}
	return p, nil
}
