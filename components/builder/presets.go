package builder

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	presetVersionV1 = "1"
	// PresetVersion exposes the current preset format version for tooling.
	PresetVersion = presetVersionV1
)

//go:embed presets/*.yaml
var presetFS embed.FS

// Preset is a named set of panels appended to a dashboard in one step.
type Preset struct {
	Version     string        `json:"version" yaml:"version"`
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Panels      []PanelConfig `json:"panels" yaml:"panels"`
	Source      string        `json:"-" yaml:"-"`
}

// Validate ensures the preset is usable.
func (p Preset) Validate() error {
	if p.Version != presetVersionV1 {
		return fmt.Errorf("builder: unsupported preset version %q", p.Version)
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("builder: preset name is required")
	}
	if len(p.Panels) == 0 {
		return fmt.Errorf("builder: preset %s has no panels", p.Name)
	}
	for idx, cfg := range p.Panels {
		if err := cfg.validate(); err != nil {
			return fmt.Errorf("builder: preset %s panel %d: %w", p.Name, idx, err)
		}
		for _, ref := range cfg.Indicators {
			if strings.TrimSpace(ref.Code) == "" {
				return fmt.Errorf("builder: preset %s panel %d has an indicator without code", p.Name, idx)
			}
		}
	}
	return nil
}

func (p *Preset) applyDefaults() {
	if p.Version == "" {
		p.Version = presetVersionV1
	}
}

// DecodePreset reads a YAML preset from any reader.
func DecodePreset(r io.Reader) (*Preset, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var preset Preset
	if err := decoder.Decode(&preset); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("builder: preset is empty")
		}
		return nil, fmt.Errorf("builder: parse preset: %w", err)
	}
	preset.applyDefaults()
	if err := preset.Validate(); err != nil {
		return nil, err
	}
	return &preset, nil
}

// ReadPreset loads a preset file from disk.
func ReadPreset(filename string) (*Preset, error) {
	f, err := os.Open(filename) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("builder: open preset %s: %w", filename, err)
	}
	defer f.Close()
	preset, err := DecodePreset(f)
	if err != nil {
		return nil, fmt.Errorf("builder: decode preset %s: %w", filename, err)
	}
	preset.Source = filename
	return preset, nil
}

// DefaultPresets returns the bundled presets sorted by name.
func DefaultPresets() ([]Preset, error) {
	entries, err := fs.ReadDir(presetFS, "presets")
	if err != nil {
		return nil, fmt.Errorf("builder: list presets: %w", err)
	}
	out := make([]Preset, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}
		name := path.Join("presets", entry.Name())
		f, err := presetFS.Open(name)
		if err != nil {
			return nil, fmt.Errorf("builder: open preset %s: %w", name, err)
		}
		preset, err := DecodePreset(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("builder: decode preset %s: %w", name, err)
		}
		preset.Source = name
		out = append(out, *preset)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// FindPreset returns the bundled preset with the given name.
func FindPreset(name string) (Preset, bool) {
	presets, err := DefaultPresets()
	if err != nil {
		return Preset{}, false
	}
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
