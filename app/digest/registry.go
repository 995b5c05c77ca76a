package digest

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

type registryFile struct {
	Sources []SourceConfig `yaml:"sources"`
	Presets []SourcePreset `yaml:"presets"`
}

// Registry holds the static source list and Google News presets loaded from YAML.
type Registry struct {
	path    string
	sources []SourceConfig
	presets []SourcePreset
	mu      sync.RWMutex
}

func NewRegistry(path string) *Registry {
	return &Registry{path: path}
}

// NewStaticRegistry builds a registry from in-memory definitions.
func NewStaticRegistry(sources []SourceConfig, presets []SourcePreset) (*Registry, error) {
	file := &registryFile{Sources: sources, Presets: presets}
	applyDefaults(file)
	if err := validateRegistry(file); err != nil {
		return nil, err
	}
	return &Registry{sources: file.Sources, presets: file.Presets}, nil
}

// Run loads the registry file. A missing file leaves the registry empty.
func (r *Registry) Run() error {
	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		slog.Warn("Sources file not found, registry is empty", "path", r.path)
		return nil
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	applyDefaults(&file)

	if err := validateRegistry(&file); err != nil {
		return fmt.Errorf("invalid sources file %s: %w", r.path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = file.Sources
	r.presets = file.Presets

	slog.Debug("Source registry loaded", "path", r.path, "sources", len(file.Sources), "presets", len(file.Presets))

	return nil
}

func (r *Registry) GetSources() []SourceConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]SourceConfig, len(r.sources))
	copy(sources, r.sources)
	return sources
}

func (r *Registry) GetSource(id string) (SourceConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, source := range r.sources {
		if source.ID == id {
			return source, true
		}
	}
	return SourceConfig{}, false
}

func (r *Registry) GetPresets() []SourcePreset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	presets := make([]SourcePreset, len(r.presets))
	copy(presets, r.presets)
	return presets
}

func (r *Registry) GetPreset(id string) (*SourcePreset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.presets {
		if r.presets[i].ID == id {
			preset := r.presets[i]
			return &preset, true
		}
	}
	return nil, false
}

func (r *Registry) GetSourceCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}

func applyDefaults(file *registryFile) {
	for i := range file.Sources {
		source := &file.Sources[i]
		if source.Type == "" {
			source.Type = SourceTypeRSS
		}
		if source.Name == "" {
			source.Name = source.ID
		}
		if source.Language == "" {
			source.Language = "en"
		}
		if source.Weight == 0 {
			source.Weight = 1
		}
		if source.Topics == nil {
			source.Topics = []string{}
		}
	}

	for i := range file.Presets {
		preset := &file.Presets[i]
		if preset.GoogleMode == "" {
			preset.GoogleMode = GoogleModeSearch
		}
		if preset.Name == "" {
			preset.Name = preset.ID
		}
		if preset.Weight == 0 {
			preset.Weight = 0.8
		}
		if preset.Topics == nil {
			preset.Topics = []string{}
		}
	}
}

var validFilterFields = map[string]bool{
	"title":   true,
	"excerpt": true,
	"url":     true,
	"topics":  true,
}

func validateRegistry(file *registryFile) error {
	seen := make(map[string]bool, len(file.Sources))

	for i, source := range file.Sources {
		if source.ID == "" {
			return fmt.Errorf("source at index %d: id is required", i)
		}
		if seen[source.ID] {
			return fmt.Errorf("duplicate source id: %s", source.ID)
		}
		seen[source.ID] = true

		if source.URL == "" {
			return fmt.Errorf("source %s: url is required", source.ID)
		}
		if source.Type != SourceTypeRSS && source.Type != SourceTypeJSON {
			return fmt.Errorf("source %s: invalid type %q", source.ID, source.Type)
		}
		if source.Language != "de" && source.Language != "en" {
			return fmt.Errorf("source %s: invalid language %q", source.ID, source.Language)
		}
		if source.Weight < 0 {
			return fmt.Errorf("source %s: weight must be non-negative", source.ID)
		}

		for j, filter := range source.Filters {
			if !validFilterFields[filter.Field] {
				return fmt.Errorf("source %s: invalid filter field at index %d: %s", source.ID, j, filter.Field)
			}
			if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
				return fmt.Errorf("source %s: filter at index %d must have at least one include or exclude rule", source.ID, j)
			}
		}
	}

	seenPresets := make(map[string]bool, len(file.Presets))
	for i, preset := range file.Presets {
		if preset.ID == "" {
			return fmt.Errorf("preset at index %d: id is required", i)
		}
		if seenPresets[preset.ID] {
			return fmt.Errorf("duplicate preset id: %s", preset.ID)
		}
		seenPresets[preset.ID] = true

		switch preset.GoogleMode {
		case GoogleModeTop, GoogleModeSearch, GoogleModeTopic, GoogleModeTopicSection:
		default:
			return fmt.Errorf("preset %s: invalid google mode %q", preset.ID, preset.GoogleMode)
		}
	}

	return nil
}
