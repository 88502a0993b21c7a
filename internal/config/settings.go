package config

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// Defaults for the root settings.
const (
	DefaultOutputFolder = "_build"
	DefaultStaticFolder = "static"
	DefaultTemplatePath = "_templates"
	DefaultURLRoot      = "/"
)

// Settings is the typed view of the root configuration keys the build
// driver needs before any file is processed.
type Settings struct {
	OutputFolder  string            `yaml:"output_folder"`
	StaticFolder  string            `yaml:"static_folder"`
	TemplatePath  string            `yaml:"template_path"`
	URLRoot       string            `yaml:"url_root"`
	ActiveModules []string          `yaml:"active_modules"`
	IgnoreFiles   []string          `yaml:"ignore_files"`
	Programs      map[string]string `yaml:"programs"`
}

// DecodeSettings decodes the root namespace of cfg into Settings and applies
// defaults.
func DecodeSettings(cfg *Config) (*Settings, error) {
	// Round-trip through yaml so field tags drive the decode.
	raw, err := yaml.Marshal(cfg.root)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "failed to encode root config").Build()
	}
	var s Settings
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid root config").
			WithSource(FileName).
			Build()
	}
	s.applyDefaults()
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) applyDefaults() {
	if s.OutputFolder == "" {
		s.OutputFolder = DefaultOutputFolder
	}
	if s.StaticFolder == "" {
		s.StaticFolder = DefaultStaticFolder
	}
	if s.TemplatePath == "" {
		s.TemplatePath = DefaultTemplatePath
	}
	if s.URLRoot == "" {
		s.URLRoot = DefaultURLRoot
	}
	if !strings.HasSuffix(s.URLRoot, "/") {
		s.URLRoot += "/"
	}
}

func (s *Settings) validate() error {
	for _, name := range []string{s.OutputFolder, s.StaticFolder} {
		if strings.HasPrefix(name, "/") || strings.Contains(name, "..") {
			return errors.ValidationError(fmt.Sprintf("folder %q must be relative to the project", name)).
				WithSource(FileName).
				Build()
		}
	}
	seen := make(map[string]struct{}, len(s.ActiveModules))
	for _, m := range s.ActiveModules {
		if _, dup := seen[m]; dup {
			return errors.ValidationError(fmt.Sprintf("module %q listed twice in active_modules", m)).
				WithSource(FileName).
				Build()
		}
		seen[m] = struct{}{}
	}
	return nil
}

// ProgramPatterns returns the configured program patterns in a stable order.
func (s *Settings) ProgramPatterns() []string {
	patterns := make([]string, 0, len(s.Programs))
	for p := range s.Programs {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)
	return patterns
}
