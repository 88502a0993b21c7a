package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

func TestDecodeSettings_Defaults(t *testing.T) {
	s, err := DecodeSettings(Empty())
	require.NoError(t, err)

	assert.Equal(t, DefaultOutputFolder, s.OutputFolder)
	assert.Equal(t, DefaultStaticFolder, s.StaticFolder)
	assert.Equal(t, DefaultTemplatePath, s.TemplatePath)
	assert.Equal(t, "/", s.URLRoot)
	assert.Empty(t, s.ActiveModules)
}

func TestDecodeSettings_Values(t *testing.T) {
	cfg := New(map[string]any{
		"output_folder":  "public",
		"url_root":       "/blog",
		"active_modules": []any{"highlight", "latex"},
		"ignore_files":   []any{"*.draft"},
		"programs":       map[string]any{"*.less": "exec:lessc %.less %.css", "*.md": "markup"},
	})

	s, err := DecodeSettings(cfg)
	require.NoError(t, err)

	assert.Equal(t, "public", s.OutputFolder)
	assert.Equal(t, "/blog/", s.URLRoot)
	assert.Equal(t, []string{"highlight", "latex"}, s.ActiveModules)
	assert.Equal(t, []string{"*.draft"}, s.IgnoreFiles)
	assert.Equal(t, []string{"*.less", "*.md"}, s.ProgramPatterns())
}

func TestDecodeSettings_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  map[string]any
	}{
		{"absolute output", map[string]any{"output_folder": "/tmp/out"}},
		{"escaping static", map[string]any{"static_folder": "../static"}},
		{"duplicate module", map[string]any{"active_modules": []any{"latex", "latex"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSettings(New(tt.cfg))
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
		})
	}
}
