package normalization

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

type color string

const (
	red  color = "red"
	blue color = "blue"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer("color", map[string]color{"Red": red, "blue": blue}, red)

	tests := []struct {
		name  string
		input string
		want  color
	}{
		{"exact", "blue", blue},
		{"case insensitive", "RED", red},
		{"spaces", "  blue ", blue},
		{"unknown falls back", "green", red},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.input))
		})
	}
	assert.Equal(t, []string{"blue", "red"}, n.ValidKeys())
}

func TestNormalizeWithError(t *testing.T) {
	n := NewNormalizer("color", map[string]color{"red": red, "blue": blue}, red)

	got, err := n.NormalizeWithError(" BLUE ")
	require.NoError(t, err)
	assert.Equal(t, blue, got)

	got, err = n.NormalizeWithError("")
	require.NoError(t, err)
	assert.Equal(t, red, got)

	_, err = n.NormalizeWithError("green")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	assert.Contains(t, err.Error(), "valid options: blue, red")
}

func TestLogSettings(t *testing.T) {
	format, err := ParseLogFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, LogFormatJSON, format)

	format, err = ParseLogFormat("")
	require.NoError(t, err)
	assert.Equal(t, LogFormatText, format)

	_, err = ParseLogFormat("xml")
	require.Error(t, err)

	level, err := ParseLogLevel("warning")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	assert.Contains(t, LogFormats(), "json")
}
