package programs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

func TestParseSpec(t *testing.T) {
	for _, raw := range []string{"copy", "markup", "templated", " markup "} {
		spec, err := ParseSpec(raw)
		require.NoError(t, err, raw)
		assert.NotEqual(t, KindExec, spec.Kind)
	}

	spec, err := ParseSpec("exec:lessc %.less %.css")
	require.NoError(t, err)
	assert.Equal(t, KindExec, spec.Kind)
	assert.Equal(t, ".css", spec.Command.DestinationSuffix)

	_, err = ParseSpec("pandoc")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))

	_, err = ParseSpec("exec:tool %a %b %c")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryCommandTemplate))
}

func TestNewRegistry_ValidatesEagerly(t *testing.T) {
	_, err := NewRegistry(map[string]string{"*.less": "exec:lessc %.less"})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryCommandTemplate))

	_, err = NewRegistry(map[string]string{"[": "copy"})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))

	_, err = NewRegistry(map[string]string{"*.less": "exec:lessc %.less %.css"})
	require.NoError(t, err)
}

func TestRegistry_Resolve(t *testing.T) {
	f := newFixture(t)
	reg, err := NewRegistry(nil)
	require.NoError(t, err)

	root := config.New(map[string]any{
		"programs": map[string]any{
			"*.less":          "exec:lessc %.less %.css",
			"*.txt":           "markup",
			"posts/**/*.html": "templated",
			"*.html":          "copy",
		},
	})

	tests := []struct {
		source  string
		kind    Kind
		pattern string
	}{
		{"style.less", KindExec, "*.less"},
		{"css/deep/style.less", KindExec, "*.less"},
		{"posts/hello.md", KindMarkup, "*.md"},
		{"about.rst", KindMarkup, "*.rst"},
		{"notes.txt", KindMarkup, "*.txt"},
		{"posts/2024/x.html", KindTemplated, "posts/**/*.html"},
		{"other/x.html", KindCopy, "*.html"},
		{"image.png", KindCopy, ""},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			spec, pattern, err := reg.Resolve(f.doc(tt.source, root))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, spec.Kind)
			assert.Equal(t, tt.pattern, pattern)
		})
	}
}

func TestRegistry_DirectoryConfigOverridesDefault(t *testing.T) {
	f := newFixture(t)
	reg, err := NewRegistry(nil)
	require.NoError(t, err)

	cfg := config.New(map[string]any{"programs": map[string]any{"*.md": "copy"}})
	spec, _, err := reg.Resolve(f.doc("raw/readme.md", cfg))
	require.NoError(t, err)
	assert.Equal(t, KindCopy, spec.Kind)
}

func TestRegistry_InvalidDirectorySpecNamesSource(t *testing.T) {
	f := newFixture(t)
	reg, err := NewRegistry(nil)
	require.NoError(t, err)

	cfg := config.New(map[string]any{"programs": map[string]any{"*.x": "exec:tool %a"}})
	_, _, err = reg.Resolve(f.doc("a.x", cfg))
	require.Error(t, err)
	assert.Equal(t, "a.x", errors.SourceOf(err))
	assert.True(t, errors.HasCategory(err, errors.CategoryCommandTemplate))
}

func TestRegistry_SelectInstantiatesVariant(t *testing.T) {
	f := newFixture(t)
	reg, err := NewRegistry(nil)
	require.NoError(t, err)

	cfg := config.New(map[string]any{"programs": map[string]any{"*.a": "exec:echo %.a %.b", "*.t": "templated"}})

	p, _, err := reg.Select(f.doc("x.md", cfg))
	require.NoError(t, err)
	assert.IsType(t, &Markup{}, p)

	p, _, err = reg.Select(f.doc("x.a", cfg))
	require.NoError(t, err)
	assert.IsType(t, &Exec{}, p)

	p, _, err = reg.Select(f.doc("x.t", cfg))
	require.NoError(t, err)
	assert.IsType(t, &Templated{}, p)

	p, _, err = reg.Select(f.doc("x.bin", cfg))
	require.NoError(t, err)
	assert.IsType(t, &Copy{}, p)
}

func TestOrderPatterns(t *testing.T) {
	got := orderPatterns(map[string]string{"*.md": "", "posts/*.md": "", "*.rs": "", "b/*.md": ""})
	assert.Equal(t, []string{"posts/*.md", "b/*.md", "*.md", "*.rs"}, got)
}
