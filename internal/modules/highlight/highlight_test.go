package highlight

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/document"
	"git.home.luguber.info/inful/blogbuilder/internal/extension"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

type memFile struct {
	bytes.Buffer
	closed bool
}

func (f *memFile) Close() error {
	f.closed = true
	return nil
}

type memStatic struct {
	files map[string]*memFile
}

func (s *memStatic) FullStaticFilename(rel string) string { return "/static/" + rel }
func (s *memStatic) StaticURL(rel string) string          { return "/static/" + rel }
func (s *memStatic) OpenStaticFile(rel string) (io.WriteCloser, error) {
	f := &memFile{}
	s.files[rel] = f
	return f, nil
}

func setup(t *testing.T, root map[string]any) (*Module, *extension.SetupContext) {
	t.Helper()
	sc := &extension.SetupContext{
		Config:   config.New(root),
		Registry: extension.NewRegistry(),
		Hooks:    extension.NewHooks(),
	}
	m := New()
	require.NoError(t, m.Setup(sc))
	return m, sc
}

func TestSetupRegistersDirectivesAndHooks(t *testing.T) {
	_, sc := setup(t, nil)

	assert.NotNil(t, sc.Registry.FallbackDirective())
	assert.Equal(t, []string{"code-block", "sourcecode"}, sc.Registry.Directives())
	file, build := sc.Hooks.Counts()
	assert.Equal(t, 1, file)
	assert.Equal(t, 1, build)
}

func TestHighlightUsesClasses(t *testing.T) {
	m, sc := setup(t, nil)

	out, err := sc.Registry.FallbackDirective().Render(nil, extension.Block{Name: "go", Content: "package main"})
	require.NoError(t, err)
	assert.Contains(t, string(out), `class="chroma"`)
	assert.Contains(t, string(out), "package")
	assert.NotContains(t, string(out), "style=")

	plain, err := m.Highlight("no-such-language", "<x>")
	require.NoError(t, err)
	assert.Contains(t, string(plain), "&lt;x&gt;")
}

func TestExplicitDirectiveNeedsLanguage(t *testing.T) {
	_, sc := setup(t, nil)
	d, ok := sc.Registry.Directive("code-block")
	require.True(t, ok)

	_, err := d.Render(nil, extension.Block{Name: "code-block", Content: "x"})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryMarkup))

	out, err := d.Render(nil, extension.Block{Name: "code-block", Args: []string{"python"}, Content: "def f(): pass"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "def")
}

func TestHooksAttachAndWriteStylesheet(t *testing.T) {
	_, sc := setup(t, map[string]any{"modules": map[string]any{"highlight": map[string]any{"style": "monokai"}}})

	static := &memStatic{files: map[string]*memFile{}}
	doc := document.New(&document.Environment{URLRoot: "/", Static: static}, "a.md", nil)
	require.NoError(t, sc.Hooks.FireBeforeFileProcessed(doc))
	require.NoError(t, sc.Hooks.FireBeforeFileProcessed(doc))
	assert.Equal(t, []string{"/static/_highlight.css"}, doc.Stylesheets())

	require.NoError(t, sc.Hooks.FireBeforeBuildFinished(static))
	css := static.files[Stylesheet]
	require.NotNil(t, css)
	assert.True(t, css.closed)
	assert.Contains(t, css.String(), ".chroma")
}

func TestUnknownStyle(t *testing.T) {
	sc := &extension.SetupContext{
		Config:   config.New(map[string]any{"modules": map[string]any{"highlight": map[string]any{"style": "nope"}}}),
		Registry: extension.NewRegistry(),
		Hooks:    extension.NewHooks(),
	}
	err := New().Setup(sc)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLexerOptionsApply(t *testing.T) {
	assert.Equal(t, "x = 1\n", DefaultLexerOptions.apply("\n\nx = 1\n\n"))
	assert.Equal(t, "  x\n", DefaultLexerOptions.apply("  x"))
	assert.Equal(t, "x", LexerOptions{StripAll: true}.apply(" \n x \n"))
	assert.Equal(t, "\nx\n", LexerOptions{EnsureNL: true}.apply("\nx"))
	assert.Equal(t, "a   b\n        c\n", LexerOptions{TabSize: 4, EnsureNL: true}.apply("a\tb\n\t\tc"))
}

func TestLexerOptionsFromConfig(t *testing.T) {
	m, _ := setup(t, map[string]any{
		"modules": map[string]any{"highlight": map[string]any{"lexers": map[string]any{
			"No-Such-Language": map[string]any{"tabsize": 4, "stripnl": false},
			"go":               nil,
		}}},
	})

	assert.Equal(t, LexerOptions{EnsureNL: true, TabSize: 4}, m.lexerOpts["no-such-language"])
	assert.Equal(t, DefaultLexerOptions, m.lexerOpts["go"])

	out, err := m.Highlight("no-such-language", "a\tb")
	require.NoError(t, err)
	assert.Contains(t, string(out), "a   b")
}

func TestInvalidLexerOptions(t *testing.T) {
	for name, lexers := range map[string]any{
		"not a mapping":    []any{"python"},
		"options scalar":   map[string]any{"python": "yes"},
		"unknown option":   map[string]any{"python": map[string]any{"encoding": "utf-8"}},
		"bool type":        map[string]any{"python": map[string]any{"stripall": "yes"}},
		"negative tabsize": map[string]any{"python": map[string]any{"tabsize": -1}},
	} {
		t.Run(name, func(t *testing.T) {
			sc := &extension.SetupContext{
				Config:   config.New(map[string]any{"modules": map[string]any{"highlight": map[string]any{"lexers": lexers}}}),
				Registry: extension.NewRegistry(),
				Hooks:    extension.NewHooks(),
			}
			err := New().Setup(sc)
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
		})
	}
}
