package latex

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/assetcache"
	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/document"
	"git.home.luguber.info/inful/blogbuilder/internal/extension"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/workspace"
)

type dirStatic struct{ root string }

func (s dirStatic) FullStaticFilename(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}
func (s dirStatic) StaticURL(rel string) string { return "/static/" + rel }

type fixture struct {
	dir    string
	static dirStatic
	log    string
	sc     *extension.SetupContext
	mod    *Module
}

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o700))
}

// newFixture installs fake latex and dvipng tools that log every call.
func newFixture(t *testing.T, extra map[string]any, latexBody string) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{dir: dir, static: dirStatic{root: filepath.Join(dir, "static")}, log: filepath.Join(dir, "calls.log")}

	latexBin := filepath.Join(dir, "fake-latex")
	dvipngBin := filepath.Join(dir, "fake-dvipng")
	if latexBody == "" {
		latexBody = "echo \"latex $*\" >> " + f.log + "\necho dvi > math.dvi\n"
	}
	writeScript(t, latexBin, latexBody)
	writeScript(t, dvipngBin, "echo \"dvipng $*\" >> "+f.log+"\necho png > \"$2\"\n")

	settings := map[string]any{"latex": latexBin, "dvipng": dvipngBin}
	for k, v := range extra {
		settings[k] = v
	}
	f.sc = &extension.SetupContext{
		Config:   config.New(map[string]any{"modules": map[string]any{"latex": settings}}),
		Registry: extension.NewRegistry(),
		Hooks:    extension.NewHooks(),
		Assets:   assetcache.New(f.static, workspace.NewManager(filepath.Join(dir, "tmp")), nil),
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tmp"), 0o750))
	f.mod = New()
	require.NoError(t, f.mod.Setup(f.sc))
	return f
}

func (f *fixture) calls(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(f.log)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func (f *fixture) render(t *testing.T, block extension.Block) (string, error) {
	t.Helper()
	d, ok := f.sc.Registry.Directive(Directive)
	require.True(t, ok)
	doc := document.New(&document.Environment{}, "posts/formula.md", nil)
	out, err := d.Render(doc, block)
	return string(out), err
}

func TestMathRendersImage(t *testing.T) {
	f := newFixture(t, nil, "")

	out, err := f.render(t, extension.Block{Name: Directive, Content: "a < b"})
	require.NoError(t, err)

	rel := CacheDir + "/" + assetcache.Fingerprint("a < b") + ".png"
	assert.Equal(t, `<blockquote class="math"><img src="/static/`+rel+`" alt="a &lt; b"></blockquote>`, out)
	assert.FileExists(t, f.static.FullStaticFilename(rel))

	calls := f.calls(t)
	require.Len(t, calls, 2)
	assert.Equal(t, "latex --interaction=nonstopmode math.tex", calls[0])
	assert.Contains(t, calls[1], "-T tight -z9 -D 115 ")
	assert.True(t, strings.HasSuffix(calls[1], "math.dvi"))
}

func TestMathIsTypesetOnce(t *testing.T) {
	f := newFixture(t, nil, "")

	first, err := f.render(t, extension.Block{Name: Directive, Content: "x^2"})
	require.NoError(t, err)
	second, err := f.render(t, extension.Block{Name: Directive, Content: "x^2"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, f.calls(t), 2)
}

func TestMathArgumentIsPrepended(t *testing.T) {
	f := newFixture(t, nil, "")

	out, err := f.render(t, extension.Block{Name: Directive, Args: []string{"E", "=", "mc^2"}, Content: "y"})
	require.NoError(t, err)
	assert.Contains(t, out, assetcache.Fingerprint("E = mc^2\n\ny"))
}

func TestFontSizeControlsDPI(t *testing.T) {
	f := newFixture(t, map[string]any{"font_size": 20}, "")
	assert.Equal(t, 144, f.mod.DPI())

	_, err := f.render(t, extension.Block{Name: Directive, Content: "z"})
	require.NoError(t, err)
	assert.Contains(t, f.calls(t)[1], "-D 144 ")
}

func TestInvalidFontSize(t *testing.T) {
	sc := &extension.SetupContext{
		Config:   config.New(map[string]any{"modules": map[string]any{"latex": map[string]any{"font_size": "big"}}}),
		Registry: extension.NewRegistry(),
		Hooks:    extension.NewHooks(),
		Assets:   assetcache.New(dirStatic{root: t.TempDir()}, nil, nil),
	}
	err := New().Setup(sc)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLatexFailureLeavesNoImage(t *testing.T) {
	f := newFixture(t, nil, "echo 'undefined control sequence' >&2\nexit 1\n")

	_, err := f.render(t, extension.Block{Name: Directive, Content: `\bad`})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryProcess))
	assert.Equal(t, "posts/formula.md", errors.SourceOf(err))
	assert.Contains(t, err.Error(), "exited with error")

	entries, _ := os.ReadDir(filepath.Join(f.static.root, CacheDir))
	assert.Empty(t, entries)
}

func TestWrapDisplayMath(t *testing.T) {
	got := WrapDisplayMath("a\n\nb")
	assert.Equal(t, "\\begin{gather}\n\\begin{split}a\\end{split}\\notag\\\\\\begin{split}b\\end{split}\\notag\n\\end{gather}", got)
}
