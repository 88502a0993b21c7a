package programs

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/document"
)

// countingMarkup treats a leading "# " line as the title and the rest as a
// single paragraph.
type countingMarkup struct {
	calls int
}

func (m *countingMarkup) RenderMarkup(_ *document.Context, text string) (*document.Fragments, error) {
	m.calls++
	frags := &document.Fragments{}
	body := strings.TrimSpace(text)
	if first, rest, _ := strings.Cut(body, "\n"); strings.HasPrefix(first, "# ") {
		frags.Title = strings.TrimPrefix(first, "# ")
		body = strings.TrimSpace(rest)
	}
	if body != "" {
		frags.HTML = template.HTML("<p>" + body + "</p>")
		frags.Summary = body
	}
	return frags, nil
}

// echoTemplates renders "name|title|contents" so assertions can see which
// values reached the template.
type echoTemplates struct {
	last map[string]any
}

func (e *echoTemplates) RenderTemplate(name string, data map[string]any) (string, error) {
	e.last = data
	if name == "missing.html" {
		return "", fmt.Errorf("template %s not found", name)
	}
	return fmt.Sprintf("%s|%v|%v", name, data["title"], data["contents"]), nil
}

type staticStub struct{ root string }

func (s staticStub) FullStaticFilename(rel string) string { return filepath.Join(s.root, rel) }
func (s staticStub) StaticURL(rel string) string          { return "/static/" + rel }
func (s staticStub) OpenStaticFile(rel string) (io.WriteCloser, error) {
	return os.Create(s.FullStaticFilename(rel))
}

type fixture struct {
	env       *document.Environment
	markup    *countingMarkup
	templates *echoTemplates
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	project := t.TempDir()
	f := &fixture{markup: &countingMarkup{}, templates: &echoTemplates{}}
	f.env = &document.Environment{
		ProjectFolder: project,
		OutputFolder:  filepath.Join(project, "_build"),
		URLRoot:       "/",
		Templates:     f.templates,
		Markup:        f.markup,
		Static:        staticStub{root: filepath.Join(project, "_build", "static")},
	}
	return f
}

func (f *fixture) write(t *testing.T, rel, content string) {
	t.Helper()
	full := filepath.Join(f.env.ProjectFolder, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o600))
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.env.OutputFolder, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) doc(rel string, cfg *config.Config) *document.Context {
	return document.New(f.env, rel, cfg)
}
