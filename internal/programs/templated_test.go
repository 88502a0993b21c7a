package programs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

func TestTemplated_TemplateName(t *testing.T) {
	f := newFixture(t)

	name, err := NewTemplated(f.doc("a.html", nil)).TemplateName()
	require.NoError(t, err)
	assert.Equal(t, DefaultPageTemplate, name)

	cfg := config.New(map[string]any{"template": "post.html"})
	name, err = NewTemplated(f.doc("a.html", cfg)).TemplateName()
	require.NoError(t, err)
	assert.Equal(t, "post.html", name)
}

func TestTemplated_RunWritesTemplateWithTrailingNewline(t *testing.T) {
	f := newFixture(t)
	f.write(t, "about.html", "ignored")
	doc := f.doc("about.html", config.New(map[string]any{"template": "post.html"}))
	doc.Title = "About"

	p := NewTemplated(doc)
	require.NoError(t, p.Prepare())
	dest, err := p.DesiredFilename()
	require.NoError(t, err)
	assert.Equal(t, "about/index.html", dest)
	doc.DestinationFilename = dest

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, "post.html|About|\n", f.read(t, "about/index.html"))
}

func TestTemplated_TemplateErrorNamesSource(t *testing.T) {
	f := newFixture(t)
	doc := f.doc("x.html", config.New(map[string]any{"template": "missing.html"}))
	doc.DestinationFilename = "x/index.html"

	err := NewTemplated(doc).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryTemplate))
	assert.Equal(t, "x.html", errors.SourceOf(err))
}
