package programs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/document"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

func prepared(t *testing.T, f *fixture, rel, content string, cfg *config.Config) (*Markup, *document.Context) {
	t.Helper()
	f.write(t, rel, content)
	doc := f.doc(rel, cfg)
	p := NewMarkup(doc)
	require.NoError(t, p.Prepare())
	if !doc.HasDestination() {
		dest, err := p.DesiredFilename()
		require.NoError(t, err)
		doc.DestinationFilename = dest
	}
	return p, doc
}

func TestMarkup_TitlePrecedence(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"front matter wins", "title: From Header\n\n# From Body\n\ntext\n", "From Header"},
		{"extracted when no header title", "tags: [a]\n\n# From Body\n\ntext\n", "From Body"},
		{"absent", "tags: [a]\n\njust text\n", ""},
		{"no header at all", "\n# Only Body\n\ntext\n", "Only Body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, doc := prepared(t, f, "posts/p.md", tt.content, nil)
			assert.Equal(t, tt.want, doc.Title)
		})
	}
}

func TestMarkup_FrontMatterOverrides(t *testing.T) {
	f := newFixture(t)
	content := strings.Join([]string{
		"destination_filename: feed/custom.html",
		"pub_date: 2024-03-05",
		"summary: Short summary",
		"template: post.html",
		"",
		"# Title",
		"",
		"Body",
	}, "\n")
	_, doc := prepared(t, f, "posts/p.md", content, config.New(map[string]any{"template": "page.html", "site": "x"}))

	assert.Equal(t, "feed/custom.html", doc.DestinationFilename)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), doc.PubDate)
	assert.Equal(t, "Short summary", doc.Summary)
	assert.Equal(t, "post.html", doc.Config.String("template", ""), "front matter layers over the directory config")
	assert.Equal(t, "x", doc.Config.String("site", ""))
}

func TestMarkup_NonMappingFrontMatter(t *testing.T) {
	f := newFixture(t)
	long := strings.Repeat("word ", 30)
	f.write(t, "posts/bad.md", long+"\n\nbody\n")

	err := NewMarkup(f.doc("posts/bad.md", nil)).Prepare()
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
	assert.Equal(t, "posts/bad.md", errors.SourceOf(err))
	assert.NotContains(t, err.Error(), long)
}

func TestMarkup_InvalidPubDate(t *testing.T) {
	f := newFixture(t)
	f.write(t, "p.md", "pub_date: someday\n\nbody\n")

	err := NewMarkup(f.doc("p.md", nil)).Prepare()
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestMarkup_RendersOncePerProgram(t *testing.T) {
	f := newFixture(t)
	p, doc := prepared(t, f, "posts/p.md", "title: T\n\n# Heading\n\nBody text\n", nil)
	afterPrepare := f.markup.calls

	first, err := p.Fragments()
	require.NoError(t, err)

	// The source is gone; a second render would fail.
	require.NoError(t, os.Remove(doc.FullSourceFilename()))

	second, err := p.Fragments()
	require.NoError(t, err)
	assert.Same(t, first, second)

	contents, err := p.RenderContents()
	require.NoError(t, err)
	assert.Equal(t, first.HTML, contents)

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, afterPrepare+1, f.markup.calls)
}

func TestMarkup_RunUsesDefaultTemplateAndMarkupKey(t *testing.T) {
	f := newFixture(t)
	p, doc := prepared(t, f, "posts/p.md", "title: Hi\n\n# Ignored\n\nHello body\n", nil)

	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, "markup_display.html|Hi|<p>Hello body</p>\n", f.read(t, "posts/p/index.html"))
	frags, ok := f.templates.last["markup"].(*document.Fragments)
	require.True(t, ok)
	assert.Equal(t, "Ignored", frags.Title)
	assert.Equal(t, "Hello body", doc.Summary, "summary falls back to the first paragraph")
}

func TestMarkup_ExplicitSummaryKept(t *testing.T) {
	f := newFixture(t)
	p, doc := prepared(t, f, "p.md", "summary: Mine\n\nBody\n", nil)
	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, "Mine", doc.Summary)
}

func TestMarkup_DelimitedFrontMatter(t *testing.T) {
	f := newFixture(t)
	_, doc := prepared(t, f, "p.md", "---\ntitle: Delimited\n---\n# Body\n\ntext\n", nil)
	assert.Equal(t, "Delimited", doc.Title)
}

func TestMarkup_TitleAfterBlankLines(t *testing.T) {
	f := newFixture(t)
	_, doc := prepared(t, f, "d.md", "---\nfoo: 1\n---\n\n# Delimited Heading\n\nBody text.\n", nil)
	assert.Equal(t, "Delimited Heading", doc.Title)
	assert.Equal(t, 1, doc.Config.Int("foo", 0))

	_, doc = prepared(t, f, "n.md", "foo: 1\n\n\n# Native Heading\n\nBody text.\n", nil)
	assert.Equal(t, "Native Heading", doc.Title)
}

func TestMarkup_UnclosedDelimiter(t *testing.T) {
	f := newFixture(t)
	f.write(t, "p.md", "---\ntitle: x\n\nbody\n")
	err := NewMarkup(f.doc("p.md", nil)).Prepare()
	require.Error(t, err)
	assert.Equal(t, "p.md", errors.SourceOf(err))
}

func TestParsePubDate(t *testing.T) {
	tests := []struct {
		in   any
		want time.Time
	}{
		{"2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"2024-01-02T10:30:00Z", time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC)},
		{"2024-01-02 10:30:00", time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC)},
		{time.Date(2020, 5, 6, 7, 8, 9, 0, time.UTC), time.Date(2020, 5, 6, 7, 8, 9, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParsePubDate(tt.in)
		require.NoError(t, err)
		assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
	}

	_, err := ParsePubDate(42)
	require.Error(t, err)
}

func TestMarkup_DestinationFromHeaderSkipsDesiredFilename(t *testing.T) {
	f := newFixture(t)
	_, doc := prepared(t, f, "p.md", "destination_filename: /x/y.html\n\nBody\n", nil)
	assert.Equal(t, "x/y.html", doc.DestinationFilename)
	full, err := doc.FullDestinationFilename()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.env.OutputFolder, "x", "y.html"), full)
}
