package extension

import (
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/document"
)

func echoDirective(prefix string) Directive {
	return DirectiveFunc(func(_ *document.Context, b Block) (template.HTML, error) {
		return template.HTML(prefix + b.Content), nil
	})
}

func TestRegistry_Directives(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterDirective("math", echoDirective("m:")))
	require.NoError(t, r.RegisterDirective("code", echoDirective("c:")))

	err := r.RegisterDirective("math", echoDirective("again"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	d, ok := r.Directive("math")
	require.True(t, ok)
	out, err := d.Render(nil, Block{Name: "math", Content: "x"})
	require.NoError(t, err)
	assert.Equal(t, template.HTML("m:x"), out)

	_, ok = r.Directive("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"code", "math"}, r.Directives())
}

func TestRegistry_RejectsEmpty(t *testing.T) {
	r := NewRegistry()
	require.Error(t, r.RegisterDirective("", echoDirective("")))
	require.Error(t, r.RegisterDirective("x", nil))
	require.Error(t, r.RegisterTemplateFunc("", func() string { return "" }))
}

func TestRegistry_Fallback(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.FallbackDirective())

	fb := echoDirective("fb:")
	r.SetFallbackDirective(fb)
	assert.NotNil(t, r.FallbackDirective())
}

func TestRegistry_TemplateFuncsAreCopied(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterTemplateFunc("hello", func() string { return "hi" }))
	require.Error(t, r.RegisterTemplateFunc("hello", func() string { return "again" }))

	funcs := r.TemplateFuncs()
	require.Contains(t, funcs, "hello")
	delete(funcs, "hello")
	assert.Contains(t, r.TemplateFuncs(), "hello")
}
