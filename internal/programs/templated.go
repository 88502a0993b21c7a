package programs

import (
	"context"
	"html/template"

	"git.home.luguber.info/inful/blogbuilder/internal/document"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// DefaultPageTemplate is used by plain Templated programs when the document
// config names no template.
const DefaultPageTemplate = "page.html"

// Templated renders the document through a template. Variants customize it
// by swapping the contents and extra-context functions.
type Templated struct {
	Base
	defaultTemplate string
	contents        func() (template.HTML, error)
	extra           func() (map[string]any, error)
}

// NewTemplated creates a Templated program with an empty body.
func NewTemplated(doc *document.Context) *Templated {
	t := &Templated{Base: NewBase(doc), defaultTemplate: DefaultPageTemplate}
	t.contents = t.Base.RenderContents
	return t
}

// TemplateName resolves the template: the document's template key, else the
// variant default.
func (p *Templated) TemplateName() (string, error) {
	doc, err := p.Document()
	if err != nil {
		return "", err
	}
	name := doc.Config.String("template", "")
	if name == "" {
		name = p.defaultTemplate
	}
	if name == "" {
		return "", errors.ConfigError("no template configured").
			WithSource(doc.SourceFilename).
			Build()
	}
	return name, nil
}

// RenderContents returns the template body.
func (p *Templated) RenderContents() (template.HTML, error) {
	return p.contents()
}

// Run renders the template and writes it followed by a newline.
func (p *Templated) Run(context.Context) error {
	doc, err := p.Document()
	if err != nil {
		return err
	}
	name, err := p.TemplateName()
	if err != nil {
		return err
	}
	contents, err := p.RenderContents()
	if err != nil {
		return err
	}

	data := map[string]any{"contents": contents}
	if p.extra != nil {
		extra, err := p.extra()
		if err != nil {
			return err
		}
		for k, v := range extra {
			data[k] = v
		}
	}

	out, err := doc.RenderTemplate(name, data)
	if err != nil {
		return err
	}

	f, err := doc.OpenDestinationFile()
	if err != nil {
		return err
	}
	if _, err := f.WriteString(out + "\n"); err != nil {
		_ = f.Close()
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write destination file").
			WithSource(doc.SourceFilename).
			Build()
	}
	if err := f.Close(); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to close destination file").
			WithSource(doc.SourceFilename).
			Build()
	}
	return nil
}
