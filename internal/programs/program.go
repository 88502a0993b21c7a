// Package programs decides what artifact a source file produces and
// produces it.
//
// Every source file is bound to exactly one Program. The builder drives it
// through Prepare, then DesiredFilename when Prepare left no destination,
// then Run.
package programs

import (
	"context"
	"html/template"
	"path"
	"strings"

	"git.home.luguber.info/inful/blogbuilder/internal/document"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// Program transforms one source file into its output.
type Program interface {
	// Prepare reads whatever metadata the program needs and may update the
	// document context.
	Prepare() error
	// DesiredFilename returns the destination path, relative to the output
	// folder, the program would like to write.
	DesiredFilename() (string, error)
	// Run writes the output.
	Run(ctx context.Context) error
}

// Base carries the document context and the default behavior shared by
// every variant.
type Base struct {
	doc *document.Context
}

// NewBase binds a Base to doc.
func NewBase(doc *document.Context) Base {
	return Base{doc: doc}
}

// Document returns the bound context. A program without a context is
// invalid and every operation on it fails.
func (b *Base) Document() (*document.Context, error) {
	if b.doc == nil {
		return nil, errors.InternalError("program has no document context").Build()
	}
	return b.doc, nil
}

// Prepare does nothing beyond checking the context.
func (b *Base) Prepare() error {
	_, err := b.Document()
	return err
}

// DesiredFilename maps dir/name.ext to dir/name/index.html, and
// dir/index.ext to dir/index.html.
func (b *Base) DesiredFilename() (string, error) {
	doc, err := b.Document()
	if err != nil {
		return "", err
	}
	return PageFilename(doc.SourceFilename), nil
}

// RenderContents returns the body fed into templates. The base body is empty.
func (b *Base) RenderContents() (template.HTML, error) {
	if _, err := b.Document(); err != nil {
		return "", err
	}
	return "", nil
}

// PageFilename is the folder-style destination for a source path.
func PageFilename(source string) string {
	folder, base := path.Split(source)
	stem := strings.TrimSuffix(base, path.Ext(base))
	if stem == "" {
		stem = base
	}
	if stem == "index" {
		return path.Join(folder, "index.html")
	}
	return path.Join(folder, stem, "index.html")
}
