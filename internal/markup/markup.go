// Package markup renders Markdown documents with goldmark.
//
// A leading level-one heading becomes the document title and is dropped
// from the rendered fragment. Fenced blocks are dispatched to directives
// registered in the extension registry.
package markup

import (
	"bytes"
	stdhtml "html"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/blogbuilder/internal/document"
	ext "git.home.luguber.info/inful/blogbuilder/internal/extension"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// Renderer implements document.MarkupRenderer.
type Renderer struct {
	registry *ext.Registry
	md       goldmark.Markdown
}

// New creates a renderer that resolves directives through registry.
func New(registry *ext.Registry) *Renderer {
	if registry == nil {
		registry = ext.NewRegistry()
	}
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.DefinitionList,
			extension.Footnote,
			extension.Typographer,
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
			renderer.WithNodeRenderers(util.Prioritized(directiveBlockRenderer{}, 100)),
		),
	)
	return &Renderer{registry: registry, md: md}
}

// RenderMarkup renders text for doc.
func (r *Renderer) RenderMarkup(doc *document.Context, source string) (*document.Fragments, error) {
	src := []byte(source)
	root := r.md.Parser().Parse(text.NewReader(src))

	frags := &document.Fragments{}
	if h, ok := root.FirstChild().(*ast.Heading); ok && h.Level == 1 {
		frags.Title = strings.TrimSpace(plainText(h, src))
		root.RemoveChild(root, h)
	}

	if err := r.expandDirectives(doc, root, src); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, src, root); err != nil {
		return nil, errors.WrapError(err, errors.CategoryMarkup, "failed to render markup").
			WithSource(sourceOf(doc)).
			Build()
	}

	// #nosec G203 -- rendered by goldmark from project content.
	frags.HTML = template.HTML(buf.String())
	frags.Summary = firstParagraph(buf.String())
	return frags, nil
}

// expandDirectives swaps fenced blocks that have a directive for
// pre-rendered HTML nodes.
func (r *Renderer) expandDirectives(doc *document.Context, root ast.Node, src []byte) error {
	var fenced []*ast.FencedCodeBlock
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if fb, ok := n.(*ast.FencedCodeBlock); ok && entering {
			fenced = append(fenced, fb)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	for _, fb := range fenced {
		block := blockOf(fb, src)
		if block.Name == "" {
			continue
		}
		d, ok := r.registry.Directive(block.Name)
		if !ok {
			if d = r.registry.FallbackDirective(); d == nil {
				continue
			}
		}
		out, err := d.Render(doc, block)
		if err != nil {
			if errors.IsClassified(err) {
				return err
			}
			return errors.WrapError(err, errors.CategoryMarkup, "directive failed").
				WithSource(sourceOf(doc)).
				WithContext("directive", block.Name).
				Build()
		}
		node := &directiveBlock{html: out}
		fb.Parent().ReplaceChild(fb.Parent(), fb, node)
	}
	return nil
}

func blockOf(fb *ast.FencedCodeBlock, src []byte) ext.Block {
	var block ext.Block
	if fb.Info != nil {
		fields := strings.Fields(string(fb.Info.Segment.Value(src)))
		if len(fields) > 0 {
			block.Name = fields[0]
			block.Args = fields[1:]
		}
	}
	var content bytes.Buffer
	lines := fb.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		content.Write(seg.Value(src))
	}
	block.Content = strings.TrimRight(content.String(), "\n")
	return block
}

func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.WriteString(stdhtml.UnescapeString(string(t.Segment.Value(src))))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			// Code strings hold HTML, such as the typographer's entities.
			if t.IsCode() {
				b.WriteString(stdhtml.UnescapeString(string(t.Value)))
			} else {
				b.Write(t.Value)
			}
		case *ast.CodeSpan:
			for child := t.FirstChild(); child != nil; child = child.NextSibling() {
				if txt, ok := child.(*ast.Text); ok {
					b.Write(txt.Segment.Value(src))
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func sourceOf(doc *document.Context) string {
	if doc == nil {
		return ""
	}
	return doc.SourceFilename
}
