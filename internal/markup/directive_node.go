package markup

import (
	"html/template"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// KindDirectiveBlock is the node kind of a pre-rendered directive.
var KindDirectiveBlock = ast.NewNodeKind("DirectiveBlock")

type directiveBlock struct {
	ast.BaseBlock
	html template.HTML
}

func (n *directiveBlock) Kind() ast.NodeKind { return KindDirectiveBlock }

func (n *directiveBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"html": string(n.html)}, nil)
}

type directiveBlockRenderer struct{}

func (directiveBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindDirectiveBlock, renderDirectiveBlock)
}

func renderDirectiveBlock(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	out := string(n.(*directiveBlock).html)
	_, _ = w.WriteString(out)
	if len(out) > 0 && out[len(out)-1] != '\n' {
		_ = w.WriteByte('\n')
	}
	return ast.WalkSkipChildren, nil
}
