// Package latex renders "math" blocks to PNG images through latex and
// dvipng. Images are stored in the asset cache so every distinct formula is
// typeset once.
package latex

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/blogbuilder/internal/assetcache"
	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/document"
	"git.home.luguber.info/inful/blogbuilder/internal/extension"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/process"
)

const (
	// Name is the active_modules entry enabling this module.
	Name = "latex"
	// Directive is the fenced block name handled by this module.
	Directive = "math"
	// CacheDir is the static subfolder holding rendered formulas.
	CacheDir = "_math"

	defaultFontSize = 16.0
)

const docWrapper = `
\documentclass[12pt]{article}
\usepackage[utf8x]{inputenc}
\usepackage{amsmath}
\usepackage{amsthm}
\usepackage{amssymb}
\usepackage{amsfonts}
\usepackage{mathpazo}
\usepackage{bm}
\pagestyle{empty}
\begin{document}
%s
\end{document}
`

// Module implements extension.Module.
type Module struct {
	assets   *assetcache.Cache
	latex    string
	dvipng   string
	fontSize float64
}

// New creates an unconfigured module.
func New() *Module {
	return &Module{}
}

// Name implements extension.Module.
func (m *Module) Name() string { return Name }

// Setup reads modules.latex.* and registers the math directive.
func (m *Module) Setup(sc *extension.SetupContext) error {
	if sc.Assets == nil {
		return errors.InternalError("latex module needs an asset cache").Build()
	}
	root := sc.Config
	m.assets = sc.Assets
	m.latex = stringSetting(root, "modules.latex.latex", "latex")
	m.dvipng = stringSetting(root, "modules.latex.dvipng", "dvipng")
	m.fontSize = defaultFontSize
	if v := root.RootGet("modules.latex.font_size", nil); v != nil {
		size, ok := toFloat(v)
		if !ok || size <= 0 {
			return errors.ConfigError(fmt.Sprintf("modules.latex.font_size must be a positive number, got %v", v)).Build()
		}
		m.fontSize = size
	}
	return sc.Registry.RegisterDirective(Directive, extension.DirectiveFunc(m.render))
}

// DPI is the dvipng resolution for the configured font size.
func (m *Module) DPI() int {
	return int(m.fontSize * 72.27 / 10)
}

func (m *Module) render(ctx *document.Context, block extension.Block) (template.HTML, error) {
	formula := block.Content
	if len(block.Args) > 0 {
		formula = strings.Join(block.Args, " ") + "\n\n" + formula
	}
	url, err := m.Render(formula)
	if err != nil {
		if ce, ok := errors.AsClassified(err); ok && ctx != nil && ce.Source() == "" {
			return "", errors.WrapError(err, ce.Category(), "failed to render math").
				WithSource(ctx.SourceFilename).
				Build()
		}
		return "", err
	}
	// #nosec G203 -- both values are escaped.
	return template.HTML(fmt.Sprintf(`<blockquote class="math"><img src="%s" alt="%s"></blockquote>`,
		template.HTMLEscapeString(url), template.HTMLEscapeString(formula))), nil
}

// Render returns the URL of the image for formula, typesetting it when the
// cache has no copy yet.
func (m *Module) Render(formula string) (string, error) {
	asset, err := m.assets.Ensure(CacheDir, formula, "png", func(scratch, target string) error {
		return m.typeset(scratch, target, formula)
	})
	if err != nil {
		return "", err
	}
	return asset.URL, nil
}

func (m *Module) typeset(scratch, target, formula string) error {
	tex := fmt.Sprintf(docWrapper, WrapDisplayMath(formula))
	if err := os.WriteFile(filepath.Join(scratch, "math.tex"), []byte(tex), 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write latex input").Build()
	}

	// Formulas are rendered during the sequential build, which is never
	// cancelled half way.
	ctx := context.Background()
	if _, err := process.Run(ctx, process.Command{
		Argv: []string{m.latex, "--interaction=nonstopmode", "math.tex"},
		Dir:  scratch,
	}); err != nil {
		return err
	}
	_, err := process.Run(ctx, process.Command{
		Argv: []string{m.dvipng, "-o", target, "-T", "tight", "-z9",
			"-D", fmt.Sprint(m.DPI()), filepath.Join(scratch, "math.dvi")},
		Dir: scratch,
	})
	return err
}

// WrapDisplayMath turns blank-line separated formulas into one gather
// environment with a split per formula.
func WrapDisplayMath(math string) string {
	parts := strings.Split(math, "\n\n")
	for i, part := range parts {
		parts[i] = `\begin{split}` + part + `\end{split}\notag`
	}
	return "\\begin{gather}\n" + strings.Join(parts, `\\`) + "\n\\end{gather}"
}

func stringSetting(root *config.Config, key, def string) string {
	if v, ok := root.RootGet(key, def).(string); ok && v != "" {
		return v
	}
	return def
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
