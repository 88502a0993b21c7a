// Package highlight colors fenced code blocks with chroma and publishes the
// matching stylesheet into the static tree.
package highlight

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"git.home.luguber.info/inful/blogbuilder/internal/document"
	"git.home.luguber.info/inful/blogbuilder/internal/extension"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

const (
	// Name is the active_modules entry enabling this module.
	Name = "highlight"
	// Stylesheet is the static-relative stylesheet name.
	Stylesheet = "_highlight.css"
	// DefaultStyle is used when modules.highlight.style is unset.
	DefaultStyle = "friendly"
)

// LexerOptions adjust code before it is tokenised. They are configured per
// language under modules.highlight.lexers.
type LexerOptions struct {
	// StripNL removes leading and trailing newlines.
	StripNL bool
	// StripAll removes leading and trailing whitespace.
	StripAll bool
	// EnsureNL appends a final newline when missing.
	EnsureNL bool
	// TabSize expands tabs to this column width when positive.
	TabSize int
}

// DefaultLexerOptions apply to languages without explicit options.
var DefaultLexerOptions = LexerOptions{StripNL: true, EnsureNL: true}

// Module implements extension.Module.
type Module struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
	lexerOpts map[string]LexerOptions
}

// New creates an unconfigured module.
func New() *Module {
	return &Module{}
}

// Name implements extension.Module.
func (m *Module) Name() string { return Name }

// Setup registers the code directives and the stylesheet hooks.
func (m *Module) Setup(sc *extension.SetupContext) error {
	styleName := fmt.Sprint(sc.Config.RootGet("modules.highlight.style", DefaultStyle))
	style := styles.Get(styleName)
	if style == styles.Fallback && !strings.EqualFold(styleName, styles.Fallback.Name) {
		return errors.ConfigError("unknown highlight style: " + styleName).
			WithContext("style", styleName).
			Build()
	}
	lexerOpts, err := parseLexerOptions(sc.Config.RootGet("modules.highlight.lexers", nil))
	if err != nil {
		return err
	}
	m.style = style
	m.formatter = chromahtml.New(chromahtml.WithClasses(true))
	m.lexerOpts = lexerOpts

	sc.Registry.SetFallbackDirective(extension.DirectiveFunc(m.renderFenced))
	for _, name := range []string{"code-block", "sourcecode"} {
		if err := sc.Registry.RegisterDirective(name, extension.DirectiveFunc(m.renderExplicit)); err != nil {
			return err
		}
	}
	sc.Hooks.OnBeforeFileProcessed(func(ctx *document.Context) error {
		ctx.AddStylesheet(Stylesheet)
		return nil
	})
	sc.Hooks.OnBeforeBuildFinished(m.writeStylesheet)

	slog.Debug("Highlight module ready", logfields.Module(Name), slog.String("style", style.Name))
	return nil
}

// renderFenced highlights a block whose info string names its language.
func (m *Module) renderFenced(_ *document.Context, block extension.Block) (template.HTML, error) {
	return m.Highlight(block.Name, block.Content)
}

// renderExplicit handles "code-block <language>" blocks.
func (m *Module) renderExplicit(_ *document.Context, block extension.Block) (template.HTML, error) {
	if len(block.Args) == 0 {
		return "", errors.MarkupError(block.Name + " requires a language argument").Build()
	}
	return m.Highlight(block.Args[0], block.Content)
}

// Highlight renders code as HTML with CSS classes. Unknown languages are
// rendered as plain text.
func (m *Module) Highlight(language, code string) (template.HTML, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	code = m.optionsFor(language, lexer).apply(code)
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryMarkup, "failed to tokenise code").
			WithContext("language", language).
			Build()
	}
	var buf bytes.Buffer
	if err := m.formatter.Format(&buf, m.style, it); err != nil {
		return "", errors.WrapError(err, errors.CategoryMarkup, "failed to format code").
			WithContext("language", language).
			Build()
	}
	// #nosec G203 -- chroma escapes token text.
	return template.HTML(buf.String()), nil
}

func (m *Module) optionsFor(language string, lexer chroma.Lexer) LexerOptions {
	if opts, ok := m.lexerOpts[strings.ToLower(language)]; ok {
		return opts
	}
	if cfg := lexer.Config(); cfg != nil {
		if opts, ok := m.lexerOpts[strings.ToLower(cfg.Name)]; ok {
			return opts
		}
	}
	return DefaultLexerOptions
}

func (o LexerOptions) apply(code string) string {
	switch {
	case o.StripAll:
		code = strings.TrimSpace(code)
	case o.StripNL:
		code = strings.Trim(code, "\r\n")
	}
	if o.TabSize > 0 {
		code = expandTabs(code, o.TabSize)
	}
	if o.EnsureNL && !strings.HasSuffix(code, "\n") {
		code += "\n"
	}
	return code
}

// expandTabs replaces tabs with spaces up to the next multiple of size,
// counting columns from the start of each line.
func expandTabs(code string, size int) string {
	if !strings.Contains(code, "\t") {
		return code
	}
	var b strings.Builder
	col := 0
	for _, r := range code {
		switch r {
		case '\t':
			n := size - col%size
			b.WriteString(strings.Repeat(" ", n))
			col += n
		case '\n':
			b.WriteRune(r)
			col = 0
		default:
			b.WriteRune(r)
			col++
		}
	}
	return b.String()
}

// parseLexerOptions reads a mapping of language name to option mapping.
// Keys are matched case-insensitively against the block language and the
// chroma lexer name.
func parseLexerOptions(raw any) (map[string]LexerOptions, error) {
	if raw == nil {
		return nil, nil
	}
	languages, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.ConfigError(fmt.Sprintf("modules.highlight.lexers must be a mapping, got %T", raw)).Build()
	}
	out := make(map[string]LexerOptions, len(languages))
	for language, v := range languages {
		settings, ok := v.(map[string]any)
		if !ok && v != nil {
			return nil, errors.ConfigError(fmt.Sprintf("lexer options for %q must be a mapping, got %T", language, v)).
				WithContext("language", language).
				Build()
		}
		opts := DefaultLexerOptions
		for key, value := range settings {
			if err := opts.set(key, value); err != nil {
				return nil, errors.ConfigError(fmt.Sprintf("invalid lexer option %q for %q: %v", key, language, err)).
					WithContext("language", language).
					Build()
			}
		}
		out[strings.ToLower(language)] = opts
	}
	return out, nil
}

func (o *LexerOptions) set(key string, value any) error {
	if key == "tabsize" {
		n, ok := value.(int)
		if !ok || n < 0 {
			return fmt.Errorf("expected a non-negative integer, got %v", value)
		}
		o.TabSize = n
		return nil
	}
	b, ok := value.(bool)
	if !ok {
		return fmt.Errorf("expected a boolean, got %v", value)
	}
	switch key {
	case "stripnl":
		o.StripNL = b
	case "stripall":
		o.StripAll = b
	case "ensurenl":
		o.EnsureNL = b
	default:
		return fmt.Errorf("unknown option")
	}
	return nil
}

// CSS returns the stylesheet for the configured style.
func (m *Module) CSS() (string, error) {
	var buf bytes.Buffer
	if err := m.formatter.WriteCSS(&buf, m.style); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (m *Module) writeStylesheet(static document.StaticResolver) error {
	css, err := m.CSS()
	if err != nil {
		return errors.WrapError(err, errors.CategoryBuild, "failed to generate highlight stylesheet").Build()
	}
	w, err := static.OpenStaticFile(Stylesheet)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(css)); err != nil {
		_ = w.Close()
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write highlight stylesheet").
			WithContext("path", Stylesheet).
			Build()
	}
	return w.Close()
}
