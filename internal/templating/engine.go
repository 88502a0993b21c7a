// Package templating renders pages with html/template.
//
// Builtin templates are embedded and a project's template folder overrides
// them by name. Names are slash paths relative to that folder. Templates
// whose base name starts with "_", plus layout.html, are shared by every
// page; any other template is a page rendered on its own.
package templating

import (
	"bytes"
	"embed"
	stdErrors "errors"
	"html/template"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

//go:embed builtin/*.html
var builtinFS embed.FS

// LayoutTemplate is shared by every page.
const LayoutTemplate = "layout.html"

// Engine renders named templates.
type Engine struct {
	sources map[string]string
	funcs   template.FuncMap

	mu    sync.Mutex
	cache map[string]*template.Template
}

// New loads the builtin templates, then every file below templateDir.
// A missing templateDir is not an error.
func New(templateDir string, funcs template.FuncMap) (*Engine, error) {
	e := &Engine{
		sources: make(map[string]string),
		funcs:   defaultFuncs(),
		cache:   make(map[string]*template.Template),
	}
	for k, v := range funcs {
		e.funcs[k] = v
	}

	if err := fs.WalkDir(builtinFS, "builtin", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := builtinFS.ReadFile(p)
		if err != nil {
			return err
		}
		e.sources[strings.TrimPrefix(p, "builtin/")] = string(data)
		return nil
	}); err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "failed to load builtin templates").Build()
	}

	if templateDir == "" {
		return e, nil
	}
	err := filepath.WalkDir(templateDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(templateDir, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p) // #nosec G304 -- project template folder
		if err != nil {
			return err
		}
		e.sources[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil && !stdErrors.Is(err, fs.ErrNotExist) {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to load project templates").
			WithContext("path", templateDir).
			Build()
	}
	slog.Debug("Loaded templates", logfields.Path(templateDir), logfields.Files(len(e.sources)))
	return e, nil
}

// Names returns every known template name.
func (e *Engine) Names() []string {
	names := make([]string, 0, len(e.sources))
	for name := range e.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a template called name exists.
func (e *Engine) Has(name string) bool {
	_, ok := e.sources[name]
	return ok
}

// RenderTemplate implements document.TemplateRenderer.
func (e *Engine) RenderTemplate(name string, data map[string]any) (string, error) {
	t, err := e.compile(name)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return "", errors.WrapError(err, errors.CategoryTemplate, "failed to execute template").
			WithContext(logfields.KeyTemplate, name).
			Build()
	}
	return buf.String(), nil
}

func (e *Engine) compile(name string) (*template.Template, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.cache[name]; ok {
		return t, nil
	}
	src, ok := e.sources[name]
	if !ok {
		return nil, errors.TemplateError("template not found: " + name).
			WithContext(logfields.KeyTemplate, name).
			Build()
	}

	// Shared templates first so a page's own definitions override the
	// layout's default blocks.
	root := template.New("").Funcs(e.funcs)
	for _, shared := range e.sharedNames() {
		if shared == name {
			continue
		}
		if _, err := root.New(shared).Parse(e.sources[shared]); err != nil {
			return nil, parseError(err, shared)
		}
	}
	if _, err := root.New(name).Parse(src); err != nil {
		return nil, parseError(err, name)
	}
	e.cache[name] = root
	return root, nil
}

func (e *Engine) sharedNames() []string {
	var out []string
	for name := range e.sources {
		if name == LayoutTemplate || strings.HasPrefix(path.Base(name), "_") {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func parseError(err error, name string) error {
	return errors.WrapError(err, errors.CategoryTemplate, "failed to parse template").
		WithContext(logfields.KeyTemplate, name).
		Build()
}

func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		"date": func(t time.Time, layout string) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(layout)
		},
		"safe_html": func(s string) template.HTML {
			// #nosec G203 -- explicit opt-in from template authors.
			return template.HTML(s)
		},
	}
}
