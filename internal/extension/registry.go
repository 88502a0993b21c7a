// Package extension is the explicit registry extension modules populate at
// build setup: markup directives, template globals and lifecycle hooks.
package extension

import (
	"fmt"
	"html/template"
	"sort"
	"sync"

	"git.home.luguber.info/inful/blogbuilder/internal/document"
)

// Block is a fenced block handed to a directive.
type Block struct {
	// Name is the first word of the info string.
	Name string
	// Args are the remaining info-string words.
	Args []string
	// Content is the raw block body without the trailing newline.
	Content string
}

// Directive renders a block to HTML.
type Directive interface {
	Render(ctx *document.Context, block Block) (template.HTML, error)
}

// DirectiveFunc adapts a function to Directive.
type DirectiveFunc func(ctx *document.Context, block Block) (template.HTML, error)

// Render calls f.
func (f DirectiveFunc) Render(ctx *document.Context, block Block) (template.HTML, error) {
	return f(ctx, block)
}

// Registry holds directives and template functions. One registry is built
// per builder.
type Registry struct {
	mu         sync.RWMutex
	directives map[string]Directive
	fallback   Directive
	funcs      template.FuncMap
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		directives: make(map[string]Directive),
		funcs:      make(template.FuncMap),
	}
}

// RegisterDirective binds name to d. Names are unique.
func (r *Registry) RegisterDirective(name string, d Directive) error {
	if name == "" || d == nil {
		return fmt.Errorf("directive name and implementation are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.directives[name]; exists {
		return fmt.Errorf("directive %s already registered", name)
	}
	r.directives[name] = d
	return nil
}

// Directive looks a directive up by name.
func (r *Registry) Directive(name string) (Directive, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.directives[name]
	return d, ok
}

// Directives returns the registered directive names, sorted.
func (r *Registry) Directives() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.directives))
	for name := range r.directives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetFallbackDirective sets the directive used for fenced blocks whose name
// has no registered directive.
func (r *Registry) SetFallbackDirective(d Directive) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = d
}

// FallbackDirective returns the fallback directive or nil.
func (r *Registry) FallbackDirective() Directive {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallback
}

// RegisterTemplateFunc installs a template global.
func (r *Registry) RegisterTemplateFunc(name string, fn any) error {
	if name == "" || fn == nil {
		return fmt.Errorf("template function name and implementation are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("template function %s already registered", name)
	}
	r.funcs[name] = fn
	return nil
}

// TemplateFuncs returns a copy of the registered template globals.
func (r *Registry) TemplateFuncs() template.FuncMap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(template.FuncMap, len(r.funcs))
	for k, v := range r.funcs {
		out[k] = v
	}
	return out
}
