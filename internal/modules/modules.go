// Package modules maps active_modules names to extension module
// constructors.
package modules

import (
	"sort"

	"git.home.luguber.info/inful/blogbuilder/internal/extension"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/modules/disqus"
	"git.home.luguber.info/inful/blogbuilder/internal/modules/highlight"
	"git.home.luguber.info/inful/blogbuilder/internal/modules/latex"
)

// Factory creates a fresh module instance.
type Factory func() extension.Module

var catalog = map[string]Factory{
	highlight.Name: func() extension.Module { return highlight.New() },
	latex.Name:     func() extension.Module { return latex.New() },
	disqus.Name:    func() extension.Module { return disqus.New() },
}

// Lookup returns a new instance of the named module.
func Lookup(name string) (extension.Module, error) {
	factory, ok := catalog[name]
	if !ok {
		return nil, errors.ConfigError("unknown module: " + name).
			WithContext("module", name).
			WithContext("available", Names()).
			Build()
	}
	return factory(), nil
}

// Names returns the known module names, sorted.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
