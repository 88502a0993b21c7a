package extension

import (
	"git.home.luguber.info/inful/blogbuilder/internal/assetcache"
	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/document"
)

// Module is an optional feature enabled through active_modules.
type Module interface {
	Name() string
	Setup(sc *SetupContext) error
}

// SetupContext is what a module may touch while setting up.
type SetupContext struct {
	// Config is the root configuration.
	Config   *config.Config
	Registry *Registry
	Hooks    *Hooks
	Assets   *assetcache.Cache
	Static   document.StaticResolver
}
