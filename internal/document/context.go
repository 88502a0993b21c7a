// Package document holds the per-file build state shared by programs,
// extension hooks and templates.
package document

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// Context is the mutable record of one source file's build.
//
// SourceFilename is fixed at construction. DestinationFilename, Title,
// PubDate, Summary and Config are set while the bound program prepares and
// are read-only afterwards.
type Context struct {
	env *Environment

	// SourceFilename is the slash-separated path relative to the project.
	SourceFilename string
	// DestinationFilename is the slash-separated path relative to the
	// output folder. Empty until established.
	DestinationFilename string

	Title   string
	PubDate time.Time
	Summary string
	Config  *config.Config

	stylesheets []string
}

// New creates a Context for source with the inherited directory config.
func New(env *Environment, source string, cfg *config.Config) *Context {
	if cfg == nil {
		cfg = config.Empty()
	}
	return &Context{
		env:            env,
		SourceFilename: filepath.ToSlash(source),
		Config:         cfg,
	}
}

// Environment returns the shared build environment.
func (c *Context) Environment() *Environment {
	return c.env
}

// FullSourceFilename returns the absolute source path.
func (c *Context) FullSourceFilename() string {
	return filepath.Join(c.env.ProjectFolder, filepath.FromSlash(c.SourceFilename))
}

// HasDestination reports whether a destination filename was established.
func (c *Context) HasDestination() bool {
	return c.DestinationFilename != ""
}

// FullDestinationFilename returns the absolute destination path.
func (c *Context) FullDestinationFilename() (string, error) {
	if err := c.requireDestination("resolve destination filename"); err != nil {
		return "", err
	}
	return filepath.Join(c.env.OutputFolder, filepath.FromSlash(c.DestinationFilename)), nil
}

// MakeDestinationFolder creates the parent folder of the destination.
// Calling it repeatedly is harmless.
func (c *Context) MakeDestinationFolder() error {
	full, err := c.FullDestinationFilename()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create destination folder").
			WithSource(c.SourceFilename).
			WithContext("destination", c.DestinationFilename).
			Build()
	}
	return nil
}

// OpenSourceFile opens the source for reading. The caller closes it.
func (c *Context) OpenSourceFile() (*os.File, error) {
	// #nosec G304 -- source paths come from the project walk.
	f, err := os.Open(c.FullSourceFilename())
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to open source file").
			WithSource(c.SourceFilename).
			Build()
	}
	return f, nil
}

// ReadSource returns the full source content.
func (c *Context) ReadSource() ([]byte, error) {
	data, err := os.ReadFile(c.FullSourceFilename())
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read source file").
			WithSource(c.SourceFilename).
			Build()
	}
	return data, nil
}

// OpenDestinationFile creates the destination for writing, making its
// folder first. The caller closes it.
func (c *Context) OpenDestinationFile() (*os.File, error) {
	if err := c.MakeDestinationFolder(); err != nil {
		return nil, err
	}
	full, err := c.FullDestinationFilename()
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- destination is derived from the output folder.
	f, err := os.Create(full)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to create destination file").
			WithSource(c.SourceFilename).
			WithContext("destination", c.DestinationFilename).
			Build()
	}
	return f, nil
}

// URL returns the site-relative URL of the destination. A trailing
// index.html is dropped so pages resolve as folders.
func (c *Context) URL() string {
	dest := c.DestinationFilename
	if path.Base(dest) == "index.html" {
		dest = strings.TrimSuffix(dest, "index.html")
	}
	return c.env.URLRoot + strings.TrimPrefix(dest, "/")
}

// AddStylesheet attaches a static stylesheet to the page. Duplicates are
// ignored.
func (c *Context) AddStylesheet(rel string) {
	for _, s := range c.stylesheets {
		if s == rel {
			return
		}
	}
	c.stylesheets = append(c.stylesheets, rel)
}

// Stylesheets returns the URLs of the attached stylesheets.
func (c *Context) Stylesheets() []string {
	urls := make([]string, 0, len(c.stylesheets))
	for _, s := range c.stylesheets {
		urls = append(urls, c.StaticURL(s))
	}
	return urls
}

// FullStaticFilename returns the absolute path of a static asset.
func (c *Context) FullStaticFilename(rel string) string {
	return c.env.Static.FullStaticFilename(rel)
}

// StaticURL returns the URL of a static asset.
func (c *Context) StaticURL(rel string) string {
	return c.env.Static.StaticURL(rel)
}

// RenderTemplate renders name with the base page context overlaid by extra.
func (c *Context) RenderTemplate(name string, extra map[string]any) (string, error) {
	if err := c.requireDestination("render template " + name); err != nil {
		return "", err
	}
	data := c.templateContext()
	for k, v := range extra {
		data[k] = v
	}
	out, err := c.env.Templates.RenderTemplate(name, data)
	if err != nil {
		category := errors.CategoryTemplate
		if errors.IsClassified(err) {
			category = errors.GetCategory(err)
		}
		return "", errors.WrapError(err, category, "failed to render template").
			WithSource(c.SourceFilename).
			WithContext("template", name).
			Build()
	}
	return out, nil
}

// RenderMarkup renders markup text through the configured renderer.
func (c *Context) RenderMarkup(text string) (*Fragments, error) {
	frags, err := c.env.Markup.RenderMarkup(c, text)
	if err != nil {
		if errors.IsClassified(err) {
			return nil, err
		}
		return nil, errors.WrapError(err, errors.CategoryMarkup, "failed to render markup").
			WithSource(c.SourceFilename).
			Build()
	}
	return frags, nil
}

func (c *Context) templateContext() map[string]any {
	var pubDate any
	if !c.PubDate.IsZero() {
		pubDate = c.PubDate
	}
	return map[string]any{
		"ctx":         c,
		"config":      c.Config,
		"title":       c.Title,
		"pub_date":    pubDate,
		"summary":     c.Summary,
		"url":         c.URL(),
		"stylesheets": c.Stylesheets(),
		"url_root":    c.env.URLRoot,
	}
}

func (c *Context) requireDestination(op string) error {
	if c.DestinationFilename == "" {
		return errors.InternalError("cannot "+op+" before a destination filename is established").
			WithSource(c.SourceFilename).
			Build()
	}
	return nil
}
