package document

import "io"

// TemplateRenderer renders a named template with the given data.
type TemplateRenderer interface {
	RenderTemplate(name string, data map[string]any) (string, error)
}

// MarkupRenderer turns markup text into Fragments. The document context is
// passed so directives can resolve static assets and configuration.
type MarkupRenderer interface {
	RenderMarkup(ctx *Context, text string) (*Fragments, error)
}

// StaticResolver maps static-relative paths to files and URLs.
type StaticResolver interface {
	FullStaticFilename(rel string) string
	StaticURL(rel string) string
	OpenStaticFile(rel string) (io.WriteCloser, error)
}

// Environment bundles the build-wide collaborators every Context shares.
type Environment struct {
	// ProjectFolder is the absolute project root.
	ProjectFolder string
	// OutputFolder is the absolute destination root.
	OutputFolder string
	// URLRoot is the site prefix, always ending in "/".
	URLRoot string

	Templates TemplateRenderer
	Markup    MarkupRenderer
	Static    StaticResolver
}
