package builder

import (
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
	"git.home.luguber.info/inful/blogbuilder/internal/workspace"
)

// Option configures a Builder.
type Option func(*Builder)

// WithRecorder records build metrics through r.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) {
		if r != nil {
			b.recorder = r
		}
	}
}

// WithClean removes the output folder before every build.
func WithClean(clean bool) Option {
	return func(b *Builder) {
		b.clean = clean
	}
}

// WithWorkspace sets the manager creating scratch directories.
func WithWorkspace(ws *workspace.Manager) Option {
	return func(b *Builder) {
		if ws != nil {
			b.workspace = ws
		}
	}
}
