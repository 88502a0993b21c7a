package extension

import (
	"fmt"

	"git.home.luguber.info/inful/blogbuilder/internal/document"
)

// FileListener runs right before a file's program writes output.
type FileListener func(ctx *document.Context) error

// BuildListener runs once after every file was processed.
type BuildListener func(static document.StaticResolver) error

// Hooks holds the lifecycle listener lists. Listeners run synchronously in
// registration order and the first error stops the chain.
type Hooks struct {
	beforeFileProcessed []FileListener
	beforeBuildFinished []BuildListener
}

// NewHooks creates empty listener lists.
func NewHooks() *Hooks {
	return &Hooks{}
}

// OnBeforeFileProcessed registers l.
func (h *Hooks) OnBeforeFileProcessed(l FileListener) {
	h.beforeFileProcessed = append(h.beforeFileProcessed, l)
}

// OnBeforeBuildFinished registers l.
func (h *Hooks) OnBeforeBuildFinished(l BuildListener) {
	h.beforeBuildFinished = append(h.beforeBuildFinished, l)
}

// FireBeforeFileProcessed invokes the file listeners for ctx.
func (h *Hooks) FireBeforeFileProcessed(ctx *document.Context) error {
	for i, l := range h.beforeFileProcessed {
		if err := l(ctx); err != nil {
			return fmt.Errorf("before-file-processed listener %d: %w", i, err)
		}
	}
	return nil
}

// FireBeforeBuildFinished invokes the build listeners.
func (h *Hooks) FireBeforeBuildFinished(static document.StaticResolver) error {
	for i, l := range h.beforeBuildFinished {
		if err := l(static); err != nil {
			return fmt.Errorf("before-build-finished listener %d: %w", i, err)
		}
	}
	return nil
}

// Counts returns the number of file and build listeners.
func (h *Hooks) Counts() (file, build int) {
	return len(h.beforeFileProcessed), len(h.beforeBuildFinished)
}
