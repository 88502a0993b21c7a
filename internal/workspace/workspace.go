package workspace

import (
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

// Manager creates scratch directories under a base folder.
type Manager struct {
	baseDir string
}

// NewManager creates a manager rooted at baseDir, or the system temp dir
// when baseDir is empty.
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir}
}

// BaseDir returns the folder scratch directories are created in.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// Scratch is a single temporary directory.
type Scratch struct {
	path string
}

// Create makes a fresh scratch directory whose name starts with prefix.
func (m *Manager) Create(prefix string) (*Scratch, error) {
	if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to create scratch base directory").
			WithContext("path", m.baseDir).
			Build()
	}
	dir, err := os.MkdirTemp(m.baseDir, "blogbuilder-"+prefix+"-")
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to create scratch directory").
			WithContext("path", m.baseDir).
			Build()
	}
	slog.Debug("Created scratch directory", logfields.Path(dir))
	return &Scratch{path: dir}, nil
}

// GetPath returns the scratch directory path.
func (s *Scratch) GetPath() string {
	return s.path
}

// Join returns the path of name inside the scratch directory.
func (s *Scratch) Join(name string) string {
	return filepath.Join(s.path, name)
}

// Cleanup removes the scratch directory. Errors are logged and swallowed,
// and calling it twice is harmless.
func (s *Scratch) Cleanup() {
	if s == nil || s.path == "" {
		return
	}
	if err := os.RemoveAll(s.path); err != nil {
		slog.Warn("Failed to remove scratch directory", logfields.Path(s.path), logfields.Error(err))
		return
	}
	slog.Debug("Removed scratch directory", logfields.Path(s.path))
	s.path = ""
}
