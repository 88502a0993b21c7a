package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_CreateAndCleanup(t *testing.T) {
	base := t.TempDir()
	mgr := NewManager(base)

	scratch, err := mgr.Create("math")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	dir := scratch.GetPath()
	if !strings.HasPrefix(filepath.Base(dir), "blogbuilder-math-") {
		t.Errorf("unexpected scratch name: %s", dir)
	}
	if filepath.Dir(dir) != base {
		t.Errorf("scratch %s not under base %s", dir, base)
	}

	if err := os.WriteFile(scratch.Join("file.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write into scratch failed: %v", err)
	}

	scratch.Cleanup()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("scratch directory still exists after cleanup: %s", dir)
	}

	// Second cleanup is a no-op.
	scratch.Cleanup()
}

func TestManager_UniqueDirectories(t *testing.T) {
	mgr := NewManager(t.TempDir())

	a, err := mgr.Create("x")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	defer a.Cleanup()
	b, err := mgr.Create("x")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	defer b.Cleanup()

	if a.GetPath() == b.GetPath() {
		t.Errorf("expected distinct scratch directories, got %s twice", a.GetPath())
	}
}

func TestManager_DefaultBase(t *testing.T) {
	if NewManager("").BaseDir() != os.TempDir() {
		t.Errorf("expected default base to be the system temp dir")
	}
}

func TestScratch_NilCleanup(t *testing.T) {
	var s *Scratch
	s.Cleanup()
}
