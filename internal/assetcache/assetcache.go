// Package assetcache stores generated assets under content-derived names in
// the static tree so identical inputs are only generated once.
package assetcache

import (
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/zeebo/blake3"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
	"git.home.luguber.info/inful/blogbuilder/internal/workspace"
)

// Resolver maps static-relative names to files and URLs.
type Resolver interface {
	FullStaticFilename(rel string) string
	StaticURL(rel string) string
}

// Generator writes the asset to target. scratchDir is a private directory
// for intermediate files; both are removed once Ensure returns.
type Generator func(scratchDir, target string) error

// Asset describes a cached file.
type Asset struct {
	// Rel is the static-relative name, e.g. "_math/<fingerprint>.png".
	Rel string
	// Path is the absolute file path.
	Path string
	// URL is the public URL.
	URL string
	// Generated is true when this call produced the file.
	Generated bool
}

// Cache is a content-addressed asset cache.
type Cache struct {
	static    Resolver
	workspace *workspace.Manager
	recorder  metrics.Recorder
}

// New creates a cache writing into the static tree served by static.
func New(static Resolver, ws *workspace.Manager, recorder metrics.Recorder) *Cache {
	if ws == nil {
		ws = workspace.NewManager("")
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Cache{static: static, workspace: ws, recorder: recorder}
}

// Fingerprint returns the lowercase hex BLAKE3-256 digest of content.
func Fingerprint(content string) string {
	sum := blake3.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Ensure returns the asset for content, generating it first when no file
// exists at its derived name yet.
func (c *Cache) Ensure(subdir, content, ext string, generate Generator) (*Asset, error) {
	fingerprint := Fingerprint(content)
	rel := path.Join(subdir, fingerprint+"."+ext)
	asset := &Asset{
		Rel:  rel,
		Path: c.static.FullStaticFilename(rel),
		URL:  c.static.StaticURL(rel),
	}

	if info, err := os.Stat(asset.Path); err == nil && info.Mode().IsRegular() {
		c.recorder.IncCacheLookup(subdir, true)
		slog.Debug("Asset cache hit", logfields.Path(rel), logfields.Fingerprint(fingerprint))
		return asset, nil
	}
	c.recorder.IncCacheLookup(subdir, false)

	scratch, err := c.workspace.Create(path.Base(subdir))
	if err != nil {
		return nil, err
	}
	defer scratch.Cleanup()

	target := scratch.Join("asset." + ext)
	if err := generate(scratch.GetPath(), target); err != nil {
		return nil, err
	}

	if err := install(target, asset.Path); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to store generated asset").
			WithContext("path", asset.Path).
			Build()
	}

	asset.Generated = true
	slog.Debug("Asset cache stored", logfields.Path(rel), logfields.Fingerprint(fingerprint))
	return asset, nil
}

// install moves src to dst without ever exposing a partial file at dst.
// When a plain rename fails (e.g. across devices) src is copied into a
// temporary file next to dst which is then renamed into place.
func install(src, dst string) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src) // #nosec G304 -- scratch file created by us
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(dst)+"-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
