package programs

import (
	"context"
	"io"
	"os"

	"git.home.luguber.info/inful/blogbuilder/internal/document"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// Copy writes the source file unchanged to the same relative path.
type Copy struct {
	Base
}

// NewCopy creates a Copy program.
func NewCopy(doc *document.Context) *Copy {
	return &Copy{Base: NewBase(doc)}
}

// DesiredFilename returns the source path verbatim.
func (p *Copy) DesiredFilename() (string, error) {
	doc, err := p.Document()
	if err != nil {
		return "", err
	}
	return doc.SourceFilename, nil
}

// Run copies the bytes and permission bits of the source.
func (p *Copy) Run(context.Context) error {
	doc, err := p.Document()
	if err != nil {
		return err
	}
	src, err := doc.OpenSourceFile()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := doc.OpenDestinationFile()
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to copy file").
			WithSource(doc.SourceFilename).
			Build()
	}
	if err := copyMode(dst, src); err != nil {
		_ = dst.Close()
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to copy file permissions").
			WithSource(doc.SourceFilename).
			Build()
	}
	if err := dst.Close(); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to close destination file").
			WithSource(doc.SourceFilename).
			Build()
	}
	return nil
}

// copyMode applies the permission bits of src to dst.
func copyMode(dst, src *os.File) error {
	info, err := src.Stat()
	if err != nil {
		return err
	}
	return dst.Chmod(info.Mode().Perm())
}
