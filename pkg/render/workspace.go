package render

import (
	"fmt"
	"os"
	"path/filepath"
)

// Fixed file names inside a workspace.
const (
	baseName = "tikzfile"
	TexFile  = baseName + ".tex"
	PDFFile  = baseName + ".pdf"
	PNGFile  = baseName + ".png"
)

// firstPageFile is what ImageMagick writes for page one of a multi-page PDF.
const firstPageFile = baseName + "-0.png"

// Workspace is the scoped temporary directory of a single render.
type Workspace struct {
	Dir string
}

// NewWorkspace creates a unique directory under root (os.TempDir when empty).
func NewWorkspace(root string) (*Workspace, error) {
	dir, err := os.MkdirTemp(root, "tikzcell-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &Workspace{Dir: dir}, nil
}

// Path returns the absolute path of name inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// WriteDocument writes the LaTeX source to tikzfile.tex.
func (w *Workspace) WriteDocument(doc string) error {
	return os.WriteFile(w.Path(TexFile), []byte(doc), 0o644)
}

// Exists reports whether name is a regular file in the workspace.
func (w *Workspace) Exists(name string) bool {
	info, err := os.Stat(w.Path(name))
	return err == nil && info.Mode().IsRegular()
}

// rasterOutput returns the path of the rendered PNG, or "" when the
// converter produced nothing. Multi-page PDFs fall back to the first page.
func (w *Workspace) rasterOutput() string {
	for _, name := range []string{PNGFile, firstPageFile} {
		if w.Exists(name) {
			return w.Path(name)
		}
	}
	return ""
}

// Close removes the workspace and everything in it.
func (w *Workspace) Close() error {
	return os.RemoveAll(w.Dir)
}
