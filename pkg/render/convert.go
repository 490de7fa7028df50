package render

import (
	"context"
	"fmt"
	"strconv"

	"github.com/matzehuels/tikzcell/pkg/errors"
)

// Converter names accepted by NewConverter.
const (
	ConverterConvert  = "convert"
	ConverterMagick   = "magick"
	ConverterPdftoppm = "pdftoppm"
)

// DefaultConverter is the raster converter used when none is configured.
const DefaultConverter = ConverterConvert

// Converter rasterizes tikzfile.pdf into tikzfile.png inside a workspace.
type Converter interface {
	// Name identifies the converter in logs and cache keys.
	Name() string

	// Convert runs the conversion at the given resolution and returns the
	// program output. Success is judged by the caller from the files left
	// in the workspace.
	Convert(ctx context.Context, exec Executor, ws *Workspace, dpi int) ([]byte, error)
}

// NewConverter returns the converter registered under name.
func NewConverter(name string) (Converter, error) {
	switch name {
	case "", ConverterConvert:
		return ImageMagick{Binary: ConverterConvert}, nil
	case ConverterMagick:
		return ImageMagick{Binary: ConverterMagick}, nil
	case ConverterPdftoppm:
		return Pdftoppm{}, nil
	default:
		return nil, errors.New(errors.ErrCodeUnsupported,
			"unknown converter %q (must be %s, %s or %s)", name, ConverterConvert, ConverterMagick, ConverterPdftoppm)
	}
}

// ImageMagick converts with `convert -density <dpi> <pdf> <png>`.
// Binary may be "convert" (ImageMagick 6) or "magick" (ImageMagick 7).
// Requires ImageMagick and Ghostscript: brew install imagemagick ghostscript
// (macOS), apt install imagemagick ghostscript (Linux).
type ImageMagick struct {
	Binary string
}

// Name returns the binary name.
func (c ImageMagick) Name() string {
	if c.Binary == "" {
		return ConverterConvert
	}
	return c.Binary
}

// Convert runs ImageMagick on the workspace PDF.
func (c ImageMagick) Convert(ctx context.Context, exec Executor, ws *Workspace, dpi int) ([]byte, error) {
	return exec.Run(ctx, ws.Dir, c.Name(), "-density", strconv.Itoa(dpi), ws.Path(PDFFile), ws.Path(PNGFile))
}

// Pdftoppm converts with poppler's `pdftoppm -png -r <dpi> -singlefile`.
// Requires poppler: brew install poppler (macOS), apt install poppler-utils (Linux).
type Pdftoppm struct{}

// Name returns "pdftoppm".
func (Pdftoppm) Name() string { return ConverterPdftoppm }

// Convert runs pdftoppm on the first page of the workspace PDF.
func (Pdftoppm) Convert(ctx context.Context, exec Executor, ws *Workspace, dpi int) ([]byte, error) {
	return exec.Run(ctx, ws.Dir, ConverterPdftoppm,
		"-png", "-r", strconv.Itoa(dpi), "-singlefile", ws.Path(PDFFile), ws.Path(baseName))
}

// installHint returns an install suggestion for a missing program.
func installHint(program string) string {
	return fmt.Sprintf("%s not found on PATH; install it or pass a different program", program)
}
