package tikz

import (
	"strings"

	"github.com/matzehuels/tikzcell/pkg/errors"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultEngine is the LaTeX engine used when none is requested.
	DefaultEngine = "xelatex"

	// DefaultBorder is the standalone border passed to the document class.
	DefaultBorder = "4"

	// DefaultScale is the raster scale factor.
	DefaultScale = 1.0

	// BaseDPI is the raster resolution at scale 1.
	BaseDPI = 300

	// MaxScale bounds the scale factor, and with it the raster at
	// 3000 dpi.
	MaxScale = 10.0
)

// Request describes one TikZ render.
//
// Use [NewRequest] to obtain a request with defaults applied; the zero value
// has WrapEnv false and no engine.
type Request struct {
	Content       string  `json:"content" toml:"-"`
	LatexPackages string  `json:"latex_packages,omitempty" toml:"latex_packages"`
	LatexPreamble string  `json:"latex_preamble,omitempty" toml:"latex_preamble"`
	TikzLibraries string  `json:"tikz_libraries,omitempty" toml:"tikz_libraries"`
	InputFile     string  `json:"input_file,omitempty" toml:"-"`
	ExportFile    string  `json:"export_file,omitempty" toml:"-"`
	Scale         float64 `json:"scale,omitempty" toml:"scale"`
	Border        string  `json:"border,omitempty" toml:"border"`
	Engine        string  `json:"engine,omitempty" toml:"engine"`
	WrapEnv       bool    `json:"wrap_env" toml:"wrap_env"`
	Debug         bool    `json:"debug,omitempty" toml:"-"`

	// MaxWidth downscales the rendered image to at most this many pixels wide.
	// Zero keeps the converter's output untouched.
	MaxWidth int `json:"max_width,omitempty" toml:"max_width"`
}

// NewRequest returns a request for content with every default applied.
func NewRequest(content string) Request {
	return Request{
		Content: content,
		Scale:   DefaultScale,
		Border:  DefaultBorder,
		Engine:  DefaultEngine,
		WrapEnv: true,
	}
}

// SetDefaults fills in the engine, border and scale when they are unset.
// WrapEnv is left alone because false is a meaningful choice.
func (r *Request) SetDefaults() {
	if r.Engine == "" {
		r.Engine = DefaultEngine
	}
	if strings.TrimSpace(r.Border) == "" {
		r.Border = DefaultBorder
	}
	if r.Scale == 0 {
		r.Scale = DefaultScale
	}
}

// Validate checks the request fields. It does not look at the LaTeX source.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Content) == "" && r.InputFile == "" {
		return errors.New(errors.ErrCodeEmptyContent, "no TikZ content: provide a cell body or an input file")
	}
	if err := errors.ValidateEngine(r.Engine); err != nil {
		return err
	}
	if err := errors.ValidateScale(r.Scale); err != nil {
		return err
	}
	if r.Scale > MaxScale {
		return errors.New(errors.ErrCodeInvalidScale, "scale cannot exceed %v, got %v", MaxScale, r.Scale)
	}
	if r.DPI() < 1 {
		return errors.New(errors.ErrCodeInvalidScale, "scale %v gives a resolution below 1 dpi", r.Scale)
	}
	if err := errors.ValidateBorder(r.Border); err != nil {
		return err
	}
	if r.InputFile != "" {
		if err := errors.ValidateInputPath(r.InputFile); err != nil {
			return err
		}
	}
	if r.ExportFile != "" {
		if err := errors.ValidatePath(r.ExportFile); err != nil {
			return err
		}
	}
	if r.MaxWidth < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "max width cannot be negative, got %d", r.MaxWidth)
	}
	return nil
}

// DPI returns the raster resolution for the request: 300 dots per inch
// times the scale, truncated to an integer.
func (r *Request) DPI() int {
	return int(BaseDPI * r.Scale)
}
