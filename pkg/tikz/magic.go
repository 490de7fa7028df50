package tikz

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/pflag"

	"github.com/matzehuels/tikzcell/pkg/errors"
)

// BindFlags registers the magic-line options on fs, writing into r.
// The current values of r become the flag defaults.
func BindFlags(fs *pflag.FlagSet, r *Request) {
	fs.StringVarP(&r.LatexPackages, "latex_packages", "p", r.LatexPackages, "extra LaTeX packages (comma-separated)")
	fs.StringVarP(&r.LatexPreamble, "latex_preamble", "x", r.LatexPreamble, "LaTeX preamble inserted before \\begin{document}")
	fs.StringVarP(&r.TikzLibraries, "tikz_libraries", "l", r.TikzLibraries, "TikZ libraries (comma-separated)")
	fs.StringVarP(&r.InputFile, "input_file", "i", r.InputFile, "file to \\input after the cell body")
	fs.StringVarP(&r.ExportFile, "export_file", "e", r.ExportFile, "copy the compiled PDF to this path")
	fs.Float64VarP(&r.Scale, "scale", "s", r.Scale, "raster scale factor (300 dpi at 1)")
	fs.StringVarP(&r.Border, "border", "b", r.Border, "standalone border")
	fs.StringVar(&r.Engine, "engine", r.Engine, "LaTeX engine")
	fs.BoolVar(&r.Debug, "debug", r.Debug, "print the assembled LaTeX document")

	fs.VarPF(&wrapValue{target: &r.WrapEnv, set: true}, "wrap", "", "wrap the body in a tikzpicture environment").NoOptDefVal = "true"
	fs.VarPF(&wrapValue{target: &r.WrapEnv, set: false}, "no-wrap", "", "use the body as is; it supplies its own environment").NoOptDefVal = "true"
}

// ParseMagic parses a magic option line and combines it with the cell body.
// Options follow shell quoting rules, so a preamble with spaces can be passed
// as -x '\usepackage{amsmath}'.
func ParseMagic(line, cell string) (Request, error) {
	req := NewRequest(cell)
	if err := req.ApplyMagic(line); err != nil {
		return Request{}, err
	}
	return req, nil
}

// ApplyMagic parses a magic option line on top of r. Options absent from
// the line keep their current values. On error r may be partly updated.
func (r *Request) ApplyMagic(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "parse magic line")
	}

	fs := pflag.NewFlagSet("tikz", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	BindFlags(fs, r)

	if err := fs.Parse(args); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "parse magic line")
	}
	if rest := fs.Args(); len(rest) > 0 {
		return errors.New(errors.ErrCodeInvalidInput, "unrecognized arguments: %s", strings.Join(rest, " "))
	}
	return nil
}

// wrapValue backs the paired --wrap/--no-wrap flags. Both write the same
// target, so the last flag on the line wins.
type wrapValue struct {
	target *bool
	set    bool
}

func (v *wrapValue) Set(s string) error {
	on, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean %q", s)
	}
	if on {
		*v.target = v.set
	} else {
		*v.target = !v.set
	}
	return nil
}

func (v *wrapValue) String() string {
	if v.target == nil {
		return "false"
	}
	return strconv.FormatBool(*v.target == v.set)
}

func (v *wrapValue) Type() string { return "bool" }
