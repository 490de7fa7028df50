package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/tikzcell/pkg/errors"
	"github.com/matzehuels/tikzcell/pkg/render"
	"github.com/matzehuels/tikzcell/pkg/tikz"
)

// stdioPath selects stdin as input or stdout as output.
const stdioPath = "-"

// renderOpts holds the render command flags that are not request fields.
type renderOpts struct {
	output    string        // PNG path, "-" for stdout
	timeout   time.Duration // overrides the configured timeout when set
	maxWidth  int           // downscale limit in pixels
	noCache   bool          // bypass the render cache
	converter string        // raster converter
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		opts renderOpts
		req  = tikz.NewRequest("")
	)

	cmd := &cobra.Command{
		Use:   "render [file|-]",
		Short: "Render a TikZ file to PNG",
		Long: `Render TikZ drawing commands to a PNG image.

The input holds the body of a tikzpicture (or a full environment with
--no-wrap). With no file, or "-", the body is read from stdin and the PNG is
written to stdout.`,
		Example: `  tikzcell render figure.tex
  tikzcell render figure.tex -s 2 -l arrows.meta -e figure.pdf
  echo '\draw (0,0) circle (1);' | tikzcell render > circle.png`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := stdioPath
			if len(args) == 1 {
				input = args[0]
			}
			flags := cmd.Flags()
			r, err := requestFromFlags(flags, c.Config.Request)
			if err != nil {
				return err
			}
			if !flags.Changed("max-width") {
				opts.maxWidth = c.Config.MaxWidth
			}
			if !flags.Changed("timeout") {
				opts.timeout = c.Config.Timeout
			}
			if !flags.Changed("converter") {
				opts.converter = c.Config.Converter
			}
			return c.runRender(cmd.Context(), input, r, &opts)
		},
	}

	tikz.BindFlags(cmd.Flags(), &req)
	cmd.MarkFlagsMutuallyExclusive("wrap", "no-wrap")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", `output PNG (default <input>.png, "-" for stdout)`)
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "abort the render after this long (0 = no limit)")
	cmd.Flags().IntVar(&opts.maxWidth, "max-width", 0, "downscale the image to at most this many pixels wide")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "render without reading or writing the cache")
	cmd.Flags().StringVar(&opts.converter, "converter", render.DefaultConverter, "raster converter: convert, magick, pdftoppm")

	return cmd
}

// requestFromFlags starts from base and applies the request flags the user
// set on fs. Flags left at their defaults keep base's values, so the config
// file stays in effect.
func requestFromFlags(fs *pflag.FlagSet, base tikz.Request) (tikz.Request, error) {
	req := base
	overlay := pflag.NewFlagSet("request", pflag.ContinueOnError)
	overlay.SetOutput(io.Discard)
	tikz.BindFlags(overlay, &req)

	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil || overlay.Lookup(f.Name) == nil {
			return
		}
		err = overlay.Set(f.Name, f.Value.String())
	})
	if err != nil {
		return req, errors.Wrap(errors.ErrCodeInvalidInput, err, "apply flags")
	}
	return req, nil
}

// outputPath derives the PNG path: explicit output wins, stdin goes to
// stdout, and files get their extension replaced by .png.
func outputPath(output, input string) string {
	switch {
	case output != "":
		return output
	case input == stdioPath:
		return stdioPath
	default:
		return strings.TrimSuffix(input, filepath.Ext(input)) + ".png"
	}
}

// readInput reads the TikZ body from a file or stdin.
func (c *CLI) readInput(input string) (string, error) {
	if input == stdioPath {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(input)
	if os.IsNotExist(err) {
		return "", errors.Wrap(errors.ErrCodeFileNotFound, err, "input %s does not exist", input)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", input, err)
	}
	return string(data), nil
}

// runRender renders input and writes the PNG.
func (c *CLI) runRender(ctx context.Context, input string, req tikz.Request, opts *renderOpts) error {
	logger := log.FromContext(ctx)
	start := time.Now()

	content, err := c.readInput(input)
	if err != nil {
		return err
	}
	req.Content = content
	req.MaxWidth = opts.maxWidth

	out := outputPath(opts.output, input)
	toStdout := out == stdioPath

	r, store, err := c.newRenderer(ctx, opts.converter, opts.noCache)
	if err != nil {
		return err
	}
	defer store.Close()
	r.Timeout = opts.timeout

	logger.Debug("rendering", "input", input, "engine", req.Engine, "dpi", req.DPI(), "converter", opts.converter)

	var spin *spinner
	if !toStdout && !req.Debug {
		spin = newSpinner(ctx, c.stderr, fmt.Sprintf("Compiling with %s...", req.Engine))
		spin.Start()
	}

	res, err := r.Render(ctx, req)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		c.reportFailure(err)
		return err
	}

	if toStdout {
		if _, err := c.stdout.Write(res.Image.PNG); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		logger.Info("Rendered "+input, "took", elapsed(start))
		return nil
	}

	if err := os.WriteFile(out, res.Image.PNG, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	p := printer{c.stdout}
	p.success("Rendered %s", input)
	p.file(out)
	if res.ExportPath != "" {
		p.file(res.ExportPath)
	}
	p.renderStats(res.Image.Width, res.Image.Height, res.Image.DPI, res.CacheHit)
	logger.Debug("render timings",
		"compile", res.Stats.CompileTime,
		"convert", res.Stats.ConvertTime,
		"total", res.Stats.TotalTime)
	return nil
}

// reportFailure prints the diagnostic detail of a pipeline error, such as
// the TeX error lines of a failed compilation. The error itself is printed
// by main.
func (c *CLI) reportFailure(err error) {
	if detail := errors.DetailOf(err); detail != "" {
		printer{c.stderr}.block(detail)
	}
}
