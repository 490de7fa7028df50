package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tikzcell/pkg/render"
)

// magicCommand creates the command notebook kernels call for a %%tikz cell.
func (c *CLI) magicCommand() *cobra.Command {
	var (
		line    string
		noCache bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "magic",
		Short: "Render a notebook cell and print its display data",
		Long: `Render a %%tikz notebook cell.

The cell body is read from stdin and the options of the %%tikz line are
passed verbatim with --line. On success a display_data JSON object with the
base64 PNG under "image/png" is written to stdout.`,
		Example: `  printf '\\draw (0,0) -- (1,1);' | tikzcell magic --line '-s 2 -l arrows.meta'`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("timeout") {
				timeout = c.Config.Timeout
			}
			return c.runMagic(cmd.Context(), line, timeout, noCache)
		},
	}

	cmd.Flags().StringVar(&line, "line", "", "options of the %%tikz line, shell-quoted")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "render without reading or writing the cache")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abort the render after this long (0 = no limit)")

	return cmd
}

// runMagic renders the cell on stdin with the options in line.
func (c *CLI) runMagic(ctx context.Context, line string, timeout time.Duration, noCache bool) error {
	cell, err := c.readInput(stdioPath)
	if err != nil {
		return err
	}

	req := c.Config.Request
	req.Content = cell
	if err := req.ApplyMagic(line); err != nil {
		return err
	}

	r, store, err := c.newRenderer(ctx, c.Config.Converter, noCache)
	if err != nil {
		return err
	}
	defer store.Close()
	r.Timeout = timeout

	res, err := r.Render(ctx, req)
	if err != nil {
		c.reportFailure(err)
		return err
	}
	return writeDisplayData(c.stdout, res)
}

func writeDisplayData(w io.Writer, res *render.Result) error {
	data, err := json.Marshal(res.Image.DisplayData())
	if err != nil {
		return fmt.Errorf("encode display data: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
