package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tikzcell/pkg/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve TikZ rendering over HTTP",
		Long: `Serve the render pipeline over HTTP.

POST /render takes a JSON request such as
  {"content": "\\draw (0,0) circle (1);", "scale": 2}
and answers with the PNG, or with JSON when the client sends
Accept: application/json. GET /healthz reports liveness.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = c.Config.Server.Addr
			}
			if !cmd.Flags().Changed("timeout") {
				timeout = c.Config.Timeout
			}
			return c.runServe(cmd.Context(), addr, timeout)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-request render timeout (0 = no limit)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, timeout time.Duration) error {
	logger := log.FromContext(ctx)

	r, store, err := c.newRenderer(ctx, c.Config.Converter, false)
	if err != nil {
		return err
	}
	defer store.Close()
	r.Timeout = timeout

	srv := server.New(server.Deps{
		Renderer:     r,
		Logger:       logger,
		Defaults:     c.Config.Request,
		MaxBodyBytes: c.Config.Server.MaxBodyBytes,
		Engines:      c.Config.Server.Engines,
	})

	logger.Info("starting server",
		"addr", addr,
		"engine", c.Config.Engine,
		"converter", r.Converter.Name(),
		"cache", c.Config.Cache.Backend,
		"timeout", timeout)
	return srv.ListenAndServe(ctx, addr)
}
