package cli

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tikzcell/pkg/buildinfo"
	"github.com/matzehuels/tikzcell/pkg/cache"
	"github.com/matzehuels/tikzcell/pkg/errors"
	"github.com/matzehuels/tikzcell/pkg/observability"
	"github.com/matzehuels/tikzcell/pkg/render"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "tikzcell"

	// configFile is the config file name inside the config directory.
	configFile = "config.toml"
)

// Log levels for New.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is loaded before each command runs.
	Config Config

	configPath string

	// executor replaces the subprocess runner; tests set it.
	executor render.Executor

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: defaultConfig(),
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: w,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   appName,
		Short: "tikzcell renders TikZ drawings to PNG images",
		Long: `tikzcell wraps TikZ drawing commands in a standalone LaTeX document,
compiles it with a LaTeX engine and rasterizes the PDF with ImageMagick.

It backs the %%tikz notebook cell magic and can render files, serve an HTTP
endpoint, and cache results between runs.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				c.SetLogLevel(LogDebug)
				hooks := observability.LogHooks{Logger: c.Logger}
				observability.SetRenderHooks(hooks)
				observability.SetCacheHooks(hooks)
			}
			cfg, err := loadConfig(c.configPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			cmd.SetContext(log.WithContext(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/tikzcell/config.toml)")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.magicCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// Execute runs the command line args (without the program name) and prints
// a failure to stderr.
func (c *CLI) Execute(ctx context.Context, args []string) error {
	root := c.RootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil && !stderrors.Is(err, context.Canceled) {
		printer{c.stderr}.error("%s", err)
		if hint := errors.GetCode(err).Hint(); hint != "" {
			printer{c.stderr}.detail("%s", hint)
		}
	}
	return err
}

// Exit codes beyond the generic 1.
const (
	ExitFailure     = 1
	ExitUsage       = 2   // rejected request or bad flags
	ExitTimeout     = 124 // same as timeout(1)
	ExitInterrupted = 130 // 128 + SIGINT
)

// ExitCode maps an error returned by Execute to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case stderrors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, errors.ErrCodeTimeout):
		return ExitTimeout
	case errors.IsValidation(err):
		return ExitUsage
	default:
		return ExitFailure
	}
}

// =============================================================================
// Renderer Factory
// =============================================================================

// newRenderer creates a renderer from the loaded config. The returned
// cache must be closed by the caller.
func (c *CLI) newRenderer(ctx context.Context, converter string, noCache bool) (*render.Renderer, cache.Cache, error) {
	conv, err := render.NewConverter(converter)
	if err != nil {
		return nil, nil, err
	}

	store, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, nil, err
	}

	r := render.NewRenderer(store, conv, log.FromContext(ctx))
	if c.executor != nil {
		r.Executor = c.executor
	}
	r.Timeout = c.Config.Timeout
	r.TempRoot = c.Config.TempDir
	r.CacheTTL = c.Config.Cache.TTL
	r.DebugOutput = c.stderr
	return r, store, nil
}

// newCache opens the configured cache backend.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}

	switch c.Config.Cache.Backend {
	case cacheBackendNone:
		return cache.NewNullCache(), nil
	case cacheBackendRedis:
		rc := c.Config.Redis
		return cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:            rc.Addr,
			Password:        rc.Password,
			DB:              rc.DB,
			Prefix:          rc.Prefix,
			ConnectAttempts: rc.ConnectAttempts,
		})
	default:
		dir, err := c.fileCacheDir()
		if err != nil {
			log.FromContext(ctx).Warn("no cache directory, caching disabled", "err", err)
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	}
}

func (c *CLI) fileCacheDir() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return cacheDir()
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/tikzcell/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// configDir returns the config directory using XDG standard (~/.config/tikzcell/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}
