package render

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tikzcell/pkg/cache"
	"github.com/matzehuels/tikzcell/pkg/errors"
	"github.com/matzehuels/tikzcell/pkg/observability"
	"github.com/matzehuels/tikzcell/pkg/tikz"
)

// cacheKeyType labels render artifacts in cache hooks.
const cacheKeyType = "render"

// Renderer runs render requests.
//
// A Renderer holds no per-request state, so one instance may serve
// concurrent requests; each gets its own workspace.
type Renderer struct {
	Executor  Executor
	Converter Converter
	Cache     cache.Cache
	Keyer     cache.Keyer
	Logger    *log.Logger

	// TempRoot is the parent directory for workspaces; "" uses os.TempDir.
	TempRoot string

	// Timeout bounds a whole request including both subprocesses.
	// Zero means no limit.
	Timeout time.Duration

	// CacheTTL is the lifetime of cached artifacts.
	CacheTTL time.Duration

	// WorkDir resolves relative input and export paths; "" uses the
	// process working directory at render time.
	WorkDir string

	// DebugOutput receives the assembled document of Debug requests.
	// Nil means os.Stderr.
	DebugOutput io.Writer
}

// Result is the outcome of a successful render.
type Result struct {
	Image      *Image
	Document   string // assembled LaTeX source
	PDF        []byte
	ExportPath string // absolute path the PDF was exported to, if any
	CacheHit   bool
	Stats      Stats
}

// Stats contains timing information for a render.
type Stats struct {
	CompileTime time.Duration
	ConvertTime time.Duration
	TotalTime   time.Duration
}

// NewRenderer creates a renderer with the default executor.
// A nil cache disables caching, a nil converter uses ImageMagick's convert,
// and a nil logger uses log.Default().
func NewRenderer(c cache.Cache, conv Converter, logger *log.Logger) *Renderer {
	if c == nil {
		c = cache.NewNullCache()
	}
	if conv == nil {
		conv = ImageMagick{Binary: DefaultConverter}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Renderer{
		Executor:  CommandExecutor{},
		Converter: conv,
		Cache:     c,
		Keyer:     cache.NewDefaultKeyer(),
		Logger:    logger,
		CacheTTL:  cache.TTLArtifact,
	}
}

// Render compiles and rasterizes req with a default renderer: no cache,
// ImageMagick conversion, no timeout.
func Render(ctx context.Context, req tikz.Request) (*Result, error) {
	return NewRenderer(nil, nil, nil).Render(ctx, req)
}

// Render assembles the document for req, compiles it, exports the PDF when
// requested, and converts it to PNG at 300*scale DPI.
//
// Errors carry codes from pkg/errors: COMPILATION_FAILED when the engine
// leaves no PDF, CONVERSION_FAILED when no valid PNG appears, EXPORT_FAILED
// when the PDF cannot be copied, TIMEOUT when the deadline passes. The
// workspace is removed before Render returns in every case.
func (r *Renderer) Render(ctx context.Context, req tikz.Request) (res *Result, err error) {
	start := time.Now()

	req.SetDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cwd, err := r.workDir()
	if err != nil {
		return nil, err
	}

	r.enter(ctx, StateIdle)
	doc := tikz.Document(req, cwd)
	r.enter(ctx, StateTemplateAssembled)
	if req.Debug {
		r.Logger.Info("assembled LaTeX document", "engine", req.Engine, "bytes", len(doc))
		fmt.Fprintln(r.debugOutput(), doc)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	dpi := req.DPI()
	hooks := observability.Render()
	hooks.OnRenderStart(ctx, req.Engine, dpi)
	defer func() {
		hooks.OnRenderComplete(ctx, req.Engine, time.Since(start), err)
	}()

	res = &Result{Document: doc}
	exportPath := ""
	if req.ExportFile != "" {
		exportPath = tikz.ResolvePath(req.ExportFile, cwd)
	}

	key, cacheable := r.renderKey(req, doc, dpi, cwd)

	if pdf, img, ok := r.lookup(ctx, key, dpi, cacheable); ok {
		r.Logger.Debug("render cache hit", "key", key)
		res.CacheHit = true
		res.PDF = pdf
		res.Image = img
		if exportPath != "" {
			if err := exportPDF(pdf, exportPath); err != nil {
				return nil, err
			}
			res.ExportPath = exportPath
		}
		r.enter(ctx, StateRendered)
		r.enter(ctx, StateCleaned)
	} else {
		if err := r.build(ctx, req.Engine, doc, dpi, exportPath, res); err != nil {
			return nil, err
		}
		if cacheable {
			r.store(ctx, key, res.PDF, res.Image.PNG)
		}
	}

	if req.MaxWidth > 0 {
		fitted, err := res.Image.Fit(req.MaxWidth)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConversion, err, "resize image to %dpx", req.MaxWidth)
		}
		res.Image = fitted
	}

	res.Stats.TotalTime = time.Since(start)
	r.Logger.Debug("rendered TikZ image",
		"engine", req.Engine,
		"dpi", dpi,
		"width", res.Image.Width,
		"height", res.Image.Height,
		"cached", res.CacheHit,
		"duration", res.Stats.TotalTime)
	return res, nil
}

// build runs the compile → export → convert steps inside a fresh workspace.
func (r *Renderer) build(ctx context.Context, engine, doc string, dpi int, exportPath string, res *Result) error {
	ws, err := NewWorkspace(r.TempRoot)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create workspace")
	}
	defer func() {
		if err := ws.Close(); err != nil {
			r.Logger.Warn("failed to remove workspace", "dir", ws.Dir, "err", err)
		}
		r.enter(ctx, StateCleaned)
	}()
	r.Logger.Debug("created workspace", "dir", ws.Dir)

	if err := ws.WriteDocument(doc); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", TexFile)
	}

	r.enter(ctx, StateCompiling)
	compileStart := time.Now()
	if err := r.compile(ctx, ws, engine); err != nil {
		r.enter(ctx, StateCompilationFailed)
		return err
	}
	res.Stats.CompileTime = time.Since(compileStart)
	r.enter(ctx, StateCompiled)

	pdf, err := os.ReadFile(ws.Path(PDFFile))
	if err != nil {
		r.enter(ctx, StateCompilationFailed)
		return errors.Wrap(errors.ErrCodeCompilation, err, "read %s output", engine)
	}
	res.PDF = pdf

	if exportPath != "" {
		if err := exportPDF(pdf, exportPath); err != nil {
			return err
		}
		res.ExportPath = exportPath
		r.Logger.Debug("exported PDF", "path", exportPath)
	}

	r.enter(ctx, StateConverting)
	convertStart := time.Now()
	img, err := r.convert(ctx, ws, dpi)
	if err != nil {
		r.enter(ctx, StateConversionFailed)
		return err
	}
	res.Stats.ConvertTime = time.Since(convertStart)
	res.Image = img
	r.enter(ctx, StateRendered)
	return nil
}

// compile runs the engine. Its exit status is only logged: TeX engines exit
// non-zero on recoverable errors that still produce a usable PDF, so the
// PDF's existence decides success.
func (r *Renderer) compile(ctx context.Context, ws *Workspace, engine string) error {
	out, runErr := r.Executor.Run(ctx, ws.Dir, engine, "-output-directory", ws.Dir, ws.Path(TexFile))
	if err := contextError(ctx); err != nil {
		return err
	}

	if !ws.Exists(PDFFile) {
		msg := fmt.Sprintf("%s did not produce a PDF file", engine)
		if stderrors.Is(runErr, exec.ErrNotFound) {
			msg += ": " + installHint(engine)
		}
		return errors.Wrap(errors.ErrCodeCompilation, runErr, "%s", msg).WithDetail(texErrors(out))
	}
	if runErr != nil {
		r.Logger.Warn("engine reported errors but produced a PDF", "engine", engine, "err", runErr)
	}
	return nil
}

// convert runs the converter and loads the PNG it wrote.
func (r *Renderer) convert(ctx context.Context, ws *Workspace, dpi int) (*Image, error) {
	name := r.Converter.Name()
	out, runErr := r.Converter.Convert(ctx, r.Executor, ws, dpi)
	if err := contextError(ctx); err != nil {
		return nil, err
	}

	path := ws.rasterOutput()
	if path == "" {
		msg := fmt.Sprintf("%s did not produce a PNG file", name)
		if stderrors.Is(runErr, exec.ErrNotFound) {
			msg += ": " + installHint(name)
		}
		return nil, errors.Wrap(errors.ErrCodeConversion, runErr, "%s", msg).WithDetail(tail(out, 20))
	}
	if runErr != nil {
		r.Logger.Warn("converter reported errors but produced a PNG", "converter", name, "err", runErr)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConversion, err, "read %s output", name)
	}
	img, err := NewImage(data, dpi)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConversion, err, "%s produced an invalid PNG", name)
	}
	return img, nil
}

// artifact is the cached form of a render.
type artifact struct {
	PDF []byte `json:"pdf"`
	PNG []byte `json:"png"`
}

// renderKey returns the cache key for req. The document of an input file
// request only names the file, so the file's contents go into the key too.
// An unreadable input file makes the request uncacheable; the engine
// reports the real error.
func (r *Renderer) renderKey(req tikz.Request, doc string, dpi int, cwd string) (string, bool) {
	opts := cache.RenderKeyOpts{
		Document:  doc,
		Engine:    req.Engine,
		DPI:       dpi,
		Converter: r.Converter.Name(),
	}
	if req.InputFile != "" {
		data, err := os.ReadFile(tikz.ResolvePath(req.InputFile, cwd))
		if err != nil {
			r.Logger.Debug("input file unreadable, skipping cache", "path", req.InputFile, "err", err)
			return "", false
		}
		opts.Inputs = cache.Hash(data)
	}
	return r.Keyer.RenderKey(opts), true
}

// lookup returns a cached render. Unreadable entries count as misses.
func (r *Renderer) lookup(ctx context.Context, key string, dpi int, cacheable bool) ([]byte, *Image, bool) {
	hooks := observability.Cache()
	if !cacheable {
		hooks.OnCacheMiss(ctx, cacheKeyType)
		return nil, nil, false
	}
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("render cache lookup failed", "err", err)
	}
	if err != nil || !hit {
		hooks.OnCacheMiss(ctx, cacheKeyType)
		return nil, nil, false
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil || len(a.PDF) == 0 {
		hooks.OnCacheMiss(ctx, cacheKeyType)
		return nil, nil, false
	}
	img, err := NewImage(a.PNG, dpi)
	if err != nil {
		hooks.OnCacheMiss(ctx, cacheKeyType)
		return nil, nil, false
	}
	hooks.OnCacheHit(ctx, cacheKeyType)
	return a.PDF, img, true
}

// store caches a render. Failures are logged and otherwise ignored.
func (r *Renderer) store(ctx context.Context, key string, pdf, png []byte) {
	data, err := json.Marshal(artifact{PDF: pdf, PNG: png})
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, r.CacheTTL); err != nil {
		r.Logger.Warn("render cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, cacheKeyType, len(data))
}

func (r *Renderer) enter(ctx context.Context, s State) {
	observability.Render().OnStateChange(ctx, string(s))
}

func (r *Renderer) workDir() (string, error) {
	if r.WorkDir != "" {
		return r.WorkDir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "get working directory")
	}
	return cwd, nil
}

func (r *Renderer) debugOutput() io.Writer {
	if r.DebugOutput != nil {
		return r.DebugOutput
	}
	return os.Stderr
}

// exportPDF writes the compiled PDF to path.
func exportPDF(pdf []byte, path string) error {
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeExport, err, "export PDF to %s", path)
	}
	return nil
}

// contextError maps a finished context to a pipeline error.
func contextError(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(errors.ErrCodeTimeout, err, "render timed out")
	default:
		return fmt.Errorf("render canceled: %w", err)
	}
}

// texErrors extracts the "!" error lines of a TeX log, each with the line
// after it for context. Logs without errors yield their last lines.
func texErrors(out []byte) string {
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	var picked []string
	for i, line := range lines {
		if strings.HasPrefix(line, "!") {
			picked = append(picked, line)
			if i+1 < len(lines) {
				picked = append(picked, lines[i+1])
			}
		}
	}
	if len(picked) == 0 {
		return tail(out, 20)
	}
	return strings.Join(picked, "\n")
}

// tail returns the last n lines of out.
func tail(out []byte, n int) string {
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
