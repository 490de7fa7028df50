package render_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tikzcell/pkg/cache"
	"github.com/matzehuels/tikzcell/pkg/errors"
	"github.com/matzehuels/tikzcell/pkg/observability"
	"github.com/matzehuels/tikzcell/pkg/render"
	"github.com/matzehuels/tikzcell/pkg/render/rendertest"
	"github.com/matzehuels/tikzcell/pkg/tikz"
)

const circle = `\draw (0,0) circle (1cm);`

func newTestRenderer(t *testing.T, exe *rendertest.Executor) *render.Renderer {
	t.Helper()
	r := render.NewRenderer(nil, nil, log.New(io.Discard))
	r.Executor = exe
	r.TempRoot = t.TempDir()
	r.WorkDir = t.TempDir()
	return r
}

// assertCleaned checks that every workspace the executor ran in is gone.
func assertCleaned(t *testing.T, r *render.Renderer, exe *rendertest.Executor) {
	t.Helper()
	for _, c := range exe.Calls() {
		if _, err := os.Stat(c.Dir); !os.IsNotExist(err) {
			t.Errorf("workspace %s still exists", c.Dir)
		}
	}
	left, err := os.ReadDir(r.TempRoot)
	if err != nil {
		t.Fatalf("read temp root: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("temp root should be empty, has %d entries", len(left))
	}
}

func TestRenderProducesImage(t *testing.T) {
	exe := rendertest.NewExecutor()
	r := newTestRenderer(t, exe)

	res, err := r.Render(context.Background(), tikz.NewRequest(circle))
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	if len(res.Image.PNG) == 0 {
		t.Fatal("Render() returned an empty image")
	}
	if res.Image.Width != 40 || res.Image.Height != 20 {
		t.Errorf("image size = %dx%d, want 40x20", res.Image.Width, res.Image.Height)
	}
	if res.Image.DPI != 300 {
		t.Errorf("DPI = %d, want 300", res.Image.DPI)
	}
	if !bytes.Equal(res.PDF, rendertest.FakePDF([]byte(res.Document))) {
		t.Error("Result.PDF should hold the compiled PDF")
	}
	if res.CacheHit {
		t.Error("first render should not be a cache hit")
	}

	calls := exe.Calls()
	if len(calls) != 2 {
		t.Fatalf("executor calls = %d, want 2", len(calls))
	}

	dir := calls[0].Dir
	engine := calls[0]
	if engine.Name != "xelatex" {
		t.Errorf("engine = %q, want xelatex", engine.Name)
	}
	wantArgs := []string{"-output-directory", dir, filepath.Join(dir, "tikzfile.tex")}
	if strings.Join(engine.Args, " ") != strings.Join(wantArgs, " ") {
		t.Errorf("engine args = %v, want %v", engine.Args, wantArgs)
	}

	conv := calls[1]
	if conv.Name != "convert" {
		t.Errorf("converter = %q, want convert", conv.Name)
	}
	wantArgs = []string{"-density", "300", filepath.Join(dir, "tikzfile.pdf"), filepath.Join(dir, "tikzfile.png")}
	if strings.Join(conv.Args, " ") != strings.Join(wantArgs, " ") {
		t.Errorf("converter args = %v, want %v", conv.Args, wantArgs)
	}

	assertCleaned(t, r, exe)
}

func TestRenderScaleSetsDensity(t *testing.T) {
	tests := []struct {
		scale   float64
		density string
	}{
		{1, "300"},
		{2, "600"},
		{0.5, "150"},
	}

	for _, tt := range tests {
		exe := rendertest.NewExecutor()
		r := newTestRenderer(t, exe)
		req := tikz.NewRequest(circle)
		req.Scale = tt.scale

		res, err := r.Render(context.Background(), req)
		if err != nil {
			t.Fatalf("Render() error: %v", err)
		}
		conv := exe.Calls()[1]
		if conv.Args[0] != "-density" || conv.Args[1] != tt.density {
			t.Errorf("scale %v: converter args = %v, want -density %s", tt.scale, conv.Args, tt.density)
		}
		if res.Image.DPI != req.DPI() {
			t.Errorf("scale %v: image DPI = %d, want %d", tt.scale, res.Image.DPI, req.DPI())
		}
	}
}

func TestRenderEngineSelection(t *testing.T) {
	exe := rendertest.NewExecutor()
	r := newTestRenderer(t, exe)
	req := tikz.NewRequest(circle)
	req.Engine = "pdflatex"

	if _, err := r.Render(context.Background(), req); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if got := exe.Calls()[0].Name; got != "pdflatex" {
		t.Errorf("engine = %q, want pdflatex", got)
	}
}

func TestRenderCompilationFailure(t *testing.T) {
	exe := rendertest.NewExecutor()
	exe.NoPDF = true
	exe.EngineOutput = "This is XeTeX\n! Undefined control sequence.\nl.5 \\drw\n(job aborted)\n"
	r := newTestRenderer(t, exe)
	req := tikz.NewRequest(`\drw (0,0);`)
	req.Engine = "lualatex"

	res, err := r.Render(context.Background(), req)
	if res != nil {
		t.Error("failed render should return a nil result")
	}
	if !errors.Is(err, errors.ErrCodeCompilation) {
		t.Fatalf("Render() error = %v, want COMPILATION_FAILED", err)
	}
	if !strings.Contains(err.Error(), "lualatex") {
		t.Errorf("error should name the engine: %v", err)
	}
	detail := errors.DetailOf(err)
	if !strings.Contains(detail, "! Undefined control sequence.") || !strings.Contains(detail, `l.5 \drw`) {
		t.Errorf("detail should carry the TeX error lines, got %q", detail)
	}
	if len(exe.Calls()) != 1 {
		t.Errorf("converter should not run after a compilation failure")
	}

	assertCleaned(t, r, exe)
}

func TestRenderIgnoresEngineExitStatus(t *testing.T) {
	exe := rendertest.NewExecutor()
	exe.EngineErr = io.ErrUnexpectedEOF
	r := newTestRenderer(t, exe)

	if _, err := r.Render(context.Background(), tikz.NewRequest(circle)); err != nil {
		t.Fatalf("a produced PDF should count as success despite the exit status: %v", err)
	}
}

func TestRenderConversionFailure(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*rendertest.Executor)
	}{
		{"no png", func(e *rendertest.Executor) { e.NoPNG = true; e.ConvertOutput = "convert: no images defined" }},
		{"invalid png", func(e *rendertest.Executor) { e.PNG = []byte("not a png") }},
		{"empty png", func(e *rendertest.Executor) { e.PNG = []byte{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exe := rendertest.NewExecutor()
			tt.modify(exe)
			r := newTestRenderer(t, exe)

			_, err := r.Render(context.Background(), tikz.NewRequest(circle))
			if !errors.Is(err, errors.ErrCodeConversion) {
				t.Fatalf("Render() error = %v, want CONVERSION_FAILED", err)
			}
			assertCleaned(t, r, exe)
		})
	}
}

func TestRenderMultiPageUsesFirstPage(t *testing.T) {
	exe := rendertest.NewExecutor()
	exe.MultiPage = true
	r := newTestRenderer(t, exe)

	res, err := r.Render(context.Background(), tikz.NewRequest(circle))
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if res.Image.Width != 40 {
		t.Errorf("image width = %d, want 40", res.Image.Width)
	}
}

func TestRenderExport(t *testing.T) {
	exe := rendertest.NewExecutor()
	r := newTestRenderer(t, exe)
	req := tikz.NewRequest(circle)
	req.ExportFile = "figure.pdf"

	res, err := r.Render(context.Background(), req)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	want := filepath.Join(r.WorkDir, "figure.pdf")
	if res.ExportPath != want {
		t.Errorf("ExportPath = %q, want %q", res.ExportPath, want)
	}
	exported, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !bytes.Equal(exported, res.PDF) {
		t.Error("exported PDF should be byte-identical to the compiled PDF")
	}
	assertCleaned(t, r, exe)
}

func TestRenderExportAbsolutePath(t *testing.T) {
	exe := rendertest.NewExecutor()
	r := newTestRenderer(t, exe)
	target := filepath.Join(t.TempDir(), "abs.pdf")
	req := tikz.NewRequest(circle)
	req.ExportFile = target

	if _, err := r.Render(context.Background(), req); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Errorf("absolute export path should be used as is: %v", err)
	}
}

func TestRenderExportFailure(t *testing.T) {
	exe := rendertest.NewExecutor()
	r := newTestRenderer(t, exe)
	req := tikz.NewRequest(circle)
	req.ExportFile = filepath.Join("missing-dir", "figure.pdf")

	_, err := r.Render(context.Background(), req)
	if !errors.Is(err, errors.ErrCodeExport) {
		t.Fatalf("Render() error = %v, want EXPORT_FAILED", err)
	}
	if len(exe.Calls()) != 1 {
		t.Error("conversion should not run after a failed export")
	}
	assertCleaned(t, r, exe)
}

func TestRenderUniqueWorkspaces(t *testing.T) {
	exe := rendertest.NewExecutor()
	r := newTestRenderer(t, exe)

	for i := 0; i < 2; i++ {
		if _, err := r.Render(context.Background(), tikz.NewRequest(circle)); err != nil {
			t.Fatalf("Render() #%d error: %v", i, err)
		}
	}

	calls := exe.Calls()
	if len(calls) != 4 {
		t.Fatalf("executor calls = %d, want 4", len(calls))
	}
	if calls[0].Dir == calls[2].Dir {
		t.Error("consecutive renders must not share a workspace")
	}
	assertCleaned(t, r, exe)
}

func TestRenderConcurrent(t *testing.T) {
	exe := rendertest.NewExecutor()
	r := newTestRenderer(t, exe)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Render(context.Background(), tikz.NewRequest(circle))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent Render() error: %v", err)
		}
	}

	dirs := map[string]bool{}
	for _, c := range exe.Calls() {
		if c.Name == "xelatex" {
			dirs[c.Dir] = true
		}
	}
	if len(dirs) != 8 {
		t.Errorf("distinct workspaces = %d, want 8", len(dirs))
	}
	assertCleaned(t, r, exe)
}

func TestRenderTimeout(t *testing.T) {
	exe := rendertest.NewExecutor()
	exe.Block = true
	r := newTestRenderer(t, exe)
	r.Timeout = 50 * time.Millisecond

	_, err := r.Render(context.Background(), tikz.NewRequest(circle))
	if !errors.Is(err, errors.ErrCodeTimeout) {
		t.Fatalf("Render() error = %v, want TIMEOUT", err)
	}
	assertCleaned(t, r, exe)
}

func TestRenderCanceled(t *testing.T) {
	exe := rendertest.NewExecutor()
	exe.Block = true
	r := newTestRenderer(t, exe)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := r.Render(ctx, tikz.NewRequest(circle))
	if err == nil || !strings.Contains(err.Error(), "canceled") {
		t.Fatalf("Render() error = %v, want cancellation", err)
	}
	if errors.Is(err, errors.ErrCodeTimeout) {
		t.Error("cancellation should not be reported as a timeout")
	}
	assertCleaned(t, r, exe)
}

func TestRenderValidation(t *testing.T) {
	exe := rendertest.NewExecutor()
	r := newTestRenderer(t, exe)

	_, err := r.Render(context.Background(), tikz.NewRequest("  \n"))
	if !errors.Is(err, errors.ErrCodeEmptyContent) {
		t.Fatalf("Render() error = %v, want EMPTY_CONTENT", err)
	}
	if len(exe.Calls()) != 0 {
		t.Error("invalid requests should not reach the executor")
	}
}

func TestRenderDebugWritesDocument(t *testing.T) {
	exe := rendertest.NewExecutor()
	r := newTestRenderer(t, exe)
	var buf bytes.Buffer
	r.DebugOutput = &buf

	req := tikz.NewRequest(circle)
	req.Debug = true
	res, err := r.Render(context.Background(), req)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(buf.String(), res.Document) {
		t.Errorf("debug output should contain the document, got %q", buf.String())
	}

	buf.Reset()
	req.Debug = false
	if _, err := r.Render(context.Background(), req); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if buf.Len() != 0 {
		t.Error("debug output should be empty without Debug")
	}
}

func TestRenderMaxWidth(t *testing.T) {
	exe := rendertest.NewExecutor()
	r := newTestRenderer(t, exe)
	req := tikz.NewRequest(circle)
	req.MaxWidth = 10

	res, err := r.Render(context.Background(), req)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if res.Image.Width != 10 || res.Image.Height != 5 {
		t.Errorf("image size = %dx%d, want 10x5", res.Image.Width, res.Image.Height)
	}
}

func TestRenderCache(t *testing.T) {
	exe := rendertest.NewExecutor()
	r := newTestRenderer(t, exe)
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	r.Cache = fc

	first, err := r.Render(context.Background(), tikz.NewRequest(circle))
	if err != nil {
		t.Fatalf("first Render() error: %v", err)
	}

	req := tikz.NewRequest(circle)
	req.ExportFile = "cached.pdf"
	second, err := r.Render(context.Background(), req)
	if err != nil {
		t.Fatalf("second Render() error: %v", err)
	}

	if !second.CacheHit {
		t.Error("second render should hit the cache")
	}
	if len(exe.Calls()) != 2 {
		t.Errorf("cache hit should not run external programs, calls = %d", len(exe.Calls()))
	}
	if !bytes.Equal(first.Image.PNG, second.Image.PNG) {
		t.Error("cached image should match the original")
	}
	exported, err := os.ReadFile(filepath.Join(r.WorkDir, "cached.pdf"))
	if err != nil || !bytes.Equal(exported, first.PDF) {
		t.Errorf("cache hit should still export the PDF (err %v)", err)
	}

	req = tikz.NewRequest(circle)
	req.Scale = 2
	third, err := r.Render(context.Background(), req)
	if err != nil {
		t.Fatalf("third Render() error: %v", err)
	}
	if third.CacheHit {
		t.Error("a different DPI must not hit the cache")
	}
}

func TestRenderCacheTracksInputFile(t *testing.T) {
	exe := rendertest.NewExecutor()
	r := newTestRenderer(t, exe)
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	r.Cache = fc

	input := filepath.Join(r.WorkDir, "fig.tex")
	writeInput := func(body string) {
		t.Helper()
		if err := os.WriteFile(input, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	renderInput := func() *render.Result {
		t.Helper()
		req := tikz.NewRequest("")
		req.InputFile = "fig.tex"
		res, err := r.Render(context.Background(), req)
		if err != nil {
			t.Fatalf("Render() error: %v", err)
		}
		return res
	}

	writeInput(circle)
	renderInput()
	if res := renderInput(); !res.CacheHit {
		t.Error("unchanged input file should hit the cache")
	}
	if len(exe.Calls()) != 2 {
		t.Fatalf("calls after cache hit = %d, want 2", len(exe.Calls()))
	}

	writeInput(`\draw (0,0) rectangle (2,1);`)
	if res := renderInput(); res.CacheHit {
		t.Error("edited input file must not hit the cache")
	}
	if len(exe.Calls()) != 4 {
		t.Errorf("calls after edit = %d, want 4", len(exe.Calls()))
	}
}

func TestRenderMissingInputFileSkipsCache(t *testing.T) {
	exe := rendertest.NewExecutor()
	r := newTestRenderer(t, exe)
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	r.Cache = fc

	req := tikz.NewRequest("")
	req.InputFile = "missing.tex"
	for i := 0; i < 2; i++ {
		res, err := r.Render(context.Background(), req)
		if err != nil {
			t.Fatalf("Render() error: %v", err)
		}
		if res.CacheHit {
			t.Errorf("render %d: unreadable input file must not hit the cache", i)
		}
	}
	if n, err := fc.Clear(context.Background()); err != nil || n != 0 {
		t.Errorf("cache entries = %d (err %v), want none stored", n, err)
	}
}

type stateRecorder struct {
	observability.NoopRenderHooks
	mu       sync.Mutex
	states   []string
	complete int
}

func (s *stateRecorder) OnStateChange(_ context.Context, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, state)
}

func (s *stateRecorder) OnRenderComplete(context.Context, string, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.complete++
}

func TestRenderStateTransitions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*rendertest.Executor)
		want   []render.State
	}{
		{
			name:   "success",
			modify: func(*rendertest.Executor) {},
			want: []render.State{
				render.StateIdle, render.StateTemplateAssembled, render.StateCompiling, render.StateCompiled,
				render.StateConverting, render.StateRendered, render.StateCleaned,
			},
		},
		{
			name:   "compilation failed",
			modify: func(e *rendertest.Executor) { e.NoPDF = true },
			want: []render.State{
				render.StateIdle, render.StateTemplateAssembled, render.StateCompiling,
				render.StateCompilationFailed, render.StateCleaned,
			},
		},
		{
			name:   "conversion failed",
			modify: func(e *rendertest.Executor) { e.NoPNG = true },
			want: []render.State{
				render.StateIdle, render.StateTemplateAssembled, render.StateCompiling, render.StateCompiled,
				render.StateConverting, render.StateConversionFailed, render.StateCleaned,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &stateRecorder{}
			observability.SetRenderHooks(rec)
			defer observability.Reset()

			exe := rendertest.NewExecutor()
			tt.modify(exe)
			r := newTestRenderer(t, exe)
			_, _ = r.Render(context.Background(), tikz.NewRequest(circle))

			var want []string
			for _, s := range tt.want {
				want = append(want, string(s))
			}
			if strings.Join(rec.states, ",") != strings.Join(want, ",") {
				t.Errorf("states = %v, want %v", rec.states, want)
			}
			if rec.complete != 1 {
				t.Errorf("OnRenderComplete calls = %d, want 1", rec.complete)
			}
		})
	}
}

func TestRenderEngineNotFound(t *testing.T) {
	r := render.NewRenderer(nil, nil, log.New(io.Discard))
	r.TempRoot = t.TempDir()
	req := tikz.NewRequest(circle)
	req.Engine = "tikzcell-no-such-engine"

	_, err := r.Render(context.Background(), req)
	if !errors.Is(err, errors.ErrCodeCompilation) {
		t.Fatalf("Render() error = %v, want COMPILATION_FAILED", err)
	}
	if !strings.Contains(err.Error(), "not found on PATH") {
		t.Errorf("error should suggest installing the engine: %v", err)
	}
	left, _ := os.ReadDir(r.TempRoot)
	if len(left) != 0 {
		t.Error("workspace should be removed")
	}
}

func TestPackageRender(t *testing.T) {
	req := tikz.NewRequest("")
	if _, err := render.Render(context.Background(), req); !errors.Is(err, errors.ErrCodeEmptyContent) {
		t.Errorf("Render() error = %v, want EMPTY_CONTENT", err)
	}
}
