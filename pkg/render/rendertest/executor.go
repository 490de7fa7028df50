// Package rendertest provides a fake render.Executor that stands in for a
// LaTeX engine and a raster converter, so the render pipeline can be tested
// without TeX Live or ImageMagick installed.
package rendertest

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Call records one program invocation.
type Call struct {
	Dir  string
	Name string
	Args []string
}

// Executor fakes the engine and converter by writing their output files.
//
// A call whose arguments include a .tex file is treated as the engine: it
// writes <name>.pdf into the -output-directory. Any other call is the
// converter: it writes PNG to the last argument (with .png appended when
// the argument has no extension, as pdftoppm does).
type Executor struct {
	// NoPDF makes the engine exit without writing a PDF.
	NoPDF bool
	// NoPNG makes the converter exit without writing a PNG.
	NoPNG bool
	// MultiPage makes the converter write tikzfile-0.png and tikzfile-1.png
	// the way ImageMagick splits a multi-page PDF.
	MultiPage bool
	// Block makes the engine wait until its context is done.
	Block bool

	// EngineOutput and EngineErr are returned from engine calls.
	EngineOutput string
	EngineErr    error
	// ConvertOutput and ConvertErr are returned from converter calls.
	ConvertOutput string
	ConvertErr    error

	// PNG is the image the converter writes. NewExecutor sets a 40x20 PNG.
	PNG []byte

	mu    sync.Mutex
	calls []Call
}

// NewExecutor returns an Executor that succeeds with a 40x20 PNG.
func NewExecutor() *Executor {
	return &Executor{PNG: PNG(40, 20)}
}

// Run implements render.Executor.
func (e *Executor) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	e.mu.Lock()
	e.calls = append(e.calls, Call{Dir: dir, Name: name, Args: append([]string(nil), args...)})
	e.mu.Unlock()

	if tex := texArg(args); tex != "" {
		return e.runEngine(ctx, tex, args)
	}
	return e.runConverter(args)
}

func (e *Executor) runEngine(ctx context.Context, tex string, args []string) ([]byte, error) {
	if e.Block {
		<-ctx.Done()
		return []byte(e.EngineOutput), ctx.Err()
	}
	if !e.NoPDF {
		src, err := os.ReadFile(tex)
		if err != nil {
			return nil, err
		}
		outDir := filepath.Dir(tex)
		if d := flagValue(args, "-output-directory"); d != "" {
			outDir = d
		}
		pdf := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(tex), ".tex")+".pdf")
		if err := os.WriteFile(pdf, FakePDF(src), 0o644); err != nil {
			return nil, err
		}
	}
	return []byte(e.EngineOutput), e.EngineErr
}

func (e *Executor) runConverter(args []string) ([]byte, error) {
	if !e.NoPNG && len(args) > 0 {
		out := args[len(args)-1]
		if filepath.Ext(out) == "" {
			out += ".png"
		}
		if e.MultiPage {
			base := strings.TrimSuffix(out, ".png")
			for _, page := range []string{"-0.png", "-1.png"} {
				if err := os.WriteFile(base+page, e.PNG, 0o644); err != nil {
					return nil, err
				}
			}
		} else if err := os.WriteFile(out, e.PNG, 0o644); err != nil {
			return nil, err
		}
	}
	return []byte(e.ConvertOutput), e.ConvertErr
}

// Calls returns the recorded invocations in order.
func (e *Executor) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// FakePDF returns the bytes the fake engine writes for a document.
func FakePDF(tex []byte) []byte {
	return append([]byte("%PDF-1.5\n% rendertest\n"), tex...)
}

// PNG encodes a solid w×h image.
func PNG(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 20, G: 40, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func texArg(args []string) string {
	for _, a := range args {
		if strings.HasSuffix(a, ".tex") {
			return a
		}
	}
	return ""
}

func flagValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
