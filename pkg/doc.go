// Package pkg provides the libraries behind tikzcell, a renderer for TikZ
// drawings written inline in notebooks, files or HTTP requests.
//
// # Overview
//
// A TikZ body goes through three steps: it is embedded in a standalone LaTeX
// document, compiled to PDF by a LaTeX engine, and rasterized to PNG. Both
// external programs run in a private temporary directory that is removed
// whether the render succeeds or not.
//
//  1. [tikz] - Request model, defaults and validation, template assembly,
//     %%tikz option parsing
//  2. [render] - Workspace, engine and converter subprocesses, the
//     [render.Renderer] pipeline and its [render.Image] result
//  3. [cache] - File, Redis and null caches for rendered artifacts
//  4. [server] - HTTP adapter
//  5. [errors], [observability], [buildinfo] - structured error codes, event
//     hooks, version metadata
//
// # Data Flow
//
//	TikZ body + options
//	         ↓
//	    [tikz] package (assemble standalone document)
//	         ↓
//	    [render] package (xelatex → tikzfile.pdf → convert → tikzfile.png)
//	         ↓
//	    PNG bytes, display_data JSON, or HTTP response
//
// # Quick Start
//
//	req, err := tikz.ParseMagic("-s 2 -l arrows.meta", `\draw[->] (0,0) -- (1,1);`)
//	if err != nil {
//	    return err
//	}
//	res, err := render.NewRenderer(nil, nil, logger).Render(ctx, req)
//	if err != nil {
//	    return err
//	}
//	os.WriteFile("arrow.png", res.Image.PNG, 0o644)
//
// # External Programs
//
// A LaTeX engine (xelatex by default; pdflatex and lualatex also work) with
// the TikZ and standalone packages, and ImageMagick with Ghostscript, or
// poppler's pdftoppm, for rasterization.
//
// [tikz]: https://pkg.go.dev/github.com/matzehuels/tikzcell/pkg/tikz
// [render]: https://pkg.go.dev/github.com/matzehuels/tikzcell/pkg/render
// [cache]: https://pkg.go.dev/github.com/matzehuels/tikzcell/pkg/cache
// [server]: https://pkg.go.dev/github.com/matzehuels/tikzcell/pkg/server
// [errors]: https://pkg.go.dev/github.com/matzehuels/tikzcell/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/tikzcell/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/tikzcell/pkg/buildinfo
package pkg
