// Package render compiles LaTeX documents into PDFs and rasterizes them.
//
// The package is the glue between two external programs: a LaTeX engine
// (xelatex, pdflatex, lualatex, ...) and a raster converter (ImageMagick or
// poppler's pdftoppm). Neither is inspected; success is judged only by the
// files they leave behind.
//
// # Pipeline
//
// [Renderer.Render] takes a [tikz.Request] through these states:
//
//	idle → template_assembled → compiling → compiled → converting → rendered → cleaned
//	                                  ↘ compilation_failed    ↘ conversion_failed ↗
//
// Each request gets its own [Workspace], a fresh temporary directory that is
// removed on every exit path, so concurrent renders never share files.
//
// # Usage
//
//	r := render.NewRenderer(nil, nil, logger)
//	res, err := r.Render(ctx, tikz.NewRequest(`\draw (0,0) -- (1,1);`))
//	if errors.Is(err, errors.ErrCodeCompilation) {
//	    fmt.Println(errors.DetailOf(err)) // TeX error lines
//	}
//	os.WriteFile("out.png", res.Image.PNG, 0o644)
//
// Subprocesses run through an [Executor]; tests substitute the fake in the
// rendertest package.
package render
