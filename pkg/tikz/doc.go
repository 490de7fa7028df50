// Package tikz turns TikZ drawing commands into a complete LaTeX document.
//
// A [Request] carries the TikZ body together with the options a notebook
// user passes on the magic line: extra LaTeX packages, TikZ libraries, a
// preamble, an optional \input file, the standalone border and the engine
// that will compile the result. [Document] assembles the standalone
// document; it does not look at the LaTeX itself, so malformed input only
// shows up later as a compilation failure.
//
// # Magic lines
//
// [ParseMagic] parses the option line of a %%tikz cell:
//
//	req, err := tikz.ParseMagic(`-l arrows.meta -s 2 --engine pdflatex`, cell)
//
// The same flags are registered on any pflag.FlagSet with [BindFlags], which
// is how the CLI exposes them.
package tikz
