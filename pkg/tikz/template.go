package tikz

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	beginPicture = `\begin{tikzpicture}`
	endPicture   = `\end{tikzpicture}`
)

// Assemble builds the LaTeX document for r, resolving the input file
// against the current working directory.
func Assemble(r Request) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return Document(r, cwd), nil
}

// Document builds the standalone LaTeX document for r.
// A relative input file is resolved against cwd.
func Document(r Request, cwd string) string {
	body := Body(r, cwd)

	var buf strings.Builder
	fmt.Fprintf(&buf, "\\documentclass[tikz,border=%s]{standalone}\n", strings.TrimSpace(r.Border))
	buf.WriteString(`\usepackage{tikz`)
	if pkgs := trimList(r.LatexPackages); pkgs != "" {
		buf.WriteString("," + pkgs)
	}
	buf.WriteString("}\n")
	if libs := trimList(r.TikzLibraries); libs != "" {
		fmt.Fprintf(&buf, "\\usetikzlibrary{%s}\n", libs)
	}
	if r.LatexPreamble != "" {
		buf.WriteString(r.LatexPreamble)
		buf.WriteString("\n")
	}
	buf.WriteString("\\begin{document}\n")
	buf.WriteString(body)
	buf.WriteString("\n\\end{document}\n")
	return buf.String()
}

// Body returns the document body: the cell content, followed by the
// \input directive when an input file is set, wrapped in a tikzpicture
// environment when WrapEnv is true.
func Body(r Request, cwd string) string {
	body := r.Content
	if r.InputFile != "" {
		if body != "" && !strings.HasSuffix(body, "\n") {
			body += "\n"
		}
		body += fmt.Sprintf(`\input{%s}`, filepath.ToSlash(ResolvePath(r.InputFile, cwd)))
	}
	if r.WrapEnv {
		body = beginPicture + "\n" + strings.Trim(body, "\n") + "\n" + endPicture
	}
	return body
}

// ResolvePath makes p absolute by joining it to cwd. Absolute paths are
// returned cleaned but otherwise unchanged.
func ResolvePath(p, cwd string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(cwd, p)
}

// trimList normalizes a comma-separated list: surrounding whitespace and
// empty items are dropped.
func trimList(s string) string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return strings.Join(items, ",")
}
