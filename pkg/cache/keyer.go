package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
)

// RenderKeyOpts are the inputs that determine a rendered artifact.
type RenderKeyOpts struct {
	Document  string // assembled LaTeX document
	Engine    string
	DPI       int
	Converter string

	// Inputs fingerprints files the document pulls in by path, such as
	// the hash of an \input file. Empty when there are none.
	Inputs string
}

// Keyer generates cache keys.
type Keyer interface {
	RenderKey(opts RenderKeyOpts) string
}

// DefaultKeyer hashes the render inputs into a "render:<sha256>" key.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// RenderKey generates a key for a rendered PDF/PNG pair. Each field is
// length-prefixed, so no two distinct inputs share a preimage.
func (DefaultKeyer) RenderKey(opts RenderKeyOpts) string {
	h := sha256.New()
	for _, field := range []string{opts.Document, opts.Engine, strconv.Itoa(opts.DPI), opts.Converter, opts.Inputs} {
		fmt.Fprintf(h, "%d:", len(field))
		io.WriteString(h, field)
	}
	return "render:" + hex.EncodeToString(h.Sum(nil))
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
