package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// MimePNG is the MIME type of rendered images.
const MimePNG = "image/png"

// Image is a rendered PNG together with the resolution it was rasterized at.
type Image struct {
	PNG    []byte `json:"-"`
	DPI    int    `json:"dpi"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// NewImage wraps PNG data, reading its dimensions from the header.
func NewImage(data []byte, dpi int) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty PNG")
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode PNG header: %w", err)
	}
	return &Image{PNG: data, DPI: dpi, Width: cfg.Width, Height: cfg.Height}, nil
}

// Base64 returns the PNG encoded as standard base64.
func (i *Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.PNG)
}

// DisplayData is a notebook display_data payload: a MIME bundle plus
// per-type metadata.
type DisplayData struct {
	Data     map[string]string         `json:"data"`
	Metadata map[string]map[string]int `json:"metadata"`
}

// DisplayData returns the image as a notebook MIME bundle.
func (i *Image) DisplayData() DisplayData {
	return DisplayData{
		Data: map[string]string{
			MimePNG:      i.Base64(),
			"text/plain": fmt.Sprintf("<TikZ image %dx%d>", i.Width, i.Height),
		},
		Metadata: map[string]map[string]int{
			MimePNG: {"width": i.Width, "height": i.Height},
		},
	}
}

// Fit returns a copy scaled down to at most maxWidth pixels wide, keeping
// the aspect ratio. Images already narrow enough, and maxWidth <= 0, return i.
func (i *Image) Fit(maxWidth int) (*Image, error) {
	if maxWidth <= 0 || i.Width <= maxWidth {
		return i, nil
	}

	src, err := png.Decode(bytes.NewReader(i.PNG))
	if err != nil {
		return nil, fmt.Errorf("decode PNG: %w", err)
	}

	height := i.Height * maxWidth / i.Width
	if height < 1 {
		height = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode PNG: %w", err)
	}
	return &Image{
		PNG:    buf.Bytes(),
		DPI:    i.DPI * maxWidth / i.Width,
		Width:  maxWidth,
		Height: height,
	}, nil
}
