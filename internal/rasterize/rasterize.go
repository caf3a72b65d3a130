package rasterize

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

// renderDPI oversamples the 72 DPI page base by 4x so small resume type
// stays legible after downstream model ingestion.
const renderDPI = 288

// Result carries the rendered first page or a human-readable failure.
// A populated Err with empty ImagePNG marks the conversion as failed;
// FirstPage never panics and never returns a Go error to its caller.
type Result struct {
	ImagePNG []byte
	Width    int
	Height   int
	Err      string
}

// Failed reports whether the conversion produced no usable image.
func (r Result) Failed() bool {
	return r.Err != "" || len(r.ImagePNG) == 0
}

// FirstPage renders page 1 of the document bytes to a PNG. It is stateless
// and idempotent: identical input always yields an image of identical
// dimensions. The document handle is released before return on all paths.
func FirstPage(data []byte) Result {
	if len(data) == 0 {
		return Result{Err: "empty document"}
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return Result{Err: fmt.Sprintf("open document: %v", err)}
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return Result{Err: "document has no pages"}
	}

	img, err := doc.ImageDPI(0, renderDPI)
	if err != nil {
		return Result{Err: fmt.Sprintf("render page 1: %v", err)}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Result{Err: fmt.Sprintf("encode png: %v", err)}
	}

	bounds := img.Bounds()
	return Result{
		ImagePNG: buf.Bytes(),
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}
}
