// Package imaging validates and recompresses proof photos before they
// are stored: inputs are capped at a configured byte size, scaled down
// so the longest edge fits the configured bound, and re-encoded as JPEG.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	appErrors "github.com/classmate-app/homework-api/pkg/errors"
)

const (
	DefaultMaxFileSize  = 2 * 1024 * 1024
	DefaultMaxDimension = 1920
	DefaultJPEGQuality  = 70
)

// Processor re-encodes uploads into bounded JPEGs.
type Processor struct {
	maxFileSize  int64
	maxDimension int
	quality      int
}

// NewProcessor builds a Processor, falling back to defaults for
// non-positive settings.
func NewProcessor(maxFileSize int64, maxDimension, quality int) *Processor {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &Processor{maxFileSize: maxFileSize, maxDimension: maxDimension, quality: quality}
}

// Result carries the re-encoded image and its final geometry.
type Result struct {
	Data   []byte
	Width  int
	Height int
}

// Process reads at most maxFileSize+1 bytes from r, decodes, downscales
// and re-encodes the image. The output size is re-checked against the
// cap after compression.
func (p *Processor) Process(r io.Reader) (*Result, error) {
	raw, err := io.ReadAll(io.LimitReader(r, p.maxFileSize+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "read image upload")
	}
	if int64(len(raw)) > p.maxFileSize {
		return nil, appErrors.Clone(appErrors.ErrImageTooLarge, fmt.Sprintf("image exceeds %d bytes", p.maxFileSize))
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnsupportedFormat.Code, appErrors.ErrUnsupportedFormat.Status, "decode image")
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, "image has no pixels")
	}

	targetW, targetH := fit(width, height, p.maxDimension)
	if targetW != width || targetH != height {
		scaled := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)
		img = scaled
	}

	buf := &bytes.Buffer{}
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode jpeg")
	}
	if int64(buf.Len()) > p.maxFileSize {
		return nil, appErrors.Clone(appErrors.ErrImageTooLarge, "image is still too large after compression")
	}

	return &Result{Data: buf.Bytes(), Width: targetW, Height: targetH}, nil
}

// fit scales (w, h) so the longest edge is at most max, preserving the
// aspect ratio.
func fit(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}
	if w >= h {
		return max, scaleEdge(h, w, max)
	}
	return scaleEdge(w, h, max), max
}

func scaleEdge(short, long, max int) int {
	edge := short * max / long
	if edge < 1 {
		edge = 1
	}
	return edge
}
