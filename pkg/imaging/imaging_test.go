package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/classmate-app/homework-api/pkg/errors"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 10 {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestProcessKeepsSmallImages(t *testing.T) {
	p := NewProcessor(0, 0, 0)
	res, err := p.Process(bytes.NewReader(encodePNG(t, 640, 480)))
	require.NoError(t, err)
	assert.Equal(t, 640, res.Width)
	assert.Equal(t, 480, res.Height)
	assert.NotEmpty(t, res.Data)
}

func TestProcessDownscalesLongestEdge(t *testing.T) {
	p := NewProcessor(0, 1920, 0)
	res, err := p.Process(bytes.NewReader(encodePNG(t, 4000, 2000)))
	require.NoError(t, err)
	assert.Equal(t, 1920, res.Width)
	assert.Equal(t, 960, res.Height)
}

func TestProcessDownscalesPortrait(t *testing.T) {
	p := NewProcessor(0, 100, 0)
	res, err := p.Process(bytes.NewReader(encodePNG(t, 50, 400)))
	require.NoError(t, err)
	assert.Equal(t, 100, res.Height)
	assert.Equal(t, 12, res.Width)
}

func TestProcessRejectsOversizedInput(t *testing.T) {
	p := NewProcessor(1024, 0, 0)
	big := strings.NewReader(strings.Repeat("x", 2048))
	_, err := p.Process(big)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrImageTooLarge.Code, appErrors.FromError(err).Code)
}

func TestProcessRejectsGarbage(t *testing.T) {
	p := NewProcessor(0, 0, 0)
	_, err := p.Process(strings.NewReader("definitely not an image"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnsupportedFormat.Code, appErrors.FromError(err).Code)
}

func TestWebPDecoderRegistered(t *testing.T) {
	// A truncated RIFF container carries the webp magic. With the
	// decoder registered the sniffer recognises the format and fails
	// inside the decoder rather than with image.ErrFormat.
	_, _, err := image.Decode(strings.NewReader("RIFF\x00\x00\x00\x00WEBPVP8 "))
	require.Error(t, err)
	assert.NotErrorIs(t, err, image.ErrFormat)
}

func TestFit(t *testing.T) {
	cases := []struct {
		w, h, max        int
		wantW, wantH     int
	}{
		{100, 50, 200, 100, 50},
		{4000, 2000, 1920, 1920, 960},
		{2000, 4000, 1920, 960, 1920},
		{1920, 1920, 1920, 1920, 1920},
	}
	for _, tc := range cases {
		gotW, gotH := fit(tc.w, tc.h, tc.max)
		assert.Equal(t, tc.wantW, gotW)
		assert.Equal(t, tc.wantH, gotH)
	}
}
