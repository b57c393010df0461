package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 13), B: uint8(x ^ y), A: 255})
		}
	}
	return img
}

func encodeTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, newTestImage(w, h), &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, newTestImage(w, h)))
	return buf.Bytes()
}

func TestCompress_PassThroughBelowThreshold(t *testing.T) {
	tr := NewTranscoder(1<<20, 800)
	in := encodeTestJPEG(t, 200, 100)

	out, format, err := tr.Compress(in, FormatJPEG)
	assert.NoError(t, err)
	assert.Equal(t, FormatJPEG, format)
	assert.Equal(t, in, out, "below-threshold input must pass through byte-identical")
}

func TestCompress_DownscalesOversizedInput(t *testing.T) {
	tr := NewTranscoder(1, 300)
	in := encodeTestJPEG(t, 1200, 600)

	out, format, err := tr.Compress(in, FormatJPEG)
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, format)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 300, decoded.Bounds().Dx())
	assert.Equal(t, 150, decoded.Bounds().Dy())
	assert.Less(t, len(out), len(in))
}

func TestCompress_NeverUpscales(t *testing.T) {
	tr := NewTranscoder(1, 800)
	in := encodeTestPNG(t, 120, 80)

	out, format, err := tr.Compress(in, FormatPNG)
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, format)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 120, decoded.Bounds().Dx())
	assert.Equal(t, 80, decoded.Bounds().Dy())
}

func TestThumbnail_SquareCenterCrop(t *testing.T) {
	tr := NewTranscoder(1<<20, 1920)
	in := encodeTestJPEG(t, 600, 300)

	out, format, err := tr.Thumbnail(in, FormatJPEG, 200)
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, format)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 200, decoded.Bounds().Dx())
	assert.Equal(t, 200, decoded.Bounds().Dy())
}

func TestThumbnail_RejectsGarbage(t *testing.T) {
	tr := NewTranscoder(1<<20, 1920)

	_, _, err := tr.Thumbnail([]byte("not an image"), FormatJPEG, 200)
	assert.Error(t, err)
}
