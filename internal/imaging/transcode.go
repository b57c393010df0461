package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

const (
	defaultJPEGQuality = 80
	thumbnailQuality   = 70

	errDecodeImageFmt = "failed to decode image: %w"
	errEncodeImageFmt = "failed to encode image: %w"
)

// Transcoder recompresses oversized originals and derives thumbnails.
// Compression is a cost-saving measure: inputs below Threshold pass through
// byte-identical.
type Transcoder struct {
	// Threshold is the size in bytes above which an input is recompressed.
	Threshold int64
	// MaxDimension bounds the long edge after recompression. Never upscales.
	MaxDimension int
	// Quality is the JPEG encode quality for recompressed output.
	Quality int
}

func NewTranscoder(threshold int64, maxDimension int) *Transcoder {
	return &Transcoder{
		Threshold:    threshold,
		MaxDimension: maxDimension,
		Quality:      defaultJPEGQuality,
	}
}

// Compress returns the input unchanged when it is under the threshold;
// otherwise it decodes, downscales to the bounding box preserving aspect
// ratio, and re-encodes. WebP input re-encodes as JPEG since no webp encoder
// is available. The returned format reflects the output bytes.
func (t *Transcoder) Compress(data []byte, format Format) ([]byte, Format, error) {
	if t.Threshold <= 0 || int64(len(data)) <= t.Threshold {
		return data, format, nil
	}

	img, err := decode(data, format)
	if err != nil {
		return nil, "", fmt.Errorf(errDecodeImageFmt, err)
	}

	img = scaleToFit(img, t.MaxDimension)

	outFormat := format
	if outFormat == FormatWebP {
		outFormat = FormatJPEG
	}

	out, err := encode(img, outFormat, t.quality())
	if err != nil {
		return nil, "", err
	}

	return out, outFormat, nil
}

// Thumbnail derives a square, center-cropped thumbnail. Independent of the
// compression path and always re-encodes.
func (t *Transcoder) Thumbnail(data []byte, format Format, box int) ([]byte, Format, error) {
	img, err := decode(data, format)
	if err != nil {
		return nil, "", fmt.Errorf(errDecodeImageFmt, err)
	}

	img = centerCrop(img)
	img = scaleToFit(img, box)

	outFormat := format
	if outFormat == FormatWebP {
		outFormat = FormatJPEG
	}

	out, err := encode(img, outFormat, thumbnailQuality)
	if err != nil {
		return nil, "", err
	}

	return out, outFormat, nil
}

func (t *Transcoder) quality() int {
	if t.Quality > 0 {
		return t.Quality
	}
	return defaultJPEGQuality
}

func decode(data []byte, format Format) (image.Image, error) {
	switch format {
	case FormatWebP:
		return webp.Decode(bytes.NewReader(data))
	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		return img, err
	}
}

func encode(img image.Image, format Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch format {
	case FormatPNG:
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	}

	if err != nil {
		return nil, fmt.Errorf(errEncodeImageFmt, err)
	}

	return buf.Bytes(), nil
}

// scaleToFit constrains img to a square bounding box of maxDim on the long
// edge, preserving aspect ratio. Images already inside the box are returned
// unchanged.
func scaleToFit(img image.Image, maxDim int) image.Image {
	if maxDim <= 0 {
		return img
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	var newW, newH int
	if w >= h {
		newW = maxDim
		newH = h * maxDim / w
	} else {
		newH = maxDim
		newW = w * maxDim / h
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// centerCrop extracts the largest centered square from img.
func centerCrop(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == h {
		return img
	}

	side := w
	if h < side {
		side = h
	}

	x0 := b.Min.X + (w-side)/2
	y0 := b.Min.Y + (h-side)/2
	rect := image.Rect(x0, y0, x0+side, y0+side)

	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Copy(dst, image.Point{}, img, rect, draw.Over, nil)
	return dst
}
