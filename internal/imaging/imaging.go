package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Cover limits.
const (
	// MaxCoverWidth and MaxCoverHeight bound the stored cover size.
	MaxCoverWidth  = 600
	MaxCoverHeight = 900

	// MaxUploadBytes caps the raw upload size.
	MaxUploadBytes = 5 << 20

	// JPEGQuality is the compression quality of stored covers.
	JPEGQuality = 85
)

// ErrUnsupportedFormat is returned for uploads that are not JPEG, PNG or WebP.
var ErrUnsupportedFormat = errors.New("unsupported image format")

var acceptedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Cover is a processed cover image, ready to be stored with an item.
type Cover struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// ProcessCover reads an uploaded image, checks its format by content,
// fits it into the cover bounds and re-encodes it as JPEG.
func ProcessCover(r io.Reader) (*Cover, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading cover: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrUnsupportedFormat)
	}
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("cover exceeds %d bytes", MaxUploadBytes)
	}

	detected := http.DetectContentType(data)
	if !acceptedMIME[detected] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding cover: %w", err)
	}

	img = fit(img, MaxCoverWidth, MaxCoverHeight)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding cover: %w", err)
	}

	b := img.Bounds()
	return &Cover{
		Data:   buf.Bytes(),
		MIME:   "image/jpeg",
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// fit scales img down, keeping its aspect ratio, so that it is at most
// maxW by maxH. Smaller images are returned unchanged.
func fit(img image.Image, maxW, maxH int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxW && h <= maxH {
		return img
	}

	scale := min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	newW := max(1, int(float64(w)*scale))
	newH := max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
