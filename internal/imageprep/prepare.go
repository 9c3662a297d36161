// Package imageprep checks and normalises user-supplied photos before they
// are sent inline to the generation backend.
//
// Strategy:
//   - sniff the real content type; only still-image formats the backend
//     accepts pass
//   - reject anything over MaxBytes, or over MaxPixels once the header is read
//   - JPEG/PNG/WebP with a longest edge above MaxDimension are decoded,
//     rotated upright from EXIF orientation, scaled down and re-encoded
//   - everything else is passed through untouched
package imageprep

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/evanoberholster/imagemeta"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/fpang/ai-marketing-designer/internal/marketing"
)

const (
	// MaxBytes is the upload cap for a product photo.
	MaxBytes = 10 << 20
	// MaxDimension is the longest edge sent inline.
	MaxDimension = 2048
	// MaxPixels bounds the decoded size of a photo that needs downscaling.
	MaxPixels   = 50_000_000
	jpegQuality = 90
)

var (
	ErrEmpty       = errors.New("image is empty")
	ErrTooLarge    = fmt.Errorf("image exceeds %d MiB", MaxBytes>>20)
	ErrUnsupported = errors.New("unsupported image type")
)

var allowed = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"image/heic": true,
	"image/heif": true,
}

var resizable = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Sniff returns the detected MIME type of data, or ErrUnsupported.
func Sniff(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if allowed[m.String()] {
			return m.String(), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupported, mt.String())
}

// Prepare validates data and, when it is too large in pixels, downsizes it.
// The declared type is ignored in favour of the sniffed one.
func Prepare(data []byte) (marketing.ImageInput, error) {
	if len(data) == 0 {
		return marketing.ImageInput{}, ErrEmpty
	}
	if len(data) > MaxBytes {
		return marketing.ImageInput{}, ErrTooLarge
	}
	mime, err := Sniff(data)
	if err != nil {
		return marketing.ImageInput{}, err
	}
	in := marketing.ImageInput{Data: data, MIMEType: mime}
	if !resizable[mime] {
		return in, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return marketing.ImageInput{}, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if cfg.Width <= MaxDimension && cfg.Height <= MaxDimension {
		return in, nil
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return marketing.ImageInput{}, fmt.Errorf("%w: %dx%d is over %d megapixels",
			ErrTooLarge, cfg.Width, cfg.Height, MaxPixels/1_000_000)
	}

	out, err := downscale(data, mime)
	if err != nil {
		return marketing.ImageInput{}, err
	}
	log.Debug().
		Int("orig_width", cfg.Width).
		Int("orig_height", cfg.Height).
		Int("orig_bytes", len(data)).
		Int("new_bytes", len(out.Data)).
		Msg("Product photo downscaled")
	return out, nil
}

func downscale(data []byte, mime string) (marketing.ImageInput, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return marketing.ImageInput{}, fmt.Errorf("decode image: %w", err)
	}
	img = orient(img, orientation(data))

	b := img.Bounds()
	w, h := fit(b.Dx(), b.Dy(), MaxDimension)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	var buf bytes.Buffer
	if mime == "image/png" {
		if err := png.Encode(&buf, dst); err != nil {
			return marketing.ImageInput{}, fmt.Errorf("encode png: %w", err)
		}
		return marketing.ImageInput{Data: buf.Bytes(), MIMEType: "image/png"}, nil
	}
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return marketing.ImageInput{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return marketing.ImageInput{Data: buf.Bytes(), MIMEType: "image/jpeg"}, nil
}

// fit scales (w, h) so the longest edge is limit, keeping the aspect ratio.
func fit(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}

// orientation reads the EXIF orientation tag, defaulting to 1 (upright).
func orientation(data []byte) int {
	meta, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	if o := int(meta.Orientation); o >= 1 && o <= 8 {
		return o
	}
	return 1
}

// orient rotates img so that it displays upright. Mirrored orientations
// (2, 4, 5, 7) are rare from phone cameras and are left as is.
func orient(img image.Image, o int) image.Image {
	switch o {
	case 3:
		return rotate(img, 180)
	case 6:
		return rotate(img, 90)
	case 8:
		return rotate(img, 270)
	}
	return img
}

// rotate turns img clockwise by deg (90, 180 or 270).
func rotate(img image.Image, deg int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	var dst *image.RGBA
	if deg == 180 {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.At(b.Min.X+x, b.Min.Y+y)
			switch deg {
			case 90:
				dst.Set(h-1-y, x, c)
			case 180:
				dst.Set(w-1-x, h-1-y, c)
			case 270:
				dst.Set(y, w-1-x, c)
			}
		}
	}
	return dst
}
