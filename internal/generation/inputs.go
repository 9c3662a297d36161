package generation

import (
	"strings"
	"unicode/utf8"

	"github.com/fpang/ai-marketing-designer/internal/imageprep"
	"github.com/fpang/ai-marketing-designer/internal/marketing"
)

// Input caps, in characters.
const (
	MaxProductNameChars   = 100
	MaxBrandContextChars  = 5000
	MaxReferenceCopyChars = 10000
)

func checkText(op, field, value string, limit int) error {
	if n := utf8.RuneCountInString(value); n > limit {
		return newError(KindInputLimit, op, nil, "%s must be at most %d characters (got %d)", field, limit, n)
	}
	return nil
}

func checkImage(op, field string, img marketing.ImageInput) error {
	switch {
	case len(img.Data) == 0:
		return newError(KindInputLimit, op, imageprep.ErrEmpty, "%s is empty", field)
	case len(img.Data) > imageprep.MaxBytes:
		return newError(KindInputLimit, op, imageprep.ErrTooLarge, "%s must be at most %d MiB (got %d bytes)", field, imageprep.MaxBytes>>20, len(img.Data))
	case !strings.HasPrefix(img.MIMEType, "image/"):
		return newError(KindInputLimit, op, imageprep.ErrUnsupported, "%s must be an image (got %q)", field, img.MIMEType)
	}
	return nil
}
