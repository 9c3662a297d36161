package imageprep

import (
	"fmt"
	"strings"

	"github.com/vincent-petithory/dataurl"
)

// DefaultImageMIME is assumed when an image payload carries no type.
const DefaultImageMIME = "image/png"

// EncodeDataURL wraps image bytes as a base64 data URL.
func EncodeDataURL(data []byte, mime string) string {
	if !strings.Contains(mime, "/") {
		mime = DefaultImageMIME
	}
	return dataurl.New(data, mime).String()
}

// DecodeDataURL returns the payload and content type of an image data URL.
func DecodeDataURL(s string) ([]byte, string, error) {
	du, err := dataurl.DecodeString(s)
	if err != nil {
		return nil, "", fmt.Errorf("invalid data URL: %w", err)
	}
	if du.Type != "image" {
		return nil, "", fmt.Errorf("%w: data URL holds %s", ErrUnsupported, du.ContentType())
	}
	return du.Data, du.ContentType(), nil
}
