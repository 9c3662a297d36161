// Package export packages rendered assets for download: a ZIP archive of
// every rendered image under its derived filename, or a single image.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-marketing-designer/internal/config"
	"github.com/fpang/ai-marketing-designer/internal/imageprep"
	"github.com/fpang/ai-marketing-designer/internal/marketing"
	"github.com/fpang/ai-marketing-designer/internal/naming"
)

// ErrNoImages is returned when no image could be added to the archive.
var ErrNoImages = errors.New("no images to export")

// DefaultArchiveName is used when the caller supplies no name.
const DefaultArchiveName = "marketing-assets"

// zipMethodZstd is the ZIP compression method ID for Zstandard (APPNOTE 6.3.7).
const zipMethodZstd uint16 = zstd.ZipMethodWinZip

// Archive is a packaged ZIP file.
type Archive struct {
	// Filename is the sanitized archive name including ".zip".
	Filename string
	Data     []byte
	// Entries lists the filenames written, in plan order.
	Entries []string
}

// Packager builds archives. The zero value writes Deflate entries.
type Packager struct {
	// Method is config.ArchiveDeflate or config.ArchiveZstd.
	Method string
	// Now stamps entry modification times; defaults to time.Now.
	Now func() time.Time
}

// Package builds a Deflate archive with the default Packager.
func Package(images map[string]string, items []marketing.ContentItem, archiveName string) (*Archive, error) {
	return Packager{}.Package(images, items, archiveName)
}

// Package writes every image whose ID matches an item into a ZIP archive,
// named by naming.FilenameMap. Images with no matching item, or whose data
// URL cannot be decoded, are skipped with a warning. ErrNoImages is returned
// when nothing was added.
func (p Packager) Package(images map[string]string, items []marketing.ContentItem, archiveName string) (*Archive, error) {
	names := naming.FilenameMap(items)

	var unmatched []string
	for id := range images {
		if _, ok := names[id]; !ok {
			unmatched = append(unmatched, id)
		}
	}
	sort.Strings(unmatched)
	for _, id := range unmatched {
		log.Warn().Str("itemId", id).Msg("No content item for rendered image, skipping")
	}

	method := zip.Deflate
	if p.Method == config.ArchiveZstd {
		method = zipMethodZstd
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zipMethodZstd, zstd.ZipCompressor(zstd.WithEncoderLevel(zstd.SpeedBetterCompression)))

	var entries []string
	for _, item := range items {
		dataURL, ok := images[item.ID]
		if !ok {
			continue
		}
		filename := names[item.ID]

		data, _, err := imageprep.DecodeDataURL(dataURL)
		if err != nil {
			log.Warn().Err(err).Str("itemId", item.ID).Msg("Undecodable rendered image, skipping")
			continue
		}

		header := &zip.FileHeader{
			Name:   filename,
			Method: method,
		}
		header.Modified = now()

		w, err := zw.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("create ZIP entry for %s: %w", filename, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("write ZIP entry for %s: %w", filename, err)
		}
		entries = append(entries, filename)
	}

	if len(entries) == 0 {
		return nil, ErrNoImages
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize ZIP: %w", err)
	}

	log.Info().
		Int("entries", len(entries)).
		Int("skipped", len(images)-len(entries)).
		Int("bytes", buf.Len()).
		Str("method", methodName(method)).
		Msg("Archive packaged")

	return &Archive{
		Filename: ArchiveFilename(archiveName),
		Data:     buf.Bytes(),
		Entries:  entries,
	}, nil
}

// ArchiveFilename sanitizes name for use as a download filename and appends
// ".zip".
func ArchiveFilename(name string) string {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".zip")
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
	name = strings.Trim(name, "-")
	if name == "" {
		name = DefaultArchiveName
	}
	if len(name) > 50 {
		name = name[:50]
	}
	return name + ".zip"
}

// SingleImage decodes one rendered image for direct download.
func SingleImage(dataURL string) ([]byte, string, error) {
	data, mime, err := imageprep.DecodeDataURL(dataURL)
	if err != nil {
		return nil, "", fmt.Errorf("decode rendered image: %w", err)
	}
	return data, mime, nil
}

func methodName(m uint16) string {
	if m == zipMethodZstd {
		return config.ArchiveZstd
	}
	return config.ArchiveDeflate
}
