package imageprep

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPrepare_SmallImagePassesThrough(t *testing.T) {
	data := pngBytes(t, 64, 32)
	in, err := Prepare(data)
	require.NoError(t, err)
	assert.Equal(t, "image/png", in.MIMEType)
	assert.Equal(t, data, in.Data)
}

func TestPrepare_DownscalesLargeImage(t *testing.T) {
	in, err := Prepare(pngBytes(t, 3000, 1000))
	require.NoError(t, err)
	assert.Equal(t, "image/png", in.MIMEType)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(in.Data))
	require.NoError(t, err)
	assert.Equal(t, MaxDimension, cfg.Width)
	assert.Equal(t, 682, cfg.Height)
}

func TestPrepare_Rejects(t *testing.T) {
	_, err := Prepare(nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Prepare([]byte("just some text, not a photo"))
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Prepare(make([]byte, MaxBytes+1))
	assert.ErrorIs(t, err, ErrTooLarge)
}

// pngHeader returns a PNG signature and IHDR chunk claiming w x h pixels.
// DecodeConfig reads no further, so huge dimensions cost nothing here.
func pngHeader(w, h uint32) []byte {
	chunk := make([]byte, 0, 17)
	chunk = append(chunk, "IHDR"...)
	chunk = binary.BigEndian.AppendUint32(chunk, w)
	chunk = binary.BigEndian.AppendUint32(chunk, h)
	chunk = append(chunk, 8, 0, 0, 0, 0) // 8-bit gray, deflate, no filter, no interlace

	out := []byte("\x89PNG\r\n\x1a\n")
	out = binary.BigEndian.AppendUint32(out, 13)
	out = append(out, chunk...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(chunk))
}

func TestPrepare_RejectsHugeDimensionsBeforeDecode(t *testing.T) {
	data := pngHeader(16000, 16000)
	require.Less(t, len(data), MaxBytes)

	_, err := Prepare(data)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Contains(t, err.Error(), "16000x16000")

	// Oversized along one edge but within the pixel budget still gets decoded.
	_, err = Prepare(pngHeader(20000, 100))
	assert.NotErrorIs(t, err, ErrTooLarge)
}

func TestFit(t *testing.T) {
	w, h := fit(4096, 2048, 2048)
	assert.Equal(t, [2]int{2048, 1024}, [2]int{w, h})
	w, h = fit(1000, 5000, 2048)
	assert.Equal(t, [2]int{409, 2048}, [2]int{w, h})
	w, h = fit(100, 100, 2048)
	assert.Equal(t, [2]int{100, 100}, [2]int{w, h})
}

func TestRotate(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	red := color.RGBA{R: 255, A: 255}
	src.Set(0, 0, red) // top-left

	cw := orient(src, 6)
	assert.Equal(t, image.Rect(0, 0, 2, 3), cw.Bounds())
	assert.Equal(t, red, cw.At(1, 0)) // top-right after 90° clockwise

	flipped := orient(src, 3)
	assert.Equal(t, red, flipped.At(2, 1))

	ccw := orient(src, 8)
	assert.Equal(t, red, ccw.At(0, 2))

	assert.Same(t, src, orient(src, 1).(*image.RGBA))
}

func TestDataURLRoundTrip(t *testing.T) {
	data := pngBytes(t, 4, 4)
	s := EncodeDataURL(data, "image/png")
	assert.Contains(t, s, "data:image/png;base64,")

	got, mime, err := DecodeDataURL(s)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, data, got)
}

func TestEncodeDataURL_DefaultsMIME(t *testing.T) {
	assert.Contains(t, EncodeDataURL([]byte{1, 2}, ""), "data:image/png;base64,")
}

func TestDecodeDataURL_Rejects(t *testing.T) {
	_, _, err := DecodeDataURL("not a data url")
	assert.Error(t, err)
	_, _, err = DecodeDataURL("data:text/plain;base64,aGVsbG8=")
	assert.ErrorIs(t, err, ErrUnsupported)
}
