package capability

import (
	"bytes"
	"image"

	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// webpSample is a minimal 1x1 lossy WebP image used as the decode probe
// payload.
var webpSample = []byte{
	0x52, 0x49, 0x46, 0x46, 0x24, 0x00, 0x00, 0x00, // "RIFF", size 36
	0x57, 0x45, 0x42, 0x50, // "WEBP"
	0x56, 0x50, 0x38, 0x20, 0x18, 0x00, 0x00, 0x00, // "VP8 ", size 24
	0x30, 0x01, 0x00, 0x9D, 0x01, 0x2A, 0x01, 0x00,
	0x01, 0x00, 0x02, 0x00, 0x34, 0x25, 0xA4, 0x00,
	0x03, 0x70, 0x00, 0xFE, 0xFB, 0xFD, 0x50, 0x00,
}

// probeWebPDecode reports whether the runtime can decode WebP.
func probeWebPDecode() bool {
	img, err := webp.Decode(bytes.NewReader(webpSample))
	return err == nil && img != nil
}

// probeTIFFRoundTrip reports whether the runtime can encode and decode
// TIFF, using an in-memory 1x1 round trip.
func probeTIFFRoundTrip() bool {
	var buf bytes.Buffer
	src := image.NewGray(image.Rect(0, 0, 1, 1))
	if err := tiff.Encode(&buf, src, nil); err != nil {
		return false
	}
	img, err := tiff.Decode(&buf)
	return err == nil && img != nil
}
