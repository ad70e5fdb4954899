package imgload

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"regexp"
	"strings"

	// Format sniffing beyond the stdlib set. Decoding goes through
	// image.Decode, so registration is all these need.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	_ "image/gif"
	_ "image/jpeg"
)

var dataURLPrefix = regexp.MustCompile(`(?i)^data:[^,]*;base64,`)

// DecodeBase64 decodes a base64 payload tolerantly: a data: URL prefix is
// stripped, whitespace and line breaks are removed, missing padding is
// restored, and the URL-safe alphabet is accepted as a fallback.
func DecodeBase64(data string) ([]byte, error) {
	if m := dataURLPrefix.FindString(data); m != "" {
		data = data[len(m):]
	}
	data = strings.Join(strings.Fields(data), "")
	if missing := (4 - len(data)%4) % 4; missing > 0 {
		data += strings.Repeat("=", missing)
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err == nil {
		return raw, nil
	}
	raw, uerr := base64.URLEncoding.DecodeString(data)
	if uerr == nil {
		return raw, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
}

// normalize proves the bytes are a real image by decoding them, then
// re-encodes to PNG so every downstream consumer sees one format regardless
// of what came in.
func normalize(raw []byte) (*Image, error) {
	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	bounds := src.Bounds()

	out := raw
	if format != "png" {
		var buf bytes.Buffer
		if err := png.Encode(&buf, src); err != nil {
			return nil, fmt.Errorf("imgload: re-encoding %s as png: %w", format, err)
		}
		out = buf.Bytes()
	}

	return &Image{
		PNG:      out,
		WidthPx:  bounds.Dx(),
		HeightPx: bounds.Dy(),
	}, nil
}
