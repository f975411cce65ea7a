package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// JPEGQuality is the encoder quality for captured stills.
const JPEGQuality = 92

// encodeStill decodes a camera frame, scales it down to fit res while
// keeping the aspect ratio, and encodes it as JPEG.
func encodeStill(frame []byte, res Resolution) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("frame has no pixels")
	}

	newWidth, newHeight := fitWithin(width, height, res.orDefault())
	out := img
	if newWidth != width || newHeight != height {
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		out = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode still: %w", err)
	}
	return buf.Bytes(), nil
}

// fitWithin returns the largest size with the aspect ratio of w x h that
// fits inside res. Images that already fit are never enlarged.
func fitWithin(w, h int, res Resolution) (int, int) {
	if w <= res.Width && h <= res.Height {
		return w, h
	}
	scale := min(float64(res.Width)/float64(w), float64(res.Height)/float64(h))
	nw := max(int(float64(w)*scale), 1)
	nh := max(int(float64(h)*scale), 1)
	return nw, nh
}
