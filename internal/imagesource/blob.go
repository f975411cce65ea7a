// Package imagesource unifies uploaded files and camera snapshots into one
// interchangeable image blob, and tracks the single current blob of a form.
package imagesource

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// SoftSizeLimit is the size guideline shown to operators. It is not enforced:
// larger blobs are still forwarded and may only fail at the remote service.
const SoftSizeLimit = 10 << 20

// ErrEmpty is returned when a file or payload has no content.
var ErrEmpty = errors.New("empty image payload")

// Blob is an opaque image payload with its MIME type.
type Blob struct {
	Data []byte
	MIME string
	Name string
}

// FromBytes builds a blob, sniffing the MIME type from the content.
func FromBytes(name string, data []byte) (*Blob, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if name == "" {
		name = "image"
	}
	return &Blob{Data: data, MIME: DetectMIME(data), Name: filepath.Base(name)}, nil
}

// FromFile reads a file from disk into a blob.
func FromFile(path string) (*Blob, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-provided path
	if err != nil {
		return nil, fmt.Errorf("could not read image %s: %w", path, err)
	}
	blob, err := FromBytes(path, data)
	if err != nil {
		return nil, fmt.Errorf("could not load image %s: %w", path, err)
	}
	return blob, nil
}

// DetectMIME returns the MIME type of data based on its magic bytes.
func DetectMIME(data []byte) string {
	mt := mimetype.Detect(data).String()
	// mimetype may append parameters (e.g. charset) for text types
	if base, _, ok := strings.Cut(mt, ";"); ok {
		return base
	}
	return mt
}

// IsImage reports whether a MIME type denotes an image.
func IsImage(mime string) bool {
	return strings.HasPrefix(mime, "image/")
}

// Size returns the payload length in bytes.
func (b *Blob) Size() int {
	if b == nil {
		return 0
	}
	return len(b.Data)
}

// Oversized reports whether the blob exceeds the soft size guideline.
func (b *Blob) Oversized() bool {
	return b.Size() > SoftSizeLimit
}

// Dimensions decodes only the image header and returns width and height.
func Dimensions(b *Blob) (int, int, error) {
	if b == nil || len(b.Data) == 0 {
		return 0, 0, ErrEmpty
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(b.Data))
	if err != nil {
		return 0, 0, fmt.Errorf("could not decode image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
