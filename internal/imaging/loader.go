package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
)

// Decode decodes a JPEG or PNG image from raw bytes.
//
// Parameters:
//   - data: Raw image file contents as received from the caller (e.g. an
//     upload handler).
//
// Returns:
//   - image.Image: The decoded image. The concrete type depends on the image
//     format and color model (e.g., *image.NRGBA, *image.YCbCr).
//   - string: The detected format name ("jpeg" or "png").
//   - error: ErrInvalidImage (wrapped) if the data is empty or not a valid
//     image in a registered format.
//
// Decoding is the first stage of every grading request; a failure here is
// fatal to the request and is never retried.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty input", ErrInvalidImage)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	return img, format, nil
}

// LoadFile reads and decodes an image from disk.
//
// This is a convenience for the CLI entry point; the pipeline itself only
// ever sees decoded images or raw bytes.
func LoadFile(path string) (image.Image, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read image file: %w", err)
	}

	img, _, err := Decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	return img, data, nil
}
