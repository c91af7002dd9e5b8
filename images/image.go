// Package images - loads images from disk into dense float tensors and back.
package images

import (
	"os"

	"github.com/pkg/errors"
)

// Image represents an encoded image read from disk.
type Image struct {
	// Path is the path the image was read from.
	Path string `json:"path" yaml:"path"`
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The data of the image.
	Data []byte `json:"data" yaml:"data"`
}

// ReadFile reads the raw bytes of an image file and infers its format from the
// extension.
//
// Arguments:
//   - path: Path to the image file.
//
// Returns:
//   - *Image: The encoded image.
//   - error: The underlying I/O error, wrapped with the path.
func ReadFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read image %s", path)
	}

	return &Image{
		Path:   path,
		Format: FormatFromPath(path),
		Data:   data,
	}, nil
}
