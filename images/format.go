package images

import (
	"path/filepath"
	"strings"
)

// ImageFormat represents supported image formats
type ImageFormat string

const (
	// FormatUnknown is returned for extensions the loader does not recognize.
	// Such files are still decoded by sniffing their header.
	FormatUnknown ImageFormat = ""
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatBMP is the BMP image format.
	FormatBMP ImageFormat = "bmp"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
)

// FormatFromPath infers the image format from the file extension.
func FormatFromPath(path string) ImageFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return FormatJPEG
	case ".png":
		return FormatPNG
	case ".bmp":
		return FormatBMP
	case ".webp":
		return FormatWebP
	default:
		return FormatUnknown
	}
}
