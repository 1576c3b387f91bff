package layout

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	apperrors "github.com/matzehuels/specsync/pkg/errors"
)

// ImageInfo describes an encoded image without decoding its pixels.
type ImageInfo struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"` // as registered with package image: "png", "jpeg", ...
}

// Embeddable reports whether the format is written into a workbook as-is.
// Only PNG and JPEG are; other decodable formats are re-encoded to PNG first.
func (i ImageInfo) Embeddable() bool {
	return i.Format == "png" || i.Format == "jpeg"
}

// Extension returns the file extension matching Format, with a leading dot.
func (i ImageInfo) Extension() string {
	switch i.Format {
	case "jpeg":
		return ".jpg"
	case "":
		return ""
	default:
		return "." + i.Format
	}
}

// ProbeImage reads the header of an encoded image to obtain its dimensions.
// An empty buffer or an unrecognised format is reported as MISSING_IMAGE.
func ProbeImage(buf []byte) (ImageInfo, error) {
	if len(buf) == 0 {
		return ImageInfo{}, apperrors.New(apperrors.ErrCodeMissingImage, "image buffer is empty")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		return ImageInfo{}, apperrors.Wrap(apperrors.ErrCodeMissingImage, err, "decode image header")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, apperrors.New(apperrors.ErrCodeMissingImage,
			"image has no usable dimensions (%dx%d)", cfg.Width, cfg.Height)
	}
	return ImageInfo{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}
