package staging

import (
	"bytes"

	"github.com/disintegration/imaging"

	apperrors "github.com/matzehuels/specsync/pkg/errors"
)

// Normalized is a screen image ready for storage.
type Normalized struct {
	Data   []byte
	Width  int
	Height int
}

// NormalizeImage decodes an uploaded screen, applies its EXIF orientation and
// re-encodes it as PNG. Marker coordinates are stored against the natural
// size of this normalized image.
func NormalizeImage(data []byte) (Normalized, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Normalized{}, apperrors.Wrap(apperrors.ErrCodeInvalidUpload, err, "decode uploaded image")
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return Normalized{}, apperrors.Wrap(apperrors.ErrCodeInternal, err, "encode png")
	}
	b := img.Bounds()
	return Normalized{Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}
