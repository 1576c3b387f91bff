package pipeline

import (
	"bytes"

	"github.com/disintegration/imaging"

	apperrors "github.com/matzehuels/specsync/pkg/errors"
	"github.com/matzehuels/specsync/pkg/layout"
)

// PrepareImage probes a capture and returns bytes that can be embedded in a
// workbook. PNG and JPEG pass through untouched; other decodable formats are
// re-encoded to PNG. The bool result reports whether a conversion happened.
func PrepareImage(data []byte) ([]byte, layout.ImageInfo, bool, error) {
	info, err := layout.ProbeImage(data)
	if err != nil {
		return nil, layout.ImageInfo{}, false, err
	}
	if info.Embeddable() {
		return data, info, false, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, layout.ImageInfo{}, false, apperrors.Wrap(apperrors.ErrCodeMissingImage, err, "decode %s image", info.Format)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, layout.ImageInfo{}, false, apperrors.Wrap(apperrors.ErrCodeInternal, err, "re-encode image as png")
	}
	b := img.Bounds()
	return buf.Bytes(), layout.ImageInfo{Width: b.Dx(), Height: b.Dy(), Format: "png"}, true, nil
}
