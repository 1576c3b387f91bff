package pipeline

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/matzehuels/specsync/pkg/annotation"
	apperrors "github.com/matzehuels/specsync/pkg/errors"
)

var (
	markerFill  = color.NRGBA{R: 0xE5, G: 0x39, B: 0x35, A: 0xFF}
	markerRing  = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	markerLabel = image.NewUniform(color.White)
)

// DrawMarkers renders a numbered badge for each annotation at its natural
// position and returns the result as PNG. It stands in for the annotated
// capture when a screen is exported without a browser.
func DrawMarkers(data []byte, annotations []annotation.Annotation) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeMissingImage, err, "decode screen image")
	}
	img := imaging.Clone(src)
	b := img.Bounds()
	radius := max(10, min(b.Dx(), b.Dy())/60)

	face := basicfont.Face7x13
	for _, a := range annotations {
		cx, cy := int(a.X+0.5), int(a.Y+0.5)
		fillCircle(img, cx, cy, radius+2, markerRing)
		fillCircle(img, cx, cy, radius, markerFill)

		d := &font.Drawer{Dst: img, Src: markerLabel, Face: face}
		width := d.MeasureString(a.Marker)
		d.Dot = fixed.Point26_6{
			X: fixed.I(cx) - width/2,
			Y: fixed.I(cy + face.Ascent/2 - 1),
		}
		d.DrawString(a.Marker)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "encode annotated image")
	}
	return buf.Bytes(), nil
}

func fillCircle(dst draw.Image, cx, cy, r int, c color.Color) {
	bounds := dst.Bounds()
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy > r*r || !(image.Point{X: x, Y: y}).In(bounds) {
				continue
			}
			dst.Set(x, y, c)
		}
	}
}
