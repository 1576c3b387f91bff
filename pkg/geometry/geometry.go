package geometry

import (
	"errors"
	"math"
)

var (
	// ErrNotReady is returned when the viewport metrics are incomplete, for
	// example before the image element has loaded.
	ErrNotReady = errors.New("geometry: viewport metrics not ready")

	// ErrInvalidZoom is returned for a zoom factor that is not strictly positive.
	ErrInvalidZoom = errors.New("geometry: zoom must be greater than zero")
)

// Point is a position in either natural or display pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is the client bounding box of an element.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Percent is a position expressed as a percentage of the rendered image
// element, as used for percentage-of-container marker placement.
type Percent struct {
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

// ViewportMetrics is a snapshot of how the image is currently rendered.
type ViewportMetrics struct {
	// Container is the bounding box of the scroll container in client coordinates.
	Container Rect `json:"container"`
	// Client is the rendered size of the image element before zoom is applied.
	Client Size `json:"client"`
	// Natural is the intrinsic size of the source image.
	Natural Size `json:"natural"`
	// Zoom is the scale factor applied to the image element.
	Zoom float64 `json:"zoom"`
}

// Validate reports whether m can be used for a conversion.
func (m ViewportMetrics) Validate() error {
	if !positive(m.Zoom) {
		return ErrInvalidZoom
	}
	if !positive(m.Client.Width) || !positive(m.Client.Height) ||
		!positive(m.Natural.Width) || !positive(m.Natural.Height) ||
		!positive(m.Container.Width) || !positive(m.Container.Height) {
		return ErrNotReady
	}
	return nil
}

// Ready is shorthand for Validate() == nil.
func (m ViewportMetrics) Ready() bool {
	return m.Validate() == nil
}

// rendered returns the zoomed element box inside the container, in client coordinates.
func (m ViewportMetrics) rendered() Rect {
	w := m.Client.Width * m.Zoom
	h := m.Client.Height * m.Zoom
	return Rect{
		Left:   m.Container.Left + (m.Container.Width-w)/2,
		Top:    m.Container.Top + (m.Container.Height-h)/2,
		Width:  w,
		Height: h,
	}
}

// DisplayToNatural maps a pointer position in client coordinates to natural
// image space.
func DisplayToNatural(p Point, m ViewportMetrics) (Point, error) {
	if err := m.Validate(); err != nil {
		return Point{}, err
	}

	widthRatio := m.Natural.Width / (m.Client.Width * m.Zoom)
	heightRatio := m.Natural.Height / (m.Client.Height * m.Zoom)
	xOffset := (m.Container.Width - m.Client.Width*m.Zoom) / 2
	yOffset := (m.Container.Height - m.Client.Height*m.Zoom) / 2

	return Point{
		X: (p.X - m.Container.Left - xOffset) * widthRatio,
		Y: (p.Y - m.Container.Top - yOffset) * heightRatio,
	}, nil
}

// NaturalToPercent converts a natural-space position to percentages of the
// image, which is how markers are rendered.
func NaturalToPercent(p Point, natural Size) (Percent, error) {
	if !positive(natural.Width) || !positive(natural.Height) {
		return Percent{}, ErrNotReady
	}
	return Percent{
		Left: p.X / natural.Width * 100,
		Top:  p.Y / natural.Height * 100,
	}, nil
}

// DisplayToPercent expresses a pointer position as a percentage of the
// rendered (zoomed, centred) image element.
func DisplayToPercent(p Point, m ViewportMetrics) (Percent, error) {
	if err := m.Validate(); err != nil {
		return Percent{}, err
	}
	r := m.rendered()
	return Percent{
		Left: (p.X - r.Left) / r.Width * 100,
		Top:  (p.Y - r.Top) / r.Height * 100,
	}, nil
}

// PercentToDisplay places a percentage position inside the rendered image
// element and returns it in client coordinates.
func PercentToDisplay(pct Percent, m ViewportMetrics) (Point, error) {
	if err := m.Validate(); err != nil {
		return Point{}, err
	}
	r := m.rendered()
	return Point{
		X: r.Left + pct.Left/100*r.Width,
		Y: r.Top + pct.Top/100*r.Height,
	}, nil
}

// NaturalToDisplay is the inverse of [DisplayToNatural].
func NaturalToDisplay(p Point, m ViewportMetrics) (Point, error) {
	pct, err := NaturalToPercent(p, m.Natural)
	if err != nil {
		return Point{}, err
	}
	return PercentToDisplay(pct, m)
}

// Within reports whether p lies inside the natural image bounds.
func Within(p Point, natural Size) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= natural.Width && p.Y <= natural.Height
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
