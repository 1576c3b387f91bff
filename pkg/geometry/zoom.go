package geometry

import "math"

// Zoom bounds and increments used by the canvas viewer.
const (
	DefaultZoom = 1.0
	MinZoom     = 0.5
	MaxZoom     = 3.0
	ZoomStep    = 0.02
)

// ClampZoom limits z to [MinZoom, MaxZoom]. Non-finite or non-positive values
// reset to DefaultZoom so that a zero zoom never reaches the mapper.
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) || math.IsInf(z, 0) || z <= 0 {
		return DefaultZoom
	}
	return math.Min(math.Max(z, MinZoom), MaxZoom)
}

// ZoomIn increases z by one step.
func ZoomIn(z float64) float64 {
	return ClampZoom(z + ZoomStep)
}

// ZoomOut decreases z by one step.
func ZoomOut(z float64) float64 {
	return ClampZoom(z - ZoomStep)
}

// WheelZoom applies a wheel event. Only modifier-held (ctrl/cmd) wheels zoom;
// scrolling down zooms out and scrolling up zooms in by one step.
func WheelZoom(z, deltaY float64, modifier bool) float64 {
	if !modifier || deltaY == 0 {
		return z
	}
	if deltaY > 0 {
		return ZoomOut(z)
	}
	return ZoomIn(z)
}
