// Package geometry converts marker positions between natural image space and
// viewport (display) space.
//
// Natural image space is the pixel grid of the unscaled source screenshot. It
// never changes while a user zooms, scrolls or resizes the window, which is
// why annotations are persisted in natural coordinates only.
//
// Display space is the client coordinate system of the pointer: the image
// element is rendered at its client size, scaled by the zoom factor, and
// centred inside a scroll container. [ViewportMetrics] captures one snapshot
// of that arrangement and is passed explicitly to every conversion; nothing in
// this package holds on to rendering state between calls.
//
// # Conversions
//
// Pointer to natural space uses per-axis ratios and a centring offset:
//
//	widthRatio = natural.Width / (client.Width * zoom)
//	xOffset    = (container.Width - client.Width*zoom) / 2
//	x          = (pointer.X - container.Left - xOffset) * widthRatio
//
// Natural space back to the screen goes through percentages of the rendered
// element ([NaturalToPercent]), which stay valid for any zoom or container
// size without re-deriving ratios.
//
// # Readiness
//
// Metrics with a zero client, natural or container dimension are "not ready"
// (the image has not loaded or laid out yet). Conversions return [ErrNotReady]
// and callers drop the event without surfacing an error to the user.
package geometry
