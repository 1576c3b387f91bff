package placement

import (
	"github.com/matzehuels/specsync/pkg/geometry"
)

// ClickAction is the effect a canvas click had.
type ClickAction int

const (
	// ClickIgnored means the click changed nothing: a drag was active or the
	// viewport metrics were not ready.
	ClickIgnored ClickAction = iota
	// ClickPending means a new-annotation creation was opened.
	ClickPending
	// ClickCleared means an open creation or selection was dismissed.
	ClickCleared
)

func (a ClickAction) String() string {
	switch a {
	case ClickPending:
		return "pending"
	case ClickCleared:
		return "cleared"
	default:
		return "ignored"
	}
}

// Click is the outcome of [Controller.CanvasClick].
type Click struct {
	Action   ClickAction    `json:"action"`
	Position geometry.Point `json:"position"`
}

// CanvasClick handles a click on the canvas that did not land on a marker.
// With a creation or selection open, the click only clears it; otherwise the
// click opens a creation at the mapped natural position.
func (c *Controller) CanvasClick(p geometry.Point, metrics geometry.ViewportMetrics) Click {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != "" {
		return Click{Action: ClickIgnored}
	}
	if c.pending != nil || c.selected != "" {
		c.pending = nil
		c.selected = ""
		return Click{Action: ClickCleared}
	}

	natural, err := geometry.DisplayToNatural(p, metrics)
	if err != nil {
		return Click{Action: ClickIgnored}
	}
	c.pending = &natural
	return Click{Action: ClickPending, Position: natural}
}

// Pending returns the natural position of the open creation, if any.
func (c *Controller) Pending() (geometry.Point, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		return geometry.Point{}, false
	}
	return *c.pending, true
}

// Selected returns the id of the selected marker, if any.
func (c *Controller) Selected() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected, c.selected != ""
}

// Select makes id the selection and closes any open creation.
func (c *Controller) Select(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.markers[id]; !ok {
		return ErrUnknownMarker
	}
	c.selected = id
	c.pending = nil
	return nil
}

// Deselect closes both the open creation and the selection.
func (c *Controller) Deselect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
	c.selected = ""
}

// CompleteCreation records that the pending annotation was persisted under id.
// The marker is tracked at the pending position and the creation is closed.
// It reports false when no creation was open.
func (c *Controller) CompleteCreation(id string) (geometry.Point, bool) {
	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return geometry.Point{}, false
	}
	p := *c.pending
	c.pending = nil
	c.mu.Unlock()

	c.Track(id, p)
	return p, true
}
