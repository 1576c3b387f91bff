// Package placement implements the marker placement state machine.
//
// A [Controller] tracks every marker on one screen, turns pointer events into
// natural-space coordinates through package geometry, and commits finished
// drags to a [PositionUpdater]. Each marker moves through two states:
//
//	Idle --pointer-down on marker--> Dragging --pointer-up (anywhere)--> Idle
//
// Pointer-move and pointer-up are controller-wide, not marker-scoped: the
// host forwards them no matter where the pointer is, so releasing outside the
// marker or the image still ends the drag.
//
// Commits are optimistic. The marker is displayed at its new position as soon
// as the pointer is released; if the update call fails, the marker reverts to
// the last position the collaborator accepted. At most one update per marker
// is in flight: a drag released while an earlier commit is outstanding is
// queued, and only the newest queued position is sent once the earlier call
// returns, so the collaborator always ends up holding the latest drag.
// Nothing is retried.
//
// Canvas clicks follow a single-select-or-create rule: with nothing pending a
// click opens a new-annotation creation at the clicked natural point, and with
// a creation or selection open the click only clears it.
package placement

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	apperrors "github.com/matzehuels/specsync/pkg/errors"
	"github.com/matzehuels/specsync/pkg/geometry"
	"github.com/matzehuels/specsync/pkg/observability"
)

// State is the interaction state of a single marker.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// Sentinel errors returned by the controller.
var (
	// ErrUnknownMarker is returned for an annotation id the controller does not track.
	ErrUnknownMarker = errors.New("placement: unknown marker")

	// ErrDragInProgress is returned when a drag is requested while one is active.
	ErrDragInProgress = errors.New("placement: drag already in progress")
)

// PositionUpdater persists a committed marker position. Coordinates are in
// natural image space.
type PositionUpdater interface {
	UpdatePosition(ctx context.Context, annotationID string, x, y float64) error
}

// PositionUpdaterFunc adapts a function to [PositionUpdater].
type PositionUpdaterFunc func(ctx context.Context, annotationID string, x, y float64) error

// UpdatePosition calls f.
func (f PositionUpdaterFunc) UpdatePosition(ctx context.Context, annotationID string, x, y float64) error {
	return f(ctx, annotationID, x, y)
}

// Marker is a read-only view of one tracked marker.
type Marker struct {
	ID       string         `json:"id"`
	Position geometry.Point `json:"position"`
	State    State          `json:"state"`
}

// marker is the controller's mutable record for one annotation.
type marker struct {
	id    string
	pos   geometry.Point // displayed position
	good  geometry.Point // last position accepted by the updater
	state State
	moved bool

	inFlight bool            // an update call is outstanding
	queued   *geometry.Point // newest drag waiting for the outstanding call
}

// Controller owns drag interaction state for the markers of one screen.
// It is safe for concurrent use; the updater is always called without the
// controller lock held.
type Controller struct {
	mu      sync.Mutex
	updater PositionUpdater
	logger  *log.Logger
	now     func() time.Time

	markers  map[string]*marker
	order    []string
	active   string
	pending  *geometry.Point
	selected string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for commit and rollback diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a controller that commits drags through updater.
func New(updater PositionUpdater, opts ...Option) *Controller {
	c := &Controller{
		updater: updater,
		logger:  log.NewWithOptions(io.Discard, log.Options{}),
		now:     time.Now,
		markers: make(map[string]*marker),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// =============================================================================
// Marker registry
// =============================================================================

// Track registers a persisted annotation at its natural position. Tracking an
// existing id resets its position and known-good coordinate.
func (c *Controller) Track(id string, p geometry.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.markers[id]; ok {
		m.pos, m.good = p, p
		return
	}
	c.markers[id] = &marker{id: id, pos: p, good: p}
	c.order = append(c.order, id)
}

// Untrack forgets a marker. An active drag on it is abandoned.
func (c *Controller) Untrack(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.markers[id]; !ok {
		return
	}
	delete(c.markers, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	if c.active == id {
		c.active = ""
	}
	if c.selected == id {
		c.selected = ""
	}
}

// Markers returns all tracked markers in registration order.
func (c *Controller) Markers() []Marker {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Marker, 0, len(c.order))
	for _, id := range c.order {
		m := c.markers[id]
		out = append(out, Marker{ID: id, Position: m.pos, State: m.state})
	}
	return out
}

// Position returns the displayed natural-space position of a marker.
func (c *Controller) Position(id string) (geometry.Point, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.markers[id]
	if !ok {
		return geometry.Point{}, false
	}
	return m.pos, true
}

// State returns the interaction state of a marker. Unknown ids are Idle.
func (c *Controller) State(id string) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.markers[id]; ok {
		return m.state
	}
	return Idle
}

// Dragging returns the id of the marker being dragged, if any.
func (c *Controller) Dragging() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active, c.active != ""
}

// =============================================================================
// Drag
// =============================================================================

// PointerDownOnMarker starts dragging a marker. The returned bool reports
// whether the event was consumed; hosts must stop propagation when it is true
// so the canvas click handler does not also fire.
func (c *Controller) PointerDownOnMarker(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	m, ok := c.markers[id]
	if !ok {
		c.mu.Unlock()
		return false, ErrUnknownMarker
	}
	if c.active != "" || m.state == Dragging {
		c.mu.Unlock()
		return true, ErrDragInProgress
	}
	m.state = Dragging
	m.moved = false
	c.active = id
	c.mu.Unlock()

	observability.Placement().OnDragStart(ctx, id)
	return true, nil
}

// PointerMove moves the active marker to the pointer. metrics must describe
// the image element as it is rendered right now. Events arriving while the
// metrics are not ready are dropped.
func (c *Controller) PointerMove(p geometry.Point, metrics geometry.ViewportMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.activeMarker()
	if m == nil {
		return
	}
	natural, err := geometry.DisplayToNatural(p, metrics)
	if err != nil {
		return
	}
	m.pos = clampToImage(natural, metrics.Natural)
	m.moved = true
}

// Commit describes how a pointer-up was resolved.
type Commit struct {
	AnnotationID string         `json:"annotation_id"`
	Position     geometry.Point `json:"position"`
	// Clicked is true when the marker was released without moving. No update
	// is sent; the marker becomes the selection instead.
	Clicked bool `json:"clicked"`
	// Queued is true when an earlier commit on the marker was still in
	// flight. The position is sent by the call that owns that commit.
	Queued bool `json:"queued"`
	// RolledBack is true when the update failed and the marker was restored.
	RolledBack bool `json:"rolled_back"`
}

// PointerUp ends the active drag and commits the position reached by the
// last pointer-move. The release location itself is not used, so releasing
// outside the marker or the image commits the same point. Without an active
// drag PointerUp is a no-op returning a zero Commit.
//
// The call that starts a commit also sends every position queued behind it
// and returns the outcome of the last one. When that update fails the marker
// is rolled back and the returned error carries the PERSISTENCE_FAILURE code.
func (c *Controller) PointerUp(ctx context.Context) (Commit, error) {
	c.mu.Lock()
	m := c.activeMarker()
	if m == nil {
		c.mu.Unlock()
		return Commit{}, nil
	}
	m.state = Idle
	c.active = ""

	if !m.moved {
		c.selected = m.id
		c.pending = nil
		commit := Commit{AnnotationID: m.id, Position: m.pos, Clicked: true}
		c.mu.Unlock()
		return commit, nil
	}

	id, pos := m.id, m.pos
	if m.inFlight {
		m.queued = &pos
		c.mu.Unlock()
		c.logger.Debug("queued position update", "annotation", id, "x", pos.X, "y", pos.Y)
		return Commit{AnnotationID: id, Position: pos, Queued: true}, nil
	}
	m.inFlight = true
	c.mu.Unlock()

	return c.send(ctx, id, pos)
}

// send delivers pos and then any position queued while it was in flight,
// one call at a time.
func (c *Controller) send(ctx context.Context, id string, pos geometry.Point) (Commit, error) {
	for {
		start := c.now()
		err := c.updater.UpdatePosition(ctx, id, pos.X, pos.Y)
		observability.Placement().OnCommit(ctx, id, c.now().Sub(start), err)

		c.mu.Lock()
		m, ok := c.markers[id]
		if !ok {
			c.mu.Unlock()
			return Commit{AnnotationID: id, Position: pos}, persistenceError(id, err)
		}
		if err == nil {
			m.good = pos
		}
		if m.queued != nil {
			if err != nil {
				c.logger.Warn("position update failed", "annotation", id, "err", err, "superseded", true)
			}
			pos, m.queued = *m.queued, nil
			c.mu.Unlock()
			continue
		}
		m.inFlight = false

		commit := Commit{AnnotationID: id, Position: pos}
		if err != nil && m.state == Idle {
			m.pos = m.good
			commit.RolledBack = true
			commit.Position = m.pos
		}
		c.mu.Unlock()

		if err != nil {
			c.logger.Warn("position update failed", "annotation", id, "err", err, "rolled_back", commit.RolledBack)
			if commit.RolledBack {
				observability.Placement().OnRollback(ctx, id)
			}
		}
		return commit, persistenceError(id, err)
	}
}

func persistenceError(id string, err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrCodePersistence, err, "update position of annotation %s", id)
}

// Cancel abandons the active drag and restores the marker to its last
// known-good position without calling the updater.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.activeMarker()
	if m == nil {
		return
	}
	m.pos = m.good
	m.state = Idle
	c.active = ""
}

// activeMarker returns the marker being dragged. Callers hold c.mu.
func (c *Controller) activeMarker() *marker {
	if c.active == "" {
		return nil
	}
	m, ok := c.markers[c.active]
	if !ok {
		c.active = ""
		return nil
	}
	return m
}

func clampToImage(p geometry.Point, natural geometry.Size) geometry.Point {
	p.X = min(max(p.X, 0), natural.Width)
	p.Y = min(max(p.Y, 0), natural.Height)
	return p
}
