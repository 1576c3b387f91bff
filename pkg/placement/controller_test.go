package placement

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	apperrors "github.com/matzehuels/specsync/pkg/errors"
	"github.com/matzehuels/specsync/pkg/geometry"
	"github.com/matzehuels/specsync/pkg/observability"
)

type call struct {
	id   string
	x, y float64
}

// fakeUpdater records every update and delegates the outcome to fn.
type fakeUpdater struct {
	mu    sync.Mutex
	calls []call
	fn    func(n int) error
}

func (f *fakeUpdater) UpdatePosition(_ context.Context, id string, x, y float64) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{id: id, x: x, y: y})
	n := len(f.calls)
	fn := f.fn
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(n)
}

func (f *fakeUpdater) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func metrics() geometry.ViewportMetrics {
	return geometry.ViewportMetrics{
		Container: geometry.Rect{Left: 0, Top: 0, Width: 1000, Height: 800},
		Client:    geometry.Size{Width: 800, Height: 600},
		Natural:   geometry.Size{Width: 1600, Height: 1200},
		Zoom:      1,
	}
}

// display returns the pointer position that maps to natural point (x, y).
func display(t *testing.T, x, y float64) geometry.Point {
	t.Helper()
	p, err := geometry.NaturalToDisplay(geometry.Point{X: x, Y: y}, metrics())
	if err != nil {
		t.Fatalf("NaturalToDisplay: %v", err)
	}
	return p
}

func drag(t *testing.T, c *Controller, id string, x, y float64) (Commit, error) {
	t.Helper()
	ctx := context.Background()
	if _, err := c.PointerDownOnMarker(ctx, id); err != nil {
		t.Fatalf("PointerDownOnMarker(%s): %v", id, err)
	}
	c.PointerMove(display(t, x, y), metrics())
	return c.PointerUp(ctx)
}

func near(a, b geometry.Point) bool {
	const eps = 1e-9
	return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps
}

func assertPosition(t *testing.T, c *Controller, id string, x, y float64) {
	t.Helper()
	got, ok := c.Position(id)
	if !ok {
		t.Fatalf("Position(%s) not tracked", id)
	}
	const eps = 1e-9
	if d := got.X - x; d > eps || d < -eps {
		t.Errorf("Position(%s).X = %v, want %v", id, got.X, x)
	}
	if d := got.Y - y; d > eps || d < -eps {
		t.Errorf("Position(%s).Y = %v, want %v", id, got.Y, y)
	}
}

func TestDragCommitsNaturalPosition(t *testing.T) {
	u := &fakeUpdater{}
	c := New(u)
	c.Track("a1", geometry.Point{X: 100, Y: 100})

	ctx := context.Background()
	handled, err := c.PointerDownOnMarker(ctx, "a1")
	if err != nil {
		t.Fatalf("PointerDownOnMarker: %v", err)
	}
	if !handled {
		t.Error("PointerDownOnMarker should consume the event")
	}
	if c.State("a1") != Dragging {
		t.Errorf("State = %v, want dragging", c.State("a1"))
	}

	c.PointerMove(display(t, 150, 120), metrics())
	c.PointerMove(display(t, 200, 150), metrics())

	commit, err := c.PointerUp(ctx)
	if err != nil {
		t.Fatalf("PointerUp: %v", err)
	}
	if commit.Clicked || commit.RolledBack {
		t.Errorf("unexpected commit flags: %+v", commit)
	}

	calls := u.Calls()
	if len(calls) != 1 {
		t.Fatalf("updater called %d times, want 1", len(calls))
	}
	if calls[0] != (call{id: "a1", x: 200, y: 150}) {
		t.Errorf("update = %+v, want a1 (200,150)", calls[0])
	}
	assertPosition(t, c, "a1", 200, 150)
	if c.State("a1") != Idle {
		t.Errorf("State after release = %v, want idle", c.State("a1"))
	}
}

func TestReleaseOutsideElementStillCommits(t *testing.T) {
	u := &fakeUpdater{}
	c := New(u)
	c.Track("a1", geometry.Point{X: 100, Y: 100})

	ctx := context.Background()
	c.PointerDownOnMarker(ctx, "a1")
	c.PointerMove(display(t, 200, 150), metrics())

	// The container re-rendered and is momentarily not measurable; the move
	// is dropped rather than corrupting the position.
	notReady := metrics()
	notReady.Client = geometry.Size{}
	c.PointerMove(geometry.Point{X: 5000, Y: 5000}, notReady)

	if _, err := c.PointerUp(ctx); err != nil {
		t.Fatalf("PointerUp: %v", err)
	}
	calls := u.Calls()
	if len(calls) != 1 || calls[0].x != 200 || calls[0].y != 150 {
		t.Fatalf("calls = %+v, want one update at (200,150)", calls)
	}
	if _, dragging := c.Dragging(); dragging {
		t.Error("controller still dragging after release")
	}
}

func TestDragClampsToImage(t *testing.T) {
	u := &fakeUpdater{}
	c := New(u)
	c.Track("a1", geometry.Point{X: 100, Y: 100})

	ctx := context.Background()
	c.PointerDownOnMarker(ctx, "a1")
	c.PointerMove(geometry.Point{X: -400, Y: 10000}, metrics())
	c.PointerUp(ctx)

	assertPosition(t, c, "a1", 0, 1200)
}

func TestRollbackOnFailure(t *testing.T) {
	observability.Reset()
	hooks := &recordingHooks{}
	observability.SetPlacementHooks(hooks)
	defer observability.Reset()

	u := &fakeUpdater{fn: func(int) error { return errors.New("503 service unavailable") }}
	c := New(u)
	c.Track("a1", geometry.Point{X: 100, Y: 100})

	commit, err := drag(t, c, "a1", 200, 150)
	if err == nil {
		t.Fatal("PointerUp should report the failed update")
	}
	if !apperrors.Is(err, apperrors.ErrCodePersistence) {
		t.Errorf("error code = %v, want %v", apperrors.GetCode(err), apperrors.ErrCodePersistence)
	}
	if !commit.RolledBack {
		t.Error("commit.RolledBack = false, want true")
	}
	assertPosition(t, c, "a1", 100, 100)

	// No retry.
	if n := len(u.Calls()); n != 1 {
		t.Errorf("updater called %d times, want 1", n)
	}
	if hooks.rollbacks != 1 {
		t.Errorf("rollback hook fired %d times, want 1", hooks.rollbacks)
	}
}

func TestRollbackKeepsLastGoodPosition(t *testing.T) {
	fail := false
	u := &fakeUpdater{fn: func(int) error {
		if fail {
			return errors.New("offline")
		}
		return nil
	}}
	c := New(u)
	c.Track("a1", geometry.Point{X: 100, Y: 100})

	if _, err := drag(t, c, "a1", 200, 150); err != nil {
		t.Fatalf("first drag: %v", err)
	}
	fail = true
	drag(t, c, "a1", 400, 400)
	assertPosition(t, c, "a1", 200, 150)
}

func TestDragStartIsGated(t *testing.T) {
	c := New(&fakeUpdater{})
	c.Track("a1", geometry.Point{X: 100, Y: 100})
	c.Track("a2", geometry.Point{X: 300, Y: 300})

	ctx := context.Background()
	if _, err := c.PointerDownOnMarker(ctx, "a1"); err != nil {
		t.Fatalf("PointerDownOnMarker: %v", err)
	}
	if _, err := c.PointerDownOnMarker(ctx, "a1"); !errors.Is(err, ErrDragInProgress) {
		t.Errorf("second drag on same marker: err = %v, want ErrDragInProgress", err)
	}
	if _, err := c.PointerDownOnMarker(ctx, "a2"); !errors.Is(err, ErrDragInProgress) {
		t.Errorf("drag on other marker: err = %v, want ErrDragInProgress", err)
	}
	if c.State("a2") != Idle {
		t.Error("a2 should remain idle")
	}

	if _, err := c.PointerDownOnMarker(ctx, "missing"); !errors.Is(err, ErrUnknownMarker) {
		t.Errorf("unknown marker: err = %v, want ErrUnknownMarker", err)
	}
}

func TestClickWithoutMoveSelects(t *testing.T) {
	u := &fakeUpdater{}
	c := New(u)
	c.Track("a1", geometry.Point{X: 100, Y: 100})

	ctx := context.Background()
	c.PointerDownOnMarker(ctx, "a1")
	commit, err := c.PointerUp(ctx)
	if err != nil {
		t.Fatalf("PointerUp: %v", err)
	}
	if !commit.Clicked {
		t.Error("commit.Clicked = false, want true")
	}
	if len(u.Calls()) != 0 {
		t.Error("a click must not send a position update")
	}
	if id, ok := c.Selected(); !ok || id != "a1" {
		t.Errorf("Selected() = %q, %v; want a1", id, ok)
	}
}

func TestPointerUpWithoutDrag(t *testing.T) {
	u := &fakeUpdater{}
	c := New(u)

	commit, err := c.PointerUp(context.Background())
	if err != nil || commit != (Commit{}) {
		t.Errorf("PointerUp() = %+v, %v; want zero commit", commit, err)
	}
	if len(u.Calls()) != 0 {
		t.Error("updater should not be called")
	}
}

func TestCancelRestoresPosition(t *testing.T) {
	u := &fakeUpdater{}
	c := New(u)
	c.Track("a1", geometry.Point{X: 100, Y: 100})

	c.PointerDownOnMarker(context.Background(), "a1")
	c.PointerMove(display(t, 500, 500), metrics())
	c.Cancel()

	assertPosition(t, c, "a1", 100, 100)
	if c.State("a1") != Idle {
		t.Error("Cancel should return the marker to idle")
	}
	if len(u.Calls()) != 0 {
		t.Error("Cancel must not commit")
	}
}

// gatedStore is a position updater whose calls block until the test feeds
// their gate. A nil result is written to the stored position.
type gatedStore struct {
	*fakeUpdater

	mu       sync.Mutex
	gates    map[int]chan error
	stored   map[string]geometry.Point
	inFlight int
	overlap  bool
}

func newGatedStore(calls int) *gatedStore {
	g := &gatedStore{gates: map[int]chan error{}, stored: map[string]geometry.Point{}}
	for n := 1; n <= calls; n++ {
		g.gates[n] = make(chan error)
	}
	g.fakeUpdater = &fakeUpdater{}
	return g
}

func (g *gatedStore) UpdatePosition(ctx context.Context, id string, x, y float64) error {
	g.mu.Lock()
	g.inFlight++
	if g.inFlight > 1 {
		g.overlap = true
	}
	g.mu.Unlock()

	g.fakeUpdater.UpdatePosition(ctx, id, x, y)
	n := len(g.Calls())
	err := <-g.gates[n]

	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight--
	if err == nil {
		g.stored[id] = geometry.Point{X: x, Y: y}
	}
	return err
}

func (g *gatedStore) Stored(id string) (geometry.Point, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.stored[id]
	return p, ok
}

func TestLaterCommitWins(t *testing.T) {
	tests := []struct {
		name       string
		first      error
		second     error
		want       geometry.Point
		wantStored bool
		wantErr    bool
	}{
		{
			name:       "failed first commit is superseded",
			first:      errors.New("timeout"),
			want:       geometry.Point{X: 300, Y: 200},
			wantStored: true,
		},
		{
			name:       "both succeed",
			want:       geometry.Point{X: 300, Y: 200},
			wantStored: true,
		},
		{
			name:       "newer failure falls back to older success",
			second:     errors.New("conflict"),
			want:       geometry.Point{X: 200, Y: 150},
			wantStored: true,
			wantErr:    true,
		},
		{
			name:    "both fail",
			first:   errors.New("timeout"),
			second:  errors.New("timeout"),
			want:    geometry.Point{X: 100, Y: 100},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGatedStore(2)
			c := New(g)
			c.Track("a1", geometry.Point{X: 100, Y: 100})

			done := startDrag(t, c, g.fakeUpdater, 1, "a1", 200, 150)

			// The second drag ends while the first update is outstanding.
			commit, err := drag(t, c, "a1", 300, 200)
			if err != nil || !commit.Queued {
				t.Fatalf("second PointerUp = %+v, %v; want queued", commit, err)
			}
			assertPosition(t, c, "a1", 300, 200)
			if n := len(g.Calls()); n != 1 {
				t.Fatalf("updater called %d times while the first commit was in flight", n)
			}

			g.gates[1] <- tt.first
			waitForCalls(t, g.fakeUpdater, 2)
			g.gates[2] <- tt.second
			if err := <-done; (err != nil) != tt.wantErr {
				t.Errorf("PointerUp error = %v, wantErr %v", err, tt.wantErr)
			}

			assertPosition(t, c, "a1", tt.want.X, tt.want.Y)
			stored, ok := g.Stored("a1")
			if ok != tt.wantStored || (ok && !near(stored, tt.want)) {
				t.Errorf("stored = %+v (%v), want %+v (%v)", stored, ok, tt.want, tt.wantStored)
			}
			if g.overlap {
				t.Error("two updates for one marker were in flight at once")
			}
		})
	}
}

func TestOnlyNewestQueuedPositionIsSent(t *testing.T) {
	g := newGatedStore(2)
	c := New(g)
	c.Track("a1", geometry.Point{X: 100, Y: 100})

	done := startDrag(t, c, g.fakeUpdater, 1, "a1", 200, 150)
	drag(t, c, "a1", 250, 175)
	drag(t, c, "a1", 300, 200)

	g.gates[1] <- nil
	waitForCalls(t, g.fakeUpdater, 2)
	g.gates[2] <- nil
	if err := <-done; err != nil {
		t.Fatalf("PointerUp: %v", err)
	}

	calls := g.Calls()
	if len(calls) != 2 || !near(geometry.Point{X: calls[1].x, Y: calls[1].y}, geometry.Point{X: 300, Y: 200}) {
		t.Errorf("calls = %+v, want (200,150) then (300,200)", calls)
	}
	if p, _ := g.Stored("a1"); !near(p, geometry.Point{X: 300, Y: 200}) {
		t.Errorf("stored = %+v, want (300,200)", p)
	}
}

// startDrag performs a full drag whose update call blocks in the updater until
// its gate is fed. It returns once the call is in flight.
func startDrag(t *testing.T, c *Controller, u *fakeUpdater, n int, id string, x, y float64) <-chan error {
	t.Helper()
	ctx := context.Background()
	if _, err := c.PointerDownOnMarker(ctx, id); err != nil {
		t.Fatalf("PointerDownOnMarker: %v", err)
	}
	c.PointerMove(display(t, x, y), metrics())

	done := make(chan error, 1)
	go func() {
		_, err := c.PointerUp(ctx)
		done <- err
	}()
	waitForCalls(t, u, n)
	return done
}

func waitForCalls(t *testing.T, u *fakeUpdater, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for len(u.Calls()) < n {
		select {
		case <-deadline:
			t.Fatalf("update call %d never started", n)
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

type recordingHooks struct {
	observability.NoopPlacementHooks
	mu        sync.Mutex
	rollbacks int
}

func (h *recordingHooks) OnRollback(context.Context, string) {
	h.mu.Lock()
	h.rollbacks++
	h.mu.Unlock()
}
