package placement

import (
	"context"
	"testing"

	"github.com/matzehuels/specsync/pkg/geometry"
)

func TestCanvasClick(t *testing.T) {
	c := New(&fakeUpdater{})
	c.Track("a1", geometry.Point{X: 100, Y: 100})

	click := c.CanvasClick(display(t, 800, 600), metrics())
	if click.Action != ClickPending {
		t.Fatalf("first click = %v, want pending", click.Action)
	}
	if click.Position != (geometry.Point{X: 800, Y: 600}) {
		t.Errorf("click position = %+v, want (800,600)", click.Position)
	}
	if p, ok := c.Pending(); !ok || p != click.Position {
		t.Errorf("Pending() = %+v, %v", p, ok)
	}

	// A second click only clears the open creation.
	if got := c.CanvasClick(display(t, 10, 10), metrics()).Action; got != ClickCleared {
		t.Errorf("second click = %v, want cleared", got)
	}
	if _, ok := c.Pending(); ok {
		t.Error("creation still pending after clearing click")
	}

	// With nothing open the next click creates again.
	if got := c.CanvasClick(display(t, 10, 10), metrics()).Action; got != ClickPending {
		t.Errorf("third click = %v, want pending", got)
	}
}

func TestCanvasClickClearsSelection(t *testing.T) {
	c := New(&fakeUpdater{})
	c.Track("a1", geometry.Point{X: 100, Y: 100})
	if err := c.Select("a1"); err != nil {
		t.Fatalf("Select: %v", err)
	}

	if got := c.CanvasClick(display(t, 400, 400), metrics()).Action; got != ClickCleared {
		t.Errorf("click = %v, want cleared", got)
	}
	if _, ok := c.Selected(); ok {
		t.Error("selection not cleared")
	}
	if _, ok := c.Pending(); ok {
		t.Error("clearing click must not open a creation")
	}
}

func TestCanvasClickIgnored(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Controller)
		m     geometry.ViewportMetrics
	}{
		{
			name:  "metrics not ready",
			setup: func(*Controller) {},
			m: geometry.ViewportMetrics{
				Container: geometry.Rect{Width: 1000, Height: 800},
				Zoom:      1,
			},
		},
		{
			name: "drag active",
			setup: func(c *Controller) {
				c.PointerDownOnMarker(context.Background(), "a1")
			},
			m: metrics(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(&fakeUpdater{})
			c.Track("a1", geometry.Point{X: 100, Y: 100})
			tt.setup(c)

			if got := c.CanvasClick(geometry.Point{X: 500, Y: 400}, tt.m).Action; got != ClickIgnored {
				t.Errorf("click = %v, want ignored", got)
			}
			if _, ok := c.Pending(); ok {
				t.Error("ignored click opened a creation")
			}
		})
	}
}

func TestCompleteCreation(t *testing.T) {
	c := New(&fakeUpdater{})

	if _, ok := c.CompleteCreation("a1"); ok {
		t.Error("CompleteCreation without a pending creation should report false")
	}

	c.CanvasClick(display(t, 320, 240), metrics())
	p, ok := c.CompleteCreation("a1")
	if !ok {
		t.Fatal("CompleteCreation returned false")
	}
	assertPosition(t, c, "a1", p.X, p.Y)
	if _, ok := c.Pending(); ok {
		t.Error("creation still pending")
	}

	markers := c.Markers()
	if len(markers) != 1 || markers[0].ID != "a1" || markers[0].State != Idle {
		t.Errorf("Markers() = %+v", markers)
	}
}

func TestSelectUnknown(t *testing.T) {
	c := New(&fakeUpdater{})
	if err := c.Select("nope"); err != ErrUnknownMarker {
		t.Errorf("Select(unknown) = %v, want ErrUnknownMarker", err)
	}
}

func TestUntrackDuringDrag(t *testing.T) {
	u := &fakeUpdater{}
	c := New(u)
	c.Track("a1", geometry.Point{X: 100, Y: 100})
	c.PointerDownOnMarker(context.Background(), "a1")
	c.Untrack("a1")

	if _, ok := c.Dragging(); ok {
		t.Error("drag should be abandoned when its marker is untracked")
	}
	if commit, err := c.PointerUp(context.Background()); err != nil || commit != (Commit{}) {
		t.Errorf("PointerUp() = %+v, %v", commit, err)
	}
	if len(u.Calls()) != 0 {
		t.Error("untracked marker must not be committed")
	}
}
