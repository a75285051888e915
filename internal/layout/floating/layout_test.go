package floating

import (
	"errors"
	"testing"
	"time"

	"github.com/1broseidon/tilewm/internal/clock"
	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/layout"
	"github.com/1broseidon/tilewm/internal/output"
	"github.com/1broseidon/tilewm/internal/render"
	"github.com/1broseidon/tilewm/internal/window"
)

func newTestLayout() (*Layout, *clock.FakeClock) {
	out := output.New("HDMI-A-1", nil, geom.Rect{X: 1920, Y: 0, Width: 1920, Height: 1080}, 1)
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return New(out, Settings{DefaultSize: geom.Size{W: 800, H: 600}, CascadeStep: 32}, clk, nil), clk
}

func newWindow(id window.SurfaceID, size geom.Size) *window.Mapped {
	return window.NewMapped(window.NewSurface(id, 1, size))
}

func TestMapAtPositionUsesGlobalGeometry(t *testing.T) {
	l, _ := newTestLayout()
	w := newWindow(1, geom.Size{W: 400, H: 300})
	pos := geom.Point{X: 100, Y: 50}
	l.Map(w, &pos)

	local, _ := l.ElementGeometry(w)
	if local != (geom.Rect{X: 100, Y: 50, Width: 400, Height: 300}) {
		t.Fatalf("local geometry = %+v", local)
	}
	if got := w.Geometry(); got.X != 2020 || got.Y != 50 {
		t.Fatalf("global geometry = %+v", got)
	}
}

func TestMapCascadesWithoutPosition(t *testing.T) {
	l, _ := newTestLayout()
	a := newWindow(1, geom.Size{W: 400, H: 300})
	b := newWindow(2, geom.Size{W: 400, H: 300})
	l.Map(a, nil)
	l.Map(b, nil)

	ga, _ := l.ElementGeometry(a)
	gb, _ := l.ElementGeometry(b)
	if ga.X != 760 || ga.Y != 390 {
		t.Fatalf("first window should be centered, got %+v", ga)
	}
	if gb.X != ga.X+32 || gb.Y != ga.Y+32 {
		t.Fatalf("second window should cascade, got %+v", gb)
	}
}

func TestUnmapRemembersGeometry(t *testing.T) {
	l, _ := newTestLayout()
	w := newWindow(1, geom.Size{W: 400, H: 300})
	pos := geom.Point{X: 10, Y: 20}
	l.Map(w, &pos)
	l.Unmap(w)

	// Something else resizes the window while it is not floating.
	w.SetGeometry(geom.Rect{X: 1920, Y: 0, Width: 960, Height: 1080})

	l.Map(w, nil)
	if got, _ := l.ElementGeometry(w); got != (geom.Rect{X: 10, Y: 20, Width: 400, Height: 300}) {
		t.Fatalf("remembered geometry not restored: %+v", got)
	}
}

func TestMinimizeRoundTripKeepsPosition(t *testing.T) {
	l, clk := newTestLayout()
	w := newWindow(1, geom.Size{W: 400, H: 300})
	pos := geom.Point{X: 300, Y: 200}
	l.Map(w, &pos)

	got, ok := l.UnmapMinimize(w, geom.Rect{X: 2880, Y: 1080, Width: 1, Height: 1})
	if !ok || got != pos {
		t.Fatalf("UnmapMinimize = %+v,%v", got, ok)
	}
	if l.Contains(w) {
		t.Fatalf("minimized window must leave the layer")
	}

	l.RemapMinimized(w, geom.Rect{X: 2880, Y: 1080, Width: 1, Height: 1}, got)
	if !l.AnimationsGoing() {
		t.Fatalf("remap should animate")
	}
	clk.Advance(time.Second)
	l.UpdateAnimationState()
	if geo, _ := l.ElementGeometry(w); geo.Loc() != pos {
		t.Fatalf("position after remap = %+v", geo)
	}
}

func TestMaximizeAndRestore(t *testing.T) {
	l, _ := newTestLayout()
	w := newWindow(1, geom.Size{W: 400, H: 300})
	pos := geom.Point{X: 50, Y: 60}
	l.Map(w, &pos)
	before := w.Geometry()

	l.Maximize(w, before, false)
	if got, _ := l.ElementGeometry(w); got != (geom.Rect{Width: 1920, Height: 1080}) {
		t.Fatalf("maximized geometry = %+v", got)
	}
	if l.Resize(w, layout.EdgeRight, layout.ResizeOutwards, 10) {
		t.Fatalf("maximized windows are not resizable")
	}

	size, ok := l.Unmaximize(w, before)
	if !ok || size != before.Size() {
		t.Fatalf("Unmaximize = %+v,%v", size, ok)
	}
	if w.Geometry() != before || w.IsMaximized() {
		t.Fatalf("window not restored: %+v maximized=%v", w.Geometry(), w.IsMaximized())
	}
}

func TestResizeEdges(t *testing.T) {
	l, _ := newTestLayout()
	w := newWindow(1, geom.Size{W: 400, H: 300})
	pos := geom.Point{X: 100, Y: 100}
	l.Map(w, &pos)

	if !l.Resize(w, layout.EdgeLeft|layout.EdgeTop, layout.ResizeOutwards, 20) {
		t.Fatalf("resize should apply")
	}
	want := geom.Rect{X: 80, Y: 80, Width: 420, Height: 320}
	if got, _ := l.ElementGeometry(w); got != want {
		t.Fatalf("geometry = %+v, want %+v", got, want)
	}
	if l.Resize(w, layout.EdgeRight, layout.ResizeInwards, 1000) {
		t.Fatalf("resize below one pixel should be refused")
	}
}

func TestRenderTopmostFirst(t *testing.T) {
	l, _ := newTestLayout()
	a := newWindow(1, geom.Size{W: 400, H: 300})
	b := newWindow(2, geom.Size{W: 400, H: 300})
	l.Map(a, nil)
	l.Map(b, nil)
	l.Raise(a)

	elems, err := l.Render(render.Params{Alpha: 0.6})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(elems) != 2 || elems[0].Window.Window != a.ID() || elems[0].Alpha() != 0.6 {
		t.Fatalf("elements = %+v", elems)
	}
	if under, ok := l.ElementUnder(geom.Point{X: 800, Y: 420}); !ok || under != a {
		t.Fatalf("ElementUnder should return the raised window")
	}

	l.Output().SetEnabled(false)
	if _, err := l.RenderPopups(render.Params{}); !errors.Is(err, render.ErrOutputNotMapped) {
		t.Fatalf("expected ErrOutputNotMapped, got %v", err)
	}
}
