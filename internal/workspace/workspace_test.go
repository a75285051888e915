package workspace

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/1broseidon/tilewm/internal/clock"
	"github.com/1broseidon/tilewm/internal/codec"
	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/focus"
	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/layout/floating"
	"github.com/1broseidon/tilewm/internal/layout/tiling"
	"github.com/1broseidon/tilewm/internal/output"
	"github.com/1broseidon/tilewm/internal/protocol"
	"github.com/1broseidon/tilewm/internal/render"
	"github.com/1broseidon/tilewm/internal/window"
)

const seat = focus.Seat("seat0")

var (
	panelX = &output.EDID{Manufacturer: "DEL", Product: 0x40b1, Serial: 1234}
	t0     = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

type harness struct {
	ws  *Workspace
	out *output.Output
	clk *clock.FakeClock
	rec *protocol.Recorder
}

func testOptions(clk clock.Clock, rec *protocol.Recorder) Options {
	return Options{
		Clock:    clk,
		Notifier: rec,
		Tiling:   tiling.Settings{Layout: config.BuiltinLayouts()["rows"]},
		Floating: floating.Settings{DefaultSize: geom.Size{W: 800, H: 600}, CascadeStep: 32},
	}
}

func newHarness(t *testing.T, tilingEnabled bool) *harness {
	t.Helper()
	out := output.New("DP-1", panelX, geom.Rect{Width: 1920, Height: 1080}, 1)
	clk := clock.Fake(t0)
	rec := protocol.NewRecorder()
	ws := New(protocol.NewWorkspaceHandle(), out, tilingEnabled, testOptions(clk, rec))
	return &harness{ws: ws, out: out, clk: clk, rec: rec}
}

func newWindow(id window.SurfaceID) *window.Mapped {
	return window.NewMapped(window.NewSurface(id, window.ClientID(id), geom.Size{W: 100, H: 100}))
}

func assertOneLayer(t *testing.T, ws *Workspace) {
	t.Helper()
	for _, w := range ws.floating.Mapped() {
		if ws.tiling.Contains(w) {
			t.Fatalf("%s is in both layers", w)
		}
	}
	for _, e := range ws.minimized {
		if ws.floating.Contains(e.Window) || ws.tiling.Contains(e.Window) {
			t.Fatalf("minimized %s is still in a layer", e.Window)
		}
	}
}

var minimizeTarget = geom.Rect{X: 0, Y: 1060, Width: 20, Height: 20}

func TestMinimizeRoundTripFloating(t *testing.T) {
	h := newHarness(t, false)
	w := newWindow(1)
	pos := geom.Point{X: 100, Y: 200}
	h.ws.MapFloating(w, &pos, seat)

	entry, ok := h.ws.Minimize(w, minimizeTarget)
	if !ok {
		t.Fatalf("minimize failed")
	}
	if entry.State.Kind != MinimizedFloating || entry.State.Position != pos {
		t.Fatalf("entry = %+v", entry.State)
	}
	if !w.IsMinimized() || !h.ws.IsFloating(w) {
		t.Fatalf("minimized window should be flagged and still count as floating")
	}
	if _, ok := h.ws.floating.ElementGeometry(w); ok {
		t.Fatalf("minimized window must leave the floating layer")
	}
	assertOneLayer(t, h.ws)

	if _, ok := h.ws.Unminimize(w, minimizeTarget, seat); !ok {
		t.Fatalf("unminimize failed")
	}
	geo, ok := h.ws.ElementGeometry(w)
	if !ok || geo.Loc() != pos {
		t.Fatalf("restored geometry = %+v, want position %+v", geo, pos)
	}
	if w.IsMinimized() || !h.ws.floating.Contains(w) {
		t.Fatalf("window should be back in the floating layer")
	}
	if last, _ := h.ws.FocusStack(seat).Last(); last != w {
		t.Fatalf("restored window should be focused")
	}
}

func TestMinimizeRoundTripTiling(t *testing.T) {
	h := newHarness(t, true)
	a, b, c := newWindow(1), newWindow(2), newWindow(3)
	h.ws.Map(a, seat)
	h.ws.Map(b, seat)
	h.ws.Map(c, seat)
	before, _ := h.ws.ElementGeometry(b)

	entry, ok := h.ws.Minimize(b, minimizeTarget)
	if !ok || entry.State.Kind != MinimizedTiling || entry.State.Tiling == nil {
		t.Fatalf("entry = %+v", entry)
	}
	if !h.ws.IsTiled(b) {
		t.Fatalf("a minimized tiled window still counts as tiled")
	}
	assertOneLayer(t, h.ws)

	h.ws.Unminimize(b, minimizeTarget, seat)
	got := h.ws.tiling.Mapped()
	if len(got) != 3 || got[0] != a || got[1] != b || got[2] != c {
		t.Fatalf("slot order = %v, want [a b c]", got)
	}
	if after, _ := h.ws.ElementGeometry(b); after != before {
		t.Fatalf("slot geometry = %+v, want %+v", after, before)
	}
}

func TestUnminimizeRescalesAfterOutputResize(t *testing.T) {
	h := newHarness(t, false)
	w := newWindow(1)
	pos := geom.Point{X: 960, Y: 540}
	h.ws.MapFloating(w, &pos, seat)
	h.ws.Minimize(w, minimizeTarget)

	h.out.SetGeometry(geom.Rect{Width: 1280, Height: 720})
	h.ws.Unminimize(w, minimizeTarget, seat)

	geo, _ := h.ws.ElementGeometry(w)
	if geo.Loc() != (geom.Point{X: 640, Y: 360}) {
		t.Fatalf("rescaled position = %+v, want (640,360)", geo.Loc())
	}
}

func TestTiledWindowRestoresIntoFloatingWhenTilingOff(t *testing.T) {
	h := newHarness(t, true)
	w := newWindow(1)
	h.ws.Map(w, seat)
	h.ws.Minimize(w, minimizeTarget)
	h.ws.SetTiling(false, seat, h.rec)

	h.ws.Unminimize(w, minimizeTarget, seat)
	if !h.ws.floating.Contains(w) || h.ws.tiling.Contains(w) {
		t.Fatalf("window should restore into the floating layer")
	}
}

func TestUnminimizeStickyPanics(t *testing.T) {
	h := newHarness(t, false)
	w := newWindow(1)
	h.ws.AddMinimized(&MinimizedWindow{
		Window:         w,
		State:          MinimizedState{Kind: MinimizedSticky},
		OutputGeometry: h.out.Geometry(),
	})

	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic for a sticky entry")
		}
	}()
	h.ws.Unminimize(w, minimizeTarget, seat)
}

func TestUnmapPanicsWhenBothLayersHoldWindow(t *testing.T) {
	h := newHarness(t, true)
	w := newWindow(1)
	h.ws.tiling.Map(w, nil)
	h.ws.floating.Map(w, nil)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic")
		}
	}()
	h.ws.Unmap(w)
}

func TestUnmapReportsLayer(t *testing.T) {
	h := newHarness(t, true)
	a, b := newWindow(1), newWindow(2)
	h.ws.Map(a, seat)
	h.ws.Map(b, seat)
	h.ws.Minimize(b, minimizeTarget)

	st, ok := h.ws.Unmap(a)
	if !ok || st.Layer != window.LayerTiling {
		t.Fatalf("unmap a = %+v, %v", st, ok)
	}
	st, ok = h.ws.Unmap(b)
	if !ok || st.Layer != window.LayerTiling || b.IsMinimized() {
		t.Fatalf("unmap minimized b = %+v, %v", st, ok)
	}
	if !h.ws.IsEmpty() {
		t.Fatalf("workspace should be empty")
	}
	if _, ok := h.ws.Unmap(a); ok {
		t.Fatalf("second unmap should report false")
	}
}

func TestFullscreenEnterReleasesBlockerPastHalfway(t *testing.T) {
	h := newHarness(t, true)
	w := newWindow(1)
	h.ws.Map(w, seat)
	s := w.Active()

	h.ws.FullscreenRequest(s, nil, geom.Rect{}, seat)
	f := h.ws.Fullscreen()
	if f == nil || !f.Entering() || !s.IsFullscreen() {
		t.Fatalf("fullscreen should be entering")
	}
	if s.ReadyForCommit() {
		t.Fatalf("commit should be blocked during the first half")
	}
	if s.Geometry() != h.out.Geometry() {
		t.Fatalf("surface geometry = %+v, want output", s.Geometry())
	}

	h.clk.Advance(100 * time.Millisecond)
	if clients := h.ws.UpdateAnimations(); len(clients) != 0 {
		t.Fatalf("released at exactly half: %v", clients)
	}
	h.clk.Advance(time.Millisecond)
	clients := h.ws.UpdateAnimations()
	if len(clients) != 1 || clients[0] != s.Client() {
		t.Fatalf("released clients = %v", clients)
	}
	if !s.ReadyForCommit() {
		t.Fatalf("commit should go through after the release")
	}

	h.clk.Advance(100 * time.Millisecond)
	h.ws.UpdateAnimations()
	if f.IsAnimating() {
		t.Fatalf("enter phase should be over")
	}
	if !h.ws.AnimationsGoing() {
		t.Fatalf("finishing the phase should request one more frame")
	}
	if h.ws.AnimationsGoing() {
		t.Fatalf("dirty flag should be consumed")
	}
	if got, ok := h.ws.GetFullscreen(); !ok || got != s {
		t.Fatalf("settled fullscreen = %v, %v", got, ok)
	}
}

func TestInterruptedEnterFinishesWithinDuration(t *testing.T) {
	h := newHarness(t, true)
	w := newWindow(1)
	h.ws.Map(w, seat)
	s := w.Active()
	original := s.Geometry()

	h.ws.FullscreenRequest(s, &Previous{Layer: window.LayerTiling}, geom.Rect{}, seat)
	enterSignal := h.ws.Fullscreen().Signal()

	h.clk.Advance(50 * time.Millisecond)
	prev, ok := h.ws.UnfullscreenRequest(s)
	if !ok || prev == nil || prev.Layer != window.LayerTiling {
		t.Fatalf("unfullscreen = %+v, %v", prev, ok)
	}
	if !enterSignal.Released() {
		t.Fatalf("the enter blocker must be force-released")
	}
	if s.IsFullscreen() || s.Geometry() != original {
		t.Fatalf("surface should be back at %+v, got %+v", original, s.Geometry())
	}
	if !h.ws.Fullscreen().Exiting() {
		t.Fatalf("fullscreen should be exiting")
	}
	if _, ok := h.ws.GetFullscreen(); ok {
		t.Fatalf("an exiting fullscreen is not reported")
	}
	if s.ReadyForCommit() {
		t.Fatalf("the exit blocker should be pending")
	}

	// 50ms of entering is undone by 50ms of exiting.
	h.clk.Advance(49 * time.Millisecond)
	h.ws.UpdateAnimations()
	if h.ws.Fullscreen() == nil {
		t.Fatalf("exit phase ended early")
	}
	if !s.ReadyForCommit() {
		t.Fatalf("exit blocker should be released past halfway")
	}
	h.clk.Advance(time.Millisecond)
	h.ws.UpdateAnimations()
	if h.ws.Fullscreen() != nil {
		t.Fatalf("fullscreen should be gone 50ms after the exit began")
	}
}

func TestInterruptedEnterKeepsOpacity(t *testing.T) {
	for _, ran := range []time.Duration{20 * time.Millisecond, 80 * time.Millisecond, 150 * time.Millisecond} {
		h := newHarness(t, true)
		w := newWindow(1)
		h.ws.Map(w, seat)
		s := w.Active()

		h.ws.FullscreenRequest(s, &Previous{Layer: window.LayerTiling}, geom.Rect{}, seat)
		h.clk.Advance(ran)
		before, err := h.ws.Render(RenderParams{})
		if err != nil || len(before) == 0 || before[0].Kind != render.KindFullscreen {
			t.Fatalf("after %v entering: frame = %+v, err %v", ran, before, err)
		}

		if _, ok := h.ws.UnfullscreenRequest(s); !ok {
			t.Fatalf("unfullscreen failed")
		}
		after, err := h.ws.Render(RenderParams{})
		if err != nil || len(after) == 0 || after[0].Kind != render.KindFullscreen {
			t.Fatalf("after %v entering: exit frame = %+v, err %v", ran, after, err)
		}
		if math.Abs(before[0].Alpha()-after[0].Alpha()) > 1e-9 {
			t.Fatalf("after %v entering: alpha jumped from %v to %v", ran, before[0].Alpha(), after[0].Alpha())
		}
	}
}

func TestUnfullscreenUnknownSurface(t *testing.T) {
	h := newHarness(t, true)
	w := newWindow(1)
	h.ws.Map(w, seat)
	if _, ok := h.ws.UnfullscreenRequest(w.Active()); ok {
		t.Fatalf("window is not fullscreen")
	}
}

func TestFullscreenRequestIgnoredWhileActive(t *testing.T) {
	h := newHarness(t, true)
	a, b := newWindow(1), newWindow(2)
	h.ws.Map(a, seat)
	h.ws.Map(b, seat)

	h.ws.FullscreenRequest(a.Active(), nil, geom.Rect{}, seat)
	h.ws.FullscreenRequest(b.Active(), nil, geom.Rect{}, seat)
	if got, _ := h.ws.GetFullscreen(); got != a.Active() {
		t.Fatalf("second request should be ignored")
	}
	if b.Active().IsFullscreen() {
		t.Fatalf("b must not be flagged fullscreen")
	}
}

func TestMinimizeFullscreenCarriesState(t *testing.T) {
	h := newHarness(t, true)
	w := newWindow(1)
	h.ws.Map(w, seat)
	s := w.Active()
	h.ws.FullscreenRequest(s, nil, geom.Rect{}, seat)
	h.clk.Advance(300 * time.Millisecond)
	h.ws.UpdateAnimations()

	entry, _ := h.ws.Minimize(w, minimizeTarget)
	if entry.Fullscreen == nil || entry.Fullscreen.Surface != s {
		t.Fatalf("entry should carry the fullscreen state")
	}
	if !h.ws.Fullscreen().Exiting() {
		t.Fatalf("live overlay should animate out")
	}
	if !h.ws.IsFullscreen(w) {
		t.Fatalf("minimized fullscreen window still reports fullscreen")
	}
	if h.ws.IsTiled(w) || h.ws.IsFloating(w) {
		t.Fatalf("fullscreen window reports a layer")
	}

	h.clk.Advance(300 * time.Millisecond)
	h.ws.UpdateAnimations()
	h.ws.Unminimize(w, minimizeTarget, seat)
	f := h.ws.Fullscreen()
	if f == nil || f.Surface != s || !f.Entering() {
		t.Fatalf("fullscreen should be entering again")
	}
	if s.PendingBlockers() != 0 {
		t.Fatalf("same output geometry needs no new blocker")
	}
}

func TestUnminimizeFullscreenOnResizedOutputReconfigures(t *testing.T) {
	h := newHarness(t, true)
	w := newWindow(1)
	h.ws.Map(w, seat)
	s := w.Active()
	h.ws.FullscreenRequest(s, nil, geom.Rect{}, seat)
	h.clk.Advance(300 * time.Millisecond)
	h.ws.UpdateAnimations()
	h.ws.Minimize(w, minimizeTarget)
	h.clk.Advance(300 * time.Millisecond)
	h.ws.UpdateAnimations()

	h.out.SetGeometry(geom.Rect{Width: 2560, Height: 1440})
	h.ws.Unminimize(w, minimizeTarget, seat)
	if s.Geometry() != h.out.Geometry() {
		t.Fatalf("surface geometry = %+v", s.Geometry())
	}
	if s.PendingBlockers() != 1 {
		t.Fatalf("pending blockers = %d, want 1", s.PendingBlockers())
	}
}

func TestFullscreenRequestRestoresMinimizedWindow(t *testing.T) {
	h := newHarness(t, true)
	tiled, floated := newWindow(1), newWindow(2)
	h.ws.Map(tiled, seat)
	pos := geom.Point{X: 50, Y: 70}
	h.ws.MapFloating(floated, &pos, seat)

	for _, tc := range []struct {
		w     *window.Mapped
		layer window.Layer
	}{
		{tiled, window.LayerTiling},
		{floated, window.LayerFloating},
	} {
		if _, ok := h.ws.Minimize(tc.w, minimizeTarget); !ok {
			t.Fatalf("minimize %s failed", tc.w)
		}
		h.ws.FullscreenRequest(tc.w.Active(), &Previous{Layer: tc.layer}, minimizeTarget, seat)

		if _, ok := h.ws.Minimized(tc.w); ok || tc.w.IsMinimized() {
			t.Fatalf("%s should have left the minimized store", tc.w)
		}
		switch tc.layer {
		case window.LayerTiling:
			if !h.ws.tiling.Contains(tc.w) {
				t.Fatalf("%s should be back in the tiling layer", tc.w)
			}
		default:
			if !h.ws.floating.Contains(tc.w) {
				t.Fatalf("%s should be back in the floating layer", tc.w)
			}
		}
		assertOneLayer(t, h.ws)
		if s, ok := h.ws.GetFullscreen(); !ok || s != tc.w.Active() {
			t.Fatalf("%s should be fullscreen", tc.w)
		}
		if !h.ws.Fullscreen().Entering() {
			t.Fatalf("fullscreen of %s should be entering", tc.w)
		}

		h.ws.UnfullscreenRequest(tc.w.Active())
		h.clk.Advance(time.Second)
		h.ws.UpdateAnimations()
	}
}

func TestFullscreenRequestLeavesMinimizedStickyAlone(t *testing.T) {
	h := newHarness(t, false)
	w := newWindow(1)
	h.ws.AddMinimized(&MinimizedWindow{
		Window:         w,
		State:          MinimizedState{Kind: MinimizedSticky},
		OutputGeometry: h.out.Geometry(),
	})

	h.ws.FullscreenRequest(w.Active(), &Previous{Layer: window.LayerSticky}, minimizeTarget, seat)
	if _, ok := h.ws.Minimized(w); !ok {
		t.Fatalf("sticky entry should stay in the store")
	}
	if h.ws.Fullscreen() != nil || w.Active().IsFullscreen() {
		t.Fatalf("a minimized sticky window must not go fullscreen here")
	}
}

func TestUnfullscreenMinimizedRestoresGeometry(t *testing.T) {
	h := newHarness(t, true)
	w := newWindow(1)
	h.ws.Map(w, seat)
	s := w.Active()
	original := s.Geometry()
	h.ws.FullscreenRequest(s, nil, geom.Rect{}, seat)
	h.ws.Minimize(w, minimizeTarget)

	if _, ok := h.ws.UnfullscreenRequest(s); !ok {
		t.Fatalf("minimized fullscreen should be found")
	}
	entry, _ := h.ws.Minimized(w)
	if entry.Fullscreen != nil || s.IsFullscreen() || s.Geometry() != original {
		t.Fatalf("snapshot should be dropped and geometry restored")
	}
}

func TestRemoveFullscreenReturnsWindow(t *testing.T) {
	h := newHarness(t, false)
	w := newWindow(1)
	h.ws.Map(w, seat)
	prev := &Previous{Layer: window.LayerFloating, Workspace: h.ws.Handle()}
	h.ws.FullscreenRequest(w.Active(), prev, geom.Rect{}, seat)

	d, ok := h.ws.RemoveFullscreen()
	if !ok || d.Window != w || d.Previously != prev {
		t.Fatalf("displaced = %+v, %v", d, ok)
	}
}

func TestSetTilingRoundTripPreservesGeometry(t *testing.T) {
	h := newHarness(t, false)
	positions := []geom.Point{{X: 10, Y: 20}, {X: 400, Y: 300}, {X: 900, Y: 100}}
	var windows []*window.Mapped
	var before []geom.Rect
	for i, p := range positions {
		w := newWindow(window.SurfaceID(i + 1))
		h.ws.MapFloating(w, &p, seat)
		windows = append(windows, w)
		before = append(before, w.Geometry())
	}

	h.ws.SetTiling(true, seat, h.rec)
	for _, w := range windows {
		if !h.ws.IsTiled(w) {
			t.Fatalf("%s should be tiled", w)
		}
	}
	assertOneLayer(t, h.ws)

	h.ws.SetTiling(false, seat, h.rec)
	for i, w := range windows {
		if !h.ws.IsFloating(w) {
			t.Fatalf("%s should float", w)
		}
		if w.Geometry() != before[i] {
			t.Fatalf("%s geometry = %+v, want %+v", w, w.Geometry(), before[i])
		}
	}

	var states []string
	for _, e := range h.rec.Events() {
		if e.Kind == protocol.EventTilingState {
			states = append(states, e.State)
		}
	}
	if len(states) != 2 || states[0] != "tiling" || states[1] != "floating" {
		t.Fatalf("tiling state events = %v", states)
	}
}

func TestSetTilingKeepsMaximized(t *testing.T) {
	h := newHarness(t, false)
	w := newWindow(1)
	p := geom.Point{X: 50, Y: 50}
	h.ws.MapFloating(w, &p, seat)
	h.ws.MaximizeRequest(w)

	h.ws.SetTiling(true, seat, nil)
	if !h.ws.tiling.IsMaximized(w) || h.ws.floating.Contains(w) {
		t.Fatalf("window should be maximized in the tiling layer only")
	}
	if st, ok := w.MaximizedState(); !ok || st.OriginalLayer != window.LayerTiling {
		t.Fatalf("maximized state = %+v, %v", st, ok)
	}
	assertOneLayer(t, h.ws)
}

func TestToggleFloatingWindow(t *testing.T) {
	h := newHarness(t, true)
	a, b := newWindow(1), newWindow(2)
	h.ws.Map(a, seat)
	h.ws.Map(b, seat)

	h.ws.ToggleFloatingWindowFocused(seat)
	if !h.ws.floating.Contains(b) || h.ws.tiling.Contains(b) {
		t.Fatalf("focused window should float")
	}
	h.ws.ToggleFloatingWindow(seat, b)
	if !h.ws.tiling.Contains(b) {
		t.Fatalf("window should tile again")
	}
	assertOneLayer(t, h.ws)
}

func TestMaximizeTiledStaysInOneLayer(t *testing.T) {
	h := newHarness(t, true)
	a, b := newWindow(1), newWindow(2)
	h.ws.Map(a, seat)
	h.ws.Map(b, seat)
	slot, _ := h.ws.ElementGeometry(a)

	if !h.ws.MaximizeRequest(a) {
		t.Fatalf("maximize failed")
	}
	if h.ws.MaximizeRequest(a) {
		t.Fatalf("second maximize should be refused")
	}
	if !a.IsMaximized() || h.ws.floating.Contains(a) {
		t.Fatalf("maximized tiled window must not move to floating")
	}
	if g, _ := h.ws.ElementGeometry(a); g != h.out.Geometry().Local() {
		t.Fatalf("maximized geometry = %+v", g)
	}
	if _, ok := h.ws.NodeDesc(a); ok {
		t.Fatalf("maximized windows have no node")
	}

	size, ok := h.ws.UnmaximizeRequest(a)
	if !ok || size != slot.Size() {
		t.Fatalf("unmaximize = %+v, %v, want %+v", size, ok, slot.Size())
	}
	assertOneLayer(t, h.ws)
}

func TestLayerInvariantAcrossOperations(t *testing.T) {
	h := newHarness(t, true)
	var windows []*window.Mapped
	for i := 1; i <= 4; i++ {
		w := newWindow(window.SurfaceID(i))
		h.ws.Map(w, seat)
		windows = append(windows, w)
	}
	steps := []func(){
		func() { h.ws.ToggleFloatingWindow(seat, windows[0]) },
		func() { h.ws.MaximizeRequest(windows[1]) },
		func() { h.ws.Minimize(windows[2], minimizeTarget) },
		func() { h.ws.SetTiling(false, seat, nil) },
		func() { h.ws.Unminimize(windows[2], minimizeTarget, seat) },
		func() { h.ws.SetTiling(true, seat, nil) },
		func() { h.ws.UnmaximizeRequest(windows[1]) },
		func() { h.ws.Unmap(windows[3]) },
	}
	for _, step := range steps {
		step()
		assertOneLayer(t, h.ws)
	}
}

func TestSetOutputNotifiesAndPrefersOutput(t *testing.T) {
	h := newHarness(t, true)
	w := newWindow(1)
	h.ws.Map(w, seat)
	h.rec.Drain()

	a := h.out
	b := output.New("DP-2", panelX, geom.Rect{X: 1920, Width: 1920, Height: 1080}, 1)

	h.ws.SetOutput(b, false)
	events := h.rec.Drain()
	if len(events) != 2 || events[0].Kind != protocol.EventLeaveOutput || events[1].Kind != protocol.EventEnterOutput {
		t.Fatalf("events = %v", events)
	}
	if !h.ws.PrefersOutput(a) {
		t.Fatalf("workspace should want to return to DP-1")
	}
	if h.ws.ExplicitOutput().Name != "DP-1" {
		t.Fatalf("implicit move must keep the explicit output")
	}

	h.ws.SetOutput(a, false)
	if !h.ws.PrefersOutput(a) {
		t.Fatalf("workspace on DP-1 still prefers it")
	}
	if got := w.Active().Outputs(); len(got) != 1 || got[0] != "DP-1" {
		t.Fatalf("surface outputs = %v", got)
	}
}

func TestExplicitMoveResetsHistory(t *testing.T) {
	h := newHarness(t, true)
	b := output.New("HDMI-A-1", nil, geom.Rect{X: 1920, Width: 1280, Height: 720}, 1)
	h.ws.SetOutput(b, true)
	if h.ws.ExplicitOutput().Name != "HDMI-A-1" || len(h.ws.OutputHistory()) != 1 {
		t.Fatalf("history = %+v", h.ws.OutputHistory())
	}
}

func TestPinnedRoundTrip(t *testing.T) {
	h := newHarness(t, true)
	if _, ok := h.ws.ToPinned(); ok {
		t.Fatalf("unpinned workspace has no record")
	}
	h.ws.SetPinned(true)
	pinned, ok := h.ws.ToPinned()
	if !ok {
		t.Fatalf("pinned workspace should produce a record")
	}

	data, err := codec.Marshal(pinned)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded protocol.PinnedWorkspace
	if err := codec.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	other := output.New("HDMI-A-1", nil, geom.Rect{Width: 1280, Height: 720}, 1)
	restored := FromPinned(decoded, protocol.NewWorkspaceHandle(), other, testOptions(h.clk, h.rec))
	if !restored.Pinned() || !restored.TilingEnabled() {
		t.Fatalf("restored flags wrong")
	}
	if m := restored.ExplicitOutput(); m.Name != "DP-1" || !m.EDID.Equal(panelX) {
		t.Fatalf("explicit output = %+v", m)
	}
	if len(restored.OutputHistory()) != 2 {
		t.Fatalf("history = %+v", restored.OutputHistory())
	}
	if !restored.PrefersOutput(h.out) {
		t.Fatalf("restored workspace should prefer its pinned output")
	}
}

type tokens map[protocol.WorkspaceHandle]bool

func (t tokens) Pending(ws protocol.WorkspaceHandle) bool { return t[ws] }

func TestCanAutoRemove(t *testing.T) {
	h := newHarness(t, true)
	if !h.ws.CanAutoRemove(nil) {
		t.Fatalf("empty workspace is removable")
	}
	if h.ws.CanAutoRemove(tokens{h.ws.Handle(): true}) {
		t.Fatalf("pending token keeps the workspace")
	}
	h.ws.SetPinned(true)
	if h.ws.CanAutoRemove(nil) {
		t.Fatalf("pinned workspace is kept")
	}
	h.ws.SetPinned(false)
	w := newWindow(1)
	h.ws.Map(w, seat)
	h.ws.Minimize(w, minimizeTarget)
	if h.ws.CanAutoRemove(nil) {
		t.Fatalf("minimized windows keep the workspace")
	}
}

func TestRefreshDropsDeadFullscreen(t *testing.T) {
	h := newHarness(t, true)
	w := newWindow(1)
	h.ws.Map(w, seat)
	h.ws.FullscreenRequest(w.Active(), nil, geom.Rect{}, seat)
	signal := h.ws.Fullscreen().Signal()

	w.Active().Close()
	h.ws.Refresh()
	if h.ws.Fullscreen() != nil {
		t.Fatalf("dead fullscreen should be dropped")
	}
	if !signal.Released() {
		t.Fatalf("signal of a dropped fullscreen must be released")
	}
	if len(h.ws.tiling.Mapped()) != 0 {
		t.Fatalf("dead window should leave the tiling layer")
	}
}

func TestElementUnderPrefersFloating(t *testing.T) {
	h := newHarness(t, true)
	tiled := newWindow(1)
	h.ws.Map(tiled, seat)
	floater := newWindow(2)
	p := geom.Point{X: 10, Y: 10}
	h.ws.MapFloating(floater, &p, seat)

	if got, _ := h.ws.ElementUnder(geom.Point{X: 20, Y: 20}); got != floater {
		t.Fatalf("floating window should be on top")
	}
	if _, ok := h.ws.ElementUnder(geom.Point{X: 5000, Y: 20}); ok {
		t.Fatalf("point off the output")
	}
}

func TestRenderOrderWithOverview(t *testing.T) {
	h := newHarness(t, true)
	a, b := newWindow(1), newWindow(2)
	h.ws.Map(a, seat)
	h.ws.Map(b, seat)
	floater := newWindow(3)
	p := geom.Point{X: 10, Y: 10}
	h.ws.MapFloating(floater, &p, seat)
	h.ws.Focus(b, seat)

	s := seat
	elems, err := h.ws.Render(RenderParams{FocusSeat: &s, Overview: OverviewMode{Kind: OverviewActive}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(elems) != 4 {
		t.Fatalf("elements = %d, want 4", len(elems))
	}
	if elems[0].Window.Window != floater.ID() {
		t.Fatalf("floating windows come first")
	}
	if elems[3].Kind != render.KindBackdrop || math.Abs(elems[3].Alpha()-0.85) > 1e-9 {
		t.Fatalf("last element = %+v", elems[3])
	}
	focused := 0
	for _, e := range elems[:3] {
		if e.Kind != render.KindWindow || math.Abs(e.Alpha()-0.6) > 1e-9 {
			t.Fatalf("window element = %+v", e)
		}
		if e.Window.Focused {
			focused++
			if e.Window.Window != b.ID() {
				t.Fatalf("wrong window focused")
			}
		}
	}
	if focused != 1 {
		t.Fatalf("focused elements = %d", focused)
	}

	elems, _ = h.ws.Render(RenderParams{})
	if len(elems) != 3 {
		t.Fatalf("no backdrop outside overview, got %d elements", len(elems))
	}
}

func TestOverviewAlphaFades(t *testing.T) {
	m := OverviewMode{Kind: OverviewStarted, At: t0}
	if got := m.LayerAlpha(t0); math.Abs(got-1) > 1e-9 {
		t.Fatalf("start alpha = %v", got)
	}
	if got := m.LayerAlpha(t0.Add(time.Second)); math.Abs(got-0.6) > 1e-9 {
		t.Fatalf("settled alpha = %v", got)
	}
	if a, ok := m.BackdropAlpha(t0.Add(50 * time.Millisecond)); !ok || math.Abs(a-0.5) > 1e-9 {
		t.Fatalf("backdrop alpha = %v, %v", a, ok)
	}
	end := OverviewMode{Kind: OverviewEnded, At: t0}
	if got := end.LayerAlpha(t0.Add(time.Second)); math.Abs(got-1) > 1e-9 {
		t.Fatalf("ended alpha = %v", got)
	}
	if _, ok := (OverviewMode{}).BackdropAlpha(t0); ok {
		t.Fatalf("no backdrop outside overview")
	}
}

func TestRenderFullscreen(t *testing.T) {
	h := newHarness(t, true)
	a, b := newWindow(1), newWindow(2)
	h.ws.Map(a, seat)
	h.ws.Map(b, seat)
	h.ws.FullscreenRequest(a.Active(), nil, geom.Rect{}, seat)

	h.clk.Advance(100 * time.Millisecond)
	elems, err := h.ws.Render(RenderParams{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(elems) != 2 || elems[0].Kind != render.KindFullscreen || elems[1].Kind != render.KindWindow {
		t.Fatalf("entering frame = %+v", elems)
	}
	if math.Abs(elems[0].Alpha()-0.5) > 1e-9 {
		t.Fatalf("halfway alpha = %v", elems[0].Alpha())
	}
	if elems[1].Window.Window != b.ID() {
		t.Fatalf("fullscreen surface must not be drawn by its layer")
	}

	h.clk.Advance(200 * time.Millisecond)
	h.ws.UpdateAnimations()
	elems, _ = h.ws.Render(RenderParams{})
	if len(elems) != 1 {
		t.Fatalf("settled fullscreen hides the layers, got %d elements", len(elems))
	}
	r := elems[0].Rescale
	if r.Inner.Loc != (geom.Point{X: 910, Y: 490}) || r.Scale != (geom.Scale{X: 1, Y: 1}) {
		t.Fatalf("smaller content should be centered unscaled, got %+v scale %+v", r.Inner.Loc, r.Scale)
	}
	if got, _ := h.ws.ElementUnder(geom.Point{X: 10, Y: 10}); got != nil {
		t.Fatalf("outside the centered content nothing is hit")
	}
	if got, _ := h.ws.ElementUnder(geom.Point{X: 960, Y: 540}); got != a {
		t.Fatalf("fullscreen window takes input")
	}
}

func TestRenderPopupsFollowFullscreen(t *testing.T) {
	h := newHarness(t, true)
	w := newWindow(1)
	h.ws.Map(w, seat)
	w.Active().AddPopup(window.Popup{ID: 50, Offset: geom.Point{X: 5, Y: 5}, Size: geom.Size{W: 10, H: 10}})
	h.ws.FullscreenRequest(w.Active(), nil, geom.Rect{}, seat)
	h.clk.Advance(300 * time.Millisecond)
	h.ws.UpdateAnimations()

	elems, err := h.ws.RenderPopups(RenderParams{})
	if err != nil {
		t.Fatalf("render popups: %v", err)
	}
	if len(elems) != 1 || elems[0].Kind != render.KindFullscreenPopup {
		t.Fatalf("popups = %+v", elems)
	}
	if elems[0].Rescale.Inner.Loc != (geom.Point{X: 915, Y: 495}) {
		t.Fatalf("popup loc = %+v", elems[0].Rescale.Inner.Loc)
	}
}

func TestRenderRequiresEnabledOutput(t *testing.T) {
	h := newHarness(t, true)
	h.out.SetEnabled(false)
	if _, err := h.ws.Render(RenderParams{}); !errors.Is(err, render.ErrOutputNotMapped) {
		t.Fatalf("err = %v", err)
	}
	if _, err := h.ws.RenderPopups(RenderParams{}); !errors.Is(err, render.ErrOutputNotMapped) {
		t.Fatalf("popups err = %v", err)
	}
}
