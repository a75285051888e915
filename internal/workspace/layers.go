package workspace

import (
	"github.com/1broseidon/tilewm/internal/focus"
	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/layout"
	"github.com/1broseidon/tilewm/internal/layout/tiling"
	"github.com/1broseidon/tilewm/internal/protocol"
	"github.com/1broseidon/tilewm/internal/window"
)

// ToggleTiling flips the tiling flag.
func (ws *Workspace) ToggleTiling(seat focus.Seat, guard protocol.UpdateGuard) {
	ws.SetTiling(!ws.tilingEnabled, seat, guard)
}

// SetTiling moves every window into the tiling layer (enable) or the floating
// layer (disable). Maximized windows are unmaximized for the move and
// maximized again in their new layer.
func (ws *Workspace) SetTiling(enable bool, seat focus.Seat, guard protocol.UpdateGuard) {
	type remax struct {
		w     *window.Mapped
		state window.MaximizedState
	}
	var maximized []remax

	if enable {
		windows := ws.floating.Mapped()
		for _, w := range windows {
			if !ws.floating.IsMaximized(w) {
				continue
			}
			st, _ := w.MaximizedState()
			ws.UnmaximizeRequest(w)
			maximized = append(maximized, remax{w, window.MaximizedState{OriginalGeometry: st.OriginalGeometry, OriginalLayer: window.LayerTiling}})
		}
		order := ws.focus.Get(seat).Iter()
		for _, w := range windows {
			ws.floating.Unmap(w)
			ws.tiling.Map(w, order)
		}
	} else {
		for _, w := range ws.tiling.Mapped() {
			if ws.tiling.IsMaximized(w) {
				st, _ := w.MaximizedState()
				ws.UnmaximizeRequest(w)
				maximized = append(maximized, remax{w, window.MaximizedState{OriginalGeometry: st.OriginalGeometry, OriginalLayer: window.LayerFloating}})
			}
			ws.tiling.Unmap(w)
			ws.floating.Map(w, nil)
		}
	}

	if guard != nil {
		guard.SetTilingState(ws.handle, protocol.TilingStateOf(enable))
	}
	ws.tilingEnabled = enable

	for _, m := range maximized {
		m.w.SetMaximizedState(m.state)
		if enable {
			ws.tiling.Maximize(m.w, m.state.OriginalGeometry, false)
		} else {
			ws.floating.Maximize(m.w, m.state.OriginalGeometry, false)
		}
	}
	ws.logger.Info("tiling changed", "enabled", enable, "maximized", len(maximized))
}

// ToggleFloatingWindow moves w between the two layers. It only applies while
// tiling is enabled.
func (ws *Workspace) ToggleFloatingWindow(seat focus.Seat, w *window.Mapped) {
	if !ws.tilingEnabled {
		return
	}
	if w.IsMaximized() {
		ws.UnmaximizeRequest(w)
	}
	switch {
	case ws.tiling.Contains(w):
		ws.tiling.Unmap(w)
		ws.floating.Map(w, nil)
	case ws.floating.Contains(w):
		ws.floating.Unmap(w)
		ws.tiling.Map(w, ws.focus.Get(seat).Iter())
	}
}

// ToggleFloatingWindowFocused toggles the seat's most recently focused
// window.
func (ws *Workspace) ToggleFloatingWindowFocused(seat focus.Seat) {
	if w, ok := ws.focus.Get(seat).Last(); ok {
		ws.ToggleFloatingWindow(seat, w)
	}
}

// MaximizeRequest makes w cover the output in the layer that holds it. A
// minimized w only records the state for when it is restored.
func (ws *Workspace) MaximizeRequest(w *window.Mapped) bool {
	if _, ok := w.MaximizedState(); ok {
		return false
	}
	if e := ws.minimizedEntry(w); e != nil {
		w.SetMaximizedState(window.MaximizedState{OriginalGeometry: w.Geometry(), OriginalLayer: e.State.Kind.Layer()})
		w.SetMaximized(true)
		e.State.WasMaximized = true
		return true
	}

	previous := w.Geometry()
	switch {
	case ws.tiling.Contains(w):
		w.SetMaximizedState(window.MaximizedState{OriginalGeometry: previous, OriginalLayer: window.LayerTiling})
		ws.tiling.Maximize(w, previous, true)
	case ws.floating.Contains(w):
		w.SetMaximizedState(window.MaximizedState{OriginalGeometry: previous, OriginalLayer: window.LayerFloating})
		ws.floating.Maximize(w, previous, true)
	default:
		return false
	}
	w.Configure()
	return true
}

// UnmaximizeRequest undoes MaximizeRequest and returns the size w ends up
// with.
func (ws *Workspace) UnmaximizeRequest(w *window.Mapped) (geom.Size, bool) {
	state, ok := w.TakeMaximizedState()
	if !ok {
		return geom.Size{}, false
	}
	if e := ws.minimizedEntry(w); e != nil {
		e.unmaximize(state.OriginalGeometry)
		return state.OriginalGeometry.Size(), true
	}

	switch {
	case ws.tiling.IsMaximized(w):
		size, _ := ws.tiling.Unmaximize(w)
		w.Configure()
		return size, true
	case ws.floating.IsMaximized(w):
		size, _ := ws.floating.Unmaximize(w, state.OriginalGeometry)
		w.Configure()
		return size, true
	default:
		w.SetMaximized(false)
		w.Configure()
		return state.OriginalGeometry.Size(), true
	}
}

// Resize forwards to the layer that holds w. The settled fullscreen window is
// never resized.
func (ws *Workspace) Resize(w *window.Mapped, edge layout.ResizeEdge, dir layout.ResizeDirection, amount int) bool {
	if ws.isFullscreenTarget(w) {
		return false
	}
	if ws.floating.Resize(w, edge, dir, amount) {
		return true
	}
	return ws.tiling.Resize(w, edge, dir, amount)
}

// NodeDesc describes the tiling node of w. Maximized windows have none.
func (ws *Workspace) NodeDesc(w *window.Mapped) (tiling.NodeDesc, bool) {
	if w.IsMaximized() {
		return tiling.NodeDesc{}, false
	}
	return ws.tiling.NodeDesc(w)
}

// isFullscreenTarget reports whether w is the live, non-exiting fullscreen
// window.
func (ws *Workspace) isFullscreenTarget(w *window.Mapped) bool {
	f := ws.fullscreen
	return f != nil && f.endedAt == nil && w.HasSurface(f.Surface)
}
