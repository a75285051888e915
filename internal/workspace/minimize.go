package workspace

import (
	"fmt"
	"slices"

	"github.com/1broseidon/tilewm/internal/focus"
	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/layout/tiling"
	"github.com/1broseidon/tilewm/internal/window"
)

// MinimizedKind is the layer a minimized window returns to.
type MinimizedKind int

const (
	MinimizedFloating MinimizedKind = iota
	MinimizedTiling
	MinimizedSticky
)

func (k MinimizedKind) String() string {
	switch k {
	case MinimizedFloating:
		return "floating"
	case MinimizedTiling:
		return "tiling"
	case MinimizedSticky:
		return "sticky"
	default:
		return "unknown"
	}
}

// Layer maps the kind onto the layer the window is restored into.
func (k MinimizedKind) Layer() window.Layer {
	switch k {
	case MinimizedTiling:
		return window.LayerTiling
	case MinimizedSticky:
		return window.LayerSticky
	default:
		return window.LayerFloating
	}
}

// MinimizedState is the layer-specific restore descriptor.
type MinimizedState struct {
	Kind MinimizedKind
	// Position is the output-local position of floating and sticky windows.
	Position geom.Point
	// Tiling is the slot of a tiled window. Nil restores in focus order.
	Tiling       *tiling.Descriptor
	WasMaximized bool
}

// MinimizedWindow is an entry of the minimized store.
type MinimizedWindow struct {
	Window     *window.Mapped
	State      MinimizedState
	Fullscreen *FullscreenSurface
	// OutputGeometry is the output's global geometry at minimize time.
	OutputGeometry geom.Rect
}

// unmaximize drops the maximized flag of a minimized window and points its
// restore descriptor at the pre-maximize geometry. original is global.
func (m *MinimizedWindow) unmaximize(original geom.Rect) {
	m.Window.SetMaximized(false)
	m.Window.Configure()
	switch m.State.Kind {
	case MinimizedFloating, MinimizedSticky:
		m.State.Position = original.Loc().Sub(m.OutputGeometry.Loc())
	}
	m.State.WasMaximized = false
}

// unfullscreen restores the pre-fullscreen geometry of a suspended fullscreen
// window without animating.
func (m *MinimizedWindow) unfullscreen() *Previous {
	f := m.Fullscreen
	if f == nil {
		return nil
	}
	m.Fullscreen = nil
	f.releaseSignal()
	f.Surface.SetFullscreen(false)
	f.Surface.SetGeometry(f.originalGeometry)
	return f.Previously
}

// MinimizedWindows lists the minimized store in minimize order.
func (ws *Workspace) MinimizedWindows() []*MinimizedWindow {
	return slices.Clone(ws.minimized)
}

// Minimized returns the entry of w, if w is minimized here.
func (ws *Workspace) Minimized(w *window.Mapped) (*MinimizedWindow, bool) {
	e := ws.minimizedEntry(w)
	return e, e != nil
}

// AddMinimized stores an entry built elsewhere, such as a window minimized
// out of the shell's sticky layer.
func (ws *Workspace) AddMinimized(entry *MinimizedWindow) {
	entry.Window.SetMinimized(true)
	ws.focus.Remove(entry.Window)
	ws.minimized = append(ws.minimized, entry)
}

// TakeMinimized removes the entry of w from the store without restoring it.
func (ws *Workspace) TakeMinimized(w *window.Mapped) (*MinimizedWindow, bool) {
	idx := ws.minimizedIndex(w)
	if idx < 0 {
		return nil, false
	}
	return ws.takeMinimized(idx), true
}

// Minimize removes w from its layer and stores what is needed to restore it.
// to is the global rectangle the window shrinks into. A fullscreen w is sent
// into its exit animation and its fullscreen state is kept on the entry.
func (ws *Workspace) Minimize(w *window.Mapped, to geom.Rect) (*MinimizedWindow, bool) {
	inTiling := ws.tiling.Contains(w)
	if !inTiling && !ws.floating.Contains(w) {
		return nil, false
	}

	var snapshot *FullscreenSurface
	if s, ok := ws.GetFullscreen(); ok && w.HasSurface(s) {
		copied := *ws.fullscreen
		snapshot = &copied
		ws.fullscreen.beginExit(ws.now())
	}

	entry := &MinimizedWindow{
		Window:         w,
		Fullscreen:     snapshot,
		OutputGeometry: ws.out.Geometry(),
	}
	if inTiling {
		wasMaximized := ws.tiling.IsMaximized(w)
		desc, _ := ws.tiling.UnmapMinimize(w, to)
		entry.State = MinimizedState{Kind: MinimizedTiling, Tiling: &desc, WasMaximized: wasMaximized}
	} else {
		wasMaximized := ws.floating.IsMaximized(w)
		pos, _ := ws.floating.UnmapMinimize(w, to)
		if st, ok := w.MaximizedState(); ok && wasMaximized {
			pos = st.OriginalGeometry.Loc().Sub(entry.OutputGeometry.Loc())
		}
		entry.State = MinimizedState{Kind: MinimizedFloating, Position: pos, WasMaximized: wasMaximized}
	}

	w.SetMinimized(true)
	ws.focus.Remove(w)
	ws.minimized = append(ws.minimized, entry)
	ws.logger.Debug("minimized window", "window", w.String(), "state", entry.State.Kind.String(), "fullscreen", snapshot != nil)
	return entry, true
}

// Unminimize restores the minimized window w. from is the global rectangle
// it grows out of. If w carried a fullscreen state, that state is restored
// and any fullscreen it pushes out is returned.
//
// Sticky entries belong to the shell's sticky layer; restoring one here
// panics.
func (ws *Workspace) Unminimize(w *window.Mapped, from geom.Rect, seat focus.Seat) (*Displaced, bool) {
	idx := ws.minimizedIndex(w)
	if idx < 0 {
		return nil, false
	}
	if ws.minimized[idx].State.Kind == MinimizedSticky {
		panic("workspace: sticky minimized windows are restored by the shell")
	}
	entry := ws.takeMinimized(idx)
	return ws.unminimizeEntry(entry, from, seat), true
}

func (ws *Workspace) unminimizeEntry(entry *MinimizedWindow, from geom.Rect, seat focus.Seat) *Displaced {
	w := entry.Window
	w.SetMinimized(false)
	current := ws.out.Geometry()

	switch entry.State.Kind {
	case MinimizedSticky:
		panic("workspace: sticky minimized windows are restored by the shell")

	case MinimizedFloating:
		pos := entry.State.Position
		if current.Size() != entry.OutputGeometry.Size() {
			pos = geom.RescalePoint(pos, entry.OutputGeometry.Size(), current.Size())
		}
		ws.floating.RemapMinimized(w, from, pos)
		if entry.State.WasMaximized {
			ws.floating.Maximize(w, from, true)
		}

	case MinimizedTiling:
		switch {
		case ws.tilingEnabled:
			ws.tiling.RemapMinimized(w, from, entry.State.Tiling, ws.focus.Get(seat).Iter())
			if entry.State.WasMaximized {
				ws.tiling.Maximize(w, from, true)
			}
		case entry.State.WasMaximized:
			ws.floating.Maximize(w, from, true)
		default:
			ws.floating.Map(w, nil)
			geo, _ := ws.floating.ElementGeometry(w)
			ws.floating.RemapMinimized(w, from, geo.Loc())
		}
	}
	ws.enterOutput(w)
	ws.Focus(w, seat)
	ws.logger.Debug("unminimized window", "window", w.String(), "state", entry.State.Kind.String())

	f := entry.Fullscreen
	if f == nil {
		return nil
	}
	var displaced *Displaced
	if d, ok := ws.RemoveFullscreen(); ok {
		displaced = &d
	}
	now := ws.now()
	f.startAt = &now
	f.endedAt = nil
	if current != entry.OutputGeometry {
		if signal := ws.installBlocker(f.Surface); signal != nil {
			f.releaseSignal()
			f.signal = signal
		}
		f.Surface.SetGeometry(current)
		f.Surface.SendConfigure()
	}
	ws.replaceFullscreen(f)
	return displaced
}

func (ws *Workspace) minimizedIndex(w *window.Mapped) int {
	return slices.IndexFunc(ws.minimized, func(e *MinimizedWindow) bool { return e.Window == w })
}

func (ws *Workspace) minimizedIndexForSurface(s *window.Surface) int {
	return slices.IndexFunc(ws.minimized, func(e *MinimizedWindow) bool { return e.Window.HasSurface(s) })
}

func (ws *Workspace) minimizedEntry(w *window.Mapped) *MinimizedWindow {
	if idx := ws.minimizedIndex(w); idx >= 0 {
		return ws.minimized[idx]
	}
	return nil
}

func (ws *Workspace) takeMinimized(idx int) *MinimizedWindow {
	entry := ws.minimized[idx]
	ws.minimized = slices.Delete(ws.minimized, idx, idx+1)
	return entry
}

// String is used in debug output of the minimized store.
func (m *MinimizedWindow) String() string {
	return fmt.Sprintf("%s(%s)", m.Window, m.State.Kind)
}
