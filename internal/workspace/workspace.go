// Package workspace is the per-output window-management core. A Workspace owns
// every window assigned to one virtual desktop and keeps them in exactly one of
// its two placement layers, or in its minimized store. It also runs the
// fullscreen overlay and composes the render elements of a frame.
//
// A Workspace is not safe for concurrent use. All mutation happens on the
// shell's control loop.
package workspace

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync/atomic"
	"time"

	"github.com/1broseidon/tilewm/internal/clock"
	"github.com/1broseidon/tilewm/internal/focus"
	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/layout/floating"
	"github.com/1broseidon/tilewm/internal/layout/tiling"
	"github.com/1broseidon/tilewm/internal/output"
	"github.com/1broseidon/tilewm/internal/protocol"
	"github.com/1broseidon/tilewm/internal/render"
	"github.com/1broseidon/tilewm/internal/window"
)

// Previous is where a fullscreen window returns to when it leaves fullscreen.
type Previous struct {
	Layer     window.Layer
	Workspace protocol.WorkspaceHandle
}

// ManagedState is what Unmap reports about a window it removed.
type ManagedState struct {
	Layer         window.Layer
	WasFullscreen *FullscreenSurface
}

// Displaced is a window pushed out of fullscreen by another one.
type Displaced struct {
	Window     *window.Mapped
	Previously *Previous
}

// ActivationTokens answers whether an unexpired activation token targets a
// workspace.
type ActivationTokens interface {
	Pending(ws protocol.WorkspaceHandle) bool
}

// Options carries the collaborators and settings of a workspace.
type Options struct {
	Clock         clock.Clock
	Logger        *slog.Logger
	Notifier      protocol.ToplevelNotifier
	Tiling        tiling.Settings
	Floating      floating.Settings
	HistoryLimit  int
	Blur          render.BlurPolicy
	BackdropColor [3]float32
}

// Workspace is one virtual desktop on one output.
type Workspace struct {
	handle protocol.WorkspaceHandle
	id     string
	out    *output.Output

	tiling    *tiling.Layout
	floating  *floating.Layout
	minimized []*MinimizedWindow

	tilingEnabled bool
	pinned        bool
	fullscreen    *FullscreenSurface

	focus   *focus.Stacks
	history *output.History
	dirty   atomic.Bool

	clock         clock.Clock
	logger        *slog.Logger
	notifier      protocol.ToplevelNotifier
	blur          render.BlurPolicy
	backdropColor [3]float32
	backdropID    render.ID
}

// New creates an empty workspace on out.
func New(handle protocol.WorkspaceHandle, out *output.Output, tilingEnabled bool, opts Options) *Workspace {
	ws := newWorkspace(handle, out, tilingEnabled, opts)
	ws.history = output.NewHistory(output.MatchOf(out), opts.HistoryLimit)
	return ws
}

// FromPinned restores a pinned workspace onto out. The pinned output stays the
// most authoritative entry of the history.
func FromPinned(pinned protocol.PinnedWorkspace, handle protocol.WorkspaceHandle, out *output.Output, opts Options) *Workspace {
	ws := newWorkspace(handle, out, pinned.TilingEnabled, opts)
	ws.pinned = true
	ws.history = output.NewHistory(pinned.Output, opts.HistoryLimit)
	ws.history.Append(output.MatchOf(out))
	return ws
}

func newWorkspace(handle protocol.WorkspaceHandle, out *output.Output, tilingEnabled bool, opts Options) *Workspace {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = protocol.NewRecorder()
	}
	if opts.Blur == "" {
		opts.Blur = render.BlurIgnorePartial
	}
	id := RandomID()
	logger := opts.Logger.With("workspace", id)
	return &Workspace{
		handle:        handle,
		id:            id,
		out:           out,
		tiling:        tiling.New(out, opts.Tiling, opts.Clock, logger),
		floating:      floating.New(out, opts.Floating, opts.Clock, logger),
		tilingEnabled: tilingEnabled,
		focus:         focus.NewStacks(),
		clock:         opts.Clock,
		logger:        logger,
		notifier:      opts.Notifier,
		blur:          opts.Blur,
		backdropColor: opts.BackdropColor,
		backdropID:    render.ID("backdrop:" + id),
	}
}

// RandomID returns a random 24-bit workspace id as hex. Callers compare it
// against existing workspaces for uniqueness.
func RandomID() string {
	return fmt.Sprintf("%x", rand.IntN(1<<24))
}

func (ws *Workspace) Handle() protocol.WorkspaceHandle { return ws.handle }

// ID is the stable short id of the workspace.
func (ws *Workspace) ID() string { return ws.id }

// SetID replaces the id, used when a random id collides.
func (ws *Workspace) SetID(id string) { ws.id = id }

func (ws *Workspace) Output() *output.Output { return ws.out }

func (ws *Workspace) TilingEnabled() bool { return ws.tilingEnabled }

func (ws *Workspace) Pinned() bool { return ws.pinned }

func (ws *Workspace) SetPinned(pinned bool) { ws.pinned = pinned }

func (ws *Workspace) String() string {
	return fmt.Sprintf("workspace(%s on %s)", ws.id, ws.out.Name())
}

// FocusStack returns the seat's focus stack. It may be nil, which reads as
// empty.
func (ws *Workspace) FocusStack(seat focus.Seat) *focus.Stack {
	return ws.focus.Get(seat)
}

// Focus records w as the seat's most recently focused window.
func (ws *Workspace) Focus(w *window.Mapped, seat focus.Seat) {
	ws.focus.GetMut(seat).Append(w)
}

// Map adds a new window to the layer the tiling flag selects and focuses it.
func (ws *Workspace) Map(w *window.Mapped, seat focus.Seat) window.Layer {
	layer := window.LayerFloating
	if ws.tilingEnabled {
		ws.tiling.Map(w, ws.focus.Get(seat).Iter())
		layer = window.LayerTiling
	} else {
		ws.floating.Map(w, nil)
	}
	ws.enterOutput(w)
	ws.Focus(w, seat)
	ws.logger.Debug("mapped window", "window", w.String(), "layer", layer.String())
	return layer
}

// MapFloating adds a new window to the floating layer at the output-local
// position pos, or at a picked position when pos is nil.
func (ws *Workspace) MapFloating(w *window.Mapped, pos *geom.Point, seat focus.Seat) {
	ws.floating.Map(w, pos)
	ws.enterOutput(w)
	ws.Focus(w, seat)
}

// Unmap removes w from whichever layer holds it, and from the minimized
// store and the focus stacks. It returns the layer w came from and the
// fullscreen state it carried, or false if w is not managed here.
func (ws *Workspace) Unmap(w *window.Mapped) (ManagedState, bool) {
	var wasFullscreen *FullscreenSurface
	if f := ws.fullscreen; f != nil && f.endedAt == nil && w.HasSurface(f.Surface) {
		wasFullscreen = f
		ws.fullscreen = nil
	}

	if _, ok := w.MaximizedState(); ok {
		// A maximized window must sit in one layer only before it is removed.
		ws.UnmaximizeRequest(w)
	}

	wasFloating := ws.floating.Unmap(w)
	wasTiling := ws.tiling.Unmap(w)
	if wasFloating && wasTiling {
		panic(fmt.Sprintf("workspace: %s mapped in both the floating and tiling layer", w))
	}

	if idx := ws.minimizedIndex(w); idx >= 0 {
		entry := ws.minimized[idx]
		ws.minimized = slices.Delete(ws.minimized, idx, idx+1)
		w.SetMinimized(false)
		switch entry.State.Kind {
		case MinimizedTiling:
			wasTiling = true
		default:
			wasFloating = true
		}
		wasFullscreen = entry.Fullscreen
	}

	ws.focus.Remove(w)

	switch {
	case wasFloating:
		return ManagedState{Layer: window.LayerFloating, WasFullscreen: wasFullscreen}, true
	case wasTiling:
		return ManagedState{Layer: window.LayerTiling, WasFullscreen: wasFullscreen}, true
	default:
		return ManagedState{}, false
	}
}

// Mapped lists the windows of both layers, floating first.
func (ws *Workspace) Mapped() []*window.Mapped {
	return append(ws.floating.Mapped(), ws.tiling.Mapped()...)
}

// IsEmpty reports whether the workspace holds no windows at all.
func (ws *Workspace) IsEmpty() bool {
	return len(ws.floating.Mapped()) == 0 && len(ws.tiling.Mapped()) == 0 && len(ws.minimized) == 0
}

// IsFloating reports whether w floats here, minimized or not.
func (ws *Workspace) IsFloating(w *window.Mapped) bool {
	if ws.IsFullscreen(w) {
		return false
	}
	if ws.floating.Contains(w) {
		return true
	}
	if e := ws.minimizedEntry(w); e != nil {
		return e.State.Kind == MinimizedFloating || e.State.Kind == MinimizedSticky
	}
	return false
}

// IsTiled reports whether w is tiled here, minimized or not.
func (ws *Workspace) IsTiled(w *window.Mapped) bool {
	if ws.IsFullscreen(w) {
		return false
	}
	if ws.tiling.Contains(w) {
		return true
	}
	if e := ws.minimizedEntry(w); e != nil {
		return e.State.Kind == MinimizedTiling
	}
	return false
}

// ElementForSurface finds the window showing s, including minimized ones.
func (ws *Workspace) ElementForSurface(s *window.Surface) (*window.Mapped, bool) {
	for _, w := range ws.Mapped() {
		if w.HasSurface(s) {
			return w, true
		}
	}
	for _, e := range ws.minimized {
		if e.Window.HasSurface(s) {
			return e.Window, true
		}
	}
	return nil, false
}

// ElementGeometry is w's output-local geometry in its layer.
func (ws *Workspace) ElementGeometry(w *window.Mapped) (geom.Rect, bool) {
	if g, ok := ws.floating.ElementGeometry(w); ok {
		return g, true
	}
	return ws.tiling.ElementGeometry(w)
}

// ElementUnder returns the window at the global point p. A settled
// fullscreen window takes all input on the output.
func (ws *Workspace) ElementUnder(p geom.Point) (*window.Mapped, bool) {
	outGeo := ws.out.Geometry()
	if !outGeo.Contains(p) {
		return nil, false
	}
	local := p.Sub(outGeo.Loc())

	if f := ws.fullscreen; f != nil && !f.IsAnimating() {
		if !ws.fullscreenGeometry().Contains(local) {
			return nil, false
		}
		return ws.ElementForSurface(f.Surface)
	}
	if w, ok := ws.floating.ElementUnder(local); ok {
		return w, true
	}
	return ws.tiling.ElementUnder(local)
}

// Recalculate re-arranges both layers.
func (ws *Workspace) Recalculate() {
	ws.tiling.Recalculate()
	ws.floating.Recalculate()
}

// Refresh drops dead windows and a dead fullscreen.
func (ws *Workspace) Refresh() {
	if f := ws.fullscreen; f != nil && !f.Alive() {
		f.releaseSignal()
		ws.fullscreen = nil
	}
	ws.floating.Refresh()
	ws.tiling.Refresh()
}

// RefreshFocusStack forgets focus entries of windows no longer mapped.
func (ws *Workspace) RefreshFocusStack() {
	mapped := ws.Mapped()
	ws.focus.Retain(func(w *window.Mapped) bool {
		return slices.Contains(mapped, w)
	})
}

// CanAutoRemove reports whether the workspace may be removed: it is empty,
// not pinned, and no pending activation token targets it.
func (ws *Workspace) CanAutoRemove(tokens ActivationTokens) bool {
	if !ws.IsEmpty() || ws.pinned {
		return false
	}
	return tokens == nil || !tokens.Pending(ws.handle)
}

// SetOutput moves the workspace to out. explicit marks a move the user asked
// for, which resets the output history.
func (ws *Workspace) SetOutput(out *output.Output, explicit bool) {
	old := ws.out
	ws.tiling.SetOutput(out)
	ws.floating.SetOutput(out)

	windows := ws.Mapped()
	for _, e := range ws.minimized {
		windows = append(windows, e.Window)
	}
	for _, w := range windows {
		for _, s := range w.Surfaces() {
			if s.OutputLeave(old.Name()) {
				ws.notifier.LeaveOutput(s, old)
			}
			if s.OutputEnter(out.Name()) {
				ws.notifier.EnterOutput(s, out)
			}
		}
	}

	ws.history.Update(out, explicit)
	ws.out = out
	ws.logger.Info("workspace moved", "from", old.Name(), "to", out.Name(), "explicit", explicit)
}

// PrefersOutput reports whether the workspace has lived on o before and would
// move back to it.
func (ws *Workspace) PrefersOutput(o *output.Output) bool {
	return ws.history.Prefers(o, ws.out)
}

// ExplicitOutput is the output the workspace was created on or last moved to
// by the user.
func (ws *Workspace) ExplicitOutput() output.Match {
	return ws.history.Front()
}

// OutputHistory lists the outputs the workspace remembers, most authoritative
// first.
func (ws *Workspace) OutputHistory() []output.Match {
	return ws.history.Entries()
}

// ToPinned returns the persisted record of a pinned workspace.
func (ws *Workspace) ToPinned() (protocol.PinnedWorkspace, bool) {
	if !ws.pinned {
		return protocol.PinnedWorkspace{}, false
	}
	return protocol.PinnedWorkspace{
		Output:        ws.ExplicitOutput(),
		TilingEnabled: ws.tilingEnabled,
	}, true
}

// AnimationsGoing reports whether another frame is needed. It consumes the
// dirty flag.
func (ws *Workspace) AnimationsGoing() bool {
	return ws.tiling.AnimationsGoing() ||
		ws.floating.AnimationsGoing() ||
		(ws.fullscreen != nil && ws.fullscreen.IsAnimating()) ||
		ws.dirty.Swap(false)
}

// MarkDirty forces one more animation tick.
func (ws *Workspace) MarkDirty() {
	ws.dirty.Store(true)
}

func (ws *Workspace) enterOutput(w *window.Mapped) {
	for _, s := range w.Surfaces() {
		if s.OutputEnter(ws.out.Name()) {
			ws.notifier.EnterOutput(s, ws.out)
		}
	}
}

func (ws *Workspace) now() time.Time {
	return ws.clock.Now()
}
