package shell

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/output"
	"github.com/1broseidon/tilewm/internal/protocol"
	"github.com/1broseidon/tilewm/internal/window"
	"github.com/1broseidon/tilewm/internal/workspace"
)

// WindowSpec describes a new toplevel.
type WindowSpec struct {
	ID     window.SurfaceID `json:"id" yaml:"id"`
	Client window.ClientID  `json:"client,omitempty" yaml:"client,omitempty"`
	Title  string           `json:"title,omitempty" yaml:"title,omitempty"`
	AppID  string           `json:"app_id,omitempty" yaml:"app_id,omitempty"`
	Size   geom.Size        `json:"size" yaml:"size"`
	// Output selects the output whose active workspace receives the window.
	// Empty means the first output.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
	// Floating maps into the floating layer even when tiling is enabled.
	Floating bool `json:"floating,omitempty" yaml:"floating,omitempty"`
	// Position is output-local and only used for floating windows.
	Position *geom.Point `json:"position,omitempty" yaml:"position,omitempty"`
	// Token is an activation token; a valid one maps onto the workspace it
	// was issued for.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
}

// placement is where a managed window currently lives.
type placement struct {
	state  *outputState
	ws     *workspace.Workspace
	sticky bool
}

// MapWindow creates the window described by spec and maps it.
func (sh *Shell) MapWindow(spec WindowSpec) (*window.Mapped, error) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.windows[spec.ID]; ok {
		return nil, fmt.Errorf("window %d: %w", spec.ID, ErrWindowExists)
	}
	state, err := sh.targetOutputLocked(spec.Output)
	if err != nil {
		return nil, err
	}
	ws := state.activeWorkspace()
	if spec.Token != "" {
		if handle, ok := sh.tokens.Consume(spec.Token); ok {
			if _, target, err := sh.workspaceLocked(handle); err == nil {
				ws = target
			}
		} else {
			sh.logger.Debug("activation token expired or unknown", "window", spec.ID)
		}
	}

	s := window.NewSurface(spec.ID, spec.Client, spec.Size)
	s.SetTitle(spec.Title)
	s.SetAppID(spec.AppID)
	w := window.NewMapped(s)
	sh.windows[spec.ID] = w

	if spec.Floating || spec.Position != nil {
		ws.MapFloating(w, spec.Position, sh.seat)
	} else {
		ws.Map(w, sh.seat)
	}
	sh.logger.Info("window mapped", "window", w.String(), "workspace", ws.ID(), "title", spec.Title)
	return w, nil
}

// UnmapWindow destroys the window and removes it from the shell.
func (sh *Shell) UnmapWindow(id window.SurfaceID) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, err := sh.windowLocked(id)
	if err != nil {
		return err
	}
	for _, s := range w.Surfaces() {
		s.Close()
	}
	sh.forgetLocked(id, w)
	return nil
}

// Window returns the managed window with the given id.
func (sh *Shell) Window(id window.SurfaceID) (*window.Mapped, error) {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.windowLocked(id)
}

// Windows returns every managed window ordered by id.
func (sh *Shell) Windows() []*window.Mapped {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	out := make([]*window.Mapped, 0, len(sh.windows))
	for _, w := range sh.windows {
		out = append(out, w)
	}
	slices.SortFunc(out, func(a, b *window.Mapped) int { return cmp.Compare(a.ID(), b.ID()) })
	return out
}

func (sh *Shell) windowLocked(id window.SurfaceID) (*window.Mapped, error) {
	w, ok := sh.windows[id]
	if !ok {
		return nil, fmt.Errorf("window %d: %w", id, ErrUnknownWindow)
	}
	return w, nil
}

// locateLocked finds where w lives. Minimized windows report the workspace
// holding their entry.
func (sh *Shell) locateLocked(w *window.Mapped) (placement, bool) {
	for _, o := range sh.outputs {
		if o.sticky.Contains(w) {
			return placement{state: o, ws: o.activeWorkspace(), sticky: true}, true
		}
	}
	var found placement
	ok := false
	sh.eachWorkspaceLocked(func(o *outputState, ws *workspace.Workspace) bool {
		if _, hit := ws.ElementForSurface(w.Active()); hit {
			found, ok = placement{state: o, ws: ws}, true
			return false
		}
		return true
	})
	return found, ok
}

func (sh *Shell) placeLocked(id window.SurfaceID) (*window.Mapped, placement, error) {
	w, err := sh.windowLocked(id)
	if err != nil {
		return nil, placement{}, err
	}
	p, ok := sh.locateLocked(w)
	if !ok {
		return nil, placement{}, fmt.Errorf("window %d is not placed: %w", id, ErrUnknownWindow)
	}
	return w, p, nil
}

// dockRect is the global rectangle windows minimize into and restore from:
// a sliver at the bottom center of the output.
func dockRect(out *output.Output) geom.Rect {
	g := out.Geometry()
	return geom.Rect{X: g.X + g.Width/2, Y: g.Y + g.Height - 1, Width: 1, Height: 1}
}

// Minimize minimizes the window. Sticky windows are stored on the active
// workspace of their output.
func (sh *Shell) Minimize(id window.SurfaceID) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, p, err := sh.placeLocked(id)
	if err != nil {
		return err
	}
	if w.IsMinimized() {
		return nil
	}
	out := p.ws.Output()
	if p.sticky {
		pos, _ := p.state.sticky.UnmapMinimize(w, dockRect(out))
		p.ws.AddMinimized(&workspace.MinimizedWindow{
			Window:         w,
			State:          workspace.MinimizedState{Kind: workspace.MinimizedSticky, Position: pos},
			OutputGeometry: out.Geometry(),
		})
		return nil
	}
	if _, ok := p.ws.Minimize(w, dockRect(out)); !ok {
		return fmt.Errorf("window %d could not be minimized", id)
	}
	return nil
}

// Unminimize restores a minimized window.
func (sh *Shell) Unminimize(id window.SurfaceID) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, p, err := sh.placeLocked(id)
	if err != nil {
		return err
	}
	entry, ok := p.ws.Minimized(w)
	if !ok {
		return nil
	}
	if entry.State.Kind == workspace.MinimizedSticky {
		return sh.restoreStickyLocked(w, p, entry)
	}
	if d, _ := p.ws.Unminimize(w, dockRect(p.ws.Output()), sh.seat); d != nil {
		sh.returnDisplacedLocked(*d)
	}
	return nil
}

// restoreStickyLocked moves a minimized sticky window from the store of
// p.ws back into the sticky layer of its output.
func (sh *Shell) restoreStickyLocked(w *window.Mapped, p placement, entry *workspace.MinimizedWindow) error {
	if p.state == nil {
		return fmt.Errorf("window %d: %w", w.ID(), ErrUnknownOutput)
	}
	p.ws.TakeMinimized(w)
	w.SetMinimized(false)
	pos := entry.State.Position
	current := p.ws.Output().Geometry()
	if current.Size() != entry.OutputGeometry.Size() {
		pos = geom.RescalePoint(pos, entry.OutputGeometry.Size(), current.Size())
	}
	p.state.sticky.RemapMinimized(w, dockRect(p.ws.Output()), pos)
	return nil
}

// Fullscreen puts the window into fullscreen on its workspace. A sticky
// window is moved onto the active workspace for the duration.
func (sh *Shell) Fullscreen(id window.SurfaceID) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, p, err := sh.placeLocked(id)
	if err != nil {
		return err
	}
	if entry, ok := p.ws.Minimized(w); ok && entry.State.Kind == workspace.MinimizedSticky {
		if err := sh.restoreStickyLocked(w, p, entry); err != nil {
			return err
		}
		p = placement{state: p.state, ws: p.state.activeWorkspace(), sticky: true}
	}
	if s, busy := p.ws.GetFullscreen(); busy {
		if s == w.Active() {
			return nil
		}
		if d, ok := p.ws.RemoveFullscreen(); ok {
			sh.returnDisplacedLocked(d)
		}
	}

	previous := &workspace.Previous{Workspace: p.ws.Handle()}
	switch {
	case p.sticky:
		previous.Layer = window.LayerSticky
		p.state.sticky.Unmap(w)
		p.ws.MapFloating(w, nil, sh.seat)
	case p.ws.IsTiled(w):
		previous.Layer = window.LayerTiling
	default:
		previous.Layer = window.LayerFloating
	}
	p.ws.FullscreenRequest(w.Active(), previous, dockRect(p.ws.Output()), sh.seat)
	return nil
}

// Unfullscreen takes the window out of fullscreen.
func (sh *Shell) Unfullscreen(id window.SurfaceID) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, p, err := sh.placeLocked(id)
	if err != nil {
		return err
	}
	previous, ok := p.ws.UnfullscreenRequest(w.Active())
	if !ok {
		return nil
	}
	sh.returnDisplacedLocked(workspace.Displaced{Window: w, Previously: previous})
	return nil
}

// returnDisplacedLocked moves a window that left fullscreen back to the
// sticky layer it came from. Other layers need no move.
func (sh *Shell) returnDisplacedLocked(d workspace.Displaced) {
	if d.Previously == nil || d.Previously.Layer != window.LayerSticky {
		return
	}
	_, ws, err := sh.workspaceLocked(d.Previously.Workspace)
	if err != nil {
		return
	}
	for _, o := range sh.outputs {
		if o.out != ws.Output() {
			continue
		}
		if _, ok := ws.Unmap(d.Window); ok {
			o.sticky.Map(d.Window, nil)
		}
		return
	}
}

// Maximize maximizes the window in its layer.
func (sh *Shell) Maximize(id window.SurfaceID) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, p, err := sh.placeLocked(id)
	if err != nil {
		return err
	}
	if p.sticky {
		if _, ok := w.MaximizedState(); ok {
			return nil
		}
		w.SetMaximizedState(window.MaximizedState{OriginalGeometry: w.Geometry(), OriginalLayer: window.LayerSticky})
		p.state.sticky.Maximize(w, w.Geometry(), true)
		return nil
	}
	p.ws.MaximizeRequest(w)
	return nil
}

// Unmaximize restores a maximized window.
func (sh *Shell) Unmaximize(id window.SurfaceID) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, p, err := sh.placeLocked(id)
	if err != nil {
		return err
	}
	if p.sticky {
		if st, ok := w.TakeMaximizedState(); ok {
			p.state.sticky.Unmaximize(w, st.OriginalGeometry)
		}
		return nil
	}
	p.ws.UnmaximizeRequest(w)
	return nil
}

// ToggleFloating moves the window between the tiling and floating layers.
func (sh *Shell) ToggleFloating(id window.SurfaceID) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, p, err := sh.placeLocked(id)
	if err != nil {
		return err
	}
	if p.sticky {
		return nil
	}
	p.ws.ToggleFloatingWindow(sh.seat, w)
	return nil
}

// SetSticky moves the window into its output's sticky layer, or back into
// the active workspace.
func (sh *Shell) SetSticky(id window.SurfaceID, sticky bool) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, p, err := sh.placeLocked(id)
	if err != nil {
		return err
	}
	if p.sticky == sticky || w.IsMinimized() || p.state == nil {
		return nil
	}
	if sticky {
		if p.ws.IsFullscreen(w) {
			return fmt.Errorf("window %d is fullscreen", id)
		}
		if _, ok := w.MaximizedState(); ok {
			p.ws.UnmaximizeRequest(w)
		}
		p.ws.Unmap(w)
		p.state.sticky.Map(w, nil)
		return nil
	}
	if st, ok := w.TakeMaximizedState(); ok {
		p.state.sticky.Unmaximize(w, st.OriginalGeometry)
	}
	p.state.sticky.Unmap(w)
	p.ws.Map(w, sh.seat)
	return nil
}

// Focus records the window as the seat's most recently focused one.
func (sh *Shell) Focus(id window.SurfaceID) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, p, err := sh.placeLocked(id)
	if err != nil {
		return err
	}
	if !p.sticky {
		p.ws.Focus(w, sh.seat)
	}
	return nil
}

// SetBlur stores the blur request of a surface.
func (sh *Shell) SetBlur(id window.SurfaceID, state window.BlurState) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	for _, w := range sh.windows {
		for _, s := range w.Surfaces() {
			if s.ID() == id {
				s.SetBlur(state)
				return nil
			}
		}
	}
	return fmt.Errorf("surface %d: %w", id, ErrUnknownWindow)
}

// AddOverrideRedirect shows an unmanaged surface on the named output, above
// everything else.
func (sh *Shell) AddOverrideRedirect(outputName string, s *window.Surface) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state, err := sh.outputLocked(outputName)
	if err != nil {
		return err
	}
	state.overlays = append(state.overlays, s)
	return nil
}

// ElementUnder returns the window at the global point p.
func (sh *Shell) ElementUnder(p geom.Point) (*window.Mapped, bool) {
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	for _, o := range sh.outputs {
		g := o.out.Geometry()
		if !g.Contains(p) {
			continue
		}
		ws := o.activeWorkspace()
		if _, full := ws.GetFullscreen(); !full {
			if w, ok := o.sticky.ElementUnder(p.Sub(g.Loc())); ok {
				return w, true
			}
		}
		return ws.ElementUnder(p)
	}
	return nil, false
}

// WorkspaceOf returns the handle of the workspace holding the window. Sticky
// windows report the active workspace of their output.
func (sh *Shell) WorkspaceOf(id window.SurfaceID) (protocol.WorkspaceHandle, error) {
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	_, p, err := sh.placeLocked(id)
	if err != nil {
		return protocol.WorkspaceHandle{}, err
	}
	return p.ws.Handle(), nil
}
