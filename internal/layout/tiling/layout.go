// Package tiling is the structural placement engine. Windows are kept in slot
// order and arranged by the configured grid layout; a window's slot and its
// neighbours form the descriptor used to put it back after a minimize.
package tiling

import (
	"fmt"
	"log/slog"

	"github.com/1broseidon/tilewm/internal/clock"
	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/layout"
	"github.com/1broseidon/tilewm/internal/output"
	"github.com/1broseidon/tilewm/internal/render"
	"github.com/1broseidon/tilewm/internal/window"
)

// NodeID identifies a window's node for the lifetime of its tiling membership.
type NodeID uint64

// Descriptor records where a window sat so it can be reinserted there.
type Descriptor struct {
	Index int
	Before *window.Mapped
	After  *window.Mapped
}

// NodeDesc describes the node of a focused tiled window.
type NodeDesc struct {
	Output string
	Node   NodeID
	// StackWindow is set when the focused node is a stack and only its active
	// surface is meant.
	StackWindow *window.Surface
}

// Settings configures a tiling layer.
type Settings struct {
	Layout config.Layout
	Gap    int
}

// Layout is the tiling layer of one workspace.
type Layout struct {
	out      *output.Output
	settings Settings
	logger   *slog.Logger

	windows    []*window.Mapped
	nodes      map[*window.Mapped]NodeID
	nextNode   NodeID
	geometries map[*window.Mapped]geom.Rect
	maximized  map[*window.Mapped]struct{}
	anims      *layout.Animations
}

// New creates an empty tiling layer on out.
func New(out *output.Output, settings Settings, clk clock.Clock, logger *slog.Logger) *Layout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Layout{
		out:        out,
		settings:   settings,
		logger:     logger,
		nodes:      make(map[*window.Mapped]NodeID),
		geometries: make(map[*window.Mapped]geom.Rect),
		maximized:  make(map[*window.Mapped]struct{}),
		anims:      layout.NewAnimations(clk),
	}
}

// Output returns the output the layer arranges windows on.
func (l *Layout) Output() *output.Output { return l.out }

// SetOutput moves the layer to another output and re-arranges it.
func (l *Layout) SetOutput(out *output.Output) {
	l.out = out
	l.recalculate(false)
}

// Settings returns the active layout settings.
func (l *Layout) Settings() Settings { return l.settings }

// SetSettings switches the layout and re-arranges with animation.
func (l *Layout) SetSettings(s Settings) {
	l.settings = s
	l.recalculate(true)
}

// Mapped lists the windows in slot order.
func (l *Layout) Mapped() []*window.Mapped {
	return append([]*window.Mapped(nil), l.windows...)
}

// Contains reports whether w is tiled here.
func (l *Layout) Contains(w *window.Mapped) bool {
	return l.index(w) >= 0
}

// Map inserts w after the most recently focused window of focusStack that is
// tiled here, or at the end if there is none.
func (l *Layout) Map(w *window.Mapped, focusStack []*window.Mapped) {
	if l.Contains(w) {
		return
	}
	l.insert(w, l.focusedSlot(focusStack)+1)
	l.recalculate(true)
}

// Unmap removes w and reports whether it was tiled here.
func (l *Layout) Unmap(w *window.Mapped) bool {
	idx := l.index(w)
	if idx < 0 {
		return false
	}
	l.remove(idx)
	l.recalculate(true)
	return true
}

// UnmapMinimize removes w and returns the descriptor that puts it back. to is
// the global rectangle the window minimizes into.
func (l *Layout) UnmapMinimize(w *window.Mapped, to geom.Rect) (Descriptor, bool) {
	idx := l.index(w)
	if idx < 0 {
		return Descriptor{}, false
	}
	d := Descriptor{Index: idx}
	if idx > 0 {
		d.Before = l.windows[idx-1]
	}
	if idx+1 < len(l.windows) {
		d.After = l.windows[idx+1]
	}
	l.remove(idx)
	l.recalculate(true)
	l.logger.Debug("tiling: minimized", "window", w.String(), "slot", idx, "to", to)
	return d, true
}

// RemapMinimized reinserts w at the position d recorded, animating it from the
// global rectangle from. A nil descriptor falls back to focus order.
func (l *Layout) RemapMinimized(w *window.Mapped, from geom.Rect, d *Descriptor, focusStack []*window.Mapped) {
	if l.Contains(w) {
		return
	}
	idx := -1
	switch {
	case d == nil:
		idx = l.focusedSlot(focusStack) + 1
	case d.Before != nil && l.Contains(d.Before):
		idx = l.index(d.Before) + 1
	case d.After != nil && l.Contains(d.After):
		idx = l.index(d.After)
	default:
		idx = min(max(d.Index, 0), len(l.windows))
	}
	l.insert(w, idx)
	l.recalculate(true)
	if target, ok := l.geometries[w]; ok {
		l.anims.Start(w, l.toLocal(from), target)
	}
}

// ElementGeometry returns w's output-local geometry.
func (l *Layout) ElementGeometry(w *window.Mapped) (geom.Rect, bool) {
	g, ok := l.geometries[w]
	return g, ok
}

// ElementUnder returns the topmost window, in render order, at the
// output-local point p.
func (l *Layout) ElementUnder(p geom.Point) (*window.Mapped, bool) {
	for _, w := range l.renderOrder() {
		if l.geometries[w].Contains(p) {
			return w, true
		}
	}
	return nil, false
}

// Maximize makes a tiled window cover the output. previous is its global
// geometry before, used as the animation origin.
func (l *Layout) Maximize(w *window.Mapped, previous geom.Rect, animate bool) bool {
	if !l.Contains(w) {
		return false
	}
	l.maximized[w] = struct{}{}
	w.SetMaximized(true)
	l.recalculate(false)
	if animate {
		l.anims.Start(w, l.toLocal(previous), l.geometries[w])
	}
	return true
}

// Unmaximize puts w back in its slot and returns its tiled size.
func (l *Layout) Unmaximize(w *window.Mapped) (geom.Size, bool) {
	if _, ok := l.maximized[w]; !ok {
		return geom.Size{}, false
	}
	delete(l.maximized, w)
	w.SetMaximized(false)
	l.recalculate(true)
	return l.geometries[w].Size(), true
}

// IsMaximized reports whether w is maximized in this layer.
func (l *Layout) IsMaximized(w *window.Mapped) bool {
	_, ok := l.maximized[w]
	return ok
}

// Recalculate re-arranges every window.
func (l *Layout) Recalculate() {
	l.recalculate(true)
}

// Refresh drops windows whose surfaces are gone.
func (l *Layout) Refresh() {
	changed := false
	for i := len(l.windows) - 1; i >= 0; i-- {
		if !l.windows[i].Alive() {
			l.remove(i)
			changed = true
		}
	}
	if changed {
		l.recalculate(true)
	}
}

// Resize changes the master pane width in master-stack mode. It returns false
// when the layout has nothing to resize for w.
func (l *Layout) Resize(w *window.Mapped, edge layout.ResizeEdge, dir layout.ResizeDirection, amount int) bool {
	idx := l.index(w)
	if idx < 0 || l.settings.Layout.Mode != config.LayoutModeMasterStack || len(l.windows) < 2 || l.IsMaximized(w) {
		return false
	}
	area := l.out.Geometry()
	if area.Width <= 0 {
		return false
	}

	// The master's right edge and the stack's left edge are the same border.
	grow := dir == layout.ResizeOutwards
	switch {
	case idx == 0 && edge.Has(layout.EdgeRight):
	case idx > 0 && edge.Has(layout.EdgeLeft):
		grow = !grow
	default:
		return false
	}
	delta := amount * 100 / area.Width
	if delta == 0 {
		delta = 1
	}
	if !grow {
		delta = -delta
	}

	ms := &l.settings.Layout.MasterStack
	next := min(max(ms.MasterWidthPercent+delta, 10), 90)
	if next == ms.MasterWidthPercent {
		return false
	}
	ms.MasterWidthPercent = next
	l.recalculate(true)
	return true
}

// NodeDesc describes w's node.
func (l *Layout) NodeDesc(w *window.Mapped) (NodeDesc, bool) {
	node, ok := l.nodes[w]
	if !ok {
		return NodeDesc{}, false
	}
	desc := NodeDesc{Output: l.out.Name(), Node: node}
	if w.IsStack() {
		desc.StackWindow = w.Active()
	}
	return desc, true
}

// AnimationsGoing reports whether any window is moving.
func (l *Layout) AnimationsGoing() bool {
	return l.anims.Going()
}

// UpdateAnimationState drops finished animations.
func (l *Layout) UpdateAnimationState() {
	l.anims.Prune()
}

// Render emits the tiled windows, maximized ones first. Windows whose surface
// is fullscreen are drawn by the fullscreen element instead.
func (l *Layout) Render(p render.Params) ([]render.Element, error) {
	if l.out == nil || !l.out.Enabled() {
		return nil, fmt.Errorf("tiling render: %w", render.ErrOutputNotMapped)
	}
	var elems []render.Element
	for _, w := range l.renderOrder() {
		s := w.Active()
		if s.IsFullscreen() {
			continue
		}
		elems = append(elems, render.Window(render.WindowElement{
			ID:        render.SurfaceID(s.ID()),
			Window:    s.ID(),
			Geometry:  l.anims.Geometry(w, l.geometries[w]),
			Alpha:     p.Alpha,
			Commit:    s.CommitCounter(),
			Focused:   p.Focused == w,
			Maximized: l.IsMaximized(w),
			Blur:      render.ResolveBlur(s.Blur(), p.Blur),
		}))
	}
	return elems, nil
}

// RenderPopups emits the popups of tiled windows.
func (l *Layout) RenderPopups(p render.Params) ([]render.Element, error) {
	if l.out == nil || !l.out.Enabled() {
		return nil, fmt.Errorf("tiling render popups: %w", render.ErrOutputNotMapped)
	}
	var elems []render.Element
	for _, w := range l.renderOrder() {
		s := w.Active()
		if s.IsFullscreen() {
			continue
		}
		loc := l.anims.Geometry(w, l.geometries[w]).Loc()
		for _, popup := range s.Popups() {
			elems = append(elems, render.Window(render.WindowElement{
				ID:       render.SurfaceID(popup.ID),
				Window:   s.ID(),
				Geometry: geom.FromLocSize(loc.Add(popup.Offset), popup.Size),
				Alpha:    p.Alpha,
				Commit:   s.CommitCounter(),
				Popup:    true,
			}))
		}
	}
	return elems, nil
}

func (l *Layout) renderOrder() []*window.Mapped {
	order := make([]*window.Mapped, 0, len(l.windows))
	for _, w := range l.windows {
		if l.IsMaximized(w) {
			order = append(order, w)
		}
	}
	for _, w := range l.windows {
		if !l.IsMaximized(w) {
			order = append(order, w)
		}
	}
	return order
}

func (l *Layout) index(w *window.Mapped) int {
	for i, cand := range l.windows {
		if cand == w {
			return i
		}
	}
	return -1
}

// focusedSlot returns the slot of the most recently focused window of
// focusStack that is tiled here, or len-1 when none is.
func (l *Layout) focusedSlot(focusStack []*window.Mapped) int {
	for _, w := range focusStack {
		if idx := l.index(w); idx >= 0 {
			return idx
		}
	}
	return len(l.windows) - 1
}

func (l *Layout) insert(w *window.Mapped, idx int) {
	idx = min(max(idx, 0), len(l.windows))
	l.windows = append(l.windows, nil)
	copy(l.windows[idx+1:], l.windows[idx:])
	l.windows[idx] = w
	l.nextNode++
	l.nodes[w] = l.nextNode
}

func (l *Layout) remove(idx int) {
	w := l.windows[idx]
	l.windows = append(l.windows[:idx], l.windows[idx+1:]...)
	delete(l.nodes, w)
	delete(l.geometries, w)
	delete(l.maximized, w)
	l.anims.Remove(w)
}

func (l *Layout) toLocal(r geom.Rect) geom.Rect {
	return r.Translate(geom.Point{}.Sub(l.out.Geometry().Loc()))
}

// recalculate assigns every window its slot geometry and pushes it to the
// client. Fullscreen surfaces keep the geometry the workspace gave them.
func (l *Layout) recalculate(animate bool) {
	if l.out == nil {
		return
	}
	outGeo := l.out.Geometry()
	full := outGeo.Local()

	tiled := make([]*window.Mapped, 0, len(l.windows))
	for _, w := range l.windows {
		if !l.IsMaximized(w) {
			tiled = append(tiled, w)
		}
	}

	area := Region(full, l.settings.Layout.TileRegion)
	positions, err := Slots(area, len(tiled), &l.settings.Layout, l.settings.Gap)
	if err != nil {
		l.logger.Warn("tiling: layout does not fit, stacking windows", "output", l.out.Name(), "windows", len(tiled), "error", err)
		positions = nil
	}

	for i, w := range tiled {
		target := area
		switch {
		case i < len(positions):
			target = positions[i]
		case len(positions) > 0:
			target = positions[len(positions)-1]
		}
		l.apply(w, target, outGeo, animate)
	}
	for w := range l.maximized {
		l.apply(w, full, outGeo, false)
	}
}

func (l *Layout) apply(w *window.Mapped, target, outGeo geom.Rect, animate bool) {
	prev, had := l.geometries[w]
	l.geometries[w] = target
	if animate && had {
		l.anims.Start(w, l.anims.Geometry(w, prev), target)
	}
	if w.IsFullscreen() {
		return
	}
	global := target.Translate(outGeo.Loc())
	if w.Geometry() != global {
		w.SetGeometry(global)
		w.Configure()
	}
}
