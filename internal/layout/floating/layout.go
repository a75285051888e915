// Package floating is the freeform placement engine. Windows keep the pixel
// position they were given; new windows without one are cascaded around the
// center of the output.
package floating

import (
	"fmt"
	"log/slog"

	"github.com/1broseidon/tilewm/internal/clock"
	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/layout"
	"github.com/1broseidon/tilewm/internal/output"
	"github.com/1broseidon/tilewm/internal/render"
	"github.com/1broseidon/tilewm/internal/window"
)

const cascadeSlots = 8

// Settings configures placement of windows that arrive without geometry.
type Settings struct {
	DefaultSize geom.Size
	CascadeStep int
}

// Layout is the floating layer of one workspace, or the sticky layer of an
// output.
type Layout struct {
	out      *output.Output
	settings Settings
	logger   *slog.Logger

	// windows is in stacking order, bottom first.
	windows    []*window.Mapped
	geometries map[*window.Mapped]geom.Rect
	maximized  map[*window.Mapped]struct{}
	anims      *layout.Animations
	cascade    int
}

// New creates an empty floating layer on out.
func New(out *output.Output, settings Settings, clk clock.Clock, logger *slog.Logger) *Layout {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.DefaultSize.IsEmpty() {
		settings.DefaultSize = geom.Size{W: 800, H: 600}
	}
	return &Layout{
		out:        out,
		settings:   settings,
		logger:     logger,
		geometries: make(map[*window.Mapped]geom.Rect),
		maximized:  make(map[*window.Mapped]struct{}),
		anims:      layout.NewAnimations(clk),
	}
}

// Output returns the output the layer places windows on.
func (l *Layout) Output() *output.Output { return l.out }

// SetOutput moves the layer to another output. Windows keep their
// output-local positions.
func (l *Layout) SetOutput(out *output.Output) {
	l.out = out
	l.recalculate()
}

// Mapped lists the windows bottom to top.
func (l *Layout) Mapped() []*window.Mapped {
	return append([]*window.Mapped(nil), l.windows...)
}

// Contains reports whether w floats here.
func (l *Layout) Contains(w *window.Mapped) bool {
	return l.index(w) >= 0
}

// Map places w at the output-local position pos, or picks one.
func (l *Layout) Map(w *window.Mapped, pos *geom.Point) {
	l.MapInternal(w, pos, nil)
}

// MapInternal places w with an optional output-local position and size.
// Missing values come from the window's last floating geometry, then its
// current size, then the defaults. Mapping a window that is already here
// moves it and raises it.
func (l *Layout) MapInternal(w *window.Mapped, pos *geom.Point, size *geom.Size) {
	full := l.out.Geometry().Local()
	last, hasLast := w.LastFloatingGeometry()
	if hasLast {
		last = l.toLocal(last)
		if _, ok := last.Intersect(full); !ok {
			hasLast = false
		}
	}

	var sz geom.Size
	switch {
	case size != nil && !size.IsEmpty():
		sz = *size
	case hasLast && !last.Size().IsEmpty():
		sz = last.Size()
	case !w.Geometry().Size().IsEmpty():
		sz = w.Geometry().Size()
	case !w.BBox().Size().IsEmpty():
		sz = w.BBox().Size()
	default:
		sz = l.settings.DefaultSize
	}

	var loc geom.Point
	switch {
	case pos != nil:
		loc = *pos
	case hasLast:
		loc = last.Loc()
	default:
		loc = l.nextCascade(full, sz)
	}

	delete(l.maximized, w)
	w.SetMaximized(false)
	if idx := l.index(w); idx >= 0 {
		l.windows = append(l.windows[:idx], l.windows[idx+1:]...)
	}
	l.windows = append(l.windows, w)
	l.place(w, geom.FromLocSize(loc, sz), false)
}

// Unmap removes w and remembers its geometry for the next time it floats.
func (l *Layout) Unmap(w *window.Mapped) bool {
	idx := l.index(w)
	if idx < 0 {
		return false
	}
	if !l.IsMaximized(w) {
		w.SetLastFloatingGeometry(l.toGlobal(l.geometries[w]))
	}
	l.remove(idx)
	return true
}

// UnmapMinimize removes w and returns its output-local position.
func (l *Layout) UnmapMinimize(w *window.Mapped, to geom.Rect) (geom.Point, bool) {
	geo, ok := l.geometries[w]
	if !ok {
		return geom.Point{}, false
	}
	l.Unmap(w)
	l.logger.Debug("floating: minimized", "window", w.String(), "position", geo.Loc(), "to", to)
	return geo.Loc(), true
}

// RemapMinimized maps w at the output-local position pos, animating it from
// the global rectangle from.
func (l *Layout) RemapMinimized(w *window.Mapped, from geom.Rect, pos geom.Point) {
	l.Map(w, &pos)
	l.anims.Start(w, l.toLocal(from), l.geometries[w])
}

// Maximize covers the output with w, mapping it first if needed. previous is
// its global geometry before, used as the animation origin.
func (l *Layout) Maximize(w *window.Mapped, previous geom.Rect, animate bool) {
	if !l.Contains(w) {
		l.windows = append(l.windows, w)
	} else {
		l.Raise(w)
	}
	l.maximized[w] = struct{}{}
	w.SetMaximized(true)
	full := l.out.Geometry().Local()
	l.place(w, full, false)
	if animate {
		l.anims.Start(w, l.toLocal(previous), full)
	}
}

// Unmaximize moves w back to the global geometry original and returns its
// size.
func (l *Layout) Unmaximize(w *window.Mapped, original geom.Rect) (geom.Size, bool) {
	if _, ok := l.maximized[w]; !ok {
		return geom.Size{}, false
	}
	delete(l.maximized, w)
	w.SetMaximized(false)
	l.place(w, l.toLocal(original), true)
	return original.Size(), true
}

// IsMaximized reports whether w is maximized in this layer.
func (l *Layout) IsMaximized(w *window.Mapped) bool {
	_, ok := l.maximized[w]
	return ok
}

// Raise moves w to the top of the stacking order.
func (l *Layout) Raise(w *window.Mapped) bool {
	idx := l.index(w)
	if idx < 0 {
		return false
	}
	l.windows = append(l.windows[:idx], l.windows[idx+1:]...)
	l.windows = append(l.windows, w)
	return true
}

// ElementGeometry returns w's output-local geometry.
func (l *Layout) ElementGeometry(w *window.Mapped) (geom.Rect, bool) {
	g, ok := l.geometries[w]
	return g, ok
}

// ElementUnder returns the topmost window at the output-local point p.
func (l *Layout) ElementUnder(p geom.Point) (*window.Mapped, bool) {
	for i := len(l.windows) - 1; i >= 0; i-- {
		w := l.windows[i]
		if l.geometries[w].Contains(p) {
			return w, true
		}
	}
	return nil, false
}

// Resize moves the given edges of w by amount pixels. Maximized windows are
// not resized.
func (l *Layout) Resize(w *window.Mapped, edge layout.ResizeEdge, dir layout.ResizeDirection, amount int) bool {
	geo, ok := l.geometries[w]
	if !ok || l.IsMaximized(w) || amount == 0 {
		return false
	}
	if dir == layout.ResizeInwards {
		amount = -amount
	}
	next := geo
	if edge.Has(layout.EdgeLeft) {
		next.X -= amount
		next.Width += amount
	}
	if edge.Has(layout.EdgeRight) {
		next.Width += amount
	}
	if edge.Has(layout.EdgeTop) {
		next.Y -= amount
		next.Height += amount
	}
	if edge.Has(layout.EdgeBottom) {
		next.Height += amount
	}
	if next.Width < 1 || next.Height < 1 || next == geo {
		return false
	}
	l.place(w, next, false)
	return true
}

// Recalculate re-pushes every window's geometry.
func (l *Layout) Recalculate() {
	l.recalculate()
}

// Refresh drops windows whose surfaces are gone.
func (l *Layout) Refresh() {
	for i := len(l.windows) - 1; i >= 0; i-- {
		if !l.windows[i].Alive() {
			l.remove(i)
		}
	}
}

// AnimationsGoing reports whether any window is moving.
func (l *Layout) AnimationsGoing() bool {
	return l.anims.Going()
}

// UpdateAnimationState drops finished animations.
func (l *Layout) UpdateAnimationState() {
	l.anims.Prune()
}

// Render emits the floating windows, topmost first. Windows whose surface is
// fullscreen are drawn by the fullscreen element instead.
func (l *Layout) Render(p render.Params) ([]render.Element, error) {
	if l.out == nil || !l.out.Enabled() {
		return nil, fmt.Errorf("floating render: %w", render.ErrOutputNotMapped)
	}
	elems := make([]render.Element, 0, len(l.windows))
	for i := len(l.windows) - 1; i >= 0; i-- {
		w := l.windows[i]
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

// RenderPopups emits the popups of floating windows, topmost first.
func (l *Layout) RenderPopups(p render.Params) ([]render.Element, error) {
	if l.out == nil || !l.out.Enabled() {
		return nil, fmt.Errorf("floating render popups: %w", render.ErrOutputNotMapped)
	}
	var elems []render.Element
	for i := len(l.windows) - 1; i >= 0; i-- {
		w := l.windows[i]
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

func (l *Layout) index(w *window.Mapped) int {
	for i, cand := range l.windows {
		if cand == w {
			return i
		}
	}
	return -1
}

func (l *Layout) remove(idx int) {
	w := l.windows[idx]
	l.windows = append(l.windows[:idx], l.windows[idx+1:]...)
	delete(l.geometries, w)
	delete(l.maximized, w)
	l.anims.Remove(w)
}

func (l *Layout) nextCascade(full geom.Rect, size geom.Size) geom.Point {
	loc := full.Center(size).Loc()
	off := (l.cascade % cascadeSlots) * l.settings.CascadeStep
	l.cascade++
	return geom.Point{X: max(loc.X+off, 0), Y: max(loc.Y+off, 0)}
}

func (l *Layout) toLocal(r geom.Rect) geom.Rect {
	return r.Translate(geom.Point{}.Sub(l.out.Geometry().Loc()))
}

func (l *Layout) toGlobal(r geom.Rect) geom.Rect {
	return r.Translate(l.out.Geometry().Loc())
}

// place records the output-local geometry of w and pushes the global one to
// the client unless the surface is fullscreen.
func (l *Layout) place(w *window.Mapped, local geom.Rect, animate bool) {
	prev, had := l.geometries[w]
	l.geometries[w] = local
	if animate && had {
		l.anims.Start(w, l.anims.Geometry(w, prev), local)
	}
	if w.IsFullscreen() {
		return
	}
	global := l.toGlobal(local)
	if w.Geometry() != global {
		w.SetGeometry(global)
		w.Configure()
	}
}

func (l *Layout) recalculate() {
	if l.out == nil {
		return
	}
	full := l.out.Geometry().Local()
	for _, w := range l.windows {
		if l.IsMaximized(w) {
			l.place(w, full, false)
			continue
		}
		l.place(w, l.geometries[w], false)
	}
}
