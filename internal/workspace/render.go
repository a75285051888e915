package workspace

import (
	"fmt"
	"time"

	"github.com/1broseidon/tilewm/internal/anim"
	"github.com/1broseidon/tilewm/internal/focus"
	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/render"
	"github.com/1broseidon/tilewm/internal/window"
)

// OverviewKind is the phase of overview mode.
type OverviewKind int

const (
	OverviewNone OverviewKind = iota
	OverviewStarted
	OverviewActive
	OverviewEnded
)

func (k OverviewKind) String() string {
	switch k {
	case OverviewStarted:
		return "started"
	case OverviewActive:
		return "active"
	case OverviewEnded:
		return "ended"
	default:
		return "none"
	}
}

// OverviewMode is the overview phase and, for started and ended, when the
// phase began.
type OverviewMode struct {
	Kind OverviewKind
	At   time.Time
}

func (m OverviewMode) fade(now time.Time) float64 {
	t, _ := anim.Progress(m.At, now, anim.OverviewFade)
	return t
}

// LayerAlpha is the opacity of layer windows: 1 outside overview, 0.6 in it,
// with a cross-fade in between.
func (m OverviewMode) LayerAlpha(now time.Time) float64 {
	switch m.Kind {
	case OverviewStarted:
		return (1-m.fade(now))*0.4 + 0.6
	case OverviewEnded:
		return m.fade(now)*0.4 + 0.6
	case OverviewActive:
		return 0.6
	default:
		return 1
	}
}

// BackdropAlpha is the strength of the overview backdrop, and false when
// overview is off.
func (m OverviewMode) BackdropAlpha(now time.Time) (float64, bool) {
	switch m.Kind {
	case OverviewStarted:
		return m.fade(now), true
	case OverviewActive:
		return 1, true
	case OverviewEnded:
		return 1 - m.fade(now), true
	default:
		return 0, false
	}
}

// RenderParams selects what a frame shows.
type RenderParams struct {
	// FocusSeat marks that seat's focused window. Nil draws no focus.
	FocusSeat *focus.Seat
	Overview  OverviewMode
}

// fullscreenFrame is the interpolated placement of the fullscreen surface.
type fullscreenFrame struct {
	loc   geom.Point // physical
	scale geom.Scale
	alpha float64
}

func (ws *Workspace) fullscreenFrame(f *FullscreenSurface, now time.Time) fullscreenFrame {
	bbox := f.Surface.BBox()

	loc := bbox.Loc()
	if w, ok := ws.ElementForSurface(f.Surface); ok {
		if g, ok := ws.ElementGeometry(w); ok {
			loc = g.Loc()
		}
	}
	elementGeo := geom.FromLocSize(loc, f.originalGeometry.Size())

	full := ws.out.Geometry().Local()
	if f.startAt == nil {
		full = centerContent(full, bbox)
	}

	target, alpha := full, 1.0
	switch {
	case f.startAt != nil:
		t, _ := anim.Progress(*f.startAt, now, anim.FullscreenDuration)
		eased := anim.EaseInOutCubic(t)
		target = anim.EaseRect(elementGeo, full, eased)
		alpha = anim.Lerp(0, 1, eased)
	case f.endedAt != nil:
		t, _ := anim.Progress(*f.endedAt, now, anim.FullscreenDuration)
		eased := anim.EaseInOutCubic(t)
		target = anim.EaseRect(full, elementGeo, eased)
		alpha = anim.Lerp(1, 0, eased)
	}

	scale := geom.Scale{X: 1, Y: 1}
	if !bbox.IsEmpty() {
		scale = geom.ScaleBetween(bbox.Size(), target.Size())
	}
	return fullscreenFrame{
		loc:   geom.Rect{X: target.X, Y: target.Y}.ToPhysical(ws.out.Scale()).Loc(),
		scale: scale,
		alpha: alpha,
	}
}

// layersVisible reports whether the layers are drawn: always, except behind
// a settled fullscreen.
func (ws *Workspace) layersVisible() bool {
	return ws.fullscreen == nil || ws.fullscreen.IsAnimating()
}

func (ws *Workspace) layerParams(p RenderParams, now time.Time) render.Params {
	var focused *window.Mapped
	if p.FocusSeat != nil && ws.fullscreen == nil {
		focused, _ = ws.focus.Get(*p.FocusSeat).Last()
	}
	return render.Params{
		Focused: focused,
		Alpha:   p.Overview.LayerAlpha(now),
		Blur:    ws.blur,
	}
}

// Render composes the workspace part of a frame, front to back: the
// fullscreen surface, floating windows, tiling windows and the overview
// backdrop.
func (ws *Workspace) Render(p RenderParams) ([]render.Element, error) {
	if !ws.out.Enabled() {
		return nil, fmt.Errorf("render %s: %w", ws, render.ErrOutputNotMapped)
	}
	now := ws.now()
	var elems []render.Element

	if f := ws.fullscreen; f != nil {
		fr := ws.fullscreenFrame(f, now)
		s := f.Surface
		elems = append(elems, render.Fullscreen(render.RescaleElement{
			Inner: render.SurfaceElement{
				ID:     render.SurfaceID(s.ID()),
				Loc:    fr.loc,
				Size:   s.BBox().Size(),
				Alpha:  fr.alpha,
				Commit: s.CommitCounter(),
				Blur:   render.ResolveBlur(s.Blur(), ws.blur),
			},
			Origin: fr.loc,
			Scale:  fr.scale,
		}))
	}

	if !ws.layersVisible() {
		return elems, nil
	}

	params := ws.layerParams(p, now)
	floatingElems, err := ws.floating.Render(params)
	if err != nil {
		return nil, err
	}
	elems = append(elems, floatingElems...)
	tilingElems, err := ws.tiling.Render(params)
	if err != nil {
		return nil, err
	}
	elems = append(elems, tilingElems...)

	if alpha, ok := p.Overview.BackdropAlpha(now); ok {
		elems = append(elems, render.Backdrop(render.BackdropElement{
			ID:       ws.backdropID,
			Geometry: ws.out.Geometry().Local(),
			Alpha:    alpha * 0.85,
			Color:    ws.backdropColor,
		}))
	}
	return elems, nil
}

// RenderPopups composes the popups of the workspace. Fullscreen popups move
// and scale with their parent.
func (ws *Workspace) RenderPopups(p RenderParams) ([]render.Element, error) {
	if !ws.out.Enabled() {
		return nil, fmt.Errorf("render popups %s: %w", ws, render.ErrOutputNotMapped)
	}
	now := ws.now()
	var elems []render.Element

	if f := ws.fullscreen; f != nil {
		fr := ws.fullscreenFrame(f, now)
		scale := ws.out.Scale()
		for _, popup := range f.Surface.Popups() {
			offset := geom.Rect{X: popup.Offset.X, Y: popup.Offset.Y}.ToPhysical(scale).Loc()
			elems = append(elems, render.FullscreenPopup(render.RescaleElement{
				Inner: render.SurfaceElement{
					ID:     render.SurfaceID(popup.ID),
					Loc:    fr.loc.Add(offset),
					Size:   popup.Size,
					Alpha:  fr.alpha,
					Commit: f.Surface.CommitCounter(),
				},
				Origin: fr.loc,
				Scale:  fr.scale,
			}))
		}
	}

	if !ws.layersVisible() {
		return elems, nil
	}

	params := ws.layerParams(p, now)
	floatingElems, err := ws.floating.RenderPopups(params)
	if err != nil {
		return nil, err
	}
	elems = append(elems, floatingElems...)
	tilingElems, err := ws.tiling.RenderPopups(params)
	if err != nil {
		return nil, err
	}
	return append(elems, tilingElems...), nil
}
