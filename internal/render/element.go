// Package render defines the elements a workspace hands to the compositing
// backend each frame.
//
// Element is a closed tagged union: Kind selects exactly one payload and every
// query switches on it.
package render

import (
	"errors"
	"fmt"
	"math"

	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/window"
)

// ErrOutputNotMapped is returned when rendering for an output that is not
// currently mapped.
var ErrOutputNotMapped = errors.New("output not mapped")

// Kind selects the payload of an Element.
type Kind int

const (
	KindOverrideRedirect Kind = iota
	KindFullscreen
	KindFullscreenPopup
	KindWindow
	KindBackdrop
)

func (k Kind) String() string {
	switch k {
	case KindOverrideRedirect:
		return "override-redirect"
	case KindFullscreen:
		return "fullscreen"
	case KindFullscreenPopup:
		return "fullscreen-popup"
	case KindWindow:
		return "window"
	case KindBackdrop:
		return "backdrop"
	default:
		return "unknown"
	}
}

// ID identifies an element across frames for damage tracking.
type ID string

// SurfaceID builds the element id of a toplevel or popup surface.
func SurfaceID(id window.SurfaceID) ID {
	return ID(fmt.Sprintf("surface:%d", id))
}

// Transform is the buffer transform applied when compositing.
type Transform int

const (
	TransformNormal Transform = iota
	TransformFlipped
)

func (t Transform) String() string {
	if t == TransformFlipped {
		return "flipped"
	}
	return "normal"
}

// SurfaceElement draws a client surface at a physical location.
type SurfaceElement struct {
	ID     ID
	Loc    geom.Point // physical
	Size   geom.Size  // logical
	Alpha  float64
	Commit uint64
	Blur   window.BlurKind
}

func (s SurfaceElement) geometry(scale float64) geom.Rect {
	size := geom.Rect{Width: s.Size.W, Height: s.Size.H}.ToPhysical(scale)
	return geom.Rect{X: s.Loc.X, Y: s.Loc.Y, Width: size.Width, Height: size.Height}
}

// RescaleElement draws Inner scaled around Origin.
type RescaleElement struct {
	Inner  SurfaceElement
	Origin geom.Point // physical
	Scale  geom.Scale
}

func (r RescaleElement) geometry(scale float64) geom.Rect {
	g := r.Inner.geometry(scale)
	return geom.Rect{
		X:      r.Origin.X + int(math.Round(float64(g.X-r.Origin.X)*r.Scale.X)),
		Y:      r.Origin.Y + int(math.Round(float64(g.Y-r.Origin.Y)*r.Scale.Y)),
		Width:  int(math.Round(float64(g.Width) * r.Scale.X)),
		Height: int(math.Round(float64(g.Height) * r.Scale.Y)),
	}
}

// WindowElement draws a mapped window of a layout layer.
type WindowElement struct {
	ID        ID
	Window    window.SurfaceID
	Geometry  geom.Rect // logical, output-local
	Alpha     float64
	Commit    uint64
	Focused   bool
	Maximized bool
	Popup     bool
	Blur      window.BlurKind
}

// BackdropElement is a solid quad behind the workspace.
type BackdropElement struct {
	ID       ID
	Geometry geom.Rect // logical, output-local
	Alpha    float64
	Color    [3]float32
}

// Element is one entry of a frame. Use the constructors; exactly one payload
// is set and it matches Kind.
type Element struct {
	Kind     Kind
	Surface  *SurfaceElement
	Rescale  *RescaleElement
	Window   *WindowElement
	Backdrop *BackdropElement
}

func OverrideRedirect(s SurfaceElement) Element {
	return Element{Kind: KindOverrideRedirect, Surface: &s}
}

func Fullscreen(r RescaleElement) Element {
	return Element{Kind: KindFullscreen, Rescale: &r}
}

func FullscreenPopup(r RescaleElement) Element {
	return Element{Kind: KindFullscreenPopup, Rescale: &r}
}

func Window(w WindowElement) Element {
	return Element{Kind: KindWindow, Window: &w}
}

func Backdrop(b BackdropElement) Element {
	return Element{Kind: KindBackdrop, Backdrop: &b}
}

// ID returns the element id.
func (e Element) ID() ID {
	switch e.Kind {
	case KindOverrideRedirect:
		return e.Surface.ID
	case KindFullscreen, KindFullscreenPopup:
		return e.Rescale.Inner.ID
	case KindWindow:
		return e.Window.ID
	case KindBackdrop:
		return e.Backdrop.ID
	}
	panic(fmt.Sprintf("render: invalid element kind %d", e.Kind))
}

// Geometry is the element's area in physical pixels at the given output scale.
func (e Element) Geometry(scale float64) geom.Rect {
	switch e.Kind {
	case KindOverrideRedirect:
		return e.Surface.geometry(scale)
	case KindFullscreen, KindFullscreenPopup:
		return e.Rescale.geometry(scale)
	case KindWindow:
		return e.Window.Geometry.ToPhysical(scale)
	case KindBackdrop:
		return e.Backdrop.Geometry.ToPhysical(scale)
	}
	panic(fmt.Sprintf("render: invalid element kind %d", e.Kind))
}

// Alpha is the element opacity in [0,1].
func (e Element) Alpha() float64 {
	switch e.Kind {
	case KindOverrideRedirect:
		return e.Surface.Alpha
	case KindFullscreen, KindFullscreenPopup:
		return e.Rescale.Inner.Alpha
	case KindWindow:
		return e.Window.Alpha
	case KindBackdrop:
		return e.Backdrop.Alpha
	}
	panic(fmt.Sprintf("render: invalid element kind %d", e.Kind))
}

// CurrentCommit is the commit counter of the content shown by the element.
func (e Element) CurrentCommit() uint64 {
	switch e.Kind {
	case KindOverrideRedirect:
		return e.Surface.Commit
	case KindFullscreen, KindFullscreenPopup:
		return e.Rescale.Inner.Commit
	case KindWindow:
		return e.Window.Commit
	case KindBackdrop:
		return 0
	}
	panic(fmt.Sprintf("render: invalid element kind %d", e.Kind))
}

// DamageSince returns the regions that changed since the given commit. A nil
// commit means the caller has never drawn the element.
func (e Element) DamageSince(scale float64, commit *uint64) []geom.Rect {
	if commit != nil && *commit == e.CurrentCommit() {
		return nil
	}
	return []geom.Rect{e.Geometry(scale)}
}

// Transform is the buffer transform to apply.
func (e Element) Transform() Transform {
	return TransformNormal
}

// BlurPolicy decides how a partially blurred surface is composed.
type BlurPolicy string

const (
	// BlurIgnorePartial composes partially blurred surfaces without blur.
	BlurIgnorePartial BlurPolicy = "ignore"
	// BlurWholePartial blurs the whole surface behind a partial region.
	BlurWholePartial BlurPolicy = "whole"
)

// ResolveBlur maps a surface's requested blur onto what the backend draws.
// Region-masked blur is not composed.
func ResolveBlur(state window.BlurState, policy BlurPolicy) window.BlurKind {
	switch state.Kind {
	case window.Blurred:
		return window.Blurred
	case window.PartiallyBlurred:
		if policy == BlurWholePartial {
			return window.Blurred
		}
		return window.Unblurred
	default:
		return window.Unblurred
	}
}

// Params carries what a layout layer needs to render its windows.
type Params struct {
	Focused *window.Mapped
	Alpha   float64
	Blur    BlurPolicy
}
