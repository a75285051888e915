// Package layout holds what the tiling and floating engines share: resize
// parameters and the move/resize animation bookkeeping.
package layout

import (
	"time"

	"github.com/1broseidon/tilewm/internal/anim"
	"github.com/1broseidon/tilewm/internal/clock"
	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/window"
)

// ResizeDirection tells whether a resize grows or shrinks the window.
type ResizeDirection int

const (
	ResizeOutwards ResizeDirection = iota
	ResizeInwards
)

// ResizeEdge is a set of window edges.
type ResizeEdge uint8

const (
	EdgeTop ResizeEdge = 1 << iota
	EdgeBottom
	EdgeLeft
	EdgeRight
)

// Has reports whether e includes all of o.
func (e ResizeEdge) Has(o ResizeEdge) bool { return e&o == o }

// ParseEdge maps "top", "bottom", "left", "right" onto an edge.
func ParseEdge(s string) (ResizeEdge, bool) {
	switch s {
	case "top":
		return EdgeTop, true
	case "bottom":
		return EdgeBottom, true
	case "left":
		return EdgeLeft, true
	case "right":
		return EdgeRight, true
	default:
		return 0, false
	}
}

type move struct {
	from  geom.Rect
	start time.Time
}

// Animations tracks windows moving from one geometry to another. Nothing is
// interpolated ahead of time; Geometry evaluates the curve for the current
// instant.
type Animations struct {
	clock clock.Clock
	moves map[*window.Mapped]move
}

func NewAnimations(clk clock.Clock) *Animations {
	return &Animations{clock: clk, moves: make(map[*window.Mapped]move)}
}

// Start animates w from the rectangle from. Starting on a window that is
// already moving restarts from where it is drawn right now.
func (a *Animations) Start(w *window.Mapped, from, to geom.Rect) {
	if from == to {
		return
	}
	if _, ok := a.moves[w]; ok {
		from = a.Geometry(w, to)
	}
	a.moves[w] = move{from: from, start: a.clock.Now()}
}

// Geometry is where w should be drawn now, given its final geometry target.
func (a *Animations) Geometry(w *window.Mapped, target geom.Rect) geom.Rect {
	m, ok := a.moves[w]
	if !ok {
		return target
	}
	frac, done := anim.Progress(m.start, a.clock.Now(), anim.WindowDuration)
	if done {
		return target
	}
	return anim.EaseRect(m.from, target, anim.EaseInOutCubic(frac))
}

// Going reports whether any window is still moving.
func (a *Animations) Going() bool {
	now := a.clock.Now()
	for _, m := range a.moves {
		if _, done := anim.Progress(m.start, now, anim.WindowDuration); !done {
			return true
		}
	}
	return false
}

// Prune forgets finished animations.
func (a *Animations) Prune() {
	now := a.clock.Now()
	for w, m := range a.moves {
		if _, done := anim.Progress(m.start, now, anim.WindowDuration); done {
			delete(a.moves, w)
		}
	}
}

// Remove cancels the animation of w.
func (a *Animations) Remove(w *window.Mapped) {
	delete(a.moves, w)
}
