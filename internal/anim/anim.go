// Package anim contains the timer-less animation helpers. Every value is a pure
// function of a phase start timestamp and the current time, recomputed each
// frame; nothing interpolated is ever stored between frames.
package anim

import (
	"math"
	"time"

	"github.com/1broseidon/tilewm/internal/geom"
)

const (
	// FullscreenDuration is the length of the fullscreen enter and exit phases.
	FullscreenDuration = 200 * time.Millisecond
	// OverviewFade is the cross-fade used when overview mode starts or ends.
	OverviewFade = 100 * time.Millisecond
	// WindowDuration is the length of layer move/resize/restore animations.
	WindowDuration = 200 * time.Millisecond
)

// EaseInOutCubic maps a linear fraction onto the cubic ease-in-out curve. The
// input is clamped to [0,1].
func EaseInOutCubic(t float64) float64 {
	t = clamp01(t)
	if t < 0.5 {
		return 4 * t * t * t
	}
	f := -2*t + 2
	return 1 - f*f*f/2
}

// Progress returns the elapsed fraction of an animation of length d started at
// start, clamped to [0,1], and whether the animation is finished.
func Progress(start, now time.Time, d time.Duration) (float64, bool) {
	if d <= 0 {
		return 1, true
	}
	elapsed := now.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	return clamp01(float64(elapsed) / float64(d)), elapsed >= d
}

// PastHalfway reports whether more than half of d has elapsed since start.
func PastHalfway(start, now time.Time, d time.Duration) bool {
	return now.Sub(start)*2 > d
}

// Reverse computes the start timestamp of a phase that interrupts a running
// phase which began at prev. The new phase starts at the point mirroring the
// interrupted one, so an eased value continues from where it was and the two
// phases together never last longer than d. With no running phase the new
// one starts at now.
func Reverse(prev *time.Time, now time.Time, d time.Duration) time.Time {
	if prev == nil {
		return now
	}
	elapsed := min(max(now.Sub(*prev), 0), d)
	return now.Add(-(d - elapsed))
}

// Lerp interpolates linearly between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// EaseRect interpolates between two rectangles with an already eased fraction.
func EaseRect(from, to geom.Rect, t float64) geom.Rect {
	return geom.Rect{
		X:      int(math.Round(Lerp(float64(from.X), float64(to.X), t))),
		Y:      int(math.Round(Lerp(float64(from.Y), float64(to.Y), t))),
		Width:  int(math.Round(Lerp(float64(from.Width), float64(to.Width), t))),
		Height: int(math.Round(Lerp(float64(from.Height), float64(to.Height), t))),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
