package anim

import (
	"math"
	"testing"
	"time"

	"github.com/1broseidon/tilewm/internal/geom"
)

func TestEaseInOutCubicEndpointsAndSymmetry(t *testing.T) {
	if EaseInOutCubic(0) != 0 || EaseInOutCubic(1) != 1 {
		t.Fatalf("endpoints: %v %v", EaseInOutCubic(0), EaseInOutCubic(1))
	}
	if got := EaseInOutCubic(0.5); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("midpoint = %v, want 0.5", got)
	}
	for _, x := range []float64{0.1, 0.25, 0.4} {
		a := EaseInOutCubic(x)
		b := EaseInOutCubic(1 - x)
		if math.Abs(a+b-1) > 1e-9 {
			t.Fatalf("ease(%v)+ease(%v) = %v, want 1", x, 1-x, a+b)
		}
	}
	if EaseInOutCubic(-3) != 0 || EaseInOutCubic(7) != 1 {
		t.Fatalf("input should be clamped")
	}
}

func TestProgress(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	frac, done := Progress(start, start.Add(50*time.Millisecond), FullscreenDuration)
	if done || math.Abs(frac-0.25) > 1e-9 {
		t.Fatalf("Progress = %v,%v, want 0.25,false", frac, done)
	}
	frac, done = Progress(start, start.Add(FullscreenDuration), FullscreenDuration)
	if !done || frac != 1 {
		t.Fatalf("Progress at end = %v,%v, want 1,true", frac, done)
	}
	frac, _ = Progress(start, start.Add(-time.Second), FullscreenDuration)
	if frac != 0 {
		t.Fatalf("Progress before start = %v, want 0", frac)
	}
}

func TestReverseBeforeHalfwayStaysWithinDuration(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, ran := range []time.Duration{0, 30 * time.Millisecond, 50 * time.Millisecond, 100 * time.Millisecond} {
		now := start.Add(ran)
		next := Reverse(&start, now, FullscreenDuration)
		end := next.Add(FullscreenDuration)
		total := end.Sub(start)
		if total > FullscreenDuration {
			t.Fatalf("interrupt after %v: combined duration %v exceeds %v", ran, total, FullscreenDuration)
		}
	}

	now := start.Add(time.Second)
	if got := Reverse(&start, now, FullscreenDuration); !got.Equal(now) {
		t.Fatalf("Reverse after a finished phase = %v, want now", got)
	}
	if got := Reverse(nil, now, FullscreenDuration); !got.Equal(now) {
		t.Fatalf("Reverse(nil) = %v, want now", got)
	}
}

func TestReverseMirrorsProgress(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, ran := range []time.Duration{0, 20 * time.Millisecond, 50 * time.Millisecond, 120 * time.Millisecond} {
		now := start.Add(ran)
		entered, _ := Progress(start, now, FullscreenDuration)
		next := Reverse(&start, now, FullscreenDuration)
		exited, _ := Progress(next, now, FullscreenDuration)
		if diff := entered + exited - 1; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("interrupt after %v: enter progress %v and exit progress %v should sum to 1", ran, entered, exited)
		}
		if got := next.Add(FullscreenDuration).Sub(now); got != ran {
			t.Fatalf("interrupt after %v: exit lasts %v, want %v", ran, got, ran)
		}
	}
}

func TestPastHalfway(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if PastHalfway(start, start.Add(100*time.Millisecond), FullscreenDuration) {
		t.Fatalf("exactly half should not count as past halfway")
	}
	if !PastHalfway(start, start.Add(101*time.Millisecond), FullscreenDuration) {
		t.Fatalf("101ms of 200ms should be past halfway")
	}
}

func TestEaseRect(t *testing.T) {
	from := geom.Rect{X: 0, Y: 0, Width: 100, Height: 100}
	to := geom.Rect{X: 100, Y: 50, Width: 300, Height: 200}
	if got := EaseRect(from, to, 0); got != from {
		t.Fatalf("EaseRect(0) = %+v", got)
	}
	if got := EaseRect(from, to, 1); got != to {
		t.Fatalf("EaseRect(1) = %+v", got)
	}
	if got := EaseRect(from, to, 0.5); got != (geom.Rect{X: 50, Y: 25, Width: 200, Height: 150}) {
		t.Fatalf("EaseRect(0.5) = %+v", got)
	}
}
