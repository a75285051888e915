package workspace

import (
	"time"

	"github.com/1broseidon/tilewm/internal/anim"
	"github.com/1broseidon/tilewm/internal/blocker"
	"github.com/1broseidon/tilewm/internal/focus"
	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/window"
)

// FullscreenSurface is the fullscreen overlay of a workspace. At most one of
// startAt and endedAt is set; neither means the overlay is settled.
type FullscreenSurface struct {
	Surface    *window.Surface
	Previously *Previous

	originalGeometry geom.Rect
	startAt          *time.Time
	endedAt          *time.Time
	signal           *blocker.Release
}

// Equal compares fullscreen states by their surface.
func (f *FullscreenSurface) Equal(o *FullscreenSurface) bool {
	if f == nil || o == nil {
		return f == o
	}
	return f.Surface == o.Surface
}

// IsAnimating reports whether the overlay is entering or exiting.
func (f *FullscreenSurface) IsAnimating() bool {
	return f.startAt != nil || f.endedAt != nil
}

// Entering reports whether the enter animation is running.
func (f *FullscreenSurface) Entering() bool { return f.startAt != nil }

// Exiting reports whether the exit animation is running.
func (f *FullscreenSurface) Exiting() bool { return f.endedAt != nil }

func (f *FullscreenSurface) Alive() bool { return f.Surface.Alive() }

// OriginalGeometry is the global geometry the window had before fullscreen.
func (f *FullscreenSurface) OriginalGeometry() geom.Rect { return f.originalGeometry }

// Signal is the release signal of the pending commit blocker, if any.
func (f *FullscreenSurface) Signal() *blocker.Release { return f.signal }

// Release force-releases the pending blocker. Callers dropping a fullscreen
// state they took out of a workspace use it so the client is not stalled.
func (f *FullscreenSurface) Release() {
	f.releaseSignal()
}

func (f *FullscreenSurface) releaseSignal() bool {
	if f.signal == nil {
		return false
	}
	fired := f.signal.Release()
	f.signal = nil
	return fired
}

// beginExit switches the overlay into its exit phase. An unfinished enter
// phase is mirrored: the exit picks up at the same eased position and lasts
// as long as the enter had run.
func (f *FullscreenSurface) beginExit(now time.Time) {
	ended := anim.Reverse(f.startAt, now, anim.FullscreenDuration)
	f.startAt = nil
	f.endedAt = &ended
}

// Fullscreen returns the current overlay, which may be exiting.
func (ws *Workspace) Fullscreen() *FullscreenSurface {
	return ws.fullscreen
}

// GetFullscreen returns the fullscreen surface if it is alive and not exiting.
func (ws *Workspace) GetFullscreen() (*window.Surface, bool) {
	f := ws.fullscreen
	if f == nil || !f.Alive() || f.endedAt != nil {
		return nil, false
	}
	return f.Surface, true
}

// IsFullscreen reports whether w is the live fullscreen target or carries a
// suspended fullscreen in the minimized store.
func (ws *Workspace) IsFullscreen(w *window.Mapped) bool {
	if f := ws.fullscreen; f != nil && f.endedAt == nil && f.Surface == w.Active() {
		return true
	}
	if e := ws.minimizedEntry(w); e != nil {
		return e.Fullscreen != nil
	}
	return false
}

// FullscreenRequest makes s cover the output. It does nothing while another
// fullscreen is active and not exiting. A minimized s is restored first; from
// is the global rectangle it grows out of. Minimized sticky windows belong to
// the shell and are left alone.
func (ws *Workspace) FullscreenRequest(s *window.Surface, previously *Previous, from geom.Rect, seat focus.Seat) {
	if f := ws.fullscreen; f != nil && f.endedAt == nil {
		return
	}

	if idx := ws.minimizedIndexForSurface(s); idx >= 0 {
		if ws.minimized[idx].State.Kind == MinimizedSticky {
			ws.logger.Warn("fullscreen request for a minimized sticky window ignored", "surface", s.String())
			return
		}
		entry := ws.takeMinimized(idx)
		ws.unminimizeEntry(entry, from, seat)
	}

	s.SetFullscreen(true)
	geo := ws.out.Geometry()
	original := s.Geometry()
	signal := ws.installBlocker(s)
	s.SetGeometry(geo)
	s.SendConfigure()

	now := ws.now()
	ws.replaceFullscreen(&FullscreenSurface{
		Surface:          s,
		Previously:       previously,
		originalGeometry: original,
		startAt:          &now,
		signal:           signal,
	})
	ws.logger.Debug("fullscreen enter", "surface", s.String(), "original", original)
}

// UnfullscreenRequest takes s out of fullscreen and returns where it should
// go back to. The second result is false when s was not fullscreen here.
func (ws *Workspace) UnfullscreenRequest(s *window.Surface) (*Previous, bool) {
	for _, e := range ws.minimized {
		if e.Fullscreen != nil && e.Fullscreen.Surface == s {
			return e.unfullscreen(), true
		}
	}

	f := ws.fullscreen
	if f == nil || f.Surface != s || f.endedAt != nil {
		return nil, false
	}

	s.SetFullscreen(false)
	s.SetGeometry(f.originalGeometry)

	ws.floating.Refresh()
	ws.tiling.Recalculate()
	ws.tiling.Refresh()

	signal := ws.installBlocker(s)
	s.SendConfigure()

	f.beginExit(ws.now())
	if signal != nil {
		// A client may only be blocked by one transition at a time.
		old := f.signal
		f.signal = signal
		old.Release()
	}
	ws.logger.Debug("fullscreen exit", "surface", s.String(), "ended_at", *f.endedAt)
	return f.Previously, true
}

// RemoveFullscreen takes the current fullscreen window out of fullscreen and
// returns it with its return target.
func (ws *Workspace) RemoveFullscreen() (Displaced, bool) {
	f := ws.fullscreen
	if f == nil {
		return Displaced{}, false
	}
	s := f.Surface
	previously, ok := ws.UnfullscreenRequest(s)
	if !ok {
		return Displaced{}, false
	}
	w, found := ws.ElementForSurface(s)
	if !found {
		return Displaced{}, false
	}
	return Displaced{Window: w, Previously: previously}, true
}

// UpdateAnimations advances the fullscreen phases and the layer animations.
// It returns the clients whose commit blockers were released so the caller
// can flush them.
func (ws *Workspace) UpdateAnimations() []window.ClientID {
	var clients []window.ClientID
	release := func(f *FullscreenSurface) {
		if f.releaseSignal() && f.Surface.HasClient() {
			clients = append(clients, f.Surface.Client())
		}
	}

	if f := ws.fullscreen; f != nil {
		now := ws.now()
		if f.startAt != nil {
			elapsed := now.Sub(*f.startAt)
			if elapsed > anim.FullscreenDuration {
				f.startAt = nil
				ws.dirty.Store(true)
			}
			if elapsed*2 > anim.FullscreenDuration {
				release(f)
			}
		}
		if f.endedAt != nil {
			elapsed := now.Sub(*f.endedAt)
			if elapsed*2 > anim.FullscreenDuration {
				release(f)
			}
			if elapsed >= anim.FullscreenDuration {
				ws.fullscreen = nil
				ws.dirty.Store(true)
			}
		}
	}

	ws.tiling.UpdateAnimationState()
	ws.floating.UpdateAnimationState()
	return clients
}

// installBlocker holds back the next commit of s until the returned signal is
// released. Surfaces without a client get no blocker.
func (ws *Workspace) installBlocker(s *window.Surface) *blocker.Release {
	if !s.HasClient() {
		return nil
	}
	b, signal := blocker.New()
	s.AddBlocker(b)
	return signal
}

// replaceFullscreen installs f. A state still exiting is dropped and its
// blocker released.
func (ws *Workspace) replaceFullscreen(f *FullscreenSurface) {
	if old := ws.fullscreen; old != nil && old != f {
		old.releaseSignal()
	}
	ws.fullscreen = f
}

// fullscreenGeometry is where the settled fullscreen surface is drawn:
// the output, with smaller content centered.
func (ws *Workspace) fullscreenGeometry() geom.Rect {
	full := ws.out.Geometry().Local()
	if ws.fullscreen == nil {
		return full
	}
	return centerContent(full, ws.fullscreen.Surface.BBox())
}

func centerContent(full, bbox geom.Rect) geom.Rect {
	if bbox == full {
		return full
	}
	if bbox.Width < full.Width {
		full.X += (full.Width - bbox.Width) / 2
		full.Width = bbox.Width
	}
	if bbox.Height < full.Height {
		full.Y += (full.Height - bbox.Height) / 2
		full.Height = bbox.Height
	}
	return full
}
