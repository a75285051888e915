package shell

import (
	"errors"
	"fmt"
	"time"

	"github.com/1broseidon/tilewm/internal/anim"
	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/render"
	"github.com/1broseidon/tilewm/internal/window"
	"github.com/1broseidon/tilewm/internal/workspace"
)

// OutputFrame is the composed frame of one output.
type OutputFrame struct {
	Output    string           `json:"output"`
	Workspace string           `json:"workspace"`
	Elements  []render.Element `json:"elements"`
	Popups    []render.Element `json:"popups,omitempty"`
}

// Frame is the result of one tick of the frame loop.
type Frame struct {
	At      time.Time     `json:"at"`
	Outputs []OutputFrame `json:"outputs"`
	// Released lists clients whose commit blockers fired during this tick.
	Released []window.ClientID `json:"released,omitempty"`
	// Animating reports whether another tick is needed soon.
	Animating bool `json:"animating"`
}

// Frame advances every animation, refreshes the shell state and renders
// every enabled output.
func (sh *Shell) Frame() (Frame, error) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := sh.clock.Now()
	frame := Frame{At: now}
	for _, o := range sh.outputs {
		for _, ws := range o.workspaces {
			frame.Released = append(frame.Released, ws.UpdateAnimations()...)
		}
		o.sticky.UpdateAnimationState()
		advanceOverview(&o.overview, now)
	}
	for _, ws := range sh.orphans {
		frame.Released = append(frame.Released, ws.UpdateAnimations()...)
	}
	sh.refreshLocked()

	for _, o := range sh.outputs {
		if !o.out.Enabled() {
			continue
		}
		of, err := sh.renderLocked(o)
		if err != nil {
			return frame, err
		}
		frame.Outputs = append(frame.Outputs, of)
		if o.sticky.AnimationsGoing() || o.overview.Kind == workspace.OverviewStarted || o.overview.Kind == workspace.OverviewEnded {
			frame.Animating = true
		}
		for _, ws := range o.workspaces {
			if ws.AnimationsGoing() {
				frame.Animating = true
			}
		}
	}
	if len(frame.Released) > 0 {
		sh.logger.Debug("commit blockers released", "clients", frame.Released)
	}
	return frame, nil
}

// advanceOverview settles finished overview transitions.
func advanceOverview(m *workspace.OverviewMode, now time.Time) {
	if m.Kind != workspace.OverviewStarted && m.Kind != workspace.OverviewEnded {
		return
	}
	if _, done := anim.Progress(m.At, now, anim.OverviewFade); !done {
		return
	}
	if m.Kind == workspace.OverviewStarted {
		*m = workspace.OverviewMode{Kind: workspace.OverviewActive}
	} else {
		*m = workspace.OverviewMode{}
	}
}

// Render composes the named output without advancing animations.
func (sh *Shell) Render(outputName string) (OutputFrame, error) {
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	state, err := sh.targetOutputLocked(outputName)
	if err != nil {
		return OutputFrame{}, err
	}
	return sh.renderLocked(state)
}

// renderLocked composes one output front to back: override-redirect
// surfaces, the fullscreen surface, the sticky layer and then the rest of
// the active workspace.
func (sh *Shell) renderLocked(o *outputState) (OutputFrame, error) {
	ws := o.activeWorkspace()
	of := OutputFrame{Output: o.out.Name(), Workspace: ws.ID()}

	scale := o.out.Scale()
	for _, s := range o.overlays {
		if !s.Alive() {
			continue
		}
		loc := s.Geometry().Loc().Sub(o.out.Geometry().Loc())
		phys := render.SurfaceElement{
			ID:     render.SurfaceID(s.ID()),
			Loc:    geom.Rect{X: loc.X, Y: loc.Y}.ToPhysical(scale).Loc(),
			Size:   s.BBox().Size(),
			Alpha:  1,
			Commit: s.CommitCounter(),
		}
		of.Elements = append(of.Elements, render.OverrideRedirect(phys))
	}

	seat := sh.seat
	params := workspace.RenderParams{FocusSeat: &seat, Overview: o.overview}
	elems, err := ws.Render(params)
	if err != nil {
		return of, fmt.Errorf("failed to render %s: %w", o.out.Name(), err)
	}
	popups, err := ws.RenderPopups(params)
	if err != nil {
		return of, fmt.Errorf("failed to render popups on %s: %w", o.out.Name(), err)
	}

	head := 0
	if len(elems) > 0 && elems[0].Kind == render.KindFullscreen {
		head = 1
	}
	of.Elements = append(of.Elements, elems[:head]...)
	if f := ws.Fullscreen(); f == nil || f.IsAnimating() {
		sticky, err := o.sticky.Render(render.Params{Alpha: params.Overview.LayerAlpha(sh.clock.Now()), Blur: render.BlurPolicy(sh.cfg.Blur.PartialRegion)})
		if err != nil && !errors.Is(err, render.ErrOutputNotMapped) {
			return of, err
		}
		of.Elements = append(of.Elements, sticky...)
		stickyPopups, _ := o.sticky.RenderPopups(render.Params{Alpha: 1})
		popups = append(popups, stickyPopups...)
	}
	of.Elements = append(of.Elements, elems[head:]...)
	of.Popups = popups
	return of, nil
}
