package daemon

import (
	"fmt"

	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/shell"
	"github.com/1broseidon/tilewm/internal/window"
)

// Actions runs keybinding actions against the shell. Toggles look at the
// window's current state.
type Actions struct {
	shell *shell.Shell
}

// NewActions creates an action runner for sh.
func NewActions(sh *shell.Shell) *Actions {
	return &Actions{shell: sh}
}

// Dispatch applies action to window id.
func (a *Actions) Dispatch(action config.KeyAction, id window.SurfaceID) error {
	w, err := a.shell.Window(id)
	if err != nil {
		return err
	}
	switch action {
	case config.KeyFullscreen:
		if w.IsFullscreen() {
			return a.shell.Unfullscreen(id)
		}
		return a.shell.Fullscreen(id)
	case config.KeyMaximize:
		if w.IsMaximized() {
			return a.shell.Unmaximize(id)
		}
		return a.shell.Maximize(id)
	case config.KeyMinimize:
		if w.IsMinimized() {
			return a.shell.Unminimize(id)
		}
		return a.shell.Minimize(id)
	case config.KeyToggleFloating:
		return a.shell.ToggleFloating(id)
	case config.KeyToggleTiling:
		h, err := a.shell.WorkspaceOf(id)
		if err != nil {
			return err
		}
		info, err := a.shell.DescribeWorkspace(h)
		if err != nil {
			return err
		}
		return a.shell.SetTiling(h, !info.TilingEnabled)
	default:
		return fmt.Errorf("unknown action %q", action)
	}
}
