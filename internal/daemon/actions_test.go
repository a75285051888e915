package daemon

import (
	"testing"

	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/platform"
	"github.com/1broseidon/tilewm/internal/rules"
	"github.com/1broseidon/tilewm/internal/shell"
	"github.com/1broseidon/tilewm/internal/window"
)

func layerOf(t *testing.T, sh *shell.Shell, id window.SurfaceID) string {
	t.Helper()
	h, err := sh.WorkspaceOf(id)
	if err != nil {
		t.Fatalf("WorkspaceOf: %v", err)
	}
	info, err := sh.DescribeWorkspace(h)
	if err != nil {
		t.Fatalf("DescribeWorkspace: %v", err)
	}
	for _, w := range info.Windows {
		if w.ID == id {
			return w.Layer
		}
	}
	t.Fatalf("window %d not on its workspace", id)
	return ""
}

func TestActionsToggleWindowState(t *testing.T) {
	sh, mem, m := newMirror(t)
	mem.Open(platform.Toplevel{ID: 5, Bounds: geom.Rect{Width: 400, Height: 300}})
	if err := m.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	a := NewActions(sh)

	if err := a.Dispatch(config.KeyFullscreen, 5); err != nil {
		t.Fatalf("fullscreen: %v", err)
	}
	w, _ := sh.Window(5)
	if !w.IsFullscreen() {
		t.Fatalf("expected fullscreen")
	}
	if err := a.Dispatch(config.KeyFullscreen, 5); err != nil {
		t.Fatalf("unfullscreen: %v", err)
	}
	if w.IsFullscreen() {
		t.Fatalf("expected fullscreen to toggle off")
	}

	if err := a.Dispatch(config.KeyMinimize, 5); err != nil {
		t.Fatalf("minimize: %v", err)
	}
	if !w.IsMinimized() {
		t.Fatalf("expected minimized")
	}
	if err := a.Dispatch(config.KeyMinimize, 5); err != nil {
		t.Fatalf("unminimize: %v", err)
	}
	if w.IsMinimized() {
		t.Fatalf("expected restored")
	}
}

func TestActionsToggleFloatingAndTiling(t *testing.T) {
	sh, mem, m := newMirror(t)
	mem.Open(platform.Toplevel{ID: 8, Bounds: geom.Rect{Width: 400, Height: 300}})
	m.Sync()
	a := NewActions(sh)

	if got := layerOf(t, sh, 8); got != "tiling" {
		t.Fatalf("new window layer = %q, want tiling", got)
	}
	if err := a.Dispatch(config.KeyToggleFloating, 8); err != nil {
		t.Fatalf("toggle_floating: %v", err)
	}
	if got := layerOf(t, sh, 8); got != "floating" {
		t.Fatalf("layer after toggle = %q, want floating", got)
	}

	if err := a.Dispatch(config.KeyToggleTiling, 8); err != nil {
		t.Fatalf("toggle_tiling: %v", err)
	}
	h, _ := sh.WorkspaceOf(8)
	info, _ := sh.DescribeWorkspace(h)
	if info.TilingEnabled {
		t.Fatalf("tiling should be disabled")
	}

	if err := a.Dispatch("teleport", 8); err == nil {
		t.Fatalf("expected unknown action error")
	}
	if err := a.Dispatch(config.KeyMaximize, 99); err == nil {
		t.Fatalf("expected unknown window error")
	}
}

func TestMirrorFloatsMatchingAppIDs(t *testing.T) {
	sh, mem, m := newMirror(t)
	m.SetRules(rules.New([]string{"MPV"}))
	mem.Open(platform.Toplevel{ID: 1, AppID: "mpv", Bounds: geom.Rect{Width: 640, Height: 360}})
	mem.Open(platform.Toplevel{ID: 2, AppID: "kitty", Bounds: geom.Rect{Width: 640, Height: 360}})
	if err := m.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if got := layerOf(t, sh, 1); got != "floating" {
		t.Errorf("mpv layer = %q, want floating", got)
	}
	if got := layerOf(t, sh, 2); got != "tiling" {
		t.Errorf("kitty layer = %q, want tiling", got)
	}
}
