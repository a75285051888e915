package shell

import (
	"errors"
	"testing"
	"time"

	"github.com/1broseidon/tilewm/internal/clock"
	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/output"
	"github.com/1broseidon/tilewm/internal/protocol"
	"github.com/1broseidon/tilewm/internal/render"
	"github.com/1broseidon/tilewm/internal/window"
)

var panel = &output.EDID{Manufacturer: "GSM", Product: 0x5b7f, Serial: 42}

func newTestShell(t *testing.T) (*Shell, *clock.FakeClock) {
	t.Helper()
	clk := clock.Fake(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC))
	return New(Options{Config: config.DefaultConfig(), Clock: clk}), clk
}

func addOutput(t *testing.T, sh *Shell, name string, edid *output.EDID, x int) *output.Output {
	t.Helper()
	out := output.New(name, edid, geom.Rect{X: x, Width: 1920, Height: 1080}, 1)
	if err := sh.AddOutput(out); err != nil {
		t.Fatalf("add output %s: %v", name, err)
	}
	return out
}

func workspaceInfoFor(t *testing.T, sh *Shell, handle protocol.WorkspaceHandle) WorkspaceInfo {
	t.Helper()
	for _, ws := range sh.Status().Workspaces {
		if ws.Handle == handle.String() {
			return ws
		}
	}
	t.Fatalf("workspace %s not in status", handle)
	return WorkspaceInfo{}
}

func TestAddOutputCreatesWorkspace(t *testing.T) {
	sh, _ := newTestShell(t)
	addOutput(t, sh, "DP-1", panel, 0)

	st := sh.Status()
	if len(st.Outputs) != 1 || len(st.Workspaces) != 1 {
		t.Fatalf("status = %+v", st)
	}
	if !st.Workspaces[0].Active || !st.Workspaces[0].TilingEnabled {
		t.Fatalf("first workspace should be active and tiling")
	}
	if err := sh.AddOutput(output.New("DP-1", nil, geom.Rect{Width: 10, Height: 10}, 1)); err == nil {
		t.Fatalf("duplicate output should be rejected")
	}
}

func TestUnknownIDsAreSentinelErrors(t *testing.T) {
	sh, _ := newTestShell(t)
	addOutput(t, sh, "DP-1", panel, 0)

	if err := sh.Minimize(99); !errors.Is(err, ErrUnknownWindow) {
		t.Fatalf("minimize err = %v", err)
	}
	if err := sh.RemoveOutput("HDMI-A-9"); !errors.Is(err, ErrUnknownOutput) {
		t.Fatalf("remove output err = %v", err)
	}
	if err := sh.SetTiling(protocol.NewWorkspaceHandle(), false); !errors.Is(err, ErrUnknownWorkspace) {
		t.Fatalf("set tiling err = %v", err)
	}
	if _, err := sh.MapWindow(WindowSpec{ID: 1, Size: geom.Size{W: 10, H: 10}}); err != nil {
		t.Fatalf("map: %v", err)
	}
	if _, err := sh.MapWindow(WindowSpec{ID: 1}); !errors.Is(err, ErrWindowExists) {
		t.Fatalf("duplicate map err = %v", err)
	}
}

func TestStickyMinimizeRoundTrip(t *testing.T) {
	sh, _ := newTestShell(t)
	addOutput(t, sh, "DP-1", panel, 0)
	pos := geom.Point{X: 100, Y: 120}
	if _, err := sh.MapWindow(WindowSpec{ID: 1, Client: 1, Size: geom.Size{W: 200, H: 100}, Position: &pos}); err != nil {
		t.Fatalf("map: %v", err)
	}
	if err := sh.SetSticky(1, true); err != nil {
		t.Fatalf("sticky: %v", err)
	}
	st := sh.Status()
	if len(st.Outputs[0].Sticky) != 1 || len(st.Workspaces[0].Windows) != 0 {
		t.Fatalf("window should live in the sticky layer: %+v", st)
	}

	if err := sh.Minimize(1); err != nil {
		t.Fatalf("minimize: %v", err)
	}
	st = sh.Status()
	if len(st.Outputs[0].Sticky) != 0 {
		t.Fatalf("minimized window left in sticky layer")
	}
	ws := st.Workspaces[0]
	if len(ws.Windows) != 1 || !ws.Windows[0].Minimized || ws.Windows[0].Layer != "sticky" {
		t.Fatalf("workspace windows = %+v", ws.Windows)
	}

	if err := sh.Unminimize(1); err != nil {
		t.Fatalf("unminimize: %v", err)
	}
	st = sh.Status()
	if len(st.Outputs[0].Sticky) != 1 {
		t.Fatalf("window should be back in the sticky layer")
	}
	if got := st.Outputs[0].Sticky[0].Geometry.Loc(); got != pos {
		t.Fatalf("sticky position = %+v, want %+v", got, pos)
	}
}

func TestFullscreenMinimizedStickyWindow(t *testing.T) {
	sh, _ := newTestShell(t)
	addOutput(t, sh, "DP-1", panel, 0)
	pos := geom.Point{X: 40, Y: 60}
	if _, err := sh.MapWindow(WindowSpec{ID: 7, Client: 1, Size: geom.Size{W: 300, H: 200}, Position: &pos}); err != nil {
		t.Fatalf("map: %v", err)
	}
	if err := sh.SetSticky(7, true); err != nil {
		t.Fatalf("sticky: %v", err)
	}
	if err := sh.Minimize(7); err != nil {
		t.Fatalf("minimize: %v", err)
	}
	other, err := sh.AddWorkspace("DP-1")
	if err != nil {
		t.Fatalf("add workspace: %v", err)
	}
	sh.ActivateWorkspace(other)

	if err := sh.Fullscreen(7); err != nil {
		t.Fatalf("fullscreen: %v", err)
	}
	st := sh.Status()
	if len(st.Outputs[0].Sticky) != 0 {
		t.Fatalf("fullscreen window should not stay in the sticky layer")
	}
	ws := workspaceInfoFor(t, sh, other)
	if len(ws.Windows) != 1 || ws.Windows[0].ID != 7 || !ws.Windows[0].Fullscreen || ws.Windows[0].Minimized {
		t.Fatalf("active workspace windows = %+v", ws.Windows)
	}
	for _, info := range st.Workspaces {
		if info.Handle == other.String() {
			continue
		}
		if len(info.Windows) != 0 {
			t.Fatalf("minimized entry left behind on %s: %+v", info.Handle, info.Windows)
		}
	}

	if err := sh.Unfullscreen(7); err != nil {
		t.Fatalf("unfullscreen: %v", err)
	}
	if st := sh.Status(); len(st.Outputs[0].Sticky) != 1 {
		t.Fatalf("window should return to the sticky layer")
	}
}

func TestStickyWindowShownOnEveryWorkspace(t *testing.T) {
	sh, _ := newTestShell(t)
	addOutput(t, sh, "DP-1", panel, 0)
	sh.MapWindow(WindowSpec{ID: 1, Size: geom.Size{W: 200, H: 100}, Floating: true})
	sh.SetSticky(1, true)

	other, err := sh.AddWorkspace("DP-1")
	if err != nil {
		t.Fatalf("add workspace: %v", err)
	}
	sh.ActivateWorkspace(other)
	frame, err := sh.Render("DP-1")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(frame.Elements) != 1 || frame.Elements[0].Window.Window != 1 {
		t.Fatalf("sticky window missing from the other workspace: %+v", frame.Elements)
	}
}

func TestHotplugReturnsWorkspaceToItsOutput(t *testing.T) {
	sh, _ := newTestShell(t)
	addOutput(t, sh, "DP-1", panel, 0)
	addOutput(t, sh, "HDMI-A-1", nil, 1920)
	if _, err := sh.MapWindow(WindowSpec{ID: 1, Size: geom.Size{W: 100, H: 100}, Output: "DP-1"}); err != nil {
		t.Fatalf("map: %v", err)
	}
	handle, _ := sh.WorkspaceOf(1)

	if err := sh.RemoveOutput("DP-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := workspaceInfoFor(t, sh, handle).Output; got != "HDMI-A-1" {
		t.Fatalf("workspace moved to %q", got)
	}

	addOutput(t, sh, "DP-1", panel, 0)
	if got := workspaceInfoFor(t, sh, handle).Output; got != "DP-1" {
		t.Fatalf("workspace should return to DP-1, on %q", got)
	}
	hdmi := 0
	for _, ws := range sh.Status().Workspaces {
		if ws.Output == "HDMI-A-1" {
			hdmi++
		}
	}
	if hdmi != 1 {
		t.Fatalf("HDMI-A-1 should keep exactly its own workspace, has %d", hdmi)
	}

	var enters int
	for _, e := range sh.Events() {
		if e.Kind == protocol.EventEnterOutput && e.Surface == 1 {
			enters++
		}
	}
	if enters != 3 {
		t.Fatalf("output enter events = %d, want 3", enters)
	}
}

func TestRemovingLastOutputKeepsWorkspaces(t *testing.T) {
	sh, _ := newTestShell(t)
	addOutput(t, sh, "DP-1", panel, 0)
	sh.MapWindow(WindowSpec{ID: 1, Size: geom.Size{W: 100, H: 100}})

	sh.RemoveOutput("DP-1")
	if st := sh.Status(); st.OrphanedSpaces != 1 || len(st.Outputs) != 0 {
		t.Fatalf("status = %+v", st)
	}
	addOutput(t, sh, "eDP-1", nil, 0)
	st := sh.Status()
	if st.OrphanedSpaces != 0 || len(st.Workspaces) != 1 || st.Workspaces[0].Output != "eDP-1" {
		t.Fatalf("status = %+v", st)
	}
	if len(st.Workspaces[0].Windows) != 1 {
		t.Fatalf("window lost across the disconnect")
	}
}

func TestActivationTokens(t *testing.T) {
	sh, clk := newTestShell(t)
	addOutput(t, sh, "DP-1", panel, 0)
	target, _ := sh.AddWorkspace("DP-1")
	token, err := sh.Activate(target)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}

	sh.Refresh()
	if _, err := sh.DescribeWorkspace(target); err != nil {
		t.Fatalf("workspace with a pending token was removed: %v", err)
	}

	sh.MapWindow(WindowSpec{ID: 1, Size: geom.Size{W: 100, H: 100}, Token: token})
	if got, _ := sh.WorkspaceOf(1); got != target {
		t.Fatalf("window should map onto the token's workspace")
	}

	idle, _ := sh.AddWorkspace("DP-1")
	sh.Activate(idle)
	clk.Advance(config.DefaultActivationTokenTTL + time.Second)
	sh.Refresh()
	if _, err := sh.DescribeWorkspace(idle); !errors.Is(err, ErrUnknownWorkspace) {
		t.Fatalf("expired token should let the empty workspace go, err = %v", err)
	}
	if _, err := sh.DescribeWorkspace(target); err != nil {
		t.Fatalf("non-empty workspace must stay: %v", err)
	}
}

func TestFrameReportsReleasedClients(t *testing.T) {
	sh, clk := newTestShell(t)
	addOutput(t, sh, "DP-1", panel, 0)
	sh.MapWindow(WindowSpec{ID: 1, Client: 7, Size: geom.Size{W: 100, H: 100}})
	if err := sh.Fullscreen(1); err != nil {
		t.Fatalf("fullscreen: %v", err)
	}

	frame, err := sh.Frame()
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if len(frame.Released) != 0 || !frame.Animating {
		t.Fatalf("first frame = %+v", frame)
	}
	if k := frame.Outputs[0].Elements[0].Kind; k != render.KindFullscreen {
		t.Fatalf("first element kind = %v", k)
	}

	clk.Advance(101 * time.Millisecond)
	frame, _ = sh.Frame()
	if len(frame.Released) != 1 || frame.Released[0] != 7 {
		t.Fatalf("released = %v", frame.Released)
	}
}

func TestOverrideRedirectDrawnFirst(t *testing.T) {
	sh, _ := newTestShell(t)
	addOutput(t, sh, "DP-1", panel, 0)
	sh.MapWindow(WindowSpec{ID: 1, Size: geom.Size{W: 100, H: 100}})
	menu := window.NewSurface(90, 0, geom.Size{W: 50, H: 80})
	if err := sh.AddOverrideRedirect("DP-1", menu); err != nil {
		t.Fatalf("add override redirect: %v", err)
	}

	frame, _ := sh.Render("DP-1")
	if len(frame.Elements) != 2 || frame.Elements[0].Kind != render.KindOverrideRedirect {
		t.Fatalf("elements = %+v", frame.Elements)
	}
}

func TestOverviewSettles(t *testing.T) {
	sh, clk := newTestShell(t)
	addOutput(t, sh, "DP-1", panel, 0)
	sh.SetOverview("DP-1", true)
	sh.Frame()
	if got := sh.Status().Outputs[0].Overview; got != "started" {
		t.Fatalf("overview = %s", got)
	}
	clk.Advance(150 * time.Millisecond)
	frame, _ := sh.Frame()
	if got := sh.Status().Outputs[0].Overview; got != "active" {
		t.Fatalf("overview = %s", got)
	}
	elems := frame.Outputs[0].Elements
	if elems[len(elems)-1].Kind != render.KindBackdrop {
		t.Fatalf("backdrop should be last")
	}
}

func TestPinnedRecordsWaitForOutput(t *testing.T) {
	sh, _ := newTestShell(t)
	addOutput(t, sh, "DP-1", panel, 0)
	record := protocol.PinnedWorkspace{Output: output.Match{Name: "DP-9"}, TilingEnabled: false}
	sh.RestorePinned([]protocol.PinnedWorkspace{record})

	if st := sh.Status(); st.PendingPinned != 1 {
		t.Fatalf("record should wait for DP-9")
	}
	if got := sh.PinnedRecords(); len(got) != 1 || got[0].Output.Name != "DP-9" {
		t.Fatalf("pinned records = %+v", got)
	}

	addOutput(t, sh, "DP-9", nil, 1920)
	st := sh.Status()
	if st.PendingPinned != 0 {
		t.Fatalf("record should be restored")
	}
	found := false
	for _, ws := range st.Workspaces {
		if ws.Output == "DP-9" && ws.Pinned && !ws.TilingEnabled {
			found = true
		}
	}
	if !found {
		t.Fatalf("pinned workspace missing: %+v", st.Workspaces)
	}
}

func TestSetBlur(t *testing.T) {
	sh, _ := newTestShell(t)
	addOutput(t, sh, "DP-1", panel, 0)
	w, _ := sh.MapWindow(WindowSpec{ID: 1, Size: geom.Size{W: 100, H: 100}})
	if err := sh.SetBlur(1, window.BlurState{Kind: window.Blurred}); err != nil {
		t.Fatalf("set blur: %v", err)
	}
	if w.Active().Blur().Kind != window.Blurred {
		t.Fatalf("blur not stored")
	}
	if err := sh.SetBlur(2, window.BlurState{}); !errors.Is(err, ErrUnknownWindow) {
		t.Fatalf("err = %v", err)
	}
}
