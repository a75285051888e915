package protocol

import (
	"encoding/json"
	"testing"

	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/output"
	"github.com/1broseidon/tilewm/internal/window"
)

func TestWorkspaceHandleText(t *testing.T) {
	h := NewWorkspaceHandle()
	if h.IsZero() {
		t.Fatalf("new handle should not be zero")
	}
	data, err := json.Marshal(map[string]WorkspaceHandle{"ws": h})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]WorkspaceHandle
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["ws"] != h {
		t.Fatalf("handle changed: %s != %s", back["ws"], h)
	}
	if _, err := ParseWorkspaceHandle("not-a-uuid"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestRecorderKeepsOrder(t *testing.T) {
	r := NewRecorder()
	s := window.NewSurface(7, 1, geom.Size{W: 1, H: 1})
	out := output.New("DP-1", nil, geom.Rect{Width: 10, Height: 10}, 1)
	h := NewWorkspaceHandle()

	r.EnterOutput(s, out)
	r.SetTilingState(h, TilingStateOf(false))
	r.LeaveOutput(s, out)

	events := r.Drain()
	if len(events) != 3 {
		t.Fatalf("events = %v", events)
	}
	if events[0].Kind != EventEnterOutput || events[0].Surface != 7 || events[0].Output != "DP-1" {
		t.Fatalf("first event = %+v", events[0])
	}
	if events[1].State != "floating" || events[1].Workspace != h.String() {
		t.Fatalf("second event = %+v", events[1])
	}
	if len(r.Events()) != 0 {
		t.Fatalf("Drain should clear the log")
	}
}
