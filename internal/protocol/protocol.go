// Package protocol is the boundary between the window-management core and the
// client-facing protocol state: workspace handles, tiling state updates,
// toplevel output notifications and the persisted pinned-workspace record.
package protocol

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/1broseidon/tilewm/internal/output"
	"github.com/1broseidon/tilewm/internal/window"
)

// WorkspaceHandle is the opaque, stable handle clients use for a workspace.
type WorkspaceHandle uuid.UUID

// NewWorkspaceHandle allocates a random handle.
func NewWorkspaceHandle() WorkspaceHandle {
	return WorkspaceHandle(uuid.New())
}

// ParseWorkspaceHandle parses the textual form of a handle.
func ParseWorkspaceHandle(s string) (WorkspaceHandle, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return WorkspaceHandle{}, fmt.Errorf("failed to parse workspace handle %q: %w", s, err)
	}
	return WorkspaceHandle(id), nil
}

func (h WorkspaceHandle) String() string { return uuid.UUID(h).String() }

func (h WorkspaceHandle) IsZero() bool { return h == WorkspaceHandle{} }

func (h WorkspaceHandle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *WorkspaceHandle) UnmarshalText(b []byte) error {
	parsed, err := ParseWorkspaceHandle(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// TilingState is what clients see of a workspace's tiling flag.
type TilingState int

const (
	TilingEnabled TilingState = iota
	FloatingOnly
)

func (s TilingState) String() string {
	if s == TilingEnabled {
		return "tiling"
	}
	return "floating"
}

// TilingStateOf maps the tiling flag onto the protocol state.
func TilingStateOf(enabled bool) TilingState {
	if enabled {
		return TilingEnabled
	}
	return FloatingOnly
}

// UpdateGuard batches workspace state updates sent to clients.
type UpdateGuard interface {
	SetTilingState(ws WorkspaceHandle, state TilingState)
}

// ToplevelNotifier tells clients which outputs a toplevel is shown on.
type ToplevelNotifier interface {
	EnterOutput(s *window.Surface, out *output.Output)
	LeaveOutput(s *window.Surface, out *output.Output)
}

// PinnedWorkspace is the persisted shape of a pinned workspace.
type PinnedWorkspace struct {
	Output        output.Match `yaml:"output" json:"output" cbor:"output"`
	TilingEnabled bool         `yaml:"tiling_enabled" json:"tiling_enabled" cbor:"tiling_enabled"`
}

// EventKind names a recorded protocol event.
type EventKind string

const (
	EventTilingState EventKind = "tiling_state"
	EventEnterOutput EventKind = "output_enter"
	EventLeaveOutput EventKind = "output_leave"
)

// Event is one notification sent to clients.
type Event struct {
	Kind      EventKind        `json:"kind"`
	Workspace string           `json:"workspace,omitempty"`
	Surface   window.SurfaceID `json:"surface,omitempty"`
	Output    string           `json:"output,omitempty"`
	State     string           `json:"state,omitempty"`
}

func (e Event) String() string {
	switch e.Kind {
	case EventTilingState:
		return fmt.Sprintf("%s %s %s", e.Kind, e.Workspace, e.State)
	default:
		return fmt.Sprintf("%s surface=%d output=%s", e.Kind, e.Surface, e.Output)
	}
}

// Recorder implements UpdateGuard and ToplevelNotifier by keeping an ordered
// log of everything that would have been sent. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) SetTilingState(ws WorkspaceHandle, state TilingState) {
	r.record(Event{Kind: EventTilingState, Workspace: ws.String(), State: state.String()})
}

func (r *Recorder) EnterOutput(s *window.Surface, out *output.Output) {
	r.record(Event{Kind: EventEnterOutput, Surface: s.ID(), Output: out.Name()})
}

func (r *Recorder) LeaveOutput(s *window.Surface, out *output.Output) {
	r.record(Event{Kind: EventLeaveOutput, Surface: s.ID(), Output: out.Name()})
}

// Events returns a copy of the log.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Drain returns the log and clears it.
func (r *Recorder) Drain() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := r.events
	r.events = nil
	return events
}

func (r *Recorder) record(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}
