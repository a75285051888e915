package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/tilewm/internal/window"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload            CommandType = "RELOAD"
	CommandGetStatus         CommandType = "GET_STATUS"
	CommandGetOutputs        CommandType = "GET_OUTPUTS"
	CommandListWorkspaces    CommandType = "LIST_WORKSPACES"
	CommandMapWindow         CommandType = "MAP_WINDOW"
	CommandUnmapWindow       CommandType = "UNMAP_WINDOW"
	CommandMinimize          CommandType = "MINIMIZE"
	CommandUnminimize        CommandType = "UNMINIMIZE"
	CommandFullscreen        CommandType = "FULLSCREEN"
	CommandUnfullscreen      CommandType = "UNFULLSCREEN"
	CommandMaximize          CommandType = "MAXIMIZE"
	CommandUnmaximize        CommandType = "UNMAXIMIZE"
	CommandToggleFloating    CommandType = "TOGGLE_FLOATING"
	CommandSetSticky         CommandType = "SET_STICKY"
	CommandFocus             CommandType = "FOCUS"
	CommandSetTiling         CommandType = "SET_TILING"
	CommandSetOverview       CommandType = "SET_OVERVIEW"
	CommandAddWorkspace      CommandType = "ADD_WORKSPACE"
	CommandActivateWorkspace CommandType = "ACTIVATE_WORKSPACE"
	CommandMoveWorkspace     CommandType = "MOVE_WORKSPACE"
	CommandPinWorkspace      CommandType = "PIN_WORKSPACE"
	CommandIssueToken        CommandType = "ISSUE_TOKEN"
	CommandRender            CommandType = "RENDER"
	CommandPinned            CommandType = "PINNED"
	CommandEvents            CommandType = "EVENTS"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// DaemonData is returned by GET_STATUS next to the shell snapshot.
type DaemonData struct {
	UptimeSeconds int64  `json:"uptime_seconds"`
	Frames        uint64 `json:"frames"`
	Backend       string `json:"backend"`
}

// WindowPayload addresses one window.
type WindowPayload struct {
	ID window.SurfaceID `json:"id"`
}

// StickyPayload is the payload of SET_STICKY.
type StickyPayload struct {
	ID     window.SurfaceID `json:"id"`
	Sticky bool             `json:"sticky"`
}

// WorkspacePayload addresses a workspace. An empty Workspace means the
// active workspace of Output; an empty Output means the first output.
type WorkspacePayload struct {
	Workspace string `json:"workspace,omitempty"`
	Output    string `json:"output,omitempty"`
	Enable    bool   `json:"enable,omitempty"`
}

// OutputPayload addresses an output.
type OutputPayload struct {
	Output string `json:"output,omitempty"`
	Enable bool   `json:"enable,omitempty"`
}

// WorkspaceData is returned by commands that create or resolve a workspace.
type WorkspaceData struct {
	Workspace string `json:"workspace"`
}

// TokenData is returned by ISSUE_TOKEN.
type TokenData struct {
	Token string `json:"token"`
}

// PinnedData carries the pinned workspace records as hex-encoded CBOR.
type PinnedData struct {
	Count   int    `json:"count"`
	Encoded string `json:"encoded"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data any) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
