package mcp

import (
	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/window"
)

// GetStatusInput is the input for the get_status tool.
type GetStatusInput struct{}

// OutputSummary describes one output.
type OutputSummary struct {
	Name        string    `json:"name"`
	EDID        string    `json:"edid,omitempty"`
	Geometry    geom.Rect `json:"geometry"`
	Scale       float64   `json:"scale"`
	Enabled     bool      `json:"enabled"`
	Overview    string    `json:"overview"`
	StickyCount int       `json:"sticky_count"`
}

// GetStatusOutput is the output for the get_status tool.
type GetStatusOutput struct {
	Backend        string          `json:"backend"`
	UptimeSeconds  int64           `json:"uptime_seconds"`
	Frames         uint64          `json:"frames"`
	Outputs        []OutputSummary `json:"outputs"`
	Workspaces     int             `json:"workspaces"`
	Windows        int             `json:"windows"`
	PendingPinned  int             `json:"pending_pinned"`
	OrphanedSpaces int             `json:"orphaned_workspaces"`
}

// ListWorkspacesInput is the input for the list_workspaces tool.
type ListWorkspacesInput struct {
	Output string `json:"output,omitempty" jsonschema:"Only list workspaces currently on this output"`
}

// WindowSummary describes a managed window.
type WindowSummary struct {
	ID         window.SurfaceID `json:"id"`
	Title      string           `json:"title,omitempty"`
	AppID      string           `json:"app_id,omitempty"`
	Layer      string           `json:"layer"`
	Geometry   geom.Rect        `json:"geometry"`
	Minimized  bool             `json:"minimized,omitempty"`
	Maximized  bool             `json:"maximized,omitempty"`
	Fullscreen bool             `json:"fullscreen,omitempty"`
}

// WorkspaceSummary describes a workspace.
type WorkspaceSummary struct {
	Handle        string          `json:"handle"`
	Output        string          `json:"output"`
	Active        bool            `json:"active"`
	TilingEnabled bool            `json:"tiling_enabled"`
	Pinned        bool            `json:"pinned,omitempty"`
	Windows       []WindowSummary `json:"windows"`
}

// ListWorkspacesOutput is the output for the list_workspaces tool.
type ListWorkspacesOutput struct {
	Workspaces []WorkspaceSummary `json:"workspaces"`
}

// MapWindowInput is the input for the map_window tool.
type MapWindowInput struct {
	ID       uint32 `json:"id" jsonschema:"required,Surface id of the new window; must be unused"`
	Title    string `json:"title,omitempty" jsonschema:"Window title"`
	AppID    string `json:"app_id,omitempty" jsonschema:"Application id"`
	Width    int    `json:"width" jsonschema:"required,Initial width in logical pixels"`
	Height   int    `json:"height" jsonschema:"required,Initial height in logical pixels"`
	Output   string `json:"output,omitempty" jsonschema:"Output whose active workspace receives the window (default: first output)"`
	Floating bool   `json:"floating,omitempty" jsonschema:"Map into the floating layer even when tiling is enabled"`
	X        *int   `json:"x,omitempty" jsonschema:"Output-local x position for floating windows"`
	Y        *int   `json:"y,omitempty" jsonschema:"Output-local y position for floating windows"`
	Token    string `json:"token,omitempty" jsonschema:"Activation token from issue_token; routes the window to the workspace it was issued for"`
}

// MapWindowOutput is the output for the map_window tool.
type MapWindowOutput struct {
	ID        window.SurfaceID `json:"id"`
	Workspace string           `json:"workspace"`
}

// WindowActionInput is the input for the window_action tool.
type WindowActionInput struct {
	ID     uint32 `json:"id" jsonschema:"required,Surface id of the window"`
	Action string `json:"action" jsonschema:"required,One of: unmap, minimize, unminimize, fullscreen, unfullscreen, maximize, unmaximize, toggle_floating, focus, stick, unstick"`
}

// WindowActionOutput is the output for the window_action tool.
type WindowActionOutput struct {
	ID     window.SurfaceID `json:"id"`
	Action string           `json:"action"`
	Window *WindowSummary   `json:"window,omitempty"`
}

// SetTilingInput is the input for the set_tiling tool.
type SetTilingInput struct {
	Workspace string `json:"workspace,omitempty" jsonschema:"Workspace handle (default: active workspace of output)"`
	Output    string `json:"output,omitempty" jsonschema:"Output name used when workspace is empty (default: first output)"`
	Enable    bool   `json:"enable" jsonschema:"required,Whether tiling should be enabled"`
}

// SetTilingOutput is the output for the set_tiling tool.
type SetTilingOutput struct {
	Workspace     string `json:"workspace"`
	TilingEnabled bool   `json:"tiling_enabled"`
}

// WorkspaceActionInput is the input for the workspace_action tool.
type WorkspaceActionInput struct {
	Action    string `json:"action" jsonschema:"required,One of: add, activate, move, pin, unpin, overview_on, overview_off, issue_token"`
	Workspace string `json:"workspace,omitempty" jsonschema:"Workspace handle for activate, move, pin, unpin and issue_token"`
	Output    string `json:"output,omitempty" jsonschema:"Target output for add, move and overview"`
}

// WorkspaceActionOutput is the output for the workspace_action tool.
type WorkspaceActionOutput struct {
	Action    string `json:"action"`
	Workspace string `json:"workspace,omitempty"`
	Token     string `json:"token,omitempty"`
}

// RenderOutputInput is the input for the render_output tool.
type RenderOutputInput struct {
	Output string `json:"output,omitempty" jsonschema:"Output to compose (default: first output)"`
}

// ElementSummary describes one element of a composed frame.
type ElementSummary struct {
	Kind     string    `json:"kind"`
	ID       string    `json:"id"`
	Geometry geom.Rect `json:"geometry" jsonschema:"Area in physical pixels"`
	Alpha    float64   `json:"alpha"`
}

// RenderOutputOutput is the output for the render_output tool.
type RenderOutputOutput struct {
	Output    string           `json:"output"`
	Workspace string           `json:"workspace"`
	Elements  []ElementSummary `json:"elements"`
	Popups    []ElementSummary `json:"popups,omitempty"`
}

// GetPinnedInput is the input for the get_pinned tool.
type GetPinnedInput struct{}

// PinnedSummary is one decoded pinned workspace record.
type PinnedSummary struct {
	Output        string `json:"output"`
	EDID          string `json:"edid,omitempty"`
	TilingEnabled bool   `json:"tiling_enabled"`
}

// GetPinnedOutput is the output for the get_pinned tool.
type GetPinnedOutput struct {
	Count   int             `json:"count"`
	Encoded string          `json:"encoded" jsonschema:"Hex-encoded CBOR as persisted by the daemon"`
	Records []PinnedSummary `json:"records"`
}
