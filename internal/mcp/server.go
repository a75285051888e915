// Package mcp exposes the running daemon to MCP clients as a set of tools.
package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/tilewm/internal/ipc"
	"github.com/1broseidon/tilewm/internal/protocol"
	"github.com/1broseidon/tilewm/internal/shell"
	"github.com/1broseidon/tilewm/internal/window"
)

const (
	ServerName    = "tilewm"
	ServerVersion = "0.1.0"
)

// Daemon is the subset of the IPC client the tools need.
type Daemon interface {
	GetStatus() (*ipc.StatusData, error)
	ListWorkspaces() ([]shell.WorkspaceInfo, error)
	MapWindow(spec shell.WindowSpec) (string, error)
	WindowCommand(cmd ipc.CommandType, id window.SurfaceID) error
	SetSticky(id window.SurfaceID, sticky bool) error
	SetTiling(workspace, output string, enable bool) error
	SetOverview(output string, enable bool) error
	AddWorkspace(output string) (string, error)
	WorkspaceCommand(cmd ipc.CommandType, p ipc.WorkspacePayload) error
	IssueToken(workspace, output string) (string, error)
	Render(output string) (*shell.OutputFrame, error)
	Pinned() (*ipc.PinnedData, error)
	Events() ([]protocol.Event, error)
}

var _ Daemon = (*ipc.Client)(nil)

// Server is the MCP server for window management.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	logger    *slog.Logger
}

// NewServer creates an MCP server that forwards tool calls to daemon.
func NewServer(daemon Daemon, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{daemon: daemon, logger: logger}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report the daemon backend, frame count, connected outputs and window totals.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_workspaces",
		Description: "List every workspace with its output, tiling state and windows. Orphaned workspaces report an empty output.",
	}, s.handleListWorkspaces)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "map_window",
		Description: "Map a new window. It lands on the active workspace of the chosen output, or on the workspace of the activation token when one is given. Returns the workspace handle.",
	}, s.handleMapWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "window_action",
		Description: "Apply an action to a mapped window: unmap, minimize, unminimize, fullscreen, unfullscreen, maximize, unmaximize, toggle_floating, focus, stick or unstick.",
	}, s.handleWindowAction)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_tiling",
		Description: "Enable or disable tiling on a workspace. Disabling moves tiled windows to the floating layer; enabling tiles floating ones.",
	}, s.handleSetTiling)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "workspace_action",
		Description: "Manage workspaces: add a workspace to an output, activate, move to another output, pin or unpin, toggle overview, or issue an activation token.",
	}, s.handleWorkspaceAction)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "render_output",
		Description: "Compose the current frame of an output without advancing animations and list its elements front to back.",
	}, s.handleRenderOutput)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_pinned",
		Description: "Return the pinned workspace records the daemon persists across restarts.",
	}, s.handleGetPinned)
}
