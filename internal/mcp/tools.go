package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/tilewm/internal/codec"
	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/ipc"
	"github.com/1broseidon/tilewm/internal/protocol"
	"github.com/1broseidon/tilewm/internal/render"
	"github.com/1broseidon/tilewm/internal/shell"
	"github.com/1broseidon/tilewm/internal/window"
)

// windowCommands maps window_action names onto single-window IPC commands.
var windowCommands = map[string]ipc.CommandType{
	"unmap":           ipc.CommandUnmapWindow,
	"minimize":        ipc.CommandMinimize,
	"unminimize":      ipc.CommandUnminimize,
	"fullscreen":      ipc.CommandFullscreen,
	"unfullscreen":    ipc.CommandUnfullscreen,
	"maximize":        ipc.CommandMaximize,
	"unmaximize":      ipc.CommandUnmaximize,
	"toggle_floating": ipc.CommandToggleFloating,
	"focus":           ipc.CommandFocus,
}

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, GetStatusOutput, error) {
	st, err := s.daemon.GetStatus()
	if err != nil {
		return nil, GetStatusOutput{}, fmt.Errorf("get status: %w", err)
	}
	out := GetStatusOutput{
		Backend:        st.Daemon.Backend,
		UptimeSeconds:  st.Daemon.UptimeSeconds,
		Frames:         st.Daemon.Frames,
		Outputs:        make([]OutputSummary, 0, len(st.Shell.Outputs)),
		Workspaces:     len(st.Shell.Workspaces),
		Windows:        st.Shell.Windows,
		PendingPinned:  st.Shell.PendingPinned,
		OrphanedSpaces: st.Shell.OrphanedSpaces,
	}
	for _, o := range st.Shell.Outputs {
		out.Outputs = append(out.Outputs, OutputSummary{
			Name:        o.Name,
			EDID:        o.EDID,
			Geometry:    o.Geometry,
			Scale:       o.Scale,
			Enabled:     o.Enabled,
			Overview:    o.Overview,
			StickyCount: len(o.Sticky),
		})
	}
	return nil, out, nil
}

func (s *Server) handleListWorkspaces(_ context.Context, _ *mcpsdk.CallToolRequest, args ListWorkspacesInput) (*mcpsdk.CallToolResult, ListWorkspacesOutput, error) {
	wss, err := s.daemon.ListWorkspaces()
	if err != nil {
		return nil, ListWorkspacesOutput{}, fmt.Errorf("list workspaces: %w", err)
	}
	out := ListWorkspacesOutput{Workspaces: []WorkspaceSummary{}}
	for _, ws := range wss {
		if args.Output != "" && ws.Output != args.Output {
			continue
		}
		out.Workspaces = append(out.Workspaces, summarizeWorkspace(ws))
	}
	return nil, out, nil
}

func (s *Server) handleMapWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args MapWindowInput) (*mcpsdk.CallToolResult, MapWindowOutput, error) {
	if args.ID == 0 {
		return nil, MapWindowOutput{}, fmt.Errorf("id is required")
	}
	if args.Width <= 0 || args.Height <= 0 {
		return nil, MapWindowOutput{}, fmt.Errorf("width and height must be positive")
	}
	if (args.X == nil) != (args.Y == nil) {
		return nil, MapWindowOutput{}, fmt.Errorf("x and y must be given together")
	}

	spec := shell.WindowSpec{
		ID:       window.SurfaceID(args.ID),
		Title:    args.Title,
		AppID:    args.AppID,
		Size:     geom.Size{W: args.Width, H: args.Height},
		Output:   args.Output,
		Floating: args.Floating,
		Token:    args.Token,
	}
	if args.X != nil {
		spec.Position = &geom.Point{X: *args.X, Y: *args.Y}
	}
	ws, err := s.daemon.MapWindow(spec)
	if err != nil {
		return nil, MapWindowOutput{}, fmt.Errorf("map window %d: %w", args.ID, err)
	}
	s.logger.Debug("mapped window over mcp", "id", args.ID, "workspace", ws)
	return nil, MapWindowOutput{ID: spec.ID, Workspace: ws}, nil
}

func (s *Server) handleWindowAction(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowActionInput) (*mcpsdk.CallToolResult, WindowActionOutput, error) {
	id := window.SurfaceID(args.ID)
	action := strings.ToLower(strings.TrimSpace(args.Action))

	var err error
	switch action {
	case "stick", "unstick":
		err = s.daemon.SetSticky(id, action == "stick")
	default:
		cmd, ok := windowCommands[action]
		if !ok {
			return nil, WindowActionOutput{}, fmt.Errorf("unknown window action %q", args.Action)
		}
		err = s.daemon.WindowCommand(cmd, id)
	}
	if err != nil {
		return nil, WindowActionOutput{}, fmt.Errorf("%s window %d: %w", action, id, err)
	}

	out := WindowActionOutput{ID: id, Action: action}
	if action != "unmap" {
		if w, err := s.findWindow(id); err == nil {
			out.Window = w
		}
	}
	return nil, out, nil
}

func (s *Server) handleSetTiling(_ context.Context, _ *mcpsdk.CallToolRequest, args SetTilingInput) (*mcpsdk.CallToolResult, SetTilingOutput, error) {
	if err := s.daemon.SetTiling(args.Workspace, args.Output, args.Enable); err != nil {
		return nil, SetTilingOutput{}, fmt.Errorf("set tiling: %w", err)
	}
	wss, err := s.daemon.ListWorkspaces()
	if err != nil {
		return nil, SetTilingOutput{}, fmt.Errorf("list workspaces: %w", err)
	}
	for _, ws := range wss {
		if args.Workspace != "" && ws.Handle != args.Workspace {
			continue
		}
		if args.Workspace == "" && (!ws.Active || (args.Output != "" && ws.Output != args.Output)) {
			continue
		}
		return nil, SetTilingOutput{Workspace: ws.Handle, TilingEnabled: ws.TilingEnabled}, nil
	}
	return nil, SetTilingOutput{Workspace: args.Workspace, TilingEnabled: args.Enable}, nil
}

func (s *Server) handleWorkspaceAction(_ context.Context, _ *mcpsdk.CallToolRequest, args WorkspaceActionInput) (*mcpsdk.CallToolResult, WorkspaceActionOutput, error) {
	action := strings.ToLower(strings.TrimSpace(args.Action))
	out := WorkspaceActionOutput{Action: action, Workspace: args.Workspace}
	p := ipc.WorkspacePayload{Workspace: args.Workspace, Output: args.Output}

	var err error
	switch action {
	case "add":
		out.Workspace, err = s.daemon.AddWorkspace(args.Output)
	case "activate":
		err = s.requireWorkspace(args, ipc.CommandActivateWorkspace, p)
	case "move":
		if args.Output == "" {
			return nil, out, fmt.Errorf("output is required to move a workspace")
		}
		err = s.requireWorkspace(args, ipc.CommandMoveWorkspace, p)
	case "pin", "unpin":
		p.Enable = action == "pin"
		err = s.requireWorkspace(args, ipc.CommandPinWorkspace, p)
	case "overview_on", "overview_off":
		err = s.daemon.SetOverview(args.Output, action == "overview_on")
	case "issue_token":
		out.Token, err = s.daemon.IssueToken(args.Workspace, args.Output)
	default:
		return nil, WorkspaceActionOutput{}, fmt.Errorf("unknown workspace action %q", args.Action)
	}
	if err != nil {
		return nil, WorkspaceActionOutput{}, fmt.Errorf("%s: %w", action, err)
	}
	return nil, out, nil
}

func (s *Server) requireWorkspace(args WorkspaceActionInput, cmd ipc.CommandType, p ipc.WorkspacePayload) error {
	if args.Workspace == "" {
		return fmt.Errorf("workspace is required")
	}
	if _, err := protocol.ParseWorkspaceHandle(args.Workspace); err != nil {
		return err
	}
	return s.daemon.WorkspaceCommand(cmd, p)
}

func (s *Server) handleRenderOutput(_ context.Context, _ *mcpsdk.CallToolRequest, args RenderOutputInput) (*mcpsdk.CallToolResult, RenderOutputOutput, error) {
	frame, err := s.daemon.Render(args.Output)
	if err != nil {
		return nil, RenderOutputOutput{}, fmt.Errorf("render: %w", err)
	}
	scale := 1.0
	if st, err := s.daemon.GetStatus(); err == nil {
		for _, o := range st.Shell.Outputs {
			if o.Name == frame.Output && o.Scale > 0 {
				scale = o.Scale
			}
		}
	}
	return nil, RenderOutputOutput{
		Output:    frame.Output,
		Workspace: frame.Workspace,
		Elements:  summarizeElements(frame.Elements, scale),
		Popups:    summarizeElements(frame.Popups, scale),
	}, nil
}

func (s *Server) handleGetPinned(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetPinnedInput) (*mcpsdk.CallToolResult, GetPinnedOutput, error) {
	data, err := s.daemon.Pinned()
	if err != nil {
		return nil, GetPinnedOutput{}, fmt.Errorf("pinned: %w", err)
	}
	var records []protocol.PinnedWorkspace
	if err := codec.DecodeHex(data.Encoded, &records); err != nil {
		return nil, GetPinnedOutput{}, fmt.Errorf("decode pinned records: %w", err)
	}
	out := GetPinnedOutput{Count: data.Count, Encoded: data.Encoded, Records: make([]PinnedSummary, 0, len(records))}
	for _, r := range records {
		ps := PinnedSummary{Output: r.Output.Name, TilingEnabled: r.TilingEnabled}
		if r.Output.EDID != nil {
			ps.EDID = r.Output.EDID.String()
		}
		out.Records = append(out.Records, ps)
	}
	return nil, out, nil
}

func (s *Server) findWindow(id window.SurfaceID) (*WindowSummary, error) {
	wss, err := s.daemon.ListWorkspaces()
	if err != nil {
		return nil, err
	}
	for _, ws := range wss {
		for _, w := range ws.Windows {
			if w.ID == id {
				sum := summarizeWindow(w)
				return &sum, nil
			}
		}
	}
	return nil, fmt.Errorf("window %d not found", id)
}

func summarizeWorkspace(ws shell.WorkspaceInfo) WorkspaceSummary {
	out := WorkspaceSummary{
		Handle:        ws.Handle,
		Output:        ws.Output,
		Active:        ws.Active,
		TilingEnabled: ws.TilingEnabled,
		Pinned:        ws.Pinned,
		Windows:       make([]WindowSummary, 0, len(ws.Windows)),
	}
	for _, w := range ws.Windows {
		out.Windows = append(out.Windows, summarizeWindow(w))
	}
	return out
}

func summarizeWindow(w shell.WindowInfo) WindowSummary {
	return WindowSummary{
		ID:         w.ID,
		Title:      w.Title,
		AppID:      w.AppID,
		Layer:      w.Layer,
		Geometry:   w.Geometry,
		Minimized:  w.Minimized,
		Maximized:  w.Maximized,
		Fullscreen: w.Fullscreen,
	}
}

func summarizeElements(elems []render.Element, scale float64) []ElementSummary {
	out := make([]ElementSummary, 0, len(elems))
	for _, e := range elems {
		out = append(out, ElementSummary{
			Kind:     e.Kind.String(),
			ID:       string(e.ID()),
			Geometry: e.Geometry(scale),
			Alpha:    e.Alpha(),
		})
	}
	return out
}
