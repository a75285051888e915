package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/tilewm/internal/protocol"
	"github.com/1broseidon/tilewm/internal/runtimepath"
	"github.com/1broseidon/tilewm/internal/shell"
	"github.com/1broseidon/tilewm/internal/window"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the default socket.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for the socket at path.
func NewClientAt(path string) *Client {
	return &Client{
		socketPath: path,
		timeout:    5 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

// call sends cmd with an optional payload and decodes the response data
// into out when out is not nil.
func (c *Client) call(cmd CommandType, payload any, out any) error {
	req := &Request{Command: cmd}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = raw
	}
	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", cmd, err)
	}
	return nil
}

// Reload asks the daemon to re-read its configuration.
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil)
}

// GetStatus retrieves daemon and shell status.
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetOutputs retrieves the outputs the shell knows.
func (c *Client) GetOutputs() ([]shell.OutputInfo, error) {
	var outs []shell.OutputInfo
	err := c.call(CommandGetOutputs, nil, &outs)
	return outs, err
}

// ListWorkspaces retrieves every workspace.
func (c *Client) ListWorkspaces() ([]shell.WorkspaceInfo, error) {
	var wss []shell.WorkspaceInfo
	err := c.call(CommandListWorkspaces, nil, &wss)
	return wss, err
}

// MapWindow maps a new window and returns the workspace it landed on.
func (c *Client) MapWindow(spec shell.WindowSpec) (string, error) {
	var data WorkspaceData
	err := c.call(CommandMapWindow, spec, &data)
	return data.Workspace, err
}

// WindowCommand runs one of the single-window commands (MINIMIZE,
// FULLSCREEN, FOCUS, ...).
func (c *Client) WindowCommand(cmd CommandType, id window.SurfaceID) error {
	return c.call(cmd, WindowPayload{ID: id}, nil)
}

// SetSticky pins a window to every workspace of its output, or unpins it.
func (c *Client) SetSticky(id window.SurfaceID, sticky bool) error {
	return c.call(CommandSetSticky, StickyPayload{ID: id, Sticky: sticky}, nil)
}

// SetTiling toggles tiling on a workspace. An empty workspace means the
// active workspace of output.
func (c *Client) SetTiling(workspace, output string, enable bool) error {
	return c.call(CommandSetTiling, WorkspacePayload{Workspace: workspace, Output: output, Enable: enable}, nil)
}

// SetOverview enters or leaves overview on output.
func (c *Client) SetOverview(output string, enable bool) error {
	return c.call(CommandSetOverview, OutputPayload{Output: output, Enable: enable}, nil)
}

// AddWorkspace creates a workspace on output.
func (c *Client) AddWorkspace(output string) (string, error) {
	var data WorkspaceData
	err := c.call(CommandAddWorkspace, OutputPayload{Output: output}, &data)
	return data.Workspace, err
}

// WorkspaceCommand runs ACTIVATE_WORKSPACE, MOVE_WORKSPACE or PIN_WORKSPACE.
func (c *Client) WorkspaceCommand(cmd CommandType, p WorkspacePayload) error {
	return c.call(cmd, p, nil)
}

// IssueToken returns an activation token for a workspace.
func (c *Client) IssueToken(workspace, output string) (string, error) {
	var data TokenData
	err := c.call(CommandIssueToken, WorkspacePayload{Workspace: workspace, Output: output}, &data)
	return data.Token, err
}

// Render composes output without advancing animations.
func (c *Client) Render(output string) (*shell.OutputFrame, error) {
	var frame shell.OutputFrame
	if err := c.call(CommandRender, OutputPayload{Output: output}, &frame); err != nil {
		return nil, err
	}
	return &frame, nil
}

// Pinned returns the pinned workspace records as hex-encoded CBOR.
func (c *Client) Pinned() (*PinnedData, error) {
	var data PinnedData
	if err := c.call(CommandPinned, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Events drains the protocol events recorded since the last call.
func (c *Client) Events() ([]protocol.Event, error) {
	var events []protocol.Event
	err := c.call(CommandEvents, nil, &events)
	return events, err
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
