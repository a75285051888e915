package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/tilewm/internal/codec"
	"github.com/1broseidon/tilewm/internal/protocol"
	"github.com/1broseidon/tilewm/internal/runtimepath"
	"github.com/1broseidon/tilewm/internal/shell"
	"github.com/1broseidon/tilewm/internal/window"
)

// StatusData is returned by GET_STATUS.
type StatusData struct {
	Daemon DaemonData   `json:"daemon"`
	Shell  shell.Status `json:"shell"`
}

// Focuser moves keyboard focus. The daemon passes one that also tells the
// display server.
type Focuser interface {
	Focus(id window.SurfaceID) error
}

// ServerOptions configures a Server.
type ServerOptions struct {
	// SocketPath defaults to runtimepath.SocketPath.
	SocketPath string
	Focuser    Focuser
	// Frames reports how many frames the daemon has produced.
	Frames  func() uint64
	Backend string
	// ReloadChan receives a value when a client asks for a config reload.
	ReloadChan chan<- struct{}
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	shell        *shell.Shell
	opts         ServerOptions
	startTime    time.Time
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server
func NewServer(sh *shell.Shell, opts ServerOptions) (*Server, error) {
	socketPath := opts.SocketPath
	if socketPath == "" {
		var err error
		socketPath, err = runtimepath.SocketPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
	}
	if opts.Focuser == nil {
		opts.Focuser = sh
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		shell:      sh,
		opts:       opts,
		startTime:  time.Now(),
	}, nil
}

// SocketPath is the path the server listens on.
func (s *Server) SocketPath() string { return s.socketPath }

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	go s.acceptLoop()
	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("IPC accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	var (
		data any
		err  error
	)
	switch req.Command {
	case CommandReload:
		err = s.handleReload()
	case CommandGetStatus:
		data = s.handleGetStatus()
	case CommandGetOutputs:
		data = s.shell.Status().Outputs
	case CommandListWorkspaces:
		data = s.shell.Status().Workspaces
	case CommandMapWindow:
		data, err = s.handleMapWindow(req.Payload)
	case CommandUnmapWindow, CommandMinimize, CommandUnminimize, CommandFullscreen,
		CommandUnfullscreen, CommandMaximize, CommandUnmaximize, CommandToggleFloating, CommandFocus:
		err = s.handleWindowCommand(req.Command, req.Payload)
	case CommandSetSticky:
		var p StickyPayload
		if err = decode(req.Payload, &p); err == nil {
			err = s.shell.SetSticky(p.ID, p.Sticky)
		}
	case CommandSetTiling, CommandActivateWorkspace, CommandMoveWorkspace, CommandPinWorkspace, CommandIssueToken:
		data, err = s.handleWorkspaceCommand(req.Command, req.Payload)
	case CommandAddWorkspace:
		var p OutputPayload
		if err = decode(req.Payload, &p); err == nil {
			var h protocol.WorkspaceHandle
			if h, err = s.shell.AddWorkspace(p.Output); err == nil {
				data = WorkspaceData{Workspace: h.String()}
			}
		}
	case CommandSetOverview:
		var p OutputPayload
		if err = decode(req.Payload, &p); err == nil {
			err = s.shell.SetOverview(p.Output, p.Enable)
		}
	case CommandRender:
		var p OutputPayload
		if err = decode(req.Payload, &p); err == nil {
			data, err = s.shell.Render(p.Output)
		}
	case CommandPinned:
		data, err = s.handlePinned()
	case CommandEvents:
		data = s.shell.Events()
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// handleReload forwards a reload request to the daemon (non-blocking).
func (s *Server) handleReload() error {
	log.Println("IPC: Received RELOAD command")
	if s.opts.ReloadChan == nil {
		return fmt.Errorf("reload is not supported by this daemon")
	}
	select {
	case s.opts.ReloadChan <- struct{}{}:
	default:
	}
	return nil
}

func (s *Server) handleGetStatus() StatusData {
	d := DaemonData{
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Backend:       s.opts.Backend,
	}
	if s.opts.Frames != nil {
		d.Frames = s.opts.Frames()
	}
	return StatusData{Daemon: d, Shell: s.shell.Status()}
}

func (s *Server) handleMapWindow(payload json.RawMessage) (any, error) {
	var spec shell.WindowSpec
	if err := decode(payload, &spec); err != nil {
		return nil, err
	}
	if spec.ID == 0 {
		return nil, fmt.Errorf("id is required")
	}
	if _, err := s.shell.MapWindow(spec); err != nil {
		return nil, err
	}
	h, err := s.shell.WorkspaceOf(spec.ID)
	if err != nil {
		return nil, err
	}
	return WorkspaceData{Workspace: h.String()}, nil
}

func (s *Server) handleWindowCommand(cmd CommandType, payload json.RawMessage) error {
	var p WindowPayload
	if err := decode(payload, &p); err != nil {
		return err
	}
	switch cmd {
	case CommandUnmapWindow:
		return s.shell.UnmapWindow(p.ID)
	case CommandMinimize:
		return s.shell.Minimize(p.ID)
	case CommandUnminimize:
		return s.shell.Unminimize(p.ID)
	case CommandFullscreen:
		return s.shell.Fullscreen(p.ID)
	case CommandUnfullscreen:
		return s.shell.Unfullscreen(p.ID)
	case CommandMaximize:
		return s.shell.Maximize(p.ID)
	case CommandUnmaximize:
		return s.shell.Unmaximize(p.ID)
	case CommandToggleFloating:
		return s.shell.ToggleFloating(p.ID)
	case CommandFocus:
		return s.opts.Focuser.Focus(p.ID)
	}
	return fmt.Errorf("unexpected window command %s", cmd)
}

func (s *Server) resolveWorkspace(p WorkspacePayload) (protocol.WorkspaceHandle, error) {
	if p.Workspace != "" {
		return protocol.ParseWorkspaceHandle(p.Workspace)
	}
	return s.shell.ActiveWorkspace(p.Output)
}

func (s *Server) handleWorkspaceCommand(cmd CommandType, payload json.RawMessage) (any, error) {
	var p WorkspacePayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if cmd == CommandMoveWorkspace && p.Workspace == "" {
		return nil, fmt.Errorf("workspace is required")
	}
	h, err := s.resolveWorkspace(p)
	if err != nil {
		return nil, err
	}
	switch cmd {
	case CommandSetTiling:
		err = s.shell.SetTiling(h, p.Enable)
	case CommandActivateWorkspace:
		err = s.shell.ActivateWorkspace(h)
	case CommandMoveWorkspace:
		err = s.shell.MoveWorkspace(h, p.Output)
	case CommandPinWorkspace:
		err = s.shell.PinWorkspace(h, p.Enable)
	case CommandIssueToken:
		token, err := s.shell.Activate(h)
		if err != nil {
			return nil, err
		}
		return TokenData{Token: token}, nil
	}
	if err != nil {
		return nil, err
	}
	return WorkspaceData{Workspace: h.String()}, nil
}

func (s *Server) handlePinned() (PinnedData, error) {
	records := s.shell.PinnedRecords()
	encoded, err := codec.EncodeHex(records)
	if err != nil {
		return PinnedData{}, fmt.Errorf("failed to encode pinned workspaces: %w", err)
	}
	return PinnedData{Count: len(records), Encoded: encoded}, nil
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
