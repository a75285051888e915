package shell

import (
	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/output"
	"github.com/1broseidon/tilewm/internal/protocol"
	"github.com/1broseidon/tilewm/internal/window"
	"github.com/1broseidon/tilewm/internal/workspace"
)

// WindowInfo is a read-only view of a managed window.
type WindowInfo struct {
	ID         window.SurfaceID `json:"id"`
	Title      string           `json:"title,omitempty"`
	AppID      string           `json:"app_id,omitempty"`
	Layer      string           `json:"layer"`
	Geometry   geom.Rect        `json:"geometry"`
	Minimized  bool             `json:"minimized,omitempty"`
	Maximized  bool             `json:"maximized,omitempty"`
	Fullscreen bool             `json:"fullscreen,omitempty"`
}

// WorkspaceInfo is a read-only view of a workspace.
type WorkspaceInfo struct {
	Handle        string         `json:"handle"`
	ID            string         `json:"id"`
	Output        string         `json:"output"`
	Active        bool           `json:"active"`
	TilingEnabled bool           `json:"tiling_enabled"`
	Pinned        bool           `json:"pinned,omitempty"`
	Windows       []WindowInfo   `json:"windows"`
	History       []output.Match `json:"history"`
}

// OutputInfo is a read-only view of an output.
type OutputInfo struct {
	Name        string       `json:"name"`
	EDID        string       `json:"edid"`
	Fingerprint string       `json:"fingerprint,omitempty"`
	Geometry    geom.Rect    `json:"geometry"`
	Scale       float64      `json:"scale"`
	Enabled     bool         `json:"enabled"`
	Overview    string       `json:"overview"`
	Sticky      []WindowInfo `json:"sticky,omitempty"`
}

// Status is a snapshot of the whole shell.
type Status struct {
	Outputs        []OutputInfo    `json:"outputs"`
	Workspaces     []WorkspaceInfo `json:"workspaces"`
	Windows        int             `json:"windows"`
	PendingPinned  int             `json:"pending_pinned"`
	PendingTokens  int             `json:"pending_tokens"`
	OrphanedSpaces int             `json:"orphaned_workspaces"`
}

// Status takes a snapshot of the shell.
func (sh *Shell) Status() Status {
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	st := Status{
		Windows:        len(sh.windows),
		PendingPinned:  len(sh.pending),
		PendingTokens:  sh.tokens.Len(),
		OrphanedSpaces: len(sh.orphans),
	}
	for _, o := range sh.outputs {
		info := OutputInfo{
			Name:        o.out.Name(),
			EDID:        o.out.EDID().String(),
			Fingerprint: o.out.Fingerprint(),
			Geometry:    o.out.Geometry(),
			Scale:       o.out.Scale(),
			Enabled:     o.out.Enabled(),
			Overview:    o.overview.Kind.String(),
		}
		for _, w := range o.sticky.Mapped() {
			geo, _ := o.sticky.ElementGeometry(w)
			info.Sticky = append(info.Sticky, windowInfo(w, window.LayerSticky, geo, false))
		}
		st.Outputs = append(st.Outputs, info)
	}
	sh.eachWorkspaceLocked(func(o *outputState, ws *workspace.Workspace) bool {
		st.Workspaces = append(st.Workspaces, workspaceInfo(ws, o != nil && o.activeWorkspace() == ws))
		return true
	})
	return st
}

func workspaceInfo(ws *workspace.Workspace, active bool) WorkspaceInfo {
	info := WorkspaceInfo{
		Handle:        ws.Handle().String(),
		ID:            ws.ID(),
		Output:        ws.Output().Name(),
		Active:        active,
		TilingEnabled: ws.TilingEnabled(),
		Pinned:        ws.Pinned(),
		Windows:       []WindowInfo{},
		History:       ws.OutputHistory(),
	}
	for _, w := range ws.Mapped() {
		layer := window.LayerFloating
		if ws.IsTiled(w) {
			layer = window.LayerTiling
		}
		geo, _ := ws.ElementGeometry(w)
		info.Windows = append(info.Windows, windowInfo(w, layer, geo, ws.IsFullscreen(w)))
	}
	for _, e := range ws.MinimizedWindows() {
		wi := windowInfo(e.Window, e.State.Kind.Layer(), e.Window.Geometry(), e.Fullscreen != nil)
		wi.Minimized = true
		info.Windows = append(info.Windows, wi)
	}
	return info
}

func windowInfo(w *window.Mapped, layer window.Layer, geo geom.Rect, fullscreen bool) WindowInfo {
	s := w.Active()
	return WindowInfo{
		ID:         w.ID(),
		Title:      s.Title(),
		AppID:      s.AppID(),
		Layer:      layer.String(),
		Geometry:   geo,
		Maximized:  w.IsMaximized(),
		Fullscreen: fullscreen,
	}
}

// DescribeWorkspace returns the snapshot of one workspace.
func (sh *Shell) DescribeWorkspace(handle protocol.WorkspaceHandle) (WorkspaceInfo, error) {
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	o, ws, err := sh.workspaceLocked(handle)
	if err != nil {
		return WorkspaceInfo{}, err
	}
	return workspaceInfo(ws, o != nil && o.activeWorkspace() == ws), nil
}
