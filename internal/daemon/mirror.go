package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/platform"
	"github.com/1broseidon/tilewm/internal/rules"
	"github.com/1broseidon/tilewm/internal/shell"
	"github.com/1broseidon/tilewm/internal/window"
)

// Mirror keeps the shell and a display backend in agreement: outputs and
// toplevels flow from the backend into the shell, geometry and minimize
// state flow back.
type Mirror struct {
	shell   *shell.Shell
	backend platform.Backend
	logger  *slog.Logger
	rules   *rules.Matcher

	mu         sync.Mutex
	outputs    map[string]platform.OutputInfo
	windows    map[window.SurfaceID]bool
	fullscreen map[window.SurfaceID]bool
	serials    map[window.SurfaceID]uint32
	minimized  map[window.SurfaceID]bool
	// uncommitted holds sizes pushed to the backend that the surface has not
	// accepted yet because a commit blocker was pending.
	uncommitted map[window.SurfaceID]geom.Size
}

// NewMirror creates a mirror between sh and backend.
func NewMirror(sh *shell.Shell, backend platform.Backend, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		shell:       sh,
		backend:     backend,
		logger:      logger,
		outputs:     map[string]platform.OutputInfo{},
		windows:     map[window.SurfaceID]bool{},
		fullscreen:  map[window.SurfaceID]bool{},
		serials:     map[window.SurfaceID]uint32{},
		minimized:   map[window.SurfaceID]bool{},
		uncommitted: map[window.SurfaceID]geom.Size{},
	}
}

// SetRules sets the matcher consulted when new toplevels are mapped.
func (m *Mirror) SetRules(r *rules.Matcher) {
	m.mu.Lock()
	m.rules = r
	m.mu.Unlock()
}

// Sync pulls outputs and toplevels from the backend.
func (m *Mirror) Sync() error {
	return errors.Join(m.SyncOutputs(), m.SyncWindows())
}

// SyncOutputs plugs, unplugs and resizes shell outputs to match the backend.
func (m *Mirror) SyncOutputs() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos, err := m.backend.Outputs()
	if err != nil {
		return fmt.Errorf("list outputs: %w", err)
	}

	seen := map[string]bool{}
	var errs []error
	for _, info := range infos {
		seen[info.Name] = true
		prev, known := m.outputs[info.Name]
		switch {
		case !known:
			m.logger.Info("output connected", "output", info.Name, "geometry", info.Geometry)
			if err := m.shell.AddOutput(info.Build()); err != nil {
				errs = append(errs, err)
				continue
			}
		case prev.Geometry != info.Geometry || prev.Scale != info.Scale:
			m.logger.Info("output changed", "output", info.Name, "geometry", info.Geometry)
			scale := info.Scale
			if scale <= 0 {
				scale = 1
			}
			if err := m.shell.ResizeOutput(info.Name, info.Geometry, scale); err != nil {
				errs = append(errs, err)
				continue
			}
		}
		m.outputs[info.Name] = info
	}
	for name := range m.outputs {
		if seen[name] {
			continue
		}
		m.logger.Info("output disconnected", "output", name)
		if err := m.shell.RemoveOutput(name); err != nil {
			errs = append(errs, err)
		}
		delete(m.outputs, name)
	}
	return errors.Join(errs...)
}

// SyncWindows maps new toplevels, unmaps vanished ones and forwards client
// fullscreen requests.
func (m *Mirror) SyncWindows() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tops, err := m.backend.Toplevels()
	if err != nil {
		return fmt.Errorf("list toplevels: %w", err)
	}

	seen := map[window.SurfaceID]bool{}
	var errs []error
	for _, t := range tops {
		seen[t.ID] = true
		if !m.windows[t.ID] {
			if err := m.mapToplevel(t); err != nil {
				errs = append(errs, err)
				continue
			}
			m.windows[t.ID] = true
		}
		if t.Fullscreen != m.fullscreen[t.ID] {
			if t.Fullscreen {
				err = m.shell.Fullscreen(t.ID)
			} else {
				err = m.shell.Unfullscreen(t.ID)
			}
			if err != nil {
				errs = append(errs, err)
				continue
			}
			m.fullscreen[t.ID] = t.Fullscreen
		}
	}
	for id := range m.windows {
		if !seen[id] {
			m.closeLocked(id)
		}
	}
	return errors.Join(errs...)
}

func (m *Mirror) mapToplevel(t platform.Toplevel) error {
	client := window.ClientID(t.PID)
	if client == 0 {
		client = window.ClientID(t.ID)
	}
	spec := shell.WindowSpec{
		ID:       t.ID,
		Client:   client,
		Title:    t.Title,
		AppID:    t.AppID,
		Size:     t.Bounds.Size(),
		Output:   m.outputAt(geom.Point{X: t.Bounds.X + t.Bounds.Width/2, Y: t.Bounds.Y + t.Bounds.Height/2}),
		Floating: m.rules.Floating(t.AppID),
	}
	if _, err := m.shell.MapWindow(spec); err != nil && !errors.Is(err, shell.ErrWindowExists) {
		return err
	}
	m.logger.Debug("toplevel mapped", "window", t.ID, "app_id", t.AppID, "output", spec.Output, "floating", spec.Floating)
	return nil
}

func (m *Mirror) outputAt(p geom.Point) string {
	for name, info := range m.outputs {
		if info.Geometry.Contains(p) {
			return name
		}
	}
	return ""
}

// HandleWindowClosed is called when a tracked window is destroyed.
func (m *Mirror) HandleWindowClosed(id window.SurfaceID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked(id)
}

func (m *Mirror) closeLocked(id window.SurfaceID) {
	m.logger.Info("window closed", "window", id)
	if err := m.shell.UnmapWindow(id); err != nil && !errors.Is(err, shell.ErrUnknownWindow) {
		m.logger.Warn("failed to unmap window", "window", id, "error", err)
	}
	delete(m.windows, id)
	delete(m.fullscreen, id)
	delete(m.serials, id)
	delete(m.minimized, id)
	delete(m.uncommitted, id)
}

// Push sends every configure the shell issued since the last push to the
// backend, and minimizes windows the shell minimized.
func (m *Mirror) Push() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, w := range m.shell.Windows() {
		id := w.ID()
		s := w.Active()

		if w.IsMinimized() {
			if !m.minimized[id] {
				if err := m.backend.Minimize(id); err != nil {
					errs = append(errs, err)
					continue
				}
				m.minimized[id] = true
			}
			continue
		}
		restored := m.minimized[id]
		delete(m.minimized, id)

		serial := s.ConfigureSerial()
		if last, pushed := m.serials[id]; !pushed || serial != last || restored {
			geo := w.Geometry()
			if err := m.backend.Configure(id, geo); err != nil {
				errs = append(errs, err)
				continue
			}
			m.serials[id] = serial
			m.uncommitted[id] = geo.Size()
		}
		if size, ok := m.uncommitted[id]; ok && s.Commit(size) {
			delete(m.uncommitted, id)
		}
	}
	return errors.Join(errs...)
}

// Focus forwards a focus change to the backend.
func (m *Mirror) Focus(id window.SurfaceID) error {
	if err := m.shell.Focus(id); err != nil {
		return err
	}
	return m.backend.Focus(id)
}
