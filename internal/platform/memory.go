package platform

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/window"
)

// Memory is an in-process backend. It is used by `tilewm daemon` without a
// display server and by tests.
type Memory struct {
	mu         sync.Mutex
	outputs    []OutputInfo
	toplevels  map[window.SurfaceID]Toplevel
	configured map[window.SurfaceID]geom.Rect
	minimized  map[window.SurfaceID]bool
	focused    window.SurfaceID
	closed     bool
}

var _ Backend = (*Memory)(nil)

// NewMemory returns a backend with the given outputs and no windows.
func NewMemory(outputs ...OutputInfo) *Memory {
	return &Memory{
		outputs:    slices.Clone(outputs),
		toplevels:  map[window.SurfaceID]Toplevel{},
		configured: map[window.SurfaceID]geom.Rect{},
		minimized:  map[window.SurfaceID]bool{},
	}
}

func (m *Memory) Outputs() ([]OutputInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.outputs), nil
}

// SetOutputs replaces the connected outputs.
func (m *Memory) SetOutputs(outputs ...OutputInfo) {
	m.mu.Lock()
	m.outputs = slices.Clone(outputs)
	m.mu.Unlock()
}

// Toplevels lists windows ordered by id.
func (m *Memory) Toplevels() ([]Toplevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Toplevel, 0, len(m.toplevels))
	for _, t := range m.toplevels {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b Toplevel) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// Open adds or replaces a window.
func (m *Memory) Open(t Toplevel) {
	m.mu.Lock()
	m.toplevels[t.ID] = t
	m.mu.Unlock()
}

// Destroy removes a window.
func (m *Memory) Destroy(id window.SurfaceID) {
	m.mu.Lock()
	delete(m.toplevels, id)
	delete(m.configured, id)
	delete(m.minimized, id)
	m.mu.Unlock()
}

func (m *Memory) Configure(id window.SurfaceID, bounds geom.Rect) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.toplevels[id]
	if !ok {
		return fmt.Errorf("configure %d: %w", id, ErrUnknownWindow)
	}
	t.Bounds = bounds
	m.toplevels[id] = t
	m.configured[id] = bounds
	delete(m.minimized, id)
	return nil
}

// Configured returns the last bounds pushed for id.
func (m *Memory) Configured(id window.SurfaceID) (geom.Rect, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.configured[id]
	return r, ok
}

func (m *Memory) Minimize(id window.SurfaceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.toplevels[id]; !ok {
		return fmt.Errorf("minimize %d: %w", id, ErrUnknownWindow)
	}
	m.minimized[id] = true
	return nil
}

// IsMinimized reports whether id was minimized and not configured since.
func (m *Memory) IsMinimized(id window.SurfaceID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.minimized[id]
}

func (m *Memory) Focus(id window.SurfaceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.toplevels[id]; !ok {
		return fmt.Errorf("focus %d: %w", id, ErrUnknownWindow)
	}
	m.focused = id
	return nil
}

// Focused returns the last focused window.
func (m *Memory) Focused() window.SurfaceID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.focused
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
