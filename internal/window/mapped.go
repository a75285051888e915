// Package window models the window handles shared between the workspace, the
// layout engines, the protocol handlers and the render path.
package window

import (
	"fmt"
	"sync"

	"github.com/1broseidon/tilewm/internal/geom"
)

// Layer names the placement engine that owns a window.
type Layer int

const (
	LayerFloating Layer = iota
	LayerTiling
	LayerSticky
)

func (l Layer) String() string {
	switch l {
	case LayerFloating:
		return "floating"
	case LayerTiling:
		return "tiling"
	case LayerSticky:
		return "sticky"
	default:
		return "unknown"
	}
}

// MaximizedState remembers where a window came from before it was maximized.
type MaximizedState struct {
	OriginalGeometry geom.Rect
	OriginalLayer    Layer
}

// Mapped is a managed window: one or more stacked surfaces shown as a single
// element. Handles are passed around as *Mapped and compared by identity.
//
// The maximized snapshot and the remembered floating geometry are written from
// several code paths that can reenter each other (layout recalculation calls
// back into protocol handlers), so they live behind their own mutex.
type Mapped struct {
	mu           sync.Mutex
	surfaces     []*Surface
	active       int
	maximized    *MaximizedState
	lastFloating *geom.Rect
}

// NewMapped wraps one or more surfaces. The first surface is active.
func NewMapped(surfaces ...*Surface) *Mapped {
	if len(surfaces) == 0 {
		panic("window: NewMapped requires at least one surface")
	}
	return &Mapped{surfaces: surfaces}
}

// ID is the id of the first surface of the stack.
func (m *Mapped) ID() SurfaceID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.surfaces[0].ID()
}

func (m *Mapped) String() string {
	return fmt.Sprintf("window(%d)", m.ID())
}

// Surfaces returns a copy of the stack.
func (m *Mapped) Surfaces() []*Surface {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Surface(nil), m.surfaces...)
}

// Active returns the currently shown surface of the stack.
func (m *Mapped) Active() *Surface {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.surfaces[m.active]
}

// SetActive switches the shown surface. It reports false if s is not part of
// the stack.
func (m *Mapped) SetActive(s *Surface) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cand := range m.surfaces {
		if cand == s {
			m.active = i
			return true
		}
	}
	return false
}

// AddSurface stacks another surface on the window.
func (m *Mapped) AddSurface(s *Surface) {
	m.mu.Lock()
	m.surfaces = append(m.surfaces, s)
	m.mu.Unlock()
}

// IsStack reports whether the window holds more than one surface.
func (m *Mapped) IsStack() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.surfaces) > 1
}

// HasSurface reports whether s belongs to the window.
func (m *Mapped) HasSurface(s *Surface) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cand := range m.surfaces {
		if cand == s {
			return true
		}
	}
	return false
}

// Alive reports whether any surface of the stack is still alive.
func (m *Mapped) Alive() bool {
	for _, s := range m.Surfaces() {
		if s.Alive() {
			return true
		}
	}
	return false
}

// Geometry returns the global geometry of the active surface.
func (m *Mapped) Geometry() geom.Rect {
	return m.Active().Geometry()
}

// SetGeometry assigns the same global geometry to every surface of the stack.
func (m *Mapped) SetGeometry(r geom.Rect) {
	for _, s := range m.Surfaces() {
		s.SetGeometry(r)
	}
}

// Configure sends pending state to every surface of the stack.
func (m *Mapped) Configure() {
	for _, s := range m.Surfaces() {
		s.SendConfigure()
	}
}

// BBox is the active surface's bounding box.
func (m *Mapped) BBox() geom.Rect {
	return m.Active().BBox()
}

func (m *Mapped) IsMaximized() bool  { return m.Active().IsMaximized() }
func (m *Mapped) IsMinimized() bool  { return m.Active().IsMinimized() }
func (m *Mapped) IsFullscreen() bool { return m.Active().IsFullscreen() }

func (m *Mapped) SetMaximized(v bool) {
	for _, s := range m.Surfaces() {
		s.SetMaximized(v)
	}
}

func (m *Mapped) SetMinimized(v bool) {
	for _, s := range m.Surfaces() {
		s.SetMinimized(v)
	}
}

func (m *Mapped) SetActivated(v bool) {
	for _, s := range m.Surfaces() {
		s.SetActivated(v)
	}
}

// MaximizedState returns a copy of the stored maximize snapshot.
func (m *Mapped) MaximizedState() (MaximizedState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maximized == nil {
		return MaximizedState{}, false
	}
	return *m.maximized, true
}

func (m *Mapped) SetMaximizedState(state MaximizedState) {
	m.mu.Lock()
	m.maximized = &state
	m.mu.Unlock()
}

// TakeMaximizedState removes and returns the maximize snapshot.
func (m *Mapped) TakeMaximizedState() (MaximizedState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maximized == nil {
		return MaximizedState{}, false
	}
	state := *m.maximized
	m.maximized = nil
	return state, true
}

// LastFloatingGeometry is the output-local geometry the window had the last
// time it left the floating layer.
func (m *Mapped) LastFloatingGeometry() (geom.Rect, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastFloating == nil {
		return geom.Rect{}, false
	}
	return *m.lastFloating, true
}

func (m *Mapped) SetLastFloatingGeometry(r geom.Rect) {
	m.mu.Lock()
	m.lastFloating = &r
	m.mu.Unlock()
}
