package window

import (
	"fmt"
	"sort"
	"sync"

	"github.com/1broseidon/tilewm/internal/blocker"
	"github.com/1broseidon/tilewm/internal/geom"
)

// SurfaceID identifies a toplevel surface.
type SurfaceID uint64

// ClientID identifies the client owning a surface. Zero means the surface has
// no client connection of its own (e.g. an X11 surface), and commit blockers
// are never installed on it.
type ClientID uint64

// BlurKind is the blur mode a client asked for.
type BlurKind int

const (
	Unblurred BlurKind = iota
	Blurred
	PartiallyBlurred
)

func (k BlurKind) String() string {
	switch k {
	case Unblurred:
		return "unblurred"
	case Blurred:
		return "blurred"
	case PartiallyBlurred:
		return "partially-blurred"
	default:
		return "unknown"
	}
}

// BlurState is the blur request attached to a surface. Region is only set for
// PartiallyBlurred and is in surface-local coordinates.
type BlurState struct {
	Kind   BlurKind    `json:"kind"`
	Region []geom.Rect `json:"region,omitempty"`
}

// Popup is a child surface positioned relative to its toplevel.
type Popup struct {
	ID     SurfaceID  `json:"id"`
	Offset geom.Point `json:"offset"`
	Size   geom.Size  `json:"size"`
}

// Surface is the compositor-side state of one client toplevel. It is shared
// between the workspace, the protocol handlers and the render path, so every
// field sits behind the mutex.
type Surface struct {
	id     SurfaceID
	client ClientID

	mu         sync.Mutex
	title      string
	appID      string
	geometry   geom.Rect
	committed  geom.Size
	commits    uint64
	serial     uint32
	fullscreen bool
	maximized  bool
	minimized  bool
	activated  bool
	alive      bool
	outputs    map[string]struct{}
	blur       BlurState
	blockers   []*blocker.Blocker
	popups     []Popup
}

// NewSurface creates a live surface with the given initial size.
func NewSurface(id SurfaceID, client ClientID, size geom.Size) *Surface {
	return &Surface{
		id:        id,
		client:    client,
		geometry:  geom.Rect{Width: size.W, Height: size.H},
		committed: size,
		alive:     true,
		outputs:   make(map[string]struct{}),
	}
}

func (s *Surface) ID() SurfaceID    { return s.id }
func (s *Surface) Client() ClientID { return s.client }

// HasClient reports whether commit blockers can be installed on the surface.
func (s *Surface) HasClient() bool { return s.client != 0 }

func (s *Surface) String() string {
	title := s.Title()
	if title == "" {
		return fmt.Sprintf("surface(%d)", s.id)
	}
	return fmt.Sprintf("surface(%d %q)", s.id, title)
}

func (s *Surface) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

func (s *Surface) SetTitle(title string) {
	s.mu.Lock()
	s.title = title
	s.mu.Unlock()
}

func (s *Surface) AppID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appID
}

func (s *Surface) SetAppID(appID string) {
	s.mu.Lock()
	s.appID = appID
	s.mu.Unlock()
}

// Geometry is the global geometry the compositor last assigned.
func (s *Surface) Geometry() geom.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.geometry
}

// SetGeometry records a new pending geometry. It takes effect for the client
// on the next SendConfigure.
func (s *Surface) SetGeometry(r geom.Rect) {
	s.mu.Lock()
	s.geometry = r
	s.mu.Unlock()
}

// SendConfigure notifies the client of its pending state and returns the
// configure serial.
func (s *Surface) SendConfigure() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serial++
	return s.serial
}

// ConfigureSerial returns the serial of the last configure sent.
func (s *Surface) ConfigureSerial() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serial
}

// Commit applies a client buffer of the given size. Commits are withheld while
// a blocker is pending, in which case Commit returns false.
func (s *Surface) Commit(size geom.Size) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.readyLocked() {
		return false
	}
	s.committed = size
	s.commits++
	return true
}

// CommitCounter increases on every applied commit.
func (s *Surface) CommitCounter() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// BBox is the bounding box of the committed content in surface-local
// coordinates.
func (s *Surface) BBox() geom.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	size := s.committed
	if size.IsEmpty() {
		size = s.geometry.Size()
	}
	return geom.Rect{Width: size.W, Height: size.H}
}

func (s *Surface) IsFullscreen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fullscreen
}

func (s *Surface) SetFullscreen(v bool) {
	s.mu.Lock()
	s.fullscreen = v
	s.mu.Unlock()
}

func (s *Surface) IsMaximized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maximized
}

func (s *Surface) SetMaximized(v bool) {
	s.mu.Lock()
	s.maximized = v
	s.mu.Unlock()
}

func (s *Surface) IsMinimized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minimized
}

func (s *Surface) SetMinimized(v bool) {
	s.mu.Lock()
	s.minimized = v
	s.mu.Unlock()
}

func (s *Surface) IsActivated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activated
}

func (s *Surface) SetActivated(v bool) {
	s.mu.Lock()
	s.activated = v
	s.mu.Unlock()
}

// Alive reports whether the client still holds the surface.
func (s *Surface) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// Close marks the surface as destroyed by its client. Pending blockers are
// released so nothing waits on a dead surface.
func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = false
	for _, b := range s.blockers {
		b.Signal().Release()
	}
	s.blockers = nil
}

// OutputEnter records that the surface is now shown on the named output. It
// reports whether this changed anything.
func (s *Surface) OutputEnter(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.outputs[name]; ok {
		return false
	}
	s.outputs[name] = struct{}{}
	return true
}

// OutputLeave is the reverse of OutputEnter.
func (s *Surface) OutputLeave(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.outputs[name]; !ok {
		return false
	}
	delete(s.outputs, name)
	return true
}

// Outputs lists the outputs the surface has entered, sorted by name.
func (s *Surface) Outputs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.outputs))
	for name := range s.outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Surface) Blur() BlurState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blur
}

func (s *Surface) SetBlur(state BlurState) {
	s.mu.Lock()
	s.blur = state
	s.mu.Unlock()
}

// AddBlocker installs a commit blocker. Surfaces without a client ignore it.
func (s *Surface) AddBlocker(b *blocker.Blocker) {
	if !s.HasClient() || b == nil {
		return
	}
	s.mu.Lock()
	s.blockers = append(s.blockers, b)
	s.mu.Unlock()
}

// PendingBlockers counts blockers that have not been released yet.
func (s *Surface) PendingBlockers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.blockers {
		if b.State() == blocker.Pending {
			n++
		}
	}
	return n
}

// ReadyForCommit reports whether the next commit may be applied, dropping
// blockers whose signal has fired.
func (s *Surface) ReadyForCommit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readyLocked()
}

func (s *Surface) readyLocked() bool {
	kept := s.blockers[:0]
	for _, b := range s.blockers {
		if b.State() == blocker.Pending {
			kept = append(kept, b)
		}
	}
	for i := len(kept); i < len(s.blockers); i++ {
		s.blockers[i] = nil
	}
	s.blockers = kept
	return len(kept) == 0
}

func (s *Surface) Popups() []Popup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Popup(nil), s.popups...)
}

func (s *Surface) AddPopup(p Popup) {
	s.mu.Lock()
	s.popups = append(s.popups, p)
	s.mu.Unlock()
}

func (s *Surface) RemovePopup(id SurfaceID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.popups {
		if p.ID == id {
			s.popups = append(s.popups[:i], s.popups[i+1:]...)
			return true
		}
	}
	return false
}
