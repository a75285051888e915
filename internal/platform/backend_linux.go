//go:build linux

package platform

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/window"
	"github.com/1broseidon/tilewm/internal/x11"
)

// X11Backend wraps an X11 connection behind the Backend interface. Window ids
// are the X window ids.
type X11Backend struct {
	conn *x11.Connection
}

var _ Backend = (*X11Backend)(nil)

// NewX11Backend creates a backend from an existing X11 connection.
func NewX11Backend(conn *x11.Connection) *X11Backend {
	return &X11Backend{conn: conn}
}

// NewX11BackendFromDisplay opens a fresh X11 connection to display ("" for
// $DISPLAY).
func NewX11BackendFromDisplay(display string) (*X11Backend, error) {
	conn, err := x11.NewConnection(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &X11Backend{conn: conn}, nil
}

// Close closes the underlying X11 connection.
func (b *X11Backend) Close() error {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
	return nil
}

// Outputs returns all enabled outputs. X11 has no per-output scale.
func (b *X11Backend) Outputs() ([]OutputInfo, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	outs, err := conn.Outputs()
	if err != nil {
		return nil, err
	}
	infos := make([]OutputInfo, 0, len(outs))
	for _, o := range outs {
		infos = append(infos, OutputInfo{
			Name:     o.Name,
			EDID:     o.EDID,
			Geometry: geom.Rect{X: o.X, Y: o.Y, Width: o.Width, Height: o.Height},
			Scale:    1,
		})
	}
	return infos, nil
}

// Toplevels lists the normal client windows.
func (b *X11Backend) Toplevels() ([]Toplevel, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	wins, err := conn.Windows()
	if err != nil {
		return nil, err
	}
	out := make([]Toplevel, 0, len(wins))
	for _, w := range wins {
		out = append(out, Toplevel{
			ID:         window.SurfaceID(w.ID),
			PID:        w.PID,
			AppID:      w.Class,
			Title:      w.Title,
			Bounds:     geom.Rect{X: w.X, Y: w.Y, Width: w.Width, Height: w.Height},
			Fullscreen: w.Fullscreen,
		})
	}
	return out, nil
}

// Configure moves and resizes a window to bounds.
func (b *X11Backend) Configure(id window.SurfaceID, bounds geom.Rect) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.MoveResizeWindow(xproto.Window(id), bounds.X, bounds.Y, bounds.Width, bounds.Height)
}

// Minimize iconifies a window.
func (b *X11Backend) Minimize(id window.SurfaceID) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.IconifyWindow(xproto.Window(id))
}

// Focus activates a window.
func (b *X11Backend) Focus(id window.SurfaceID) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.FocusWindow(xproto.Window(id))
}

// WMName is the name of the EWMH window manager sharing the display.
func (b *X11Backend) WMName() string {
	if b == nil || b.conn == nil {
		return ""
	}
	return b.conn.WMName()
}

// X11 exposes the connection for keybindings and the event loop.
func (b *X11Backend) X11() *x11.Connection {
	return b.conn
}

func (b *X11Backend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}
