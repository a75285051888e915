package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// Window is a managed client as seen on the X server.
type Window struct {
	ID         xproto.Window
	PID        int
	Class      string
	Title      string
	X, Y       int
	Width      int
	Height     int
	Fullscreen bool
}

// Windows lists the normal, visible clients from _NET_CLIENT_LIST.
func (c *Connection) Windows() ([]Window, error) {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to get client list: %w", err)
	}

	windows := make([]Window, 0, len(clients))
	for _, id := range clients {
		if !c.IsNormalWindow(id) {
			continue
		}
		hidden, fullscreen := c.windowState(id)
		if hidden {
			continue
		}
		w, ok := c.windowRect(id)
		if !ok {
			continue
		}
		w.Fullscreen = fullscreen
		if p, err := ewmh.WmPidGet(c.XUtil, id); err == nil {
			w.PID = int(p)
		}
		w.Class = c.windowClass(id)
		w.Title = c.windowTitle(id)
		windows = append(windows, w)
	}
	return windows, nil
}

// MoveResizeWindow moves and resizes a window to the specified geometry
func (c *Connection) MoveResizeWindow(windowID xproto.Window, x, y, width, height int) error {
	// The shell owns maximization, so the X side must not keep its own.
	c.unmaximizeWindow(windowID)

	// Use EWMH MoveResize for better WM compatibility
	if err := ewmh.MoveresizeWindow(c.XUtil, windowID, x, y, width, height); err != nil {
		// Fallback to direct window manipulation
		xwindow.New(c.XUtil, windowID).MoveResize(x, y, width, height)
	}
	return nil
}

// unmaximizeWindow removes maximized state from a window
func (c *Connection) unmaximizeWindow(windowID xproto.Window) {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return
	}
	for _, state := range states {
		if state == "_NET_WM_STATE_MAXIMIZED_HORZ" || state == "_NET_WM_STATE_MAXIMIZED_VERT" {
			ewmh.WmStateReq(c.XUtil, windowID, ewmh.StateRemove, state)
		}
	}
}

// IsNormalWindow checks if a window is a normal application window
func (c *Connection) IsNormalWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		// If we can't determine type, assume it's normal
		return true
	}

	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_NORMAL":
			return true
		case "_NET_WM_WINDOW_TYPE_DESKTOP", "_NET_WM_WINDOW_TYPE_DOCK",
			"_NET_WM_WINDOW_TYPE_SPLASH", "_NET_WM_WINDOW_TYPE_NOTIFICATION":
			return false
		}
	}

	// If no specific type is set, assume it's normal
	return len(types) == 0
}

func (c *Connection) windowState(windowID xproto.Window) (hidden, fullscreen bool) {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return false, false
	}
	for _, state := range states {
		switch state {
		case "_NET_WM_STATE_HIDDEN":
			hidden = true
		case "_NET_WM_STATE_FULLSCREEN":
			fullscreen = true
		}
	}
	return hidden, fullscreen
}

func (c *Connection) windowRect(windowID xproto.Window) (Window, bool) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return Window{}, false
	}
	translate, err := xproto.TranslateCoordinates(c.XUtil.Conn(), windowID, c.Root, 0, 0).Reply()
	if err != nil {
		return Window{}, false
	}
	return Window{
		ID:     windowID,
		X:      int(translate.DstX),
		Y:      int(translate.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, true
}

func (c *Connection) windowClass(windowID xproto.Window) string {
	wmClass, err := icccm.WmClassGet(c.XUtil, windowID)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(wmClass.Class)
}

func (c *Connection) windowTitle(windowID xproto.Window) string {
	if title, err := ewmh.WmNameGet(c.XUtil, windowID); err == nil {
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
	}
	if title, err := icccm.WmNameGet(c.XUtil, windowID); err == nil {
		return strings.TrimSpace(title)
	}
	return ""
}
