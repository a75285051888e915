package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Connection is one X11 client connection with RandR and the keyboard
// mapping ready.
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window
}

// NewConnection connects to display, or to $DISPLAY when display is empty.
func NewConnection(display string) (*Connection, error) {
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, err
	}
	if err := randr.Init(xu.Conn()); err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("randr init failed: %w", err)
	}
	keybind.Initialize(xu)
	return &Connection{XUtil: xu, Root: xu.RootWin()}, nil
}

// WMName is the name the running EWMH window manager advertises, or ""
// when none does.
func (c *Connection) WMName() string {
	name, err := ewmh.GetEwmhWM(c.XUtil)
	if err != nil {
		return ""
	}
	return name
}

// ActiveWindow returns _NET_ACTIVE_WINDOW.
func (c *Connection) ActiveWindow() (xproto.Window, error) {
	return ewmh.ActiveWindowGet(c.XUtil)
}

// EventLoop dispatches X events to registered callbacks until Quit.
func (c *Connection) EventLoop() { xevent.Main(c.XUtil) }

// Quit makes EventLoop return.
func (c *Connection) Quit() { xevent.Quit(c.XUtil) }

// Close disconnects.
func (c *Connection) Close() { c.XUtil.Conn().Close() }
