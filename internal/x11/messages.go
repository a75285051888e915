package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xprop"
)

// sourcePager marks client messages as direct user actions.
const sourcePager = 2

// sendRootMessage sends an EWMH/ICCCM client message about windowID to the
// root window. The message is built by hand because the xgbutil ewmh request
// helpers panic on some data types.
func (c *Connection) sendRootMessage(windowID xproto.Window, atomName string, data ...uint32) error {
	atom, err := xprop.Atm(c.XUtil, atomName)
	if err != nil {
		return fmt.Errorf("failed to intern %s: %w", atomName, err)
	}
	payload := make([]uint32, 5)
	copy(payload, data)
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   atom,
		Data:   xproto.ClientMessageDataUnionData32New(payload),
	}
	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

// FocusWindow activates and raises a window using _NET_ACTIVE_WINDOW.
func (c *Connection) FocusWindow(windowID xproto.Window) error {
	return c.sendRootMessage(windowID, "_NET_ACTIVE_WINDOW", sourcePager)
}

// IconifyWindow minimizes a window via WM_CHANGE_STATE.
func (c *Connection) IconifyWindow(windowID xproto.Window) error {
	const iconicState = 3
	return c.sendRootMessage(windowID, "WM_CHANGE_STATE", iconicState)
}
