package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xprop"
)

// edidLength is the property length requested in 32-bit units; enough for
// the base block and one extension.
const edidLength = 64

// Output is an enabled RandR output.
type Output struct {
	Name   string
	EDID   []byte
	X      int
	Y      int
	Width  int
	Height int
}

// Outputs retrieves all enabled outputs using XRandR, including their raw
// EDID property when the driver exposes one.
func (c *Connection) Outputs() ([]Output, error) {
	conn := c.XUtil.Conn()
	resources, err := randr.GetScreenResources(conn, c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}
	edidAtom, err := xprop.Atm(c.XUtil, "EDID")
	if err != nil {
		return nil, fmt.Errorf("failed to intern EDID: %w", err)
	}

	var outputs []Output
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(conn, crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		out := Output{
			Name:   fmt.Sprintf("Monitor%d", i),
			X:      int(crtcInfo.X),
			Y:      int(crtcInfo.Y),
			Width:  int(crtcInfo.Width),
			Height: int(crtcInfo.Height),
		}
		id := crtcInfo.Outputs[0]
		if info, err := randr.GetOutputInfo(conn, id, resources.ConfigTimestamp).Reply(); err == nil {
			out.Name = string(info.Name)
		}
		out.EDID = c.outputEDID(id, edidAtom)
		outputs = append(outputs, out)
	}
	return outputs, nil
}

func (c *Connection) outputEDID(id randr.Output, atom xproto.Atom) []byte {
	reply, err := randr.GetOutputProperty(c.XUtil.Conn(), id, atom, xproto.AtomAny, 0, edidLength, false, false).Reply()
	if err != nil || reply == nil || reply.Format != 8 {
		return nil
	}
	return reply.Data
}
