// Package platform abstracts the display server the shell is mirrored onto.
package platform

import (
	"errors"

	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/output"
	"github.com/1broseidon/tilewm/internal/window"
)

// ErrUnknownWindow is returned for operations on windows the backend does
// not know.
var ErrUnknownWindow = errors.New("unknown window")

// OutputInfo describes a connected output as the display server reports it.
type OutputInfo struct {
	Name     string
	EDID     []byte
	Geometry geom.Rect
	Scale    float64
}

// Build turns the report into a shell output, parsing the EDID when one was
// read. Unparsable EDID blocks leave the output without an identifier.
func (o OutputInfo) Build() *output.Output {
	scale := o.Scale
	if scale <= 0 {
		scale = 1
	}
	var id *output.EDID
	if len(o.EDID) > 0 {
		if parsed, err := output.ParseEDID(o.EDID); err == nil {
			id = parsed
		}
	}
	out := output.New(o.Name, id, o.Geometry, scale)
	if len(o.EDID) > 0 {
		out.SetFingerprint(output.Fingerprint(o.EDID))
	}
	return out
}

// Toplevel contains metadata and geometry for a top-level window.
type Toplevel struct {
	ID     window.SurfaceID
	PID    int
	AppID  string
	Title  string
	Bounds geom.Rect
	// Fullscreen is the state the client asked for.
	Fullscreen bool
}

// Backend abstracts window-system operations.
type Backend interface {
	Outputs() ([]OutputInfo, error)
	Toplevels() ([]Toplevel, error)
	Configure(id window.SurfaceID, bounds geom.Rect) error
	Minimize(id window.SurfaceID) error
	Focus(id window.SurfaceID) error
	Close() error
}
