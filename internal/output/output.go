// Package output describes the physical outputs workspaces are shown on and
// tracks which outputs a workspace has an affinity for.
package output

import (
	"fmt"
	"sync"

	"github.com/1broseidon/tilewm/internal/geom"
)

// Output is a handle to a connected display. The compositor updates geometry,
// scale and the enabled flag on mode changes; everyone else only reads.
// Handles are compared by identity.
type Output struct {
	name string
	edid *EDID

	mu          sync.RWMutex
	geometry    geom.Rect
	scale       float64
	enabled     bool
	fingerprint string
}

// New creates an enabled output. geometry is in global logical coordinates.
func New(name string, edid *EDID, geometry geom.Rect, scale float64) *Output {
	if scale <= 0 {
		scale = 1
	}
	o := &Output{
		name:     name,
		geometry: geometry,
		scale:    scale,
		enabled:  true,
	}
	if edid != nil {
		e := *edid
		o.edid = &e
	}
	return o
}

func (o *Output) Name() string { return o.name }

// EDID returns the hardware identifier, or nil if the output has none.
func (o *Output) EDID() *EDID {
	if o.edid == nil {
		return nil
	}
	e := *o.edid
	return &e
}

func (o *Output) String() string {
	if o.edid == nil {
		return o.name
	}
	return fmt.Sprintf("%s (%s)", o.name, o.edid)
}

// Geometry is the output's area in global logical coordinates.
func (o *Output) Geometry() geom.Rect {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.geometry
}

func (o *Output) SetGeometry(r geom.Rect) {
	o.mu.Lock()
	o.geometry = r
	o.mu.Unlock()
}

// Scale is the fractional scale factor.
func (o *Output) Scale() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.scale
}

func (o *Output) SetScale(scale float64) {
	if scale <= 0 {
		return
	}
	o.mu.Lock()
	o.scale = scale
	o.mu.Unlock()
}

// Enabled reports whether the output is currently mapped.
func (o *Output) Enabled() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.enabled
}

func (o *Output) SetEnabled(v bool) {
	o.mu.Lock()
	o.enabled = v
	o.mu.Unlock()
}

// Fingerprint is a short stable id derived from the raw EDID block, empty when
// no raw block was seen.
func (o *Output) Fingerprint() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.fingerprint
}

func (o *Output) SetFingerprint(fp string) {
	o.mu.Lock()
	o.fingerprint = fp
	o.mu.Unlock()
}
