// Package blocker implements the commit-blocking handshake used while a
// fullscreen transition is animating.
//
// A Blocker is attached to a client surface and withholds that surface's next
// buffer commit until its Release fires. The Release is written from the
// animation path and read from the protocol path, so it is a one-shot atomic
// flag: Release() is idempotent and Released() only ever goes false -> true.
package blocker

import "sync/atomic"

// Release is a one-shot signal.
type Release struct {
	released atomic.Bool
}

// NewRelease returns an unreleased signal.
func NewRelease() *Release {
	return &Release{}
}

// Release fires the signal. Calling it more than once, or from a cancellation
// path, is always safe. It reports whether this call fired the signal.
func (r *Release) Release() bool {
	if r == nil {
		return false
	}
	return r.released.CompareAndSwap(false, true)
}

// Released reports whether the signal has fired.
func (r *Release) Released() bool {
	if r == nil {
		return true
	}
	return r.released.Load()
}

// State is the observable state of a Blocker.
type State int

const (
	Pending State = iota
	Released
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Released:
		return "released"
	default:
		return "unknown"
	}
}

// Blocker holds back a surface commit until its signal is released.
type Blocker struct {
	signal *Release
}

// New returns a blocker together with the signal that releases it.
func New() (*Blocker, *Release) {
	r := NewRelease()
	return &Blocker{signal: r}, r
}

// State reports whether the commit may proceed.
func (b *Blocker) State() State {
	if b.signal.Released() {
		return Released
	}
	return Pending
}

// Signal returns the release signal backing the blocker.
func (b *Blocker) Signal() *Release {
	return b.signal
}
