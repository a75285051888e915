// Package focus keeps the per-seat focus history of a workspace.
package focus

import "github.com/1broseidon/tilewm/internal/window"

// Seat names an input seat.
type Seat string

// DefaultSeat is the seat used when the caller has no seat of its own.
const DefaultSeat Seat = "seat0"

// Stack is an insertion-ordered set of windows, most recently focused last.
type Stack struct {
	windows []*window.Mapped
}

// Append focuses w, moving it to the top if it is already present.
func (s *Stack) Append(w *window.Mapped) {
	s.Remove(w)
	s.windows = append(s.windows, w)
}

// Remove drops w and reports whether it was present.
func (s *Stack) Remove(w *window.Mapped) bool {
	for i, cand := range s.windows {
		if cand == w {
			s.windows = append(s.windows[:i], s.windows[i+1:]...)
			return true
		}
	}
	return false
}

// Retain keeps only the windows keep returns true for.
func (s *Stack) Retain(keep func(*window.Mapped) bool) {
	kept := s.windows[:0]
	for _, w := range s.windows {
		if keep(w) {
			kept = append(kept, w)
		}
	}
	for i := len(kept); i < len(s.windows); i++ {
		s.windows[i] = nil
	}
	s.windows = kept
}

// Iter lists live windows, most recently focused first.
func (s *Stack) Iter() []*window.Mapped {
	if s == nil {
		return nil
	}
	out := make([]*window.Mapped, 0, len(s.windows))
	for i := len(s.windows) - 1; i >= 0; i-- {
		if s.windows[i].Alive() {
			out = append(out, s.windows[i])
		}
	}
	return out
}

// Last returns the most recently focused live window.
func (s *Stack) Last() (*window.Mapped, bool) {
	if s == nil {
		return nil, false
	}
	for i := len(s.windows) - 1; i >= 0; i-- {
		if s.windows[i].Alive() {
			return s.windows[i], true
		}
	}
	return nil, false
}

// Contains reports whether w is on the stack.
func (s *Stack) Contains(w *window.Mapped) bool {
	if s == nil {
		return false
	}
	for _, cand := range s.windows {
		if cand == w {
			return true
		}
	}
	return false
}

// Len counts the entries, dead or alive.
func (s *Stack) Len() int {
	if s == nil {
		return 0
	}
	return len(s.windows)
}

// Stacks maps seats to their focus stacks.
type Stacks struct {
	seats map[Seat]*Stack
}

func NewStacks() *Stacks {
	return &Stacks{seats: make(map[Seat]*Stack)}
}

// Get returns the seat's stack, or nil if the seat never focused anything
// here. A nil *Stack is safe to read from.
func (s *Stacks) Get(seat Seat) *Stack {
	return s.seats[seat]
}

// GetMut returns the seat's stack, creating it on first use.
func (s *Stacks) GetMut(seat Seat) *Stack {
	st, ok := s.seats[seat]
	if !ok {
		st = &Stack{}
		s.seats[seat] = st
	}
	return st
}

// Remove drops w from every seat's stack.
func (s *Stacks) Remove(w *window.Mapped) {
	for _, st := range s.seats {
		st.Remove(w)
	}
}

// Retain applies keep to every seat's stack.
func (s *Stacks) Retain(keep func(*window.Mapped) bool) {
	for _, st := range s.seats {
		st.Retain(keep)
	}
}
