package shell

import (
	"time"

	"github.com/google/uuid"

	"github.com/1broseidon/tilewm/internal/clock"
	"github.com/1broseidon/tilewm/internal/protocol"
)

type activation struct {
	workspace protocol.WorkspaceHandle
	expires   time.Time
}

// Tokens tracks activation tokens handed to clients that are about to map a
// window. A workspace with an unexpired token is not auto-removed.
type Tokens struct {
	clock  clock.Clock
	ttl    time.Duration
	issued map[string]activation
}

// NewTokens creates an empty token set whose tokens live for ttl.
func NewTokens(clk clock.Clock, ttl time.Duration) *Tokens {
	if clk == nil {
		clk = clock.Real()
	}
	return &Tokens{clock: clk, ttl: ttl, issued: make(map[string]activation)}
}

// Issue returns a new token targeting ws.
func (t *Tokens) Issue(ws protocol.WorkspaceHandle) string {
	token := uuid.NewString()
	t.issued[token] = activation{workspace: ws, expires: t.clock.Now().Add(t.ttl)}
	return token
}

// Pending reports whether an unexpired token targets ws.
func (t *Tokens) Pending(ws protocol.WorkspaceHandle) bool {
	now := t.clock.Now()
	for _, a := range t.issued {
		if a.workspace == ws && now.Before(a.expires) {
			return true
		}
	}
	return false
}

// Consume redeems token and returns the workspace it targets. Expired and
// unknown tokens report false.
func (t *Tokens) Consume(token string) (protocol.WorkspaceHandle, bool) {
	a, ok := t.issued[token]
	if !ok {
		return protocol.WorkspaceHandle{}, false
	}
	delete(t.issued, token)
	if !t.clock.Now().Before(a.expires) {
		return protocol.WorkspaceHandle{}, false
	}
	return a.workspace, true
}

// Expire drops expired tokens and returns how many were dropped.
func (t *Tokens) Expire() int {
	now := t.clock.Now()
	n := 0
	for token, a := range t.issued {
		if !now.Before(a.expires) {
			delete(t.issued, token)
			n++
		}
	}
	return n
}

// Len is the number of tokens still held.
func (t *Tokens) Len() int { return len(t.issued) }
