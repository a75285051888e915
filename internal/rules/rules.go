// Package rules decides where a new window goes from its app id.
package rules

import (
	"strings"
	"sync"
)

// Matcher holds the app ids that always float. It is safe for concurrent
// use and can be updated on config reload.
type Matcher struct {
	mu       sync.RWMutex
	floating map[string]bool
}

// New creates a matcher for the given app ids.
func New(floatingAppIDs []string) *Matcher {
	m := &Matcher{}
	m.Update(floatingAppIDs)
	return m
}

// Update replaces the floating app ids.
func (m *Matcher) Update(floatingAppIDs []string) {
	set := make(map[string]bool, len(floatingAppIDs))
	for _, id := range floatingAppIDs {
		if id = strings.TrimSpace(id); id != "" {
			set[strings.ToLower(id)] = true
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.floating = set
}

// Floating reports whether windows of appID should skip tiling. Matching
// ignores case; a nil matcher floats nothing.
func (m *Matcher) Floating(appID string) bool {
	if m == nil || appID == "" {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.floating[strings.ToLower(appID)]
}
