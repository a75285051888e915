package output

// Match describes an output a workspace has been shown on.
type Match struct {
	Name string `yaml:"name" json:"name" cbor:"name"`
	EDID *EDID  `yaml:"edid,omitempty" json:"edid,omitempty" cbor:"edid,omitempty"`
}

// MatchOf builds the descriptor for o.
func MatchOf(o *Output) Match {
	return Match{Name: o.Name(), EDID: o.EDID()}
}

// Matches compares the descriptor against an output. Hardware identifiers must
// always agree; names must also agree when disambiguate is set or when there is
// no identifier to go by.
func (m Match) Matches(o *Output, disambiguate bool) bool {
	if !m.EDID.Equal(o.EDID()) {
		return false
	}
	if disambiguate || m.EDID == nil {
		return m.Name == o.Name()
	}
	return true
}

// History is the ordered list of outputs a workspace has lived on, most
// authoritative first. The front entry is the output the user last chose
// explicitly.
type History struct {
	entries []Match
	limit   int
}

// NewHistory starts a history at first. A limit of zero means unbounded;
// bounded histories hold at least two entries.
func NewHistory(first Match, limit int) *History {
	if limit > 0 && limit < 2 {
		limit = 2
	}
	return &History{entries: []Match{first}, limit: limit}
}

// Entries returns a copy of the history.
func (h *History) Entries() []Match {
	return append([]Match(nil), h.entries...)
}

// Len is the number of entries.
func (h *History) Len() int { return len(h.entries) }

// Front is the most authoritative entry.
func (h *History) Front() Match {
	if len(h.entries) == 0 {
		return Match{}
	}
	return h.entries[0]
}

// Append adds m at the back unless it is already recorded.
func (h *History) Append(m Match) {
	for _, e := range h.entries {
		if e.Name == m.Name && e.EDID.Equal(m.EDID) {
			return
		}
	}
	h.push(m)
}

// Update records that the workspace moved to o. An explicit move makes o the
// only entry. Otherwise an exact match truncates the history back to it, an
// identifier-only match truncates back to it and then records o as well, and
// an unknown output is appended.
func (h *History) Update(o *Output, explicit bool) {
	if explicit {
		h.entries = h.entries[:0]
	}

	if pos := h.index(o, true); pos >= 0 {
		h.entries = h.entries[:pos+1]
		return
	}
	if pos := h.index(o, false); pos >= 0 {
		h.entries = h.entries[:pos+1]
	}
	h.push(MatchOf(o))
}

// Prefers reports whether the workspace would like to live on candidate.
// Names are compared when current and candidate share a hardware identifier,
// since the identifier alone cannot tell them apart.
func (h *History) Prefers(candidate, current *Output) bool {
	disambiguate := false
	if id := candidate.EDID(); id != nil && current != nil {
		disambiguate = id.Equal(current.EDID())
	}
	return h.index(candidate, disambiguate) >= 0
}

func (h *History) index(o *Output, disambiguate bool) int {
	for i, e := range h.entries {
		if e.Matches(o, disambiguate) {
			return i
		}
	}
	return -1
}

func (h *History) push(m Match) {
	h.entries = append(h.entries, m)
	if h.limit > 0 && len(h.entries) > h.limit {
		// The explicit front entry is never dropped.
		h.entries = append(h.entries[:1], h.entries[2:]...)
	}
}
