package queue

import (
	"github.com/tunelink/jamsync/internal/session"
)

// Local is a client's projection of the shared session queue. Projection
// is deterministic: the same session state always yields the same order
// and the same ref → index mapping, so a song_change resolves identically
// across repeated projections.
type Local struct {
	refs  []string
	index map[string]int
}

// Project maps the session's ordered song refs into a local queue,
// preserving order and dropping duplicate refs after their first
// occurrence so reference keys stay unique.
func Project(s *session.Session) Local {
	return FromRefs(s.Queue)
}

// FromRefs builds a projection directly from an ordered ref list, as
// carried by a queue_updated event.
func FromRefs(refs []string) Local {
	l := Local{index: make(map[string]int, len(refs))}
	for _, ref := range refs {
		if _, dup := l.index[ref]; dup {
			continue
		}
		l.index[ref] = len(l.refs)
		l.refs = append(l.refs, ref)
	}
	return l
}

// Lookup resolves a song ref to its queue index.
func (l Local) Lookup(ref string) (int, bool) {
	i, ok := l.index[ref]
	return i, ok
}

// At returns the ref at index i, or false when out of range.
func (l Local) At(i int) (string, bool) {
	if i < 0 || i >= len(l.refs) {
		return "", false
	}
	return l.refs[i], true
}

// Len is the number of distinct refs in the projection.
func (l Local) Len() int { return len(l.refs) }

// Refs returns the projected order.
func (l Local) Refs() []string { return append([]string(nil), l.refs...) }
