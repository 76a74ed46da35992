package queue

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tunelink/jamsync/internal/session"
)

func TestProjectPreservesOrderAndUniqueness(t *testing.T) {
	s := &session.Session{Queue: []string{"a", "b", "a", "c", "b"}}
	l := Project(s)

	require.Equal(t, []string{"a", "b", "c"}, l.Refs())
	i, ok := l.Lookup("c")
	require.True(t, ok)
	require.Equal(t, 2, i)
	_, ok = l.Lookup("z")
	require.False(t, ok)
}

func TestProjectIsIdempotent(t *testing.T) {
	s := &session.Session{Queue: []string{"x", "y", "z"}}
	first := Project(s)
	second := Project(s)

	require.Equal(t, first.Refs(), second.Refs())
	for _, ref := range s.Queue {
		i1, _ := first.Lookup(ref)
		i2, _ := second.Lookup(ref)
		require.Equal(t, i1, i2)
	}
}

func TestAtBounds(t *testing.T) {
	l := Project(&session.Session{Queue: []string{"a"}})
	ref, ok := l.At(0)
	require.True(t, ok)
	require.Equal(t, "a", ref)
	_, ok = l.At(1)
	require.False(t, ok)
	_, ok = l.At(-1)
	require.False(t, ok)
}
