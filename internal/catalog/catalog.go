package catalog

import (
	"context"
	"errors"
)

// ErrSongNotResolvable means the reference is not known to the catalog.
// Callers in the sync path treat this as non-fatal and drop the event.
var ErrSongNotResolvable = errors.New("catalog: song not resolvable")

// Song is the playable view of a catalog entry.
type Song struct {
	Ref      string
	Title    string
	Artist   string
	URL      string
	Duration float64 // seconds
}

// Resolver maps song references to playable songs. Read-only.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (Song, error)
}

// Static is a fixed in-memory resolver, used in tests and single-node dev.
type Static struct {
	songs map[string]Song
}

func NewStatic(songs ...Song) *Static {
	m := make(map[string]Song, len(songs))
	for _, s := range songs {
		m[s.Ref] = s
	}
	return &Static{songs: m}
}

func (s *Static) Resolve(_ context.Context, ref string) (Song, error) {
	song, ok := s.songs[ref]
	if !ok {
		return Song{}, ErrSongNotResolvable
	}
	return song, nil
}
