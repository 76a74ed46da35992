package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tunelink/jamsync/internal/catalog"
	"github.com/tunelink/jamsync/internal/clock"
)

func newTestStore() *MemStore {
	cat := catalog.NewStatic(
		catalog.Song{Ref: "song-a", URL: "https://cdn.test/a.mp3", Duration: 180},
		catalog.Song{Ref: "song-b", URL: "https://cdn.test/b.mp3", Duration: 210},
	)
	return NewMemStore(clock.NewFake(time.Unix(1700000000, 0)), cat)
}

func TestCreateMakesHostTheOnlyParticipant(t *testing.T) {
	store := newTestStore()
	s, err := store.Create(context.Background(), "host", Config{Name: "friday jam", MaxParticipants: 4})
	require.NoError(t, err)
	require.True(t, s.IsActive)
	require.Equal(t, "host", s.HostID)
	require.Len(t, s.Participants, 1)
	require.True(t, s.HasParticipant("host"))
}

func TestJoinIsIdempotent(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	s, _ := store.Create(ctx, "host", Config{MaxParticipants: 4})

	_, err := store.Join(ctx, s.ID, "p1")
	require.NoError(t, err)
	again, err := store.Join(ctx, s.ID, "p1")
	require.NoError(t, err)
	require.Len(t, again.Participants, 2)
}

func TestJoinFullSessionFailsWithoutMutation(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	s, _ := store.Create(ctx, "host", Config{MaxParticipants: 2})
	_, err := store.Join(ctx, s.ID, "p1")
	require.NoError(t, err)

	_, err = store.Join(ctx, s.ID, "p2")
	require.ErrorIs(t, err, ErrFull)

	got, _ := store.Get(ctx, s.ID)
	require.Len(t, got.Participants, 2)
}

func TestJoinInactiveSessionFails(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	s, _ := store.Create(ctx, "host", Config{MaxParticipants: 4})
	require.NoError(t, store.End(ctx, s.ID, "host"))

	_, err := store.Join(ctx, s.ID, "p1")
	require.ErrorIs(t, err, ErrInactive)
}

func TestHostLeavingDeactivatesEvenWithOthersRemaining(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	s, _ := store.Create(ctx, "host", Config{MaxParticipants: 4})
	_, err := store.Join(ctx, s.ID, "p1")
	require.NoError(t, err)

	require.NoError(t, store.Leave(ctx, s.ID, "host"))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)
	require.True(t, got.HasParticipant("p1"))
}

func TestLastParticipantLeavingDeactivates(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	s, _ := store.Create(ctx, "host", Config{MaxParticipants: 4})
	_, err := store.Join(ctx, s.ID, "p1")
	require.NoError(t, err)

	require.NoError(t, store.Leave(ctx, s.ID, "p1"))
	mid, _ := store.Get(ctx, s.ID)
	require.True(t, mid.IsActive)

	require.NoError(t, store.Leave(ctx, s.ID, "host"))
	got, _ := store.Get(ctx, s.ID)
	require.False(t, got.IsActive)
}

func TestEndRequiresHost(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	s, _ := store.Create(ctx, "host", Config{MaxParticipants: 4})
	_, err := store.Join(ctx, s.ID, "p1")
	require.NoError(t, err)

	require.ErrorIs(t, store.End(ctx, s.ID, "p1"), ErrNotHost)
	require.NoError(t, store.End(ctx, s.ID, "host"))
}

func TestAppendToQueue(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	s, _ := store.Create(ctx, "host", Config{MaxParticipants: 4})

	got, err := store.AppendToQueue(ctx, s.ID, "host", "song-a")
	require.NoError(t, err)
	got, err = store.AppendToQueue(ctx, got.ID, "host", "song-b")
	require.NoError(t, err)
	require.Equal(t, []string{"song-a", "song-b"}, got.Queue)

	_, err = store.AppendToQueue(ctx, s.ID, "stranger", "song-a")
	require.ErrorIs(t, err, ErrNotAParticipant)

	_, err = store.AppendToQueue(ctx, s.ID, "host", "song-z")
	require.ErrorIs(t, err, catalog.ErrSongNotResolvable)
}

func TestUpdateTransportStateIsPartial(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	s, _ := store.Create(ctx, "host", Config{MaxParticipants: 4})

	song := "song-a"
	playing := true
	require.NoError(t, store.UpdateTransportState(ctx, s.ID, TransportUpdate{CurrentSong: &song, Playing: &playing}))

	pos := 42.5
	require.NoError(t, store.UpdateTransportState(ctx, s.ID, TransportUpdate{Position: &pos}))

	got, _ := store.Get(ctx, s.ID)
	require.Equal(t, "song-a", got.CurrentSong)
	require.True(t, got.Playing)
	require.Equal(t, 42.5, got.Position)
}

func TestGetUnknownSession(t *testing.T) {
	store := newTestStore()
	_, err := store.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}
