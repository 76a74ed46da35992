package ws

import (
	"context"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tunelink/jamsync/internal/catalog"
	"github.com/tunelink/jamsync/internal/clock"
	"github.com/tunelink/jamsync/internal/session"
	"github.com/tunelink/jamsync/internal/transport"
)

// Every connection spawns a writer goroutine; a disconnect must take it
// down with the read loop instead of leaving it parked on the outbox.
func TestWriterGoroutineStopsOnDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := transport.NewHub(ctx, zap.NewNop())
	defer hub.Shutdown()
	store := session.NewMemStore(clock.Real{}, catalog.NewStatic())

	srv := httptest.NewServer(Handler(hub, store, zap.NewNop()))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=u1"

	before := runtime.NumGoroutine()
	for i := 0; i < 5; i++ {
		conn, _, err := websocket.Dial(ctx, wsURL, nil)
		require.NoError(t, err)
		require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	}

	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+1
	}, 2*time.Second, 20*time.Millisecond,
		"writer goroutines survived their connections")
}
