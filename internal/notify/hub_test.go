package notify_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/tasktrail/internal/notify"
)

func startHub(t *testing.T) (*notify.Hub, *httptest.Server) {
	t.Helper()

	hub := notify.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Run(ctx) }()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("owner"))
	}))

	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, owner string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?owner=" + owner
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) notify.Frame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame notify.Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestHub_RoutesToOwnerOnly(t *testing.T) {
	hub, srv := startHub(t)

	alice1 := dial(t, srv, "alice")
	alice2 := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")

	require.Eventually(t, func() bool { return hub.ClientCount() == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, hub.OwnerClientCount("alice"))

	hub.NotifyTaskClosed(context.Background(), "alice", "t1")

	for _, conn := range []*websocket.Conn{alice1, alice2} {
		frame := readFrame(t, conn)
		assert.Equal(t, notify.KindTaskClosed, frame.Type)
		assert.Equal(t, "t1", frame.TaskID)
	}

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := bob.ReadMessage()
	assert.Error(t, err, "bob must not receive alice's notification")
}

func TestHub_PreservesOrderPerClient(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "alice")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx := context.Background()
	hub.NotifyTaskUpdated(ctx, "alice", "t1")
	hub.NotifyTaskClosed(ctx, "alice", "t1")
	hub.NotifyTaskRestored(ctx, "alice", "t1")

	assert.Equal(t, notify.KindTaskUpdated, readFrame(t, conn).Type)
	assert.Equal(t, notify.KindTaskClosed, readFrame(t, conn).Type)
	assert.Equal(t, notify.KindTaskRestored, readFrame(t, conn).Type)
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "alice")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.OwnerClientCount("alice"))
}

func TestHub_DispatchWithoutClientsDoesNotBlock(t *testing.T) {
	hub := notify.NewHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.NotifyTaskClosed(context.Background(), "nobody", "t")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch blocked while the hub was not running")
	}
}
