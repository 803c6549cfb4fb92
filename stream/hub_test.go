package stream

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/flex/solver"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Clients() == n }, time.Second, 5*time.Millisecond)
}

func TestPublishDeliversFrames(t *testing.T) {
	h := NewHub(nil, 4)
	srv := httptest.NewServer(h)
	defer srv.Close()

	a, b := dial(t, srv), dial(t, srv)
	waitClients(t, h, 2)

	frame := solver.Frame{Step: 3, Mode: "3d", Indices: []int32{0}, Pos: []mgl32.Vec3{{1, 2, 3}}}
	require.NoError(t, h.Publish(frame))

	for _, c := range []*websocket.Conn{a, b} {
		require.NoError(t, c.SetReadDeadline(time.Now().Add(time.Second)))
		var msg Message
		require.NoError(t, c.ReadJSON(&msg))
		assert.Equal(t, "frame", msg.Type)
		require.NotNil(t, msg.Frame)
		assert.Equal(t, int64(3), msg.Frame.Step)
		assert.Equal(t, mgl32.Vec3{1, 2, 3}, msg.Frame.Pos[0])
	}
}

func TestLateClientGetsLastFrame(t *testing.T) {
	h := NewHub(nil, 4)
	srv := httptest.NewServer(h)
	defer srv.Close()

	require.NoError(t, h.Publish(solver.Frame{Step: 7}))
	c := dial(t, srv)
	require.NoError(t, c.SetReadDeadline(time.Now().Add(time.Second)))
	var msg Message
	require.NoError(t, c.ReadJSON(&msg))
	assert.Equal(t, int64(7), msg.Frame.Step)
}

func TestCommands(t *testing.T) {
	h := NewHub(nil, 4)
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := dial(t, srv)
	require.NoError(t, c.WriteJSON(map[string]any{"paused": true, "gravity": []float64{0, -1, 0}}))

	select {
	case cmd := <-h.Commands():
		require.NotNil(t, cmd.Paused)
		assert.True(t, *cmd.Paused)
		assert.Equal(t, []float64{0, -1, 0}, cmd.Gravity)
		assert.Nil(t, cmd.TimeScale)
	case <-time.After(time.Second):
		t.Fatal("no command received")
	}
}

func TestDisconnectRemovesClient(t *testing.T) {
	h := NewHub(nil, 1)
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := dial(t, srv)
	waitClients(t, h, 1)
	c.Close()
	waitClients(t, h, 0)

	h.Close()
	assert.NoError(t, h.Publish(solver.Frame{}))
}
