package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newWSServer 启动完整的 HTTP + WebSocket 服务
func newWSServer(t *testing.T, cfg GameConfig) (*httptest.Server, *Manager, *Hub) {
	t.Helper()
	hub := NewHub()
	m, err := NewManager(ManagerConfig{Game: cfg, Sender: hub})
	require.NoError(t, err)
	t.Cleanup(m.StopAll)

	router := NewRouter(RouterConfig{
		Mode:        gin.TestMode,
		Controllers: []Controller{NewGateway(m, hub, 256), NewAdminController(m)},
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, m, hub
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sendJSON(t *testing.T, c *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, c.WriteJSON(v))
}

// readUntil 读取消息直到出现指定类型
func readUntil(t *testing.T, c *websocket.Conn, typ string) sentMsg {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, b, err := c.ReadMessage()
		require.NoError(t, err, "waiting for %s", typ)
		var m sentMsg
		require.NoError(t, json.Unmarshal(b, &m))
		if m.Type == typ {
			return m
		}
	}
}

func TestGatewayFullRound(t *testing.T) {
	srv, _, hub := newWSServer(t, fastConfig())
	a := dial(t, srv)
	b := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Count() == 2 }, timeout, poll)

	sendJSON(t, a, map[string]string{"type": "ready"})
	readUntil(t, a, EvtWaiting)
	sendJSON(t, b, map[string]string{"type": "ready"})

	readUntil(t, a, EvtMatchFound)
	readUntil(t, b, EvtMatchFound)
	readUntil(t, a, EvtStartGame)

	first := readUntil(t, b, EvtState)
	st := decodeData[StatePayload](t, first)
	assert.Equal(t, int64(1), st.Tick)
	assert.Equal(t, 69, st.Players[0].X)

	over := readUntil(t, a, EvtGameOver)
	assert.Equal(t, ReasonRoundFinished, decodeData[GameOverPayload](t, over).Reason)
	readUntil(t, b, EvtGameOver)

	sendJSON(t, a, map[string]string{"type": "rematchRequest"})
	readUntil(t, b, EvtOpponentRematchRequest)
	sendJSON(t, b, map[string]string{"type": "rematchRequest"})
	readUntil(t, a, EvtRematchStart)
	readUntil(t, b, EvtMatchFound)
}

func TestGatewayDisconnect(t *testing.T) {
	srv, m, hub := newWSServer(t, slowTickConfig())
	a := dial(t, srv)
	b := dial(t, srv)

	sendJSON(t, a, map[string]string{"type": "ready"})
	readUntil(t, a, EvtWaiting)
	sendJSON(t, b, map[string]string{"type": "ready"})
	readUntil(t, b, EvtStartGame)

	sendJSON(t, b, map[string]string{"type": "input", "data": "ArrowUp"})
	require.NoError(t, a.Close())

	over := readUntil(t, b, EvtGameOver)
	assert.Equal(t, ReasonOpponentDisconnected, decodeData[GameOverPayload](t, over).Reason)
	readUntil(t, b, EvtOpponentLeft)

	assert.Eventually(t, func() bool { return hub.Count() == 1 }, timeout, poll)
	assert.Empty(t, m.Rooms())
}

func TestClientConnEnqueue(t *testing.T) {
	c := NewClientConn(nil, 1)
	assert.True(t, c.Enqueue([]byte("1")))
	assert.False(t, c.Enqueue([]byte("2")), "full queue drops")
	assert.Equal(t, []byte("1"), <-c.send)
}

func TestHubSend(t *testing.T) {
	hub := NewHub()
	c := NewClientConn(nil, 4)
	hub.Register("a", c)
	assert.Equal(t, 1, hub.Count())

	hub.Send("a", []byte("hello"))
	hub.Send("ghost", []byte("dropped"))
	assert.Equal(t, []byte("hello"), <-c.send)

	hub.Unregister("a")
	hub.Send("a", []byte("late"))
	assert.Len(t, c.send, 0)
	assert.Equal(t, 0, hub.Count())
}
