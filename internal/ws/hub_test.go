package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tictactoe_relay/internal/logger"
	"tictactoe_relay/internal/metrics"
	"tictactoe_relay/internal/protocol"
	"tictactoe_relay/internal/repository"
	"tictactoe_relay/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type relayServer struct {
	hub     *Hub
	metrics *metrics.Relay
	url     string
}

func newRelayServer(t *testing.T, auth *service.TokenAuth) *relayServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := metrics.NewRelay(prometheus.NewRegistry())
	registry := repository.NewMemorySessionRepository(time.Hour)
	hub := NewHub(service.NewRelayService(registry, m), m, logger.Discard())

	r := gin.New()
	r.GET("/ws", NewWSHandler(hub, auth, "").HandleWS())
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
		srv.Close()
	})

	return &relayServer{
		hub:     hub,
		metrics: m,
		url:     "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
	}
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendMsg(t *testing.T, conn *websocket.Conn, m protocol.Message) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, protocol.MustEncode(m)))
}

func readMsg(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	m, err := protocol.Decode(data)
	require.NoError(t, err)
	return m
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	var netErr interface{ Timeout() bool }
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "expected no frame, got err=%v", err)
}

func TestHub_RelaysGameBetweenTwoConnections(t *testing.T) {
	srv := newRelayServer(t, nil)
	p1 := dial(t, srv.url)
	p2 := dial(t, srv.url)

	sendMsg(t, p1, protocol.Start())
	initMsg := readMsg(t, p1)
	require.Equal(t, protocol.TypeInit, initMsg.Type)
	gameID := initMsg.ID

	sendMsg(t, p2, protocol.Join(gameID))
	assert.Equal(t, protocol.Join(gameID), readMsg(t, p1))
	assert.Equal(t, protocol.Join(gameID), readMsg(t, p2))

	sendMsg(t, p1, protocol.Play(gameID, "0,0"))
	assert.Equal(t, protocol.Play(gameID, "0,0"), readMsg(t, p2))

	sendMsg(t, p2, protocol.Play(gameID, "1,1"))
	assert.Equal(t, protocol.Play(gameID, "1,1"), readMsg(t, p1))

	assert.Equal(t, 2.0, testutil.ToFloat64(srv.metrics.PlaysForwarded))
	assert.Equal(t, 2, srv.hub.Len())
}

func TestHub_RejectionGoesToSenderOnly(t *testing.T) {
	srv := newRelayServer(t, nil)
	p1 := dial(t, srv.url)
	p2 := dial(t, srv.url)
	p3 := dial(t, srv.url)

	sendMsg(t, p1, protocol.Start())
	gameID := readMsg(t, p1).ID
	sendMsg(t, p2, protocol.Join(gameID))
	readMsg(t, p1)
	readMsg(t, p2)

	sendMsg(t, p3, protocol.Join(gameID))
	rejected := readMsg(t, p3)
	assert.Equal(t, protocol.TypeError, rejected.Type)
	assert.Equal(t, protocol.CodeSessionFull, rejected.Code)

	expectSilence(t, p1)
	expectSilence(t, p2)
}

func TestHub_UnknownTypeIsIgnored(t *testing.T) {
	srv := newRelayServer(t, nil)
	p1 := dial(t, srv.url)

	require.NoError(t, p1.WriteMessage(websocket.TextMessage, []byte(`{"type":"chat"}`)))

	// первым ответом должен прийти init, а не отказ на chat
	sendMsg(t, p1, protocol.Start())
	assert.Equal(t, protocol.TypeInit, readMsg(t, p1).Type)
}

func TestHub_ForwardToVanishedConnection(t *testing.T) {
	srv := newRelayServer(t, nil)
	p1 := dial(t, srv.url)
	p2 := dial(t, srv.url)

	sendMsg(t, p1, protocol.Start())
	gameID := readMsg(t, p1).ID
	sendMsg(t, p2, protocol.Join(gameID))
	readMsg(t, p1)
	readMsg(t, p2)

	require.NoError(t, p2.Close())
	require.Eventually(t, func() bool { return srv.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	sendMsg(t, p1, protocol.Play(gameID, "0,0"))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(srv.metrics.Undeliverable) == 1
	}, 2*time.Second, 10*time.Millisecond)
	expectSilence(t, p1)
}

type recordingBridge struct {
	mu     sync.Mutex
	frames map[string][][]byte
}

func (b *recordingBridge) Publish(ctx context.Context, connID string, frame []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frames == nil {
		b.frames = make(map[string][][]byte)
	}
	b.frames[connID] = append(b.frames[connID], frame)
	return nil
}

func TestHub_DeliverFallsBackToBridge(t *testing.T) {
	m := metrics.NewRelay(prometheus.NewRegistry())
	hub := NewHub(nil, m, logger.Discard())
	bridge := &recordingBridge{}
	hub.SetBridge(bridge)

	hub.Deliver(context.Background(), "remote-conn", []byte(`{"type":"play"}`))

	assert.Len(t, bridge.frames["remote-conn"], 1)
	assert.Zero(t, testutil.ToFloat64(m.Undeliverable))
	assert.False(t, hub.DeliverLocal("remote-conn", []byte(`{}`)))
}

func TestHandleWS_RequiresTokenWhenAuthEnabled(t *testing.T) {
	auth := service.NewTokenAuth("secret")
	srv := newRelayServer(t, auth)

	_, resp, err := websocket.DefaultDialer.Dial(srv.url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(srv.url+"?token=bogus", nil)
	require.Error(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	token, err := auth.IssueJWT("alice", time.Hour)
	require.NoError(t, err)
	conn := dial(t, srv.url+"?token="+token)
	sendMsg(t, conn, protocol.Start())
	assert.Equal(t, protocol.TypeInit, readMsg(t, conn).Type)
}
