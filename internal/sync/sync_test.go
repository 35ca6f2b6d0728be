package sync_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	synchub "classreviews/internal/sync"
)

func readJSONLine(t *testing.T, r *bufio.Reader) map[string]any {
	t.Helper()
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &out))
	return out
}

func startTCP(t *testing.T, hub *synchub.Hub) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := synchub.NewServer(ln.Addr().String(), hub, zap.NewNop())
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })
	return ln.Addr().String()
}

func waitForClients(t *testing.T, hub *synchub.Hub, tcp, ws int) {
	t.Helper()
	require.Eventually(t, func() bool {
		s := hub.Stats()
		return s.TCPClients == tcp && s.WSClients == ws
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_TCPBroadcast(t *testing.T) {
	hub := synchub.NewHub(zap.NewNop())
	addr := startTCP(t, hub)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	r := bufio.NewReader(conn)

	hello := readJSONLine(t, r)
	assert.Equal(t, "welcome", hello["type"])
	assert.Equal(t, "tcp", hello["transport"])
	waitForClients(t, hub, 1, 0)

	hub.BroadcastJSON(synchub.ReviewEvent{Type: synchub.EventDeleted, ReviewID: "r1"})
	ev := readJSONLine(t, r)
	assert.Equal(t, "review.deleted", ev["type"])
	assert.Equal(t, "r1", ev["review_id"])

	conn.Close()
	waitForClients(t, hub, 0, 0)
}

func TestBus_ForwardsToWebSocket(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	hub := synchub.NewHub(logger)

	bus, err := synchub.NewBus(logger, prometheus.NewRegistry())
	require.NoError(t, err)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = bus.Forward(ctx, hub) }()

	router := gin.New()
	router.GET("/ws", synchub.WSHandler(hub, synchub.WSOptions{}))
	srv := httptest.NewServer(router)
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer ws.Close()

	_, hello, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(hello), `"transport":"websocket"`)
	waitForClients(t, hub, 0, 1)

	// the forwarder subscribes asynchronously; publish until it delivers
	_ = ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			_ = bus.Publish(context.Background(), synchub.ReviewEvent{Type: synchub.EventCreated, ReviewID: "r9", At: time.Now()})
			time.Sleep(20 * time.Millisecond)
		}
	}()
	defer close(done)

	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	var ev synchub.ReviewEvent
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, synchub.EventCreated, ev.Type)
	assert.Equal(t, "r9", ev.ReviewID)
}

func TestBus_SubscribeEndsOnCancel(t *testing.T) {
	bus, err := synchub.NewBus(nil, nil)
	require.NoError(t, err)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	events, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not end")
	}
}

func TestWSHandler_RejectsUnknownOrigin(t *testing.T) {
	hub := synchub.NewHub(zap.NewNop())
	defer hub.Close()

	router := gin.New()
	router.GET("/ws", synchub.WSHandler(hub, synchub.WSOptions{Origins: []string{"http://board.local"}}))
	srv := httptest.NewServer(router)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{"http://evil.local"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	ws, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{"http://board.local"}})
	require.NoError(t, err)
	_ = ws.Close()
}

func TestWSHandler_KeepsIdleClientsAlive(t *testing.T) {
	hub := synchub.NewHub(zap.NewNop())
	defer hub.Close()

	pongWait := 200 * time.Millisecond
	router := gin.New()
	router.GET("/ws", synchub.WSHandler(hub, synchub.WSOptions{PongWait: pongWait}))
	srv := httptest.NewServer(router)
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer ws.Close()

	// reading lets the client's default ping handler answer with pongs
	msgs := make(chan []byte, 4)
	go func() {
		defer close(msgs)
		for {
			_, msg, err := ws.ReadMessage()
			if err != nil {
				return
			}
			msgs <- msg
		}
	}()
	<-msgs // welcome
	waitForClients(t, hub, 0, 1)

	time.Sleep(3 * pongWait)
	assert.Equal(t, 1, hub.Stats().WSClients)

	hub.BroadcastJSON(synchub.ReviewEvent{Type: synchub.EventDeleted, ReviewID: "r1"})
	select {
	case msg, ok := <-msgs:
		require.True(t, ok, "connection closed while idle")
		assert.Contains(t, string(msg), `"review_id":"r1"`)
	case <-time.After(2 * time.Second):
		t.Fatal("no event after idle period")
	}
}
