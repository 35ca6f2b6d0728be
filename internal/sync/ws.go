package sync

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultPongWait = 60 * time.Second
	wsMaxReadBytes  = 512
)

type WSOptions struct {
	// Origins follows the API's CORS list; empty or "*" accepts any origin.
	Origins []string
	// PongWait bounds the silence allowed from a client. Pings go out at
	// 9/10 of it. Zero means 60s.
	PongWait time.Duration
}

// WSHandler upgrades feed subscribers and keeps them alive with pings.
func WSHandler(hub *Hub, opts WSOptions) gin.HandlerFunc {
	pongWait := opts.PongWait
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	pingPeriod := pongWait * 9 / 10

	up := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.Origins),
	}

	return func(c *gin.Context) {
		ws, err := up.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Debug("ws upgrade failed", zap.Error(err))
			return
		}
		remote := zap.String("remote", c.Request.RemoteAddr)

		hub.AddWS(ws)
		hub.log.Info("ws client connected", remote)

		done := make(chan struct{})
		go pingLoop(ws, pingPeriod, done)

		// clients only listen; anything they send is drained and dropped
		ws.SetReadLimit(wsMaxReadBytes)
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
			_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		}

		close(done)
		hub.RemoveWS(ws)
		hub.log.Info("ws client disconnected", remote)
	}
}

// pingLoop uses WriteControl, which gorilla allows alongside the hub's writer.
func pingLoop(ws *websocket.Conn, period time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func originChecker(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}
