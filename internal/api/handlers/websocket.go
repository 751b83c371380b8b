package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/golfclapp/backoffice/internal/api/middleware"
	ws "github.com/golfclapp/backoffice/internal/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WebSocketUpgrade upgrades the connection and subscribes it to the events
// of the caller's session.
func WebSocketUpgrade(hub *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFrom(r.Context())

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "error", err)
			return
		}

		client := ws.NewClient(sess.ID())
		hub.Register(client)

		replies := make(chan []byte, 16)
		done := make(chan struct{})
		go writePump(conn, client, replies, done)
		go readPump(conn, client, hub, replies, done)
	}
}

// writePump writes hub messages and replies to the connection. It is the
// only goroutine writing to conn.
func writePump(conn *websocket.Conn, client *ws.Client, replies <-chan []byte, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	write := func(kind int, data []byte) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(kind, data) == nil
	}

	for {
		select {
		case message, ok := <-client.Send():
			if !ok {
				write(websocket.CloseMessage, []byte{})
				return
			}
			if !write(websocket.TextMessage, message) {
				return
			}

		case reply := <-replies:
			if !write(websocket.TextMessage, reply) {
				return
			}

		case <-ticker.C:
			if !write(websocket.PingMessage, nil) {
				return
			}

		case <-done:
			return
		}
	}
}

// readPump reads client commands and queues a reply for each.
func readPump(conn *websocket.Conn, client *ws.Client, hub *ws.Hub, replies chan<- []byte, done chan<- struct{}) {
	defer func() {
		close(done)
		hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(65536)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read failed", "session", client.SessionID(), "error", err)
			}
			return
		}

		data, err := ws.Reply(message).JSON()
		if err != nil {
			continue
		}
		select {
		case replies <- data:
		default:
			slog.Warn("websocket reply dropped", "session", client.SessionID())
		}
	}
}
