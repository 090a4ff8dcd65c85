package httpinterface

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// EventHub fans the published daemon events out to the connected websocket
// clients. The feed is one-way, the read side of every connection only
// consumes control frames.
type EventHub struct {
	clients map[*wsClient]struct{}
	lock    sync.Mutex
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients: map[*wsClient]struct{}{},
	}
}

// BroadcastMessage queues the message on every connected client. A client
// too slow to drain its queue is dropped rather than holding the feed back.
func (h *EventHub) BroadcastMessage(msg []byte) {
	h.lock.Lock()
	defer h.lock.Unlock()

	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// ServeWs upgrades the request to a websocket connection and registers it on
// the hub.
func (h *EventHub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	h.lock.Lock()
	h.clients[client] = struct{}{}
	h.lock.Unlock()

	go h.writePump(client)
	go h.readPump(client)
}

// Close disconnects every client.
func (h *EventHub) Close() {
	h.lock.Lock()
	defer h.lock.Unlock()

	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *EventHub) unregister(client *wsClient) {
	h.lock.Lock()
	defer h.lock.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *EventHub) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			//nolint
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				//nolint
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(
				websocket.TextMessage, msg,
			); err != nil {
				return
			}
		case <-ticker.C:
			//nolint
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(
				websocket.PingMessage, nil,
			); err != nil {
				return
			}
		}
	}
}

// readPump discards everything the client sends and tears the connection
// down on close or error.
func (h *EventHub) readPump(client *wsClient) {
	defer func() {
		h.unregister(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(512)
	//nolint
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		//nolint
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(
				err, websocket.CloseGoingAway, websocket.CloseNormalClosure,
			) {
				log.WithError(err).Debug("websocket read failed")
			}
			return
		}
	}
}
