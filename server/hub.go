package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"energyadmin/internal"
	"energyadmin/utility"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	clientSendSize = 64
)

// Envelope wraps every message pushed to dashboard clients
type Envelope struct {
	Type string           `json:"type"`
	Data internal.Message `json:"data"`
}

// Hub fans store events and log lines out to connected websocket clients.
// It implements internal.EventHandler and internal.MessageService.
type Hub struct {
	upgrader websocket.Upgrader
	logger   internal.LogHandler
	mutex    sync.Mutex
	clients  map[*client]struct{}
	closed   bool
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) SetLogger(logger internal.LogHandler) {
	h.logger = logger
}

// Serve upgrades the request and keeps the client registered until it disconnects
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logError("upgrade failed", err)
		return
	}
	c := &client{
		id:   utility.NewUUID(),
		conn: conn,
		send: make(chan []byte, clientSendSize),
	}
	if !h.register(c) {
		_ = conn.Close()
		return
	}
	h.debug(fmt.Sprintf("event feed client %s connected from %s", c.id, r.RemoteAddr))
	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) register(c *client) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	observeConnections(len(h.clients))
	return true
}

// unregister closes the client's send channel, which stops its write pump
func (h *Hub) unregister(c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	observeConnections(len(h.clients))
}

// readPump drains the connection; clients are not expected to send anything
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.debug(fmt.Sprintf("event feed client %s left", c.id))
			} else {
				h.debug(fmt.Sprintf("event feed client %s closing: %s", c.id, err))
			}
			return
		}
		if h.logger != nil {
			h.logger.RawDataEvent("IN", string(message))
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer func() {
		_ = c.conn.Close()
	}()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.debug(fmt.Sprintf("event feed client %s write failed: %s", c.id, err))
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Send queues the message for every client. A client whose queue is full misses it.
func (h *Hub) Send(message internal.Message) error {
	data, err := json.Marshal(Envelope{Type: message.MessageType(), Data: message})
	if err != nil {
		return err
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			countDropped()
		}
	}
	return nil
}

func (h *Hub) OnPlanEvent(event *internal.EventMessage) {
	if err := h.Send(event); err != nil {
		h.logError("push plan event", err)
	}
}

func (h *Hub) OnUserEvent(event *internal.EventMessage) {
	if err := h.Send(event); err != nil {
		h.logError("push user event", err)
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	observeConnections(0)
}

func (h *Hub) debug(text string) {
	if h.logger != nil {
		h.logger.Debug(text)
	}
}

func (h *Hub) logError(text string, err error) {
	if h.logger != nil {
		h.logger.Error(text, err)
	}
}
