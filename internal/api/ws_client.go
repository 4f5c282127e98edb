package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API serves the local network only.
	CheckOrigin: func(*http.Request) bool { return true },
}

// WSClient is one websocket connection.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// done is closed once; send is never closed so enqueue cannot panic.
	done      chan struct{}
	closeOnce sync.Once

	mu            sync.RWMutex
	subscriptions map[string]struct{}
}

func newWSClient(hub *Hub, conn *websocket.Conn) *WSClient {
	return &WSClient{
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, wsSendBufferSize),
		done:          make(chan struct{}),
		subscriptions: make(map[string]struct{}),
	}
}

// wsInbound is a client request; the payload is decoded per type.
type wsInbound struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// handleWebSocket upgrades the request. ?channels=a,b subscribes at connect
// time; unknown channel names are ignored.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := newWSClient(s.hub, conn)
	if q := r.URL.Query().Get("channels"); q != "" {
		c.subscribe(strings.Split(q, ","))
	}
	s.hub.Register(c)

	go c.writePump()
	go c.readPump()
}

func (c *WSClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// enqueue queues data unless the client is closed or its buffer is full.
func (c *WSClient) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *WSClient) readPump() {
	defer c.hub.Unregister(c)

	ping, pongWait := c.hub.intervals()
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(ping + pongWait)) }

	if c.hub.cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(int64(c.hub.cfg.MaxMessageSize))
	}
	extend() //nolint:errcheck // a failed deadline surfaces as a read error
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Browsers do not always answer protocol pings; any frame keeps
		// the connection alive.
		extend() //nolint:errcheck // see above
		c.handleMessage(data)
	}
}

func (c *WSClient) writePump() {
	ping, pongWait := c.hub.intervals()
	ticker := time.NewTicker(ping)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	write := func(kind int, data []byte) error {
		c.conn.SetWriteDeadline(time.Now().Add(pongWait)) //nolint:errcheck // write reports it
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data := <-c.send:
			if err := write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			write(websocket.CloseMessage, nil) //nolint:errcheck // connection is going away
			return
		}
	}
}

func (c *WSClient) handleMessage(data []byte) {
	var in wsInbound
	if err := json.Unmarshal(data, &in); err != nil {
		c.reply("", WSTypeError, errorPayload("invalid JSON message"))
		return
	}

	switch in.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		var p WSSubscribePayload
		if len(in.Payload) == 0 || json.Unmarshal(in.Payload, &p) != nil || len(p.Channels) == 0 {
			c.reply(in.ID, WSTypeError, errorPayload("invalid "+in.Type+" payload"))
			return
		}
		for _, ch := range p.Channels {
			if !validChannel(ch) {
				c.reply(in.ID, WSTypeError, errorPayload("unknown channel: "+ch))
				return
			}
		}
		if in.Type == WSTypeSubscribe {
			c.subscribe(p.Channels)
			c.reply(in.ID, WSTypeResponse, map[string]any{"subscribed": p.Channels})
			return
		}
		c.unsubscribe(p.Channels)
		c.reply(in.ID, WSTypeResponse, map[string]any{"unsubscribed": p.Channels})

	case WSTypeSnapshot:
		fn := c.hub.snapshotFunc()
		if fn == nil {
			c.reply(in.ID, WSTypeError, errorPayload("snapshot unavailable"))
			return
		}
		views := fn()
		c.reply(in.ID, WSTypeSnapshot, map[string]any{"devices": views, "count": len(views)})

	case WSTypePing:
		c.reply(in.ID, WSTypePong, nil)

	default:
		c.reply(in.ID, WSTypeError, errorPayload("unknown message type: "+in.Type))
	}
}

func errorPayload(msg string) map[string]string {
	return map[string]string{"message": msg}
}

func (c *WSClient) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: c.hub.timestamp(),
		Payload:   payload,
	})
	if err != nil {
		c.hub.logger.Error("encoding websocket reply failed", "type", msgType, "error", err)
		return
	}
	c.enqueue(data)
}

func (c *WSClient) subscribe(channels []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range channels {
		if validChannel(ch) {
			c.subscriptions[ch] = struct{}{}
		}
	}
}

func (c *WSClient) unsubscribe(channels []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range channels {
		delete(c.subscriptions, ch)
	}
}

func (c *WSClient) subscribedToAny(channels []string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ch := range channels {
		if _, ok := c.subscriptions[ch]; ok {
			return true
		}
	}
	return false
}
