package api

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/almue/almue-core/internal/configsync"
	"github.com/almue/almue-core/internal/infrastructure/config"
	"github.com/almue/almue-core/internal/infrastructure/logging"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypeSnapshot    = "snapshot"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// ChannelDeviceChanged carries every applied device change. A client that
// only follows one device subscribes to DeviceChannel(id) instead.
const ChannelDeviceChanged = "device.changed"

const (
	wsSendBufferSize = 256

	defaultPingInterval = 30 * time.Second
	defaultPongTimeout  = 10 * time.Second
)

// DeviceChannel returns the channel carrying the changes of one device,
// e.g. "device.changed:shutter/Kitchen".
func DeviceChannel(deviceID string) string {
	return ChannelDeviceChanged + ":" + deviceID
}

// validChannel reports whether name is a channel the hub publishes on.
func validChannel(name string) bool {
	if name == ChannelDeviceChanged {
		return true
	}
	id, ok := strings.CutPrefix(name, ChannelDeviceChanged+":")
	return ok && id != ""
}

// WSMessage is the envelope of every frame in both directions.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload of subscribe and unsubscribe requests.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// Hub tracks the connected clients and fans device changes out to them.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger
	now    func() time.Time

	mu       sync.RWMutex
	clients  map[*WSClient]struct{}
	snapshot func() []DeviceView
}

// NewHub creates an empty hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		clients: make(map[*WSClient]struct{}),
	}
}

// SetSnapshot sets the source answering snapshot requests.
func (h *Hub) SetSnapshot(fn func() []DeviceView) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = fn
}

func (h *Hub) snapshotFunc() func() []DeviceView {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshot
}

// Run blocks until ctx is done and then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	clear(h.clients)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// Register adds a client.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// Unregister removes a client and closes it. Unknown clients are ignored.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.close()
		h.logger.Debug("websocket client disconnected", "clients", n)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// DeviceChanged implements configsync.Listener. The event goes to clients
// subscribed to ChannelDeviceChanged or to the device's own channel.
func (h *Hub) DeviceChanged(ev configsync.Event) {
	h.publish(ChannelDeviceChanged, ev, ChannelDeviceChanged, DeviceChannel(ev.DeviceID))
}

// publish encodes the event once and queues it for every client subscribed
// to at least one of channels. Clients with a full buffer miss the event.
func (h *Hub) publish(eventType string, payload any, channels ...string) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: eventType,
		Timestamp: h.timestamp(),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("encoding websocket event failed", "event", eventType, "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	var sent, dropped int
	for _, c := range clients {
		if !c.subscribedToAny(channels) {
			continue
		}
		if c.enqueue(data) {
			sent++
		} else {
			dropped++
		}
	}
	if sent > 0 || dropped > 0 {
		h.logger.Debug("websocket event sent", "event", eventType, "recipients", sent, "dropped", dropped)
	}
}

func (h *Hub) timestamp() string {
	return h.now().UTC().Format(time.RFC3339)
}

// intervals returns the keepalive timings with defaults for unset values.
func (h *Hub) intervals() (ping, pongWait time.Duration) {
	ping = time.Duration(h.cfg.PingInterval) * time.Second
	if ping <= 0 {
		ping = defaultPingInterval
	}
	pongWait = time.Duration(h.cfg.PongTimeout) * time.Second
	if pongWait <= 0 {
		pongWait = defaultPongTimeout
	}
	return ping, pongWait
}
