package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/almue/almue-core/internal/infrastructure/config"
)

// Logger is satisfied by *logging.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MessageHandler processes one received message. A returned error is logged.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// Client is a connected MQTT client. All methods are safe for concurrent use.
type Client struct {
	client   pahomqtt.Client
	cfg      config.MQTTConfig
	clientID string
	status   string

	connected  atomic.Bool
	reconnects atomic.Int64

	subMu         sync.RWMutex
	subscriptions map[string]subscription

	// mu guards the hooks below.
	mu        sync.RWMutex
	onConnect func()
	logger    Logger
}

// Connect dials the broker and waits for the first connection.
// On success the online status is published retained.
func Connect(cfg config.MQTTConfig, o Options) (*Client, error) {
	c := newClient(cfg, o)
	broker := brokerURL(cfg.Broker)

	opts := buildClientOptions(cfg, c.clientID)
	configureLWT(opts, c.status, c.clientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.connected.Store(false)
		c.log().Warn("mqtt connection lost", "broker", broker, "error", err)
	})
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		n := c.reconnects.Add(1)
		c.log().Info("reconnecting to mqtt broker", "broker", broker, "attempt", n)
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		c.client.Disconnect(0)
		return nil, fmt.Errorf("%w: %s: timeout after %v", ErrConnectionFailed, broker, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, broker, err)
	}

	// handleConnect may not have run yet.
	c.connected.Store(true)
	return c, nil
}

func newClient(cfg config.MQTTConfig, o Options) *Client {
	c := &Client{
		cfg:           cfg,
		clientID:      sessionClientID(cfg.Broker.ClientID),
		status:        o.StatusTopic,
		subscriptions: make(map[string]subscription),
		logger:        noopLogger{},
	}
	if o.Logger != nil {
		c.logger = o.Logger
	}
	return c
}

// ClientID returns the session client id, including its random suffix.
func (c *Client) ClientID() string {
	return c.clientID
}

// Reconnects returns how many reconnect attempts paho has made.
func (c *Client) Reconnects() int64 {
	return c.reconnects.Load()
}

// handleConnect runs on paho's goroutine after every (re)connect. The
// subscriptions go back first so the hook's republish sees live handlers.
func (c *Client) handleConnect() {
	c.connected.Store(true)
	c.restoreSubscriptions()
	c.publishStatus(StatusOnline, "")
	c.log().Info("connected to mqtt broker", "broker", brokerURL(c.cfg.Broker), "client_id", c.clientID)

	c.mu.RLock()
	hook := c.onConnect
	c.mu.RUnlock()
	if hook != nil {
		hook()
	}
}

func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	subs := make([]subscription, 0, len(c.subscriptions))
	for _, sub := range c.subscriptions {
		subs = append(subs, sub)
	}
	c.subMu.RUnlock()

	for _, sub := range subs {
		if err := await(c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler)), ErrSubscribeFailed); err != nil {
			c.log().Error("restoring mqtt subscription failed", "topic", sub.topic, "error", err)
		}
	}
}

func (c *Client) publishStatus(status, reason string) {
	if c.status == "" {
		return
	}
	payload := statusPayload(status, c.clientID, reason)
	if err := await(c.client.Publish(c.status, 1, true, payload), ErrPublishFailed); err != nil {
		c.log().Warn("publishing mqtt status failed", "status", status, "error", err)
	}
}

// Close publishes the offline status and disconnects.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	if c.IsConnected() {
		c.publishStatus(StatusOffline, "graceful_shutdown")
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the broker is unreachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.client != nil && c.client.IsConnected()
}

// SetOnConnect sets a hook run after every (re)connect, once the
// subscriptions are restored. The gateway uses it to republish retained state.
func (c *Client) SetOnConnect(hook func()) {
	c.mu.Lock()
	c.onConnect = hook
	c.mu.Unlock()
}

func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) log() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// wrapHandler adapts a MessageHandler to paho, logging its error and
// recovering a panic so one bad message cannot stop the router.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.log().Error("mqtt handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.log().Warn("mqtt handler returned error", "topic", msg.Topic(), "error", err)
		}
	}
}
