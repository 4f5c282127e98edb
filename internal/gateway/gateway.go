package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/almue/almue-core/internal/audit"
	"github.com/almue/almue-core/internal/configsync"
	"github.com/almue/almue-core/internal/device"
	"github.com/almue/almue-core/internal/infrastructure/mqtt"
	"github.com/almue/almue-core/internal/protocol"
)

// QoS levels of the almue topic contract.
const (
	commandQoS = 0
	configQoS  = 1
	statusQoS  = 1
)

// Logger defines the logging interface used by the gateway.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Transport is the MQTT surface the gateway needs. *mqtt.Client satisfies it.
type Transport interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Dispatcher executes decoded commands. *controller.Controller satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd protocol.Command, source string) error
}

// ConfigSource renders the retained configuration payload.
type ConfigSource interface {
	ConfigJSON() ([]byte, error)
}

// Gateway routes MQTT messages to devices and publishes device state.
type Gateway struct {
	transport  Transport
	dispatcher Dispatcher
	config     ConfigSource

	mu      sync.RWMutex
	routes  map[string]string // topic -> device description
	ctx     context.Context
	started bool

	// publishMu serialises config publishes so the broker retains the newest.
	publishMu sync.Mutex

	logger Logger
}

// New creates a gateway. Call Start to subscribe.
func New(transport Transport, dispatcher Dispatcher, config ConfigSource) *Gateway {
	return &Gateway{
		transport:  transport,
		dispatcher: dispatcher,
		config:     config,
		routes:     make(map[string]string),
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger.
func (g *Gateway) SetLogger(logger Logger) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.logger = logger
}

func (g *Gateway) log() Logger {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.logger
}

// Start subscribes to the command topics of devices and publishes the
// retained configuration. ctx bounds the dispatch of inbound commands.
// A failed subscription aborts Start; topics already subscribed stay routed.
func (g *Gateway) Start(ctx context.Context, devices []device.Device) error {
	g.mu.Lock()
	g.ctx = ctx
	g.started = true
	g.mu.Unlock()

	for _, d := range devices {
		for _, topic := range protocol.DeviceTopics(d.Type(), d.Floor(), d.Description()) {
			if err := g.subscribe(topic, d.Description()); err != nil {
				return fmt.Errorf("subscribing %s: %w", d.ID(), err)
			}
		}
	}

	g.log().Info("gateway started", "devices", len(devices), "topics", len(g.Topics()))
	return g.PublishConfig()
}

func (g *Gateway) subscribe(topic, description string) error {
	g.mu.Lock()
	g.routes[topic] = description
	g.mu.Unlock()

	if err := g.transport.Subscribe(topic, commandQoS, g.handleMessage); err != nil {
		g.mu.Lock()
		delete(g.routes, topic)
		g.mu.Unlock()
		return err
	}
	g.log().Debug("subscribed", "topic", topic, "description", description)
	return nil
}

// Stop unsubscribes every command topic.
func (g *Gateway) Stop() {
	g.mu.Lock()
	topics := make([]string, 0, len(g.routes))
	for topic := range g.routes {
		topics = append(topics, topic)
	}
	g.routes = make(map[string]string)
	g.started = false
	g.mu.Unlock()

	for _, topic := range topics {
		if err := g.transport.Unsubscribe(topic); err != nil {
			g.log().Debug("unsubscribe failed", "topic", topic, "error", err)
		}
	}
	g.log().Info("gateway stopped", "topics", len(topics))
}

// Topics returns the routed command topics, sorted.
func (g *Gateway) Topics() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.routes))
	for topic := range g.routes {
		out = append(out, topic)
	}
	sort.Strings(out)
	return out
}

// handleMessage is the MQTT handler of every command topic. Decode and
// dispatch failures are logged here and not returned, because nothing
// upstream can act on them.
func (g *Gateway) handleMessage(topic string, payload []byte) error {
	g.mu.RLock()
	description, ok := g.routes[topic]
	ctx := g.ctx
	g.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnroutedTopic, topic)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cmd, err := protocol.Decode(topic, payload, description)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownTopic) {
			g.log().Error("message on unknown topic", "topic", topic, "error", err)
		} else {
			g.log().Warn("message not decoded", "topic", topic, "payload", string(payload), "error", err)
		}
		return nil
	}

	// The controller logs and audits its own failures.
	_ = g.dispatcher.Dispatch(ctx, cmd, audit.SourceMQTT) //nolint:errcheck // logged by the controller
	return nil
}

// PublishConfig publishes the current configuration, retained.
func (g *Gateway) PublishConfig() error {
	g.mu.RLock()
	started := g.started
	g.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	g.publishMu.Lock()
	defer g.publishMu.Unlock()

	payload, err := g.config.ConfigJSON()
	if err != nil {
		return fmt.Errorf("rendering config: %w", err)
	}
	if err := g.transport.Publish(protocol.ConfigTopic, payload, configQoS, true); err != nil {
		return fmt.Errorf("publishing config: %w", err)
	}
	g.log().Debug("config published", "bytes", len(payload))
	return nil
}

// PublishStatus publishes a device status to its retained status topic.
func (g *Gateway) PublishStatus(typ device.Type, floor, description string, status device.Status) error {
	topic := protocol.StatusTopic(typ, floor, description)
	if err := g.transport.Publish(topic, []byte(status), statusQoS, true); err != nil {
		return fmt.Errorf("publishing status of %s: %w", description, err)
	}
	return nil
}

// DeviceChanged implements configsync.Listener.
func (g *Gateway) DeviceChanged(ev configsync.Event) {
	if sc, ok := ev.Change.(device.StatusChanged); ok {
		if err := g.PublishStatus(ev.DeviceType, ev.Floor, ev.Description, sc.Status); err != nil {
			g.log().Warn("status not published", "device", ev.DeviceID, "error", err)
		}
	}
	if !ev.Persisted {
		return
	}
	if err := g.PublishConfig(); err != nil && !errors.Is(err, ErrNotStarted) {
		g.log().Warn("config not published", "device", ev.DeviceID, "field", ev.Field, "error", err)
	}
}

// Republish publishes the configuration and every device status again.
// It runs after the MQTT client reconnects.
func (g *Gateway) Republish(devices []device.Device) {
	if err := g.PublishConfig(); err != nil {
		g.log().Warn("config not republished", "error", err)
		return
	}
	for _, d := range devices {
		sp, ok := d.(device.StatusProvider)
		if !ok {
			continue
		}
		if err := g.PublishStatus(d.Type(), d.Floor(), d.Description(), sp.Status()); err != nil {
			g.log().Warn("status not republished", "device", d.ID(), "error", err)
		}
	}
}
