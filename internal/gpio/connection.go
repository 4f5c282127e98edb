package gpio

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// edgePollInterval bounds how long a watcher blocks before checking for removal.
const edgePollInterval = 250 * time.Millisecond

// Logger defines the logging interface used by the connection.
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

// attachedPin is a pin on the connection together with its watcher.
type attachedPin struct {
	pin  Pin
	line Line
	stop chan struct{}
	done chan struct{}
}

// Connection is the shared set of attached pins.
type Connection struct {
	mu     sync.Mutex
	driver Driver
	opened bool
	pins   map[string]*attachedPin
	logger Logger
}

// NewConnection creates an unopened connection on the given driver.
func NewConnection(driver Driver) *Connection {
	return &Connection{
		driver: driver,
		pins:   make(map[string]*attachedPin),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the connection.
func (c *Connection) SetLogger(logger Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

// Open initialises the driver. Calling Open on an opened connection is a no-op.
func (c *Connection) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opened {
		return nil
	}
	if err := c.driver.Init(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionUnavailable, err)
	}
	c.opened = true
	return nil
}

// IsOpened reports whether Open succeeded.
func (c *Connection) IsOpened() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened
}

// Add attaches a pin. Adding a name that is already attached is a no-op.
// Input pins get a watcher goroutine that forwards edges to pin.OnEdge.
func (c *Connection) Add(pin Pin) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.opened {
		return ErrNotOpened
	}
	if _, ok := c.pins[pin.Name]; ok {
		return nil
	}
	for _, ap := range c.pins {
		if ap.pin.Number == pin.Number {
			return fmt.Errorf("%w: %d (%s)", ErrPinInUse, pin.Number, ap.pin.Name)
		}
	}

	line, err := c.driver.Open(pin)
	if err != nil {
		return fmt.Errorf("opening pin %s (%d): %w", pin.Name, pin.Number, err)
	}

	ap := &attachedPin{pin: pin, line: line}
	if pin.Mode == ModeInput && pin.OnEdge != nil {
		ap.stop = make(chan struct{})
		ap.done = make(chan struct{})
		go c.watch(ap)
	}
	c.pins[pin.Name] = ap
	c.logger.Debug("pin attached", "pin", pin.Name, "number", pin.Number, "mode", pin.Mode.String())
	return nil
}

// Remove detaches a pin and releases its line. Removing an unknown name is a no-op.
func (c *Connection) Remove(name string) error {
	c.mu.Lock()
	ap, ok := c.pins[name]
	if ok {
		delete(c.pins, name)
	}
	c.mu.Unlock()

	if !ok {
		return nil
	}

	// The watcher may be blocked in an edge callback that itself takes
	// device locks, so wait for it outside c.mu.
	if ap.stop != nil {
		close(ap.stop)
		<-ap.done
	}
	if err := ap.line.Halt(); err != nil {
		return fmt.Errorf("releasing pin %s: %w", name, err)
	}
	c.logger.Debug("pin detached", "pin", name)
	return nil
}

// Contains reports whether a pin with the given name is attached.
func (c *Connection) Contains(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pins[name]
	return ok
}

// Write drives an attached output pin.
func (c *Connection) Write(name string, high bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ap, ok := c.pins[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPinNotAttached, name)
	}
	if ap.pin.Mode != ModeOutput {
		return fmt.Errorf("%w: %s is an input", ErrWrongMode, name)
	}
	if err := ap.line.Out(high); err != nil {
		return fmt.Errorf("writing pin %s: %w", name, err)
	}
	return nil
}

// Read returns the level of an attached pin.
func (c *Connection) Read(name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ap, ok := c.pins[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrPinNotAttached, name)
	}
	return ap.line.Read()
}

// Pins returns the attached pins sorted by name.
func (c *Connection) Pins() []Pin {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Pin, 0, len(c.pins))
	for _, ap := range c.pins {
		out = append(out, ap.pin)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Close detaches every pin.
func (c *Connection) Close() error {
	var firstErr error
	for _, p := range c.Pins() {
		if err := c.Remove(p.Name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// watch forwards edges of an input line until the pin is removed.
func (c *Connection) watch(ap *attachedPin) {
	defer close(ap.done)

	for {
		select {
		case <-ap.stop:
			return
		default:
		}

		if !ap.line.WaitForEdge(edgePollInterval) {
			continue
		}
		high, err := ap.line.Read()
		if err != nil {
			continue
		}
		c.deliver(ap.pin, high)
	}
}

// deliver runs an edge callback, recovering from panics so the watcher survives.
func (c *Connection) deliver(pin Pin, high bool) {
	defer func() {
		if r := recover(); r != nil {
			c.mu.Lock()
			logger := c.logger
			c.mu.Unlock()
			logger.Error("panic in edge handler", "pin", pin.Name, "panic", r)
		}
	}()
	pin.OnEdge(high)
}
