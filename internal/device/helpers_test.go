package device

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/almue/almue-core/internal/gpio"
)

// fakeClock fires timers only when Advance is called.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer

	// ignoreStop lets stopped timers fire anyway, simulating a callback
	// that was already running when Stop was called.
	ignoreStop bool
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward and runs due callbacks in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if t.fired || t.at > c.now {
			continue
		}
		if t.stopped && !c.ignoreStop {
			continue
		}
		t.fired = true
		due = append(due, t)
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

// changeRecorder collects change notifications.
type changeRecorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *changeRecorder) handle(_ Device, c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *changeRecorder) all() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Change(nil), r.changes...)
}

func (r *changeRecorder) count(field string) int {
	n := 0
	for _, c := range r.all() {
		if c.Field() == field {
			n++
		}
	}
	return n
}

// fakeReceiver counts emergency deliveries.
type fakeReceiver struct {
	id      string
	mu      sync.Mutex
	enabled bool
	calls   int
}

func (f *fakeReceiver) ID() string          { return "shutter/" + f.id }
func (f *fakeReceiver) Type() Type          { return TypeShutter }
func (f *fakeReceiver) Description() string { return f.id }
func (f *fakeReceiver) Floor() string       { return "" }
func (f *fakeReceiver) Release() error      { return nil }

func (f *fakeReceiver) EmergencyEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

func (f *fakeReceiver) SetEmergencyEnabled(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = v
}

func (f *fakeReceiver) HandleEmergency(Device) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
}

func (f *fakeReceiver) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// testRig is an opened memory connection plus clock and recorder.
type testRig struct {
	driver   *gpio.MemoryDriver
	conn     *gpio.Connection
	clock    *fakeClock
	recorder *changeRecorder
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	driver := gpio.NewMemoryDriver()
	conn := gpio.NewConnection(driver)
	if err := conn.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() }) //nolint:errcheck // test cleanup
	return &testRig{
		driver:   driver,
		conn:     conn,
		clock:    &fakeClock{},
		recorder: &changeRecorder{},
	}
}

func (r *testRig) options() Options {
	return Options{Clock: r.clock, OnChange: r.recorder.handle}
}

func (r *testRig) level(t *testing.T, pin string) bool {
	t.Helper()
	high, err := r.conn.Read(pin)
	if err != nil {
		t.Fatalf("Read(%s) error = %v", pin, err)
	}
	return high
}
