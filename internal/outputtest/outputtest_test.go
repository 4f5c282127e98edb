package outputtest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/almue/almue-core/internal/gpio"
	"github.com/almue/almue-core/internal/infrastructure/config"
)

func testSet() *config.DeviceSet {
	return &config.DeviceSet{
		Shutters: []config.ShutterConfig{
			{Description: "Kitchen", OpenPin: 5, ClosePin: 6},
		},
		Lightings: []config.LightingConfig{
			{Description: "Garden", SwitchPin: 17},
		},
		WindMonitors: []config.WindMonitorConfig{
			{Description: "Roof", InPin: 22},
		},
	}
}

// recordingSleep records requested waits without sleeping. After cancelAfter
// calls it cancels the context it was given.
type recordingSleep struct {
	mu          sync.Mutex
	waits       []time.Duration
	cancelAfter int
	cancel      context.CancelFunc
}

func (s *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	n := len(s.waits)
	s.mu.Unlock()

	if s.cancel != nil && n == s.cancelAfter {
		s.cancel()
	}
	return ctx.Err()
}

func openConnection(t *testing.T) (*gpio.Connection, *gpio.MemoryDriver) {
	t.Helper()
	driver := gpio.NewMemoryDriver()
	conn := gpio.NewConnection(driver)
	if err := conn.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() }) //nolint:errcheck // test cleanup
	return conn, driver
}

func TestPinsFromConfig(t *testing.T) {
	pins := PinsFromConfig(testSet())

	want := []struct {
		name   string
		number int
	}{
		{"Kitchen_openPin", 5},
		{"Kitchen_closePin", 6},
		{"Garden", 17},
	}
	if len(pins) != len(want) {
		t.Fatalf("PinsFromConfig() returned %d pins, want %d", len(pins), len(want))
	}
	for i, w := range want {
		if pins[i].Name != w.name || pins[i].Number != w.number || pins[i].Mode != gpio.ModeOutput {
			t.Errorf("pins[%d] = %+v, want %s/%d output", i, pins[i], w.name, w.number)
		}
	}

	if got := PinsFromConfig(nil); got != nil {
		t.Errorf("PinsFromConfig(nil) = %v, want nil", got)
	}
}

func TestRun_Sequence(t *testing.T) {
	conn, driver := openConnection(t)
	rs := &recordingSleep{}
	r := New(conn, PinsFromConfig(testSet()))
	r.SetSleep(rs.sleep)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []gpio.WriteRecord{
		// each pin 2s low, 2s high
		{Number: 5}, {Number: 5, High: true},
		{Number: 6}, {Number: 6, High: true},
		{Number: 17}, {Number: 17, High: true},
		// all low, then all high
		{Number: 5}, {Number: 6}, {Number: 17},
		{Number: 5, High: true}, {Number: 6, High: true}, {Number: 17, High: true},
		// forward sweep
		{Number: 5}, {Number: 5, High: true},
		{Number: 6}, {Number: 6, High: true},
		{Number: 17}, {Number: 17, High: true},
		// reverse sweep
		{Number: 17}, {Number: 17, High: true},
		{Number: 6}, {Number: 6, High: true},
		{Number: 5}, {Number: 5, High: true},
	}
	got := driver.Writes()
	if len(got) != len(want) {
		t.Fatalf("writes = %d, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	var steps, allLow, sweeps int
	for _, d := range rs.waits {
		switch d {
		case StepHold:
			steps++
		case AllLowHold:
			allLow++
		case SweepHold:
			sweeps++
		default:
			t.Errorf("unexpected wait %v", d)
		}
	}
	if steps != 6 || allLow != 1 || sweeps != 12 {
		t.Errorf("waits = %d step, %d all-low, %d sweep; want 6, 1, 12", steps, allLow, sweeps)
	}

	if len(conn.Pins()) != 0 {
		t.Errorf("pins still attached after Run: %v", conn.Pins())
	}
}

func TestRun_Cancelled(t *testing.T) {
	conn, driver := openConnection(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rs := &recordingSleep{cancelAfter: 3, cancel: cancel}
	r := New(conn, PinsFromConfig(testSet()))
	r.SetSleep(rs.sleep)

	if err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	// 5 low, 5 high, 6 low before the third wait returned.
	if n := len(driver.Writes()); n != 3 {
		t.Errorf("writes = %d, want 3", n)
	}
	if len(conn.Pins()) != 0 {
		t.Errorf("pins still attached after cancel: %v", conn.Pins())
	}
}

func TestRun_AttachFailure(t *testing.T) {
	conn, _ := openConnection(t)
	pins := []gpio.Pin{
		{Name: "Kitchen_openPin", Number: 5, Mode: gpio.ModeOutput},
		{Name: "Duplicate", Number: 5, Mode: gpio.ModeOutput},
	}
	r := New(conn, pins)
	r.SetSleep((&recordingSleep{}).sleep)

	if err := r.Run(context.Background()); !errors.Is(err, gpio.ErrPinInUse) {
		t.Fatalf("Run() error = %v, want ErrPinInUse", err)
	}
	if conn.Contains("Kitchen_openPin") {
		t.Error("first pin left attached after attach failure")
	}
}

func TestSleep(t *testing.T) {
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Errorf("Sleep() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() error = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep() did not return promptly on cancel")
	}
}
