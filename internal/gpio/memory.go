package gpio

import (
	"fmt"
	"sync"
	"time"
)

// memoryEdgeBuffer is the number of injected edges a line queues before
// SetInput starts dropping them.
const memoryEdgeBuffer = 64

// WriteRecord is one output change observed by a MemoryDriver.
type WriteRecord struct {
	Number int
	High   bool
}

// MemoryDriver keeps pin levels in memory.
//
// It backs the "memory" hardware driver and every test that needs pins.
type MemoryDriver struct {
	mu      sync.Mutex
	initErr error
	lines   map[int]*memoryLine
	writes  []WriteRecord
}

// NewMemoryDriver returns a driver with no lines opened.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{lines: make(map[int]*memoryLine)}
}

// FailInit makes the next Init return err.
func (d *MemoryDriver) FailInit(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initErr = err
}

// Init implements Driver.
func (d *MemoryDriver) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initErr
}

// Open implements Driver.
func (d *MemoryDriver) Open(pin Pin) (Line, error) {
	if pin.Number < 0 {
		return nil, fmt.Errorf("%w: %d", ErrPinNotFound, pin.Number)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	l := &memoryLine{
		driver: d,
		number: pin.Number,
		edges:  make(chan bool, memoryEdgeBuffer),
	}
	// Inputs idle high with the pull-up enabled.
	if pin.Mode == ModeInput {
		l.level = true
	}
	d.lines[pin.Number] = l
	return l, nil
}

// Level returns the current level of a pin and whether it has been opened.
func (d *MemoryDriver) Level(number int) (high, ok bool) {
	d.mu.Lock()
	l, ok := d.lines[number]
	d.mu.Unlock()
	if !ok {
		return false, false
	}
	high, _ = l.Read()
	return high, true
}

// SetInput queues an edge to the given level on an opened input line.
func (d *MemoryDriver) SetInput(number int, high bool) error {
	d.mu.Lock()
	l, ok := d.lines[number]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrPinNotFound, number)
	}

	select {
	case l.edges <- high:
		return nil
	default:
		return fmt.Errorf("gpio: edge buffer full on pin %d", number)
	}
}

// Writes returns every output change in order.
func (d *MemoryDriver) Writes() []WriteRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]WriteRecord(nil), d.writes...)
}

func (d *MemoryDriver) record(number int, high bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes = append(d.writes, WriteRecord{Number: number, High: high})
}

// memoryLine is a single in-memory pin.
type memoryLine struct {
	driver *MemoryDriver
	number int
	edges  chan bool

	mu     sync.Mutex
	level  bool
	halted bool
}

func (l *memoryLine) Out(high bool) error {
	l.mu.Lock()
	if l.halted {
		l.mu.Unlock()
		return fmt.Errorf("gpio: pin %d halted", l.number)
	}
	l.level = high
	l.mu.Unlock()

	l.driver.record(l.number, high)
	return nil
}

func (l *memoryLine) Read() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level, nil
}

func (l *memoryLine) WaitForEdge(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case high := <-l.edges:
		l.mu.Lock()
		l.level = high
		l.mu.Unlock()
		return true
	case <-timer.C:
		return false
	}
}

func (l *memoryLine) Halt() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.halted = true
	l.level = false
	return nil
}
