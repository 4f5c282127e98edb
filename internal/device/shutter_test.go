package device

import (
	"sync"
	"testing"
	"time"
)

func newTestShutter(t *testing.T, rig *testRig, disabled bool) *Shutter {
	t.Helper()
	sh, err := NewShutter(ShutterSettings{
		Description:          "Blind1",
		Floor:                "Kitchen",
		OpenPin:              17,
		ClosePin:             18,
		CompleteWayInSeconds: 5,
		Disabled:             disabled,
		Status:               StatusClosed,
	}, rig.conn, rig.options())
	if err != nil {
		t.Fatalf("NewShutter() error = %v", err)
	}
	return sh
}

func TestNewShutter_Validation(t *testing.T) {
	rig := newTestRig(t)
	tests := []struct {
		name string
		s    ShutterSettings
	}{
		{name: "missing description", s: ShutterSettings{CompleteWayInSeconds: 5}},
		{name: "zero travel time", s: ShutterSettings{Description: "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewShutter(tt.s, rig.conn, rig.options()); err == nil {
				t.Error("NewShutter() expected error")
			}
		})
	}
}

func TestShutter_OpenRunsFullTravel(t *testing.T) {
	rig := newTestRig(t)
	sh := newTestShutter(t, rig, false)

	if err := sh.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if got := sh.Status(); got != StatusUndefined {
		t.Errorf("Status() after Open = %s, want Undefined", got)
	}
	if !rig.level(t, "Blind1_openPin") {
		t.Error("open pin low while opening")
	}
	if rig.level(t, "Blind1_closePin") {
		t.Error("close pin high while opening")
	}
	if !sh.Moving() {
		t.Error("Moving() = false while opening")
	}

	rig.clock.Advance(5 * time.Second)

	if got := sh.Status(); got != StatusOpened {
		t.Errorf("Status() after travel = %s, want Opened", got)
	}
	if rig.level(t, "Blind1_openPin") || rig.level(t, "Blind1_closePin") {
		t.Error("outputs still energised after travel")
	}
	if sh.Moving() {
		t.Error("Moving() = true after travel")
	}
}

func TestShutter_CloseRunsFullTravel(t *testing.T) {
	rig := newTestRig(t)
	sh := newTestShutter(t, rig, false)

	if err := sh.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !rig.level(t, "Blind1_closePin") || rig.level(t, "Blind1_openPin") {
		t.Error("unexpected outputs while closing")
	}

	rig.clock.Advance(4 * time.Second)
	if got := sh.Status(); got != StatusUndefined {
		t.Errorf("Status() before travel ends = %s, want Undefined", got)
	}

	rig.clock.Advance(time.Second)
	if got := sh.Status(); got != StatusClosed {
		t.Errorf("Status() after travel = %s, want Closed", got)
	}
}

func TestShutter_StopKeepsStatus(t *testing.T) {
	rig := newTestRig(t)
	sh := newTestShutter(t, rig, false)

	if err := sh.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	rig.clock.Advance(2 * time.Second)

	if err := sh.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := sh.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}

	rig.clock.Advance(10 * time.Second)

	if got := sh.Status(); got != StatusUndefined {
		t.Errorf("Status() after Stop = %s, want Undefined", got)
	}
	if rig.level(t, "Blind1_openPin") || rig.level(t, "Blind1_closePin") {
		t.Error("outputs energised after Stop")
	}
}

func TestShutter_StaleTimerDiscarded(t *testing.T) {
	rig := newTestRig(t)
	rig.clock.ignoreStop = true
	sh := newTestShutter(t, rig, false)

	if err := sh.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	rig.clock.Advance(3 * time.Second)
	if err := sh.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// The open timer fires at 5s even though it was stopped.
	rig.clock.Advance(2 * time.Second)
	if got := sh.Status(); got != StatusUndefined {
		t.Errorf("Status() after stale callback = %s, want Undefined", got)
	}
	if !rig.level(t, "Blind1_closePin") {
		t.Error("stale callback released the close relay")
	}

	rig.clock.Advance(3 * time.Second)
	if got := sh.Status(); got != StatusClosed {
		t.Errorf("Status() after close travel = %s, want Closed", got)
	}
}

func TestShutter_DisabledDoesNotTouchOutputs(t *testing.T) {
	rig := newTestRig(t)
	sh := newTestShutter(t, rig, true)

	for _, op := range []func() error{sh.Open, sh.Close, sh.Stop} {
		if err := op(); err != nil {
			t.Fatalf("operation on disabled shutter error = %v", err)
		}
	}

	if writes := rig.driver.Writes(); len(writes) != 0 {
		t.Errorf("driver writes = %v, want none", writes)
	}
	if got := sh.Status(); got != StatusClosed {
		t.Errorf("Status() = %s, want Closed", got)
	}
	if rig.conn.Contains("Blind1_openPin") {
		t.Error("disabled shutter has pins attached")
	}
}

func TestShutter_DisableStopsMovingShutter(t *testing.T) {
	rig := newTestRig(t)
	sh := newTestShutter(t, rig, false)

	if err := sh.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := sh.SetDisabled(true); err != nil {
		t.Fatalf("SetDisabled(true) error = %v", err)
	}

	if sh.Moving() {
		t.Error("Moving() = true after disable")
	}
	if level, _ := rig.driver.Level(17); level {
		t.Error("open relay left energised after disable")
	}

	rig.clock.Advance(10 * time.Second)
	if got := sh.Status(); got != StatusUndefined {
		t.Errorf("Status() = %s, want Undefined", got)
	}
}

func TestShutter_DisableToggleTracksPins(t *testing.T) {
	rig := newTestRig(t)
	sh := newTestShutter(t, rig, false)

	for _, disabled := range []bool{true, false, true} {
		if err := sh.SetDisabled(disabled); err != nil {
			t.Fatalf("SetDisabled(%v) error = %v", disabled, err)
		}
		attached := rig.conn.Contains("Blind1_openPin") && rig.conn.Contains("Blind1_closePin")
		if attached == disabled {
			t.Errorf("after SetDisabled(%v) pins attached = %v", disabled, attached)
		}
	}

	if got := rig.recorder.count("disabled"); got != 3 {
		t.Errorf("disabled notifications = %d, want 3", got)
	}

	// Setting the current value again is silent.
	if err := sh.SetDisabled(true); err != nil {
		t.Fatalf("SetDisabled(true) error = %v", err)
	}
	if got := rig.recorder.count("disabled"); got != 3 {
		t.Errorf("disabled notifications after no-op = %d, want 3", got)
	}
}

func TestShutter_DisableToggleConcurrent(t *testing.T) {
	rig := newTestRig(t)
	sh := newTestShutter(t, rig, false)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = sh.SetDisabled(i%2 == 0)
		}(i)
	}
	wg.Wait()

	attached := rig.conn.Contains("Blind1_openPin") && rig.conn.Contains("Blind1_closePin")
	if attached == sh.Disabled() {
		t.Errorf("Disabled() = %v but pins attached = %v", sh.Disabled(), attached)
	}
	if n := len(rig.conn.Pins()); n != 0 && n != 2 {
		t.Errorf("attached pins = %d, want 0 or 2", n)
	}
}

func TestShutter_ChangeNotifications(t *testing.T) {
	rig := newTestRig(t)
	sh := newTestShutter(t, rig, false)

	sh.SetTimerEnabled(true)
	sh.SetTimerEnabled(true)
	sh.SetOnTime(MustTimeOfDay("07:00"))
	sh.SetOnTime(MustTimeOfDay("07:00:00"))
	sh.SetOffTime(MustTimeOfDay("21:00"))
	sh.SetEmergencyEnabled(true)
	sh.SetEmergencyEnabled(true)

	want := map[string]int{
		"timer_enabled":     1,
		"on_time":           1,
		"off_time":          1,
		"emergency_enabled": 1,
	}
	for field, n := range want {
		if got := rig.recorder.count(field); got != n {
			t.Errorf("%s notifications = %d, want %d", field, got, n)
		}
	}

	if got := sh.OnTime().String(); got != "07:00:00" {
		t.Errorf("OnTime() = %s, want 07:00:00", got)
	}

	// Open from Closed emits Undefined, travel end emits Opened.
	if err := sh.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	rig.clock.Advance(5 * time.Second)
	if got := rig.recorder.count("device_status"); got != 2 {
		t.Errorf("status notifications = %d, want 2", got)
	}
}

func TestShutter_HandleEmergency(t *testing.T) {
	rig := newTestRig(t)
	sh := newTestShutter(t, rig, false)
	source := &fakeReceiver{id: "wind"}

	sh.HandleEmergency(source)
	if sh.Moving() {
		t.Fatal("shutter moved with emergency disabled")
	}

	sh.SetEmergencyEnabled(true)
	sh.HandleEmergency(source)
	if !sh.Moving() || !rig.level(t, "Blind1_openPin") {
		t.Error("emergency did not open the shutter")
	}
}

func TestShutter_Release(t *testing.T) {
	rig := newTestRig(t)
	sh := newTestShutter(t, rig, false)

	if err := sh.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := sh.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if len(rig.conn.Pins()) != 0 {
		t.Errorf("pins attached after Release: %v", rig.conn.Pins())
	}
	if sh.Moving() {
		t.Error("Moving() = true after Release")
	}
}

func TestShutter_JobsCreated(t *testing.T) {
	rig := newTestRig(t)
	sh := newTestShutter(t, rig, false)

	sh.SetJobsCreated(true)
	if !sh.JobsCreated() {
		t.Error("JobsCreated() = false after SetJobsCreated(true)")
	}
	if len(rig.recorder.all()) != 0 {
		t.Error("JobsCreated emitted a change notification")
	}
}
