package device

import "testing"

func newTestLighting(t *testing.T, rig *testRig, disabled bool) *Lighting {
	t.Helper()
	l, err := NewLighting(LightingSettings{
		Description: "Garden",
		Floor:       "Outside",
		SwitchPin:   22,
		Disabled:    disabled,
		Status:      StatusOff,
	}, rig.conn, rig.options())
	if err != nil {
		t.Fatalf("NewLighting() error = %v", err)
	}
	return l
}

func TestLighting_SwitchOnOff(t *testing.T) {
	rig := newTestRig(t)
	l := newTestLighting(t, rig, false)

	if err := l.SwitchOn(); err != nil {
		t.Fatalf("SwitchOn() error = %v", err)
	}
	if !rig.level(t, "Garden") {
		t.Error("pin low after SwitchOn")
	}
	if got := l.Status(); got != StatusOn {
		t.Errorf("Status() = %s, want On", got)
	}

	if err := l.SwitchOff(); err != nil {
		t.Fatalf("SwitchOff() error = %v", err)
	}
	if rig.level(t, "Garden") {
		t.Error("pin high after SwitchOff")
	}
	if got := l.Status(); got != StatusOff {
		t.Errorf("Status() = %s, want Off", got)
	}

	if got := rig.recorder.count("device_status"); got != 2 {
		t.Errorf("status notifications = %d, want 2", got)
	}
}

func TestLighting_SwitchOnTwiceNotifiesOnce(t *testing.T) {
	rig := newTestRig(t)
	l := newTestLighting(t, rig, false)

	for i := 0; i < 2; i++ {
		if err := l.SwitchOn(); err != nil {
			t.Fatalf("SwitchOn() error = %v", err)
		}
	}
	if got := rig.recorder.count("device_status"); got != 1 {
		t.Errorf("status notifications = %d, want 1", got)
	}
}

func TestLighting_DisabledSwitchOnIsNoop(t *testing.T) {
	rig := newTestRig(t)
	l := newTestLighting(t, rig, true)

	if err := l.SwitchOn(); err != nil {
		t.Fatalf("SwitchOn() error = %v", err)
	}
	if writes := rig.driver.Writes(); len(writes) != 0 {
		t.Errorf("driver writes = %v, want none", writes)
	}
	if got := l.Status(); got != StatusOff {
		t.Errorf("Status() = %s, want Off", got)
	}
	if len(rig.recorder.all()) != 0 {
		t.Errorf("notifications = %v, want none", rig.recorder.all())
	}
}

func TestLighting_UnopenedConnectionIsNoop(t *testing.T) {
	rig := newTestRig(t)
	l := newTestLighting(t, rig, false)
	l.conn = unopened{rig.conn}

	if err := l.SwitchOn(); err != nil {
		t.Fatalf("SwitchOn() error = %v", err)
	}
	if got := l.Status(); got != StatusOff {
		t.Errorf("Status() = %s, want Off", got)
	}
}

// unopened reports a closed connection while delegating everything else.
type unopened struct{ PinConnection }

func (unopened) IsOpened() bool { return false }

func TestLighting_Schedulable(t *testing.T) {
	rig := newTestRig(t)
	l := newTestLighting(t, rig, false)

	var s Schedulable = l
	s.SetOnTime(MustTimeOfDay("19:00"))
	s.SetOffTime(MustTimeOfDay("23:30"))
	s.SetTimerEnabled(true)

	if got := s.OffTime().String(); got != "23:30:00" {
		t.Errorf("OffTime() = %s, want 23:30:00", got)
	}
	if !s.TimerEnabled() {
		t.Error("TimerEnabled() = false")
	}
	if got := len(rig.recorder.all()); got != 3 {
		t.Errorf("notifications = %d, want 3", got)
	}
}

func TestLighting_Capabilities(t *testing.T) {
	rig := newTestRig(t)
	var d Device = newTestLighting(t, rig, false)

	if _, ok := d.(Switchable); !ok {
		t.Error("Lighting is not Switchable")
	}
	if _, ok := d.(Shuttable); ok {
		t.Error("Lighting is Shuttable")
	}
	if _, ok := d.(EmergencyReceiver); ok {
		t.Error("Lighting is an EmergencyReceiver")
	}
	if d.ID() != "lighting/Garden" {
		t.Errorf("ID() = %q, want lighting/Garden", d.ID())
	}
}
