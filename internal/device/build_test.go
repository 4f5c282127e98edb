package device

import (
	"testing"

	"github.com/almue/almue-core/internal/infrastructure/config"
)

func TestBuildRegistry(t *testing.T) {
	rig := newTestRig(t)
	set := &config.DeviceSet{
		Shutters: []config.ShutterConfig{{
			Description: "Kitchen", Floor: "Ground", OpenPin: 17, ClosePin: 18,
			CompleteWayInSeconds: 20, TimerEnabled: true, OpenTime: "07:00", CloseTime: "21:00:00",
			DeviceStatus: "Closed",
		}},
		Lightings: []config.LightingConfig{{
			Description: "Garden", SwitchPin: 22, Disabled: true, OnTime: "19:00",
		}},
		WindMonitors: []config.WindMonitorConfig{{Description: "Roof", InPin: 4}},
	}

	reg, err := BuildRegistry(set, rig.conn, rig.options())
	if err != nil {
		t.Fatalf("BuildRegistry() error = %v", err)
	}
	if reg.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", reg.Count())
	}

	d, err := reg.Get(TypeShutter, "Kitchen")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	sh := d.(*Shutter)
	if sh.Status() != StatusClosed || !sh.TimerEnabled() || sh.OffTime().String() != "21:00:00" {
		t.Errorf("shutter not built from config: status=%s timer=%v off=%s", sh.Status(), sh.TimerEnabled(), sh.OffTime())
	}

	// Disabled lighting has no pin attached; the others do.
	want := map[string]bool{"Kitchen_openPin": true, "Kitchen_closePin": true, "Roof_inPin": true, "Garden": false}
	for pin, attached := range want {
		if rig.conn.Contains(pin) != attached {
			t.Errorf("Contains(%s) = %v, want %v", pin, !attached, attached)
		}
	}

	// Construction does not emit notifications.
	if n := len(rig.recorder.all()); n != 0 {
		t.Errorf("notifications during build = %d, want 0", n)
	}
}

func TestBuildRegistry_FailureReleasesPins(t *testing.T) {
	rig := newTestRig(t)
	set := &config.DeviceSet{
		Shutters: []config.ShutterConfig{{
			Description: "Kitchen", OpenPin: 17, ClosePin: 18, CompleteWayInSeconds: 20,
		}},
		Lightings: []config.LightingConfig{{Description: "Garden", SwitchPin: 22, OnTime: "late"}},
	}

	if _, err := BuildRegistry(set, rig.conn, rig.options()); err == nil {
		t.Fatal("BuildRegistry() expected error")
	}
	if n := len(rig.conn.Pins()); n != 0 {
		t.Errorf("pins attached after failed build = %d, want 0", n)
	}
}
