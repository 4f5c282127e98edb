package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleDevices = `
shutters:
  - description: "Kitchen"
    floor: "Ground"
    open_pin: 17
    close_pin: 18
    complete_way_in_seconds: 25
    emergency_enabled: true
    timer_enabled: true
    open_time: "07:00:00"
    close_time: "21:30"
    device_status: "Closed"
lightings:
  - description: "Garden"
    floor: "Outside"
    switch_pin: 22
    on_time: "19:00:00"
    off_time: "23:00:00"
    device_status: "Off"
wind_monitors:
  - description: "Roof"
    in_pin: 4
`

func TestLoadDeviceSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	if err := os.WriteFile(path, []byte(sampleDevices), 0600); err != nil {
		t.Fatalf("failed to write device file: %v", err)
	}

	set, err := LoadDeviceSet(path)
	if err != nil {
		t.Fatalf("LoadDeviceSet() error = %v", err)
	}

	if len(set.Shutters) != 1 || len(set.Lightings) != 1 || len(set.WindMonitors) != 1 {
		t.Fatalf("LoadDeviceSet() counts = %d/%d/%d, want 1/1/1",
			len(set.Shutters), len(set.Lightings), len(set.WindMonitors))
	}

	sh := set.Shutters[0]
	if sh.OpenPin != 17 || sh.ClosePin != 18 {
		t.Errorf("shutter pins = %d/%d, want 17/18", sh.OpenPin, sh.ClosePin)
	}
	if !sh.EmergencyEnabled || !sh.TimerEnabled {
		t.Error("shutter flags not loaded")
	}
	if set.WindMonitors[0].InPin != 4 {
		t.Errorf("wind monitor InPin = %d, want 4", set.WindMonitors[0].InPin)
	}
}

func TestSaveDeviceSet_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devices.yaml")
	if err := os.WriteFile(path, []byte(sampleDevices), 0600); err != nil {
		t.Fatalf("failed to write device file: %v", err)
	}

	set, err := LoadDeviceSet(path)
	if err != nil {
		t.Fatalf("LoadDeviceSet() error = %v", err)
	}
	set.Shutters[0].CloseTime = "20:15:00"
	set.Lightings[0].Disabled = true

	if err := SaveDeviceSet(path, set); err != nil {
		t.Fatalf("SaveDeviceSet() error = %v", err)
	}

	reloaded, err := LoadDeviceSet(path)
	if err != nil {
		t.Fatalf("LoadDeviceSet() after save error = %v", err)
	}
	if reloaded.Shutters[0].CloseTime != "20:15:00" {
		t.Errorf("CloseTime = %q, want %q", reloaded.Shutters[0].CloseTime, "20:15:00")
	}
	if !reloaded.Lightings[0].Disabled {
		t.Error("Lightings[0].Disabled = false after save")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries after save, want 1 (temp file left behind)", len(entries))
	}
}

func TestDeviceSet_Clone(t *testing.T) {
	set := &DeviceSet{Shutters: []ShutterConfig{{Description: "A", CompleteWayInSeconds: 1}}}
	clone := set.Clone()
	clone.Shutters[0].Description = "B"
	if set.Shutters[0].Description != "A" {
		t.Error("Clone() shares backing storage with the original")
	}
}

func TestDeviceSet_Validate(t *testing.T) {
	tests := []struct {
		name    string
		set     DeviceSet
		wantErr string
	}{
		{
			name: "valid",
			set: DeviceSet{
				Shutters:  []ShutterConfig{{Description: "A", OpenPin: 1, ClosePin: 2, CompleteWayInSeconds: 10}},
				Lightings: []LightingConfig{{Description: "A", SwitchPin: 3}},
			},
		},
		{
			name: "shared pin",
			set: DeviceSet{
				Shutters:  []ShutterConfig{{Description: "A", OpenPin: 1, ClosePin: 2, CompleteWayInSeconds: 10}},
				Lightings: []LightingConfig{{Description: "B", SwitchPin: 2}},
			},
			wantErr: "already used",
		},
		{
			name: "duplicate description",
			set: DeviceSet{
				Lightings: []LightingConfig{{Description: "A", SwitchPin: 1}, {Description: "A", SwitchPin: 2}},
			},
			wantErr: "duplicate description",
		},
		{
			name: "pin out of range",
			set: DeviceSet{
				WindMonitors: []WindMonitorConfig{{Description: "W", InPin: 40}},
			},
			wantErr: "out of range",
		},
		{
			name: "zero travel time",
			set: DeviceSet{
				Shutters: []ShutterConfig{{Description: "A", OpenPin: 1, ClosePin: 2}},
			},
			wantErr: "complete_way_in_seconds",
		},
		{
			name: "bad time",
			set: DeviceSet{
				Lightings: []LightingConfig{{Description: "A", SwitchPin: 1, OnTime: "7am"}},
			},
			wantErr: "not a time of day",
		},
		{
			name: "unknown status",
			set: DeviceSet{
				Lightings: []LightingConfig{{Description: "A", SwitchPin: 1, DeviceStatus: "Dimmed"}},
			},
			wantErr: "unknown device_status",
		},
		{
			name: "missing description",
			set: DeviceSet{
				WindMonitors: []WindMonitorConfig{{InPin: 5}},
			},
			wantErr: "description is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.set.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
