package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// deviceFilePermissions is the mode used when the device file is rewritten.
const deviceFilePermissions = 0o640

// DeviceSet is the content of the device configuration file.
//
// The JSON field names are the ones the mobile client reads from the
// retained almue/config topic and must not change.
type DeviceSet struct {
	Shutters     []ShutterConfig     `yaml:"shutters" json:"Shutters"`
	Lightings    []LightingConfig    `yaml:"lightings" json:"Lightings"`
	WindMonitors []WindMonitorConfig `yaml:"wind_monitors" json:"WindMonitors"`
}

// ShutterConfig describes one motorised shutter.
type ShutterConfig struct {
	Description          string `yaml:"description" json:"Description"`
	Floor                string `yaml:"floor" json:"Floor"`
	OpenPin              int    `yaml:"open_pin" json:"OpenPin"`
	ClosePin             int    `yaml:"close_pin" json:"ClosePin"`
	CompleteWayInSeconds int    `yaml:"complete_way_in_seconds" json:"CompleteWayInSeconds"`
	EmergencyEnabled     bool   `yaml:"emergency_enabled" json:"EmergencyEnabled"`
	Disabled             bool   `yaml:"disabled" json:"Disabled"`
	TimerEnabled         bool   `yaml:"timer_enabled" json:"TimerEnabled"`
	OpenTime             string `yaml:"open_time" json:"OpenTime"`
	CloseTime            string `yaml:"close_time" json:"CloseTime"`
	DeviceStatus         string `yaml:"device_status" json:"DeviceStatus"`
}

// LightingConfig describes one switched lighting circuit.
type LightingConfig struct {
	Description  string `yaml:"description" json:"Description"`
	Floor        string `yaml:"floor" json:"Floor"`
	SwitchPin    int    `yaml:"switch_pin" json:"SwitchPin"`
	Disabled     bool   `yaml:"disabled" json:"Disabled"`
	TimerEnabled bool   `yaml:"timer_enabled" json:"TimerEnabled"`
	OnTime       string `yaml:"on_time" json:"OnTime"`
	OffTime      string `yaml:"off_time" json:"OffTime"`
	DeviceStatus string `yaml:"device_status" json:"DeviceStatus"`
}

// WindMonitorConfig describes one anemometer pulse input.
type WindMonitorConfig struct {
	Description string `yaml:"description" json:"Description"`
	InPin       int    `yaml:"in_pin" json:"InPin"`
	Disabled    bool   `yaml:"disabled" json:"Disabled"`

	// PulseThreshold is the pulse count that must be exceeded before
	// emergencies are broadcast. Zero selects the default of 10.
	PulseThreshold int `yaml:"pulse_threshold,omitempty" json:"PulseThreshold,omitempty"`
}

// maxGPIOPin is the highest BCM pin number on a 40-pin header.
const maxGPIOPin = 27

var knownStatuses = map[string]bool{
	"": true, "Undefined": true, "Opened": true, "Closed": true,
	"On": true, "Off": true, "FailState": true,
}

// LoadDeviceSet reads and validates the device configuration file.
func LoadDeviceSet(path string) (*DeviceSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading device file: %w", err)
	}

	set := &DeviceSet{}
	if err := yaml.Unmarshal(data, set); err != nil {
		return nil, fmt.Errorf("parsing device file: %w", err)
	}

	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("validating device file: %w", err)
	}

	return set, nil
}

// SaveDeviceSet writes the device set back to path.
//
// The file is written to a temporary sibling first and renamed into place,
// so a crash mid-write never leaves a truncated configuration behind.
func SaveDeviceSet(path string, set *DeviceSet) error {
	data, err := yaml.Marshal(set)
	if err != nil {
		return fmt.Errorf("encoding device file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".devices-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp device file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // already failing
		return fmt.Errorf("writing temp device file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp device file: %w", err)
	}
	if err := os.Chmod(tmpName, deviceFilePermissions); err != nil {
		return fmt.Errorf("setting device file permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing device file: %w", err)
	}

	return nil
}

// Clone returns a deep copy of the set.
func (s *DeviceSet) Clone() *DeviceSet {
	out := &DeviceSet{
		Shutters:     append([]ShutterConfig(nil), s.Shutters...),
		Lightings:    append([]LightingConfig(nil), s.Lightings...),
		WindMonitors: append([]WindMonitorConfig(nil), s.WindMonitors...),
	}
	return out
}

// Validate checks descriptions, pins and time strings.
func (s *DeviceSet) Validate() error {
	var errs []string
	pins := make(map[int]string)

	claim := func(pin int, owner string) {
		if pin < 0 || pin > maxGPIOPin {
			errs = append(errs, fmt.Sprintf("%s: pin %d out of range 0-%d", owner, pin, maxGPIOPin))
			return
		}
		if other, taken := pins[pin]; taken {
			errs = append(errs, fmt.Sprintf("%s: pin %d already used by %s", owner, pin, other))
			return
		}
		pins[pin] = owner
	}

	seen := make(map[string]bool)
	for i, sh := range s.Shutters {
		owner := fmt.Sprintf("shutters[%d]", i)
		if sh.Description == "" {
			errs = append(errs, owner+": description is required")
		} else if seen["shutter/"+sh.Description] {
			errs = append(errs, fmt.Sprintf("%s: duplicate description %q", owner, sh.Description))
		}
		seen["shutter/"+sh.Description] = true
		claim(sh.OpenPin, owner+".open_pin")
		claim(sh.ClosePin, owner+".close_pin")
		if sh.CompleteWayInSeconds <= 0 {
			errs = append(errs, owner+": complete_way_in_seconds must be positive")
		}
		errs = appendTimeErr(errs, owner+".open_time", sh.OpenTime)
		errs = appendTimeErr(errs, owner+".close_time", sh.CloseTime)
		if !knownStatuses[sh.DeviceStatus] {
			errs = append(errs, fmt.Sprintf("%s: unknown device_status %q", owner, sh.DeviceStatus))
		}
	}

	for i, l := range s.Lightings {
		owner := fmt.Sprintf("lightings[%d]", i)
		if l.Description == "" {
			errs = append(errs, owner+": description is required")
		} else if seen["lighting/"+l.Description] {
			errs = append(errs, fmt.Sprintf("%s: duplicate description %q", owner, l.Description))
		}
		seen["lighting/"+l.Description] = true
		claim(l.SwitchPin, owner+".switch_pin")
		errs = appendTimeErr(errs, owner+".on_time", l.OnTime)
		errs = appendTimeErr(errs, owner+".off_time", l.OffTime)
		if !knownStatuses[l.DeviceStatus] {
			errs = append(errs, fmt.Sprintf("%s: unknown device_status %q", owner, l.DeviceStatus))
		}
	}

	for i, w := range s.WindMonitors {
		owner := fmt.Sprintf("wind_monitors[%d]", i)
		if w.Description == "" {
			errs = append(errs, owner+": description is required")
		} else if seen["windmonitor/"+w.Description] {
			errs = append(errs, fmt.Sprintf("%s: duplicate description %q", owner, w.Description))
		}
		seen["windmonitor/"+w.Description] = true
		claim(w.InPin, owner+".in_pin")
		if w.PulseThreshold < 0 {
			errs = append(errs, owner+": pulse_threshold must not be negative")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("device configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// appendTimeErr validates an optional HH:MM[:SS] value.
func appendTimeErr(errs []string, field, value string) []string {
	if value == "" {
		return errs
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if _, err := time.Parse(layout, value); err == nil {
			return errs
		}
	}
	return append(errs, fmt.Sprintf("%s: %q is not a time of day", field, value))
}
