package device

import (
	"fmt"

	"github.com/almue/almue-core/internal/infrastructure/config"
)

// BuildRegistry constructs every configured device on conn and registers it.
//
// Construction stops at the first failure; devices built so far are
// released so no pins stay attached.
func BuildRegistry(set *config.DeviceSet, conn PinConnection, opts Options) (*Registry, error) {
	reg := NewRegistry()
	if opts.Logger != nil {
		reg.SetLogger(opts.Logger)
	}

	fail := func(err error) (*Registry, error) {
		reg.ReleaseAll() //nolint:errcheck // already failing
		return nil, err
	}

	for _, c := range set.Shutters {
		s, err := ShutterSettingsFromConfig(c)
		if err != nil {
			return fail(err)
		}
		sh, err := NewShutter(s, conn, opts)
		if err != nil {
			return fail(err)
		}
		if err := reg.Add(sh); err != nil {
			return fail(err)
		}
	}

	for _, c := range set.Lightings {
		s, err := LightingSettingsFromConfig(c)
		if err != nil {
			return fail(err)
		}
		l, err := NewLighting(s, conn, opts)
		if err != nil {
			return fail(err)
		}
		if err := reg.Add(l); err != nil {
			return fail(err)
		}
	}

	for _, c := range set.WindMonitors {
		w, err := NewWindMonitor(WindMonitorSettings{
			Description:    c.Description,
			InPin:          c.InPin,
			Disabled:       c.Disabled,
			PulseThreshold: c.PulseThreshold,
		}, conn, opts)
		if err != nil {
			return fail(err)
		}
		if err := reg.Add(w); err != nil {
			return fail(err)
		}
	}

	return reg, nil
}

// ShutterSettingsFromConfig parses the string fields of a shutter entry.
func ShutterSettingsFromConfig(c config.ShutterConfig) (ShutterSettings, error) {
	open, err := ParseTimeOfDay(c.OpenTime)
	if err != nil {
		return ShutterSettings{}, fmt.Errorf("shutter %s open time: %w", c.Description, err)
	}
	closeAt, err := ParseTimeOfDay(c.CloseTime)
	if err != nil {
		return ShutterSettings{}, fmt.Errorf("shutter %s close time: %w", c.Description, err)
	}
	status, err := ParseStatus(c.DeviceStatus)
	if err != nil {
		return ShutterSettings{}, fmt.Errorf("shutter %s: %w", c.Description, err)
	}

	return ShutterSettings{
		Description:          c.Description,
		Floor:                c.Floor,
		OpenPin:              c.OpenPin,
		ClosePin:             c.ClosePin,
		CompleteWayInSeconds: c.CompleteWayInSeconds,
		EmergencyEnabled:     c.EmergencyEnabled,
		Disabled:             c.Disabled,
		TimerEnabled:         c.TimerEnabled,
		OpenTime:             open,
		CloseTime:            closeAt,
		Status:               status,
	}, nil
}

// LightingSettingsFromConfig parses the string fields of a lighting entry.
func LightingSettingsFromConfig(c config.LightingConfig) (LightingSettings, error) {
	on, err := ParseTimeOfDay(c.OnTime)
	if err != nil {
		return LightingSettings{}, fmt.Errorf("lighting %s on time: %w", c.Description, err)
	}
	off, err := ParseTimeOfDay(c.OffTime)
	if err != nil {
		return LightingSettings{}, fmt.Errorf("lighting %s off time: %w", c.Description, err)
	}
	status, err := ParseStatus(c.DeviceStatus)
	if err != nil {
		return LightingSettings{}, fmt.Errorf("lighting %s: %w", c.Description, err)
	}

	return LightingSettings{
		Description:  c.Description,
		Floor:        c.Floor,
		SwitchPin:    c.SwitchPin,
		Disabled:     c.Disabled,
		TimerEnabled: c.TimerEnabled,
		OnTime:       on,
		OffTime:      off,
		Status:       status,
	}, nil
}
