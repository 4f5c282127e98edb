package configsync

import (
	"fmt"

	"github.com/almue/almue-core/internal/device"
	"github.com/almue/almue-core/internal/infrastructure/config"
)

// apply writes c into the entry of set that describes d. It reports
// whether a persisted value changed.
func apply(set *config.DeviceSet, d device.Device, c device.Change) (bool, error) {
	switch d.Type() {
	case device.TypeShutter:
		for i := range set.Shutters {
			if set.Shutters[i].Description == d.Description() {
				return applyShutter(&set.Shutters[i], c)
			}
		}
	case device.TypeLighting:
		for i := range set.Lightings {
			if set.Lightings[i].Description == d.Description() {
				return applyLighting(&set.Lightings[i], c)
			}
		}
	case device.TypeWindMonitor:
		for i := range set.WindMonitors {
			if set.WindMonitors[i].Description == d.Description() {
				return applyWindMonitor(&set.WindMonitors[i], c)
			}
		}
	default:
		return false, fmt.Errorf("%w: %s", device.ErrInvalidDeviceType, d.Type())
	}
	return false, fmt.Errorf("%w: %s not in configuration", device.ErrDeviceNotFound, d.ID())
}

func applyShutter(sc *config.ShutterConfig, c device.Change) (bool, error) {
	switch c := c.(type) {
	case device.DisabledChanged:
		return setBool(&sc.Disabled, c.Disabled), nil
	case device.TimerEnabledChanged:
		return setBool(&sc.TimerEnabled, c.Enabled), nil
	case device.OnTimeChanged:
		return setString(&sc.OpenTime, c.Time.String()), nil
	case device.OffTimeChanged:
		return setString(&sc.CloseTime, c.Time.String()), nil
	case device.StatusChanged:
		return setString(&sc.DeviceStatus, string(c.Status)), nil
	case device.EmergencyEnabledChanged:
		return setBool(&sc.EmergencyEnabled, c.Enabled), nil
	default:
		return false, unsupported(device.TypeShutter, c)
	}
}

func applyLighting(lc *config.LightingConfig, c device.Change) (bool, error) {
	switch c := c.(type) {
	case device.DisabledChanged:
		return setBool(&lc.Disabled, c.Disabled), nil
	case device.TimerEnabledChanged:
		return setBool(&lc.TimerEnabled, c.Enabled), nil
	case device.OnTimeChanged:
		return setString(&lc.OnTime, c.Time.String()), nil
	case device.OffTimeChanged:
		return setString(&lc.OffTime, c.Time.String()), nil
	case device.StatusChanged:
		return setString(&lc.DeviceStatus, string(c.Status)), nil
	case device.EmergencyEnabledChanged:
		return false, unsupported(device.TypeLighting, c)
	default:
		return false, unsupported(device.TypeLighting, c)
	}
}

func applyWindMonitor(wc *config.WindMonitorConfig, c device.Change) (bool, error) {
	switch c := c.(type) {
	case device.DisabledChanged:
		return setBool(&wc.Disabled, c.Disabled), nil
	default:
		return false, unsupported(device.TypeWindMonitor, c)
	}
}

func unsupported(typ device.Type, c device.Change) error {
	return fmt.Errorf("%s has no persisted field %s", typ, c.Field())
}

func setBool(dst *bool, v bool) bool {
	if *dst == v {
		return false
	}
	*dst = v
	return true
}

func setString(dst *string, v string) bool {
	if *dst == v {
		return false
	}
	*dst = v
	return true
}
