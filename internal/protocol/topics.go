package protocol

import "github.com/almue/almue-core/internal/device"

// Namespace is the first segment of every topic.
const Namespace = "almue"

// Fixed topics.
const (
	// ConfigTopic carries the retained JSON device configuration.
	ConfigTopic = Namespace + "/config"

	// CoreStatusTopic carries the core's online/offline state and its LWT.
	CoreStatusTopic = Namespace + "/core/status"
)

// Topic suffixes.
const (
	SuffixTimerOn  = "timeron"
	SuffixTimerOff = "timeroff"
	SuffixStatus   = "status"
)

// DeviceTopic returns the bare command topic of a device.
func DeviceTopic(typ device.Type, floor, description string) string {
	return Namespace + "/" + typ.Segment() + "/" + floor + "/" + description
}

// ShutterTopic returns the bare command topic of a shutter.
func ShutterTopic(floor, description string) string {
	return DeviceTopic(device.TypeShutter, floor, description)
}

// LightingTopic returns the bare command topic of a lighting circuit.
func LightingTopic(floor, description string) string {
	return DeviceTopic(device.TypeLighting, floor, description)
}

// TimerOnTopic returns the topic that sets the on (open) time.
func TimerOnTopic(typ device.Type, floor, description string) string {
	return DeviceTopic(typ, floor, description) + "/" + SuffixTimerOn
}

// TimerOffTopic returns the topic that sets the off (close) time.
func TimerOffTopic(typ device.Type, floor, description string) string {
	return DeviceTopic(typ, floor, description) + "/" + SuffixTimerOff
}

// StatusTopic returns the retained status topic of a device.
func StatusTopic(typ device.Type, floor, description string) string {
	return DeviceTopic(typ, floor, description) + "/" + SuffixStatus
}

// DeviceTopics returns the command topics the core subscribes to for one device.
// Devices without commands (wind monitors) have none.
func DeviceTopics(typ device.Type, floor, description string) []string {
	if _, ok := keywords[typ]; !ok {
		return nil
	}
	return []string{
		DeviceTopic(typ, floor, description),
		TimerOnTopic(typ, floor, description),
		TimerOffTopic(typ, floor, description),
	}
}
