package protocol

import (
	"fmt"
	"strings"

	"github.com/almue/almue-core/internal/device"
)

// Command is a decoded device request.
type Command struct {
	Description string        `json:"description"`
	DeviceType  device.Type   `json:"device_type"`
	Action      device.Action `json:"action"`

	// Payload is the raw message text. For SetOnTime/SetOffTime it holds the time of day.
	Payload string `json:"payload"`
}

// keywords maps payload keywords to actions per device type.
var keywords = map[device.Type]map[string]device.Action{
	device.TypeShutter: {
		"open":             device.ActionOpen,
		"close":            device.ActionClose,
		"stop":             device.ActionStop,
		"enable":           device.ActionEnableDevice,
		"disable":          device.ActionDisableDevice,
		"enabletimer":      device.ActionEnableTimer,
		"disabletimer":     device.ActionDisableTimer,
		"enableemergency":  device.ActionEnableEmergency,
		"disableemergency": device.ActionDisableEmergency,
	},
	device.TypeLighting: {
		"on":           device.ActionOn,
		"off":          device.ActionOff,
		"enable":       device.ActionEnableDevice,
		"disable":      device.ActionDisableDevice,
		"enabletimer":  device.ActionEnableTimer,
		"disabletimer": device.ActionDisableTimer,
	},
}

// Decode maps a message received on a device topic to a Command.
//
// description is the device the topic was subscribed for. Topics that are
// not a command topic of that description return ErrUnknownTopic; payloads
// on the bare topic that are not a keyword return ErrUnknownKeyword.
func Decode(topic string, payload []byte, description string) (Command, error) {
	typ, ok := topicType(topic)
	if !ok || description == "" {
		return Command{}, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	msg := strings.TrimSpace(string(payload))
	cmd := Command{Description: description, DeviceType: typ, Payload: msg}

	switch {
	case strings.HasSuffix(topic, "/"+description+"/"+SuffixTimerOn):
		cmd.Action = device.ActionSetOnTime
	case strings.HasSuffix(topic, "/"+description+"/"+SuffixTimerOff):
		cmd.Action = device.ActionSetOffTime
	case strings.HasSuffix(topic, "/"+description):
		action, ok := keywords[typ][strings.ToLower(msg)]
		if !ok {
			return Command{}, fmt.Errorf("%w: %q on %s", ErrUnknownKeyword, msg, topic)
		}
		cmd.Action = action
	default:
		return Command{}, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	return cmd, nil
}

// topicType returns the device type of a command topic prefix.
func topicType(topic string) (device.Type, bool) {
	for typ := range keywords {
		if strings.HasPrefix(topic, Namespace+"/"+typ.Segment()+"/") {
			return typ, true
		}
	}
	return "", false
}

// Keyword returns the payload keyword that requests action on a device of type typ.
func Keyword(typ device.Type, action device.Action) (string, bool) {
	for kw, a := range keywords[typ] {
		if a == action {
			return kw, true
		}
	}
	return "", false
}

// TopicFor returns the topic and payload that Decode turns back into cmd.
func TopicFor(cmd Command, floor string) (topic, payload string, err error) {
	switch cmd.Action {
	case device.ActionSetOnTime:
		return TimerOnTopic(cmd.DeviceType, floor, cmd.Description), cmd.Payload, nil
	case device.ActionSetOffTime:
		return TimerOffTopic(cmd.DeviceType, floor, cmd.Description), cmd.Payload, nil
	}

	kw, ok := Keyword(cmd.DeviceType, cmd.Action)
	if !ok {
		return "", "", fmt.Errorf("%w: %s on %s", ErrNotEncodable, cmd.Action, cmd.DeviceType)
	}
	return DeviceTopic(cmd.DeviceType, floor, cmd.Description), kw, nil
}
