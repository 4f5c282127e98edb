package protocol

import (
	"errors"
	"testing"

	"github.com/almue/almue-core/internal/device"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name        string
		topic       string
		payload     string
		description string
		want        Command
		wantErr     error
	}{
		{
			name:        "shutter timer on",
			topic:       "almue/shutter/Kitchen/Blind1/timeron",
			payload:     "07:30:00",
			description: "Blind1",
			want:        Command{Description: "Blind1", DeviceType: device.TypeShutter, Action: device.ActionSetOnTime, Payload: "07:30:00"},
		},
		{
			name:        "shutter timer off",
			topic:       "almue/shutter/Kitchen/Blind1/timeroff",
			payload:     "21:00",
			description: "Blind1",
			want:        Command{Description: "Blind1", DeviceType: device.TypeShutter, Action: device.ActionSetOffTime, Payload: "21:00"},
		},
		{
			name:        "shutter open",
			topic:       "almue/shutter/Kitchen/Blind1",
			payload:     "open",
			description: "Blind1",
			want:        Command{Description: "Blind1", DeviceType: device.TypeShutter, Action: device.ActionOpen, Payload: "open"},
		},
		{
			name:        "shutter emergency",
			topic:       "almue/shutter/Kitchen/Blind1",
			payload:     "enableemergency",
			description: "Blind1",
			want:        Command{Description: "Blind1", DeviceType: device.TypeShutter, Action: device.ActionEnableEmergency, Payload: "enableemergency"},
		},
		{
			name:        "lighting on with whitespace",
			topic:       "almue/lighting/Outside/Garden",
			payload:     " on\n",
			description: "Garden",
			want:        Command{Description: "Garden", DeviceType: device.TypeLighting, Action: device.ActionOn, Payload: "on"},
		},
		{
			name:        "lighting timer on",
			topic:       "almue/lighting/Outside/Garden/timeron",
			payload:     "19:00",
			description: "Garden",
			want:        Command{Description: "Garden", DeviceType: device.TypeLighting, Action: device.ActionSetOnTime, Payload: "19:00"},
		},
		{
			name:        "empty floor",
			topic:       "almue/lighting//Garden",
			payload:     "disable",
			description: "Garden",
			want:        Command{Description: "Garden", DeviceType: device.TypeLighting, Action: device.ActionDisableDevice, Payload: "disable"},
		},
		{
			name:        "lighting rejects shutter keyword",
			topic:       "almue/lighting/Outside/Garden",
			payload:     "open",
			description: "Garden",
			wantErr:     ErrUnknownKeyword,
		},
		{
			name:        "shutter rejects emergency-less garbage",
			topic:       "almue/shutter/Kitchen/Blind1",
			payload:     "wiggle",
			description: "Blind1",
			wantErr:     ErrUnknownKeyword,
		},
		{
			name:        "status topic",
			topic:       "almue/shutter/Kitchen/Blind1/status",
			payload:     "Opened",
			description: "Blind1",
			wantErr:     ErrUnknownTopic,
		},
		{
			name:        "config topic",
			topic:       "almue/config",
			payload:     "{}",
			description: "Blind1",
			wantErr:     ErrUnknownTopic,
		},
		{
			name:        "foreign namespace",
			topic:       "other/shutter/Kitchen/Blind1",
			payload:     "open",
			description: "Blind1",
			wantErr:     ErrUnknownTopic,
		},
		{
			name:        "unknown description",
			topic:       "almue/shutter/Kitchen/Blind1",
			payload:     "open",
			description: "",
			wantErr:     ErrUnknownTopic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.topic, []byte(tt.payload), tt.description)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTopicFor_RoundTrip(t *testing.T) {
	commands := []Command{
		{Description: "Blind1", DeviceType: device.TypeShutter, Action: device.ActionClose},
		{Description: "Blind1", DeviceType: device.TypeShutter, Action: device.ActionDisableEmergency},
		{Description: "Garden", DeviceType: device.TypeLighting, Action: device.ActionOff},
		{Description: "Garden", DeviceType: device.TypeLighting, Action: device.ActionEnableTimer},
		{Description: "Blind1", DeviceType: device.TypeShutter, Action: device.ActionSetOnTime, Payload: "06:15:00"},
		{Description: "Garden", DeviceType: device.TypeLighting, Action: device.ActionSetOffTime, Payload: "23:00:00"},
	}

	for _, cmd := range commands {
		t.Run(string(cmd.DeviceType)+"/"+string(cmd.Action), func(t *testing.T) {
			topic, payload, err := TopicFor(cmd, "Ground")
			if err != nil {
				t.Fatalf("TopicFor() error = %v", err)
			}
			got, err := Decode(topic, []byte(payload), cmd.Description)
			if err != nil {
				t.Fatalf("Decode(%s) error = %v", topic, err)
			}
			if got.Description != cmd.Description || got.DeviceType != cmd.DeviceType || got.Action != cmd.Action {
				t.Errorf("round trip = %+v, want %+v", got, cmd)
			}
			if (cmd.Action == device.ActionSetOnTime || cmd.Action == device.ActionSetOffTime) && got.Payload != cmd.Payload {
				t.Errorf("round trip payload = %q, want %q", got.Payload, cmd.Payload)
			}
		})
	}
}

func TestTopicFor_NotEncodable(t *testing.T) {
	cmd := Command{Description: "Garden", DeviceType: device.TypeLighting, Action: device.ActionOpen}
	if _, _, err := TopicFor(cmd, "Outside"); !errors.Is(err, ErrNotEncodable) {
		t.Errorf("TopicFor() error = %v, want ErrNotEncodable", err)
	}
}

func TestDeviceTopics(t *testing.T) {
	got := DeviceTopics(device.TypeShutter, "Kitchen", "Blind1")
	want := []string{
		"almue/shutter/Kitchen/Blind1",
		"almue/shutter/Kitchen/Blind1/timeron",
		"almue/shutter/Kitchen/Blind1/timeroff",
	}
	if len(got) != len(want) {
		t.Fatalf("DeviceTopics() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("DeviceTopics()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if got := DeviceTopics(device.TypeWindMonitor, "", "Roof"); got != nil {
		t.Errorf("DeviceTopics(WindMonitor) = %v, want nil", got)
	}
	if got := StatusTopic(device.TypeLighting, "Outside", "Garden"); got != "almue/lighting/Outside/Garden/status" {
		t.Errorf("StatusTopic() = %q", got)
	}
	if got := ShutterTopic("Kitchen", "Blind1"); got != "almue/shutter/Kitchen/Blind1" {
		t.Errorf("ShutterTopic() = %q", got)
	}
	if got := LightingTopic("Outside", "Garden"); got != "almue/lighting/Outside/Garden" {
		t.Errorf("LightingTopic() = %q", got)
	}
}
