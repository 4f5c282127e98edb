package device

import (
	"errors"
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "07:30:00", want: "07:30:00"},
		{input: "07:30", want: "07:30:00"},
		{input: " 23:59:59 ", want: "23:59:59"},
		{input: "00:00", want: "00:00:00"},
		{input: "", want: ""},
		{input: "24:00", wantErr: true},
		{input: "7.30", wantErr: true},
		{input: "noon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTimeOfDay) {
					t.Errorf("ParseTimeOfDay(%q) error = %v, want ErrInvalidTimeOfDay", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimeOfDay(%q) error = %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseTimeOfDay(%q) = %q, want %q", tt.input, got.String(), tt.want)
			}
		})
	}
}

func TestTimeOfDay_IsSet(t *testing.T) {
	if (TimeOfDay{}).IsSet() {
		t.Error("zero TimeOfDay IsSet() = true")
	}
	if !MustTimeOfDay("00:00").IsSet() {
		t.Error("midnight IsSet() = false")
	}
}

func TestTimeOfDay_On(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name     string
		now      time.Time
		tod      string
		wantHour int
	}{
		{name: "winter", now: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC), tod: "07:00", wantHour: 6},
		{name: "summer", now: time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC), tod: "07:00", wantHour: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MustTimeOfDay(tt.tod).On(tt.now, berlin)
			if got.Location() != time.UTC {
				t.Errorf("On() location = %v, want UTC", got.Location())
			}
			if got.Hour() != tt.wantHour || got.Minute() != 0 {
				t.Errorf("On() = %s, want %02d:00 UTC", got.Format(time.TimeOnly), tt.wantHour)
			}
		})
	}
}

func TestTimeOfDay_Text(t *testing.T) {
	var tod TimeOfDay
	if err := tod.UnmarshalText([]byte("06:45")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	b, err := tod.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error = %v", err)
	}
	if string(b) != "06:45:00" {
		t.Errorf("MarshalText() = %q, want 06:45:00", b)
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		input string
		want  Type
		ok    bool
	}{
		{"Shutter", TypeShutter, true},
		{"shutter", TypeShutter, true},
		{"lighting", TypeLighting, true},
		{"windmonitor", TypeWindMonitor, true},
		{"blind", "", false},
	}
	for _, tt := range tests {
		got, err := ParseType(tt.input)
		if (err == nil) != tt.ok {
			t.Errorf("ParseType(%q) error = %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
	if TypeWindMonitor.Segment() != "windmonitor" {
		t.Errorf("Segment() = %q", TypeWindMonitor.Segment())
	}
}

func TestParseStatus(t *testing.T) {
	if st, err := ParseStatus(""); err != nil || st != StatusUndefined {
		t.Errorf("ParseStatus(\"\") = %q, %v", st, err)
	}
	if st, err := ParseStatus("Opened"); err != nil || st != StatusOpened {
		t.Errorf("ParseStatus(Opened) = %q, %v", st, err)
	}
	if _, err := ParseStatus("Half"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("ParseStatus(Half) error = %v, want ErrInvalidStatus", err)
	}
}

func TestParseAction(t *testing.T) {
	for _, a := range AllActions() {
		got, err := ParseAction(string(a))
		if err != nil || got != a {
			t.Errorf("ParseAction(%q) = %q, %v", a, got, err)
		}
	}
	if got, err := ParseAction("enabletimer"); err != nil || got != ActionEnableTimer {
		t.Errorf("ParseAction(enabletimer) = %q, %v", got, err)
	}
	if _, err := ParseAction("dance"); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("ParseAction(dance) error = %v, want ErrInvalidAction", err)
	}
}
