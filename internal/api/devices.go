package api

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/almue/almue-core/internal/audit"
	"github.com/almue/almue-core/internal/device"
	"github.com/almue/almue-core/internal/protocol"
)

// DeviceView is the JSON form of a device and its capabilities.
type DeviceView struct {
	ID          string        `json:"id"`
	Type        device.Type   `json:"type"`
	Description string        `json:"description"`
	Floor       string        `json:"floor,omitempty"`
	Status      device.Status `json:"status,omitempty"`
	Disabled    bool          `json:"disabled"`

	TimerEnabled *bool  `json:"timer_enabled,omitempty"`
	OnTime       string `json:"on_time,omitempty"`
	OffTime      string `json:"off_time,omitempty"`

	CompleteWayInSeconds int   `json:"complete_way_in_seconds,omitempty"`
	EmergencyEnabled     *bool `json:"emergency_enabled,omitempty"`

	Pulses         *int     `json:"pulses,omitempty"`
	PulseThreshold int      `json:"pulse_threshold,omitempty"`
	Subscribers    []string `json:"subscribers,omitempty"`
}

// CommandRequest is the body of the command endpoint. Action is an action
// name ("Open", "SetOnTime") or an MQTT payload keyword ("open", "enabletimer").
type CommandRequest struct {
	Action  string `json:"action"`
	Payload string `json:"payload,omitempty"`
}

func viewOf(d device.Device) DeviceView {
	v := DeviceView{
		ID:          d.ID(),
		Type:        d.Type(),
		Description: d.Description(),
		Floor:       d.Floor(),
	}
	if sp, ok := d.(device.StatusProvider); ok {
		v.Status = sp.Status()
	}
	if dd, ok := d.(device.Disableable); ok {
		v.Disabled = dd.Disabled()
	}
	if s, ok := d.(device.Schedulable); ok {
		enabled := s.TimerEnabled()
		v.TimerEnabled = &enabled
		if t := s.OnTime(); t.IsSet() {
			v.OnTime = t.String()
		}
		if t := s.OffTime(); t.IsSet() {
			v.OffTime = t.String()
		}
	}
	if sh, ok := d.(device.Shuttable); ok {
		v.CompleteWayInSeconds = sh.CompleteWayInSeconds()
	}
	if er, ok := d.(device.EmergencyReceiver); ok {
		enabled := er.EmergencyEnabled()
		v.EmergencyEnabled = &enabled
	}
	if w, ok := d.(*device.WindMonitor); ok {
		pulses := w.Pulses()
		v.Pulses = &pulses
		v.PulseThreshold = w.Threshold()
	}
	if n, ok := d.(device.EmergencyNotifier); ok {
		for _, r := range n.Subscribers() {
			v.Subscribers = append(v.Subscribers, r.ID())
		}
	}
	return v
}

// handleListDevices returns all devices.
//
// Query parameters:
//   - type: filter by device type (shutter, lighting, windmonitor)
//   - floor: filter by floor
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var typ device.Type
	if raw := q.Get("type"); raw != "" {
		t, err := device.ParseType(raw)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		typ = t
	}

	views := s.deviceViews(typ, q.Get("floor"))
	writeJSON(w, http.StatusOK, map[string]any{"devices": views, "count": len(views)})
}

// deviceViews returns the views of the devices matching typ and floor,
// sorted by ID. Empty filters match every device.
func (s *Server) deviceViews(typ device.Type, floor string) []DeviceView {
	views := make([]DeviceView, 0, s.registry.Count())
	for _, d := range s.registry.All() {
		if typ != "" && d.Type() != typ {
			continue
		}
		if floor != "" && d.Floor() != floor {
			continue
		}
		views = append(views, viewOf(d))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

// lookupDevice resolves the {type}/{description} path parameters.
// It writes the error response and returns nil when the device is unknown.
func (s *Server) lookupDevice(w http.ResponseWriter, r *http.Request) device.Device {
	typ, err := device.ParseType(chi.URLParam(r, "type"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return nil
	}
	d, err := s.registry.Get(typ, chi.URLParam(r, "description"))
	if err != nil {
		writeNotFound(w, "device not found")
		return nil
	}
	return d
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d := s.lookupDevice(w, r)
	if d == nil {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(d))
}

// handleDeviceCommand runs one command through the controller, the same
// path MQTT messages take, and returns the device afterwards.
func (s *Server) handleDeviceCommand(w http.ResponseWriter, r *http.Request) {
	if s.dispatcher == nil {
		writeUnavailable(w, "command dispatch not configured")
		return
	}
	d := s.lookupDevice(w, r)
	if d == nil {
		return
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	cmd, err := commandFor(d, req)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.dispatcher.Dispatch(r.Context(), cmd, audit.SourceAPI); err != nil {
		writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(d))
}

// commandFor builds the command for req on d. Action names are tried first,
// then payload keywords of d's command topic.
func commandFor(d device.Device, req CommandRequest) (protocol.Command, error) {
	if action, err := device.ParseAction(req.Action); err == nil {
		return protocol.Command{
			Description: d.Description(),
			DeviceType:  d.Type(),
			Action:      action,
			Payload:     req.Payload,
		}, nil
	}
	topic := protocol.DeviceTopic(d.Type(), d.Floor(), d.Description())
	return protocol.Decode(topic, []byte(req.Action), d.Description())
}
