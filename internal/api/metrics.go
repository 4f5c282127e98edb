package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/almue/almue-core/internal/device"
)

// BrokerStats is the slice of the MQTT client the metrics endpoint reads.
type BrokerStats interface {
	IsConnected() bool
	Reconnects() int64
}

// JobCounter reports the number of scheduled timer jobs.
type JobCounter interface {
	JobCount() int
}

// SystemMetrics is the response of GET /api/v1/metrics.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	Devices       DeviceMetrics  `json:"devices"`
	WebSocket     WSMetrics      `json:"websocket"`
	MQTT          *MQTTMetrics   `json:"mqtt,omitempty"`
	ScheduledJobs *int           `json:"scheduled_jobs,omitempty"`
}

type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	NumGC         uint32  `json:"num_gc"`
}

type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

type MQTTMetrics struct {
	Connected  bool  `json:"connected"`
	Reconnects int64 `json:"reconnects"`
}

// DeviceMetrics counts devices by type segment and status. WindPulses
// holds the running pulse count of each wind monitor by description.
type DeviceMetrics struct {
	Total      int            `json:"total"`
	Disabled   int            `json:"disabled"`
	ByType     map[string]int `json:"by_type"`
	ByStatus   map[string]int `json:"by_status"`
	WindPulses map[string]int `json:"wind_pulses,omitempty"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(mem.Alloc) / (1 << 20),
			NumGC:         mem.NumGC,
		},
		Devices:   countDevices(s.registry.All()),
		WebSocket: WSMetrics{ConnectedClients: s.hub.ClientCount()},
	}
	if s.broker != nil {
		m.MQTT = &MQTTMetrics{Connected: s.broker.IsConnected(), Reconnects: s.broker.Reconnects()}
	}
	if s.jobs != nil {
		n := s.jobs.JobCount()
		m.ScheduledJobs = &n
	}
	writeJSON(w, http.StatusOK, m)
}

func countDevices(devices []device.Device) DeviceMetrics {
	dm := DeviceMetrics{
		ByType:   make(map[string]int),
		ByStatus: make(map[string]int),
	}
	for _, d := range devices {
		dm.Total++
		dm.ByType[d.Type().Segment()]++
		if sp, ok := d.(device.StatusProvider); ok {
			dm.ByStatus[string(sp.Status())]++
		}
		if dd, ok := d.(device.Disableable); ok && dd.Disabled() {
			dm.Disabled++
		}
		if wm, ok := d.(*device.WindMonitor); ok {
			if dm.WindPulses == nil {
				dm.WindPulses = make(map[string]int)
			}
			dm.WindPulses[wm.Description()] = wm.Pulses()
		}
	}
	return dm
}
