package influxdb

import (
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementDeviceStatus = "device_status"
	MeasurementWindPulses   = "wind_pulses"
)

// WriteStatusChange records a new device status.
func (c *Client) WriteStatusChange(deviceID, deviceType, status string) {
	c.writePoint(MeasurementDeviceStatus,
		map[string]string{
			"device_id":   deviceID,
			"device_type": deviceType,
		},
		map[string]any{
			"status": status,
		},
	)
}

// WriteWindPulse records the pulse counter of a wind monitor.
func (c *Client) WriteWindPulse(deviceID string, count, threshold int) {
	c.writePoint(MeasurementWindPulses,
		map[string]string{
			"device_id": deviceID,
		},
		map[string]any{
			"count":     count,
			"threshold": threshold,
			"exceeded":  count > threshold,
		},
	)
}

func (c *Client) writePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	if c.site != "" {
		tags["site"] = c.site
	}
	c.writer.WritePoint(write.NewPoint(measurement, tags, fields, c.now()))
}
