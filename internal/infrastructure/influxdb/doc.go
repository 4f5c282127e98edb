// Package influxdb records device activity as InfluxDB time series.
//
// Two measurements are written:
//
//   - device_status: one point per status change, tagged with device id,
//     device type and site; field "status" holds the DeviceStatus string.
//   - wind_pulses: one point per anemometer pulse, tagged with device id and
//     site; fields "count" and "threshold" plus "exceeded".
//
// Writes are non-blocking and batched using the batch_size and
// flush_interval settings. Asynchronous write failures are delivered to
// the callback installed with SetOnError.
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // time series are optional
//	}
package influxdb
