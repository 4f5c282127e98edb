// Package config handles loading and validating almue-core configuration.
//
// Two files are involved:
//   - config.yaml: process settings (site, MQTT broker, database, logging,
//     hardware driver). Loaded once at startup, never rewritten.
//   - devices.yaml: the shutters, lightings and wind monitors. Loaded at
//     startup and rewritten by the configsync package whenever a device
//     setting changes at runtime.
//
// Security Considerations:
//   - Broker credentials and the InfluxDB token should come from environment
//     variables (ALMUE_MQTT_PASSWORD, ALMUE_INFLUXDB_TOKEN)
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	devices, err := config.LoadDeviceSet(cfg.Devices.File)
package config
