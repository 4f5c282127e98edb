// Package configsync keeps the device configuration file in step with the
// live devices.
//
// Syncer.HandleChange is installed as the devices' change handler. For
// every notification it updates the matching entry of the DeviceSet,
// writes the file when a persisted value changed, records a state history
// row, writes an InfluxDB point for status changes and finally notifies the
// registered listeners (the MQTT gateway and the websocket hub).
package configsync
