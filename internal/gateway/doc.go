// Package gateway connects the MQTT transport to the device controller.
//
// Inbound, it subscribes to the command topics of every device, decodes
// each message with the protocol package and dispatches the resulting
// command. Outbound, it keeps the retained almue/config topic and the
// per-device status topics current as configsync reports changes.
package gateway
