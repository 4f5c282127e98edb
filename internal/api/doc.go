// Package api provides the optional HTTP API and WebSocket feed of almue.
//
// It is a local status and control surface next to the MQTT topic contract:
// device listing, state history, the command audit log and command ingress
// that goes through the same controller path as MQTT messages.
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// The WebSocket hub implements configsync.Listener and broadcasts every
// applied device change on the "device.changed" channel.
package api
