// Package mqtt connects almue to the MQTT broker the mobile client talks to.
//
// It wraps paho.mqtt.golang with:
//   - auto-reconnect with backoff and subscription restore on reconnect
//   - a retained online/offline status message plus a Last Will on the
//     status topic, so clients notice a crashed core
//   - panic recovery and error logging around message handlers
//
// Topic names are not defined here; internal/protocol owns the grammar.
//
//	client, err := mqtt.Connect(cfg.MQTT, mqtt.Options{StatusTopic: protocol.CoreStatusTopic})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe("almue/shutter/Ground/Kitchen", 0,
//	    func(topic string, payload []byte) error {
//	        return dispatch(topic, payload)
//	    })
package mqtt
