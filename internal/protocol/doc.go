// Package protocol maps MQTT topics and payloads to device commands.
//
// Topic layout (namespace "almue"):
//
//	almue/shutter/<floor>/<description>            payload: open|close|stop|enable|disable|
//	                                                        enabletimer|disabletimer|
//	                                                        enableemergency|disableemergency
//	almue/lighting/<floor>/<description>           payload: on|off|enable|disable|
//	                                                        enabletimer|disabletimer
//	almue/<type>/<floor>/<description>/timeron     payload: HH:MM[:SS]
//	almue/<type>/<floor>/<description>/timeroff    payload: HH:MM[:SS]
//	almue/<type>/<floor>/<description>/status      published by the core (retained)
//	almue/config                                   published by the core (retained, QoS 1)
//	almue/core/status                              core online/offline and LWT
//
// Decode is a pure function. The caller supplies the description of the
// device the topic was subscribed for, since a floor or description may
// itself contain characters that make splitting ambiguous.
package protocol
