// Package gpio owns the shared physical pin connection used by every device.
//
// A Connection holds the set of attached pins. Devices attach their pins when
// enabled and detach them when disabled, so the attached set always mirrors
// the enabled devices. Output pins are written through the connection and
// input pins are watched for edges, which are delivered to the pin's OnEdge
// callback.
//
// Two drivers exist:
//   - PeriphDriver talks to real hardware through periph.io (Raspberry Pi).
//   - MemoryDriver keeps pin levels in memory for simulation and tests.
//
// All Connection methods are safe for concurrent use.
package gpio
