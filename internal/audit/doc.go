// Package audit stores one row per dispatched device command in the
// audit_logs table.
//
// Every command that reaches the controller is recorded, whether it came
// from MQTT, the HTTP API or a scheduled job, together with its outcome.
// Recording is best-effort: a failed insert is logged by the caller and
// never blocks the command itself.
package audit
