// Package controller routes commands to devices.
//
// Commands arrive from the MQTT gateway, the HTTP API and the scheduler.
// The controller looks the target up by (type, description), checks that
// it implements the capability the action needs, runs the operation and
// keeps the scheduler and the emergency subscriptions in step with the
// device's flags.
//
// At startup it creates the jobs of every device whose timer is enabled
// and subscribes every emergency-enabled receiver at every notifier.
package controller
