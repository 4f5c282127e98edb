// Package scheduler keeps one daily trigger per (device, action).
//
// A Schedulable shutter gets an Open job at its on time and a Close job at
// its off time; a Schedulable lighting gets On and Off jobs. Jobs are keyed
// by (device type, "<description>/<action>") and are created when the
// device's timer is enabled, deleted when it is disabled, and rescheduled
// in place when a time changes.
//
// Local times are converted to UTC when a job is scheduled, using the site
// time zone. The cron table itself runs in UTC.
//
// Firing a job calls JobRunner.RunJob. Errors are logged and panics are
// recovered so one failing job never stops the others.
package scheduler
