package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/almue/almue-core/internal/audit"
	"github.com/almue/almue-core/internal/device"
	"github.com/almue/almue-core/internal/protocol"
)

// Logger defines the logging interface used by the controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Scheduler is the part of scheduler.Scheduler the controller drives.
type Scheduler interface {
	EnableJobsOfDevice(d device.Schedulable) error
	DisableJobsOfDevice(d device.Schedulable)
	UpdateTrigger(d device.Schedulable, action device.Action) error
}

// AuditRecorder stores dispatched commands.
type AuditRecorder interface {
	Create(ctx context.Context, e *audit.Entry) error
}

// Controller owns the device registry and executes commands against it.
type Controller struct {
	registry  *device.Registry
	scheduler Scheduler

	mu     sync.RWMutex
	audit  AuditRecorder
	logger Logger
}

// New creates a controller over the given devices.
func New(registry *device.Registry, scheduler Scheduler) *Controller {
	return &Controller{
		registry:  registry,
		scheduler: scheduler,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the controller.
func (c *Controller) SetLogger(logger Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

// SetAuditRecorder enables command auditing.
func (c *Controller) SetAuditRecorder(r AuditRecorder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.audit = r
}

// Registry returns the device registry.
func (c *Controller) Registry() *device.Registry {
	return c.registry
}

func (c *Controller) log() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// Start creates jobs for timer-enabled devices and wires emergency
// subscriptions. Job failures are logged and returned joined; the
// remaining devices are still processed.
func (c *Controller) Start() error {
	err := c.EnableTimers()
	c.WireEmergencies()
	return err
}

// EnableTimers creates the jobs of every device whose timer is enabled.
func (c *Controller) EnableTimers() error {
	var errs []error
	for _, s := range device.With[device.Schedulable](c.registry) {
		if !s.TimerEnabled() {
			continue
		}
		if err := c.scheduler.EnableJobsOfDevice(s); err != nil {
			c.log().Warn("enabling jobs failed", "device", s.ID(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// WireEmergencies subscribes every emergency-enabled receiver at every
// notifier. Calling it again does not create duplicate subscriptions.
func (c *Controller) WireEmergencies() {
	notifiers := device.With[device.EmergencyNotifier](c.registry)
	for _, r := range device.With[device.EmergencyReceiver](c.registry) {
		if !r.EmergencyEnabled() {
			continue
		}
		for _, n := range notifiers {
			n.Subscribe(r)
		}
	}
	c.log().Info("emergency subscriptions wired", "notifiers", len(notifiers))
}

// Dispatch executes cmd and records it in the audit log under source.
// Lookup and capability failures are logged and returned wrapped in
// ErrDeviceNotFound or ErrCapabilityMismatch.
func (c *Controller) Dispatch(ctx context.Context, cmd protocol.Command, source string) error {
	d, err := c.registry.Get(cmd.DeviceType, cmd.Description)
	if err != nil {
		err = fmt.Errorf("%w: %s %q", ErrDeviceNotFound, cmd.DeviceType, cmd.Description)
		c.log().Warn("command dropped", "type", string(cmd.DeviceType), "description", cmd.Description,
			"action", string(cmd.Action), "source", source, "error", err)
		c.record(ctx, cmd, nil, source, err)
		return err
	}

	err = c.execute(d, cmd)
	switch {
	case err == nil:
		c.log().Info("command executed", "device", d.ID(), "action", string(cmd.Action), "source", source)
	case errors.Is(err, ErrCapabilityMismatch), errors.Is(err, device.ErrInvalidTimeOfDay):
		c.log().Warn("command dropped", "device", d.ID(), "action", string(cmd.Action), "source", source, "error", err)
	default:
		c.log().Error("command failed", "device", d.ID(), "action", string(cmd.Action), "source", source, "error", err)
	}
	c.record(ctx, cmd, d, source, err)
	return err
}

// RunJob is the scheduler's entry point. It invokes Open, Close, SwitchOn
// or SwitchOff on d.
func (c *Controller) RunJob(ctx context.Context, d device.Device, action device.Action) error {
	switch action {
	case device.ActionOpen, device.ActionClose, device.ActionOn, device.ActionOff:
	default:
		return fmt.Errorf("%w: %s is not a job action", device.ErrInvalidAction, action)
	}
	return c.Dispatch(ctx, protocol.Command{
		Description: d.Description(),
		DeviceType:  d.Type(),
		Action:      action,
	}, audit.SourceScheduler)
}

func (c *Controller) execute(d device.Device, cmd protocol.Command) error {
	switch cmd.Action {
	case device.ActionOpen, device.ActionClose:
		s, ok := d.(device.Shuttable)
		if !ok {
			return mismatch(d, cmd.Action, "Shuttable")
		}
		if cmd.Action == device.ActionOpen {
			return s.Open()
		}
		return s.Close()

	case device.ActionStop:
		s, ok := d.(device.Stoppable)
		if !ok {
			return mismatch(d, cmd.Action, "Stoppable")
		}
		return s.Stop()

	case device.ActionOn, device.ActionOff:
		s, ok := d.(device.Switchable)
		if !ok {
			return mismatch(d, cmd.Action, "Switchable")
		}
		if cmd.Action == device.ActionOn {
			return s.SwitchOn()
		}
		return s.SwitchOff()

	case device.ActionEnableDevice, device.ActionDisableDevice:
		return c.setDisabled(d, cmd.Action)

	case device.ActionEnableEmergency, device.ActionDisableEmergency:
		return c.setEmergency(d, cmd.Action)

	case device.ActionEnableTimer, device.ActionDisableTimer:
		return c.setTimer(d, cmd.Action)

	case device.ActionSetOnTime, device.ActionSetOffTime:
		return c.setTime(d, cmd.Action, cmd.Payload)

	default:
		return fmt.Errorf("%w: %q", device.ErrInvalidAction, cmd.Action)
	}
}

func (c *Controller) setDisabled(d device.Device, action device.Action) error {
	dd, ok := d.(device.Disableable)
	if !ok {
		return mismatch(d, action, "Disableable")
	}
	disabled := action == device.ActionDisableDevice
	if err := dd.SetDisabled(disabled); err != nil {
		return err
	}

	s, ok := d.(device.Schedulable)
	if !ok || !s.TimerEnabled() {
		return nil
	}
	if disabled {
		c.scheduler.DisableJobsOfDevice(s)
		return nil
	}
	return c.scheduler.EnableJobsOfDevice(s)
}

func (c *Controller) setEmergency(d device.Device, action device.Action) error {
	r, ok := d.(device.EmergencyReceiver)
	if !ok {
		return mismatch(d, action, "EmergencyReceiver")
	}
	enabled := action == device.ActionEnableEmergency
	r.SetEmergencyEnabled(enabled)

	for _, n := range device.With[device.EmergencyNotifier](c.registry) {
		n.Unsubscribe(r)
		if enabled {
			n.Subscribe(r)
		}
	}
	return nil
}

func (c *Controller) setTimer(d device.Device, action device.Action) error {
	s, ok := d.(device.Schedulable)
	if !ok {
		return mismatch(d, action, "Schedulable")
	}
	enabled := action == device.ActionEnableTimer
	s.SetTimerEnabled(enabled)
	if !enabled {
		c.scheduler.DisableJobsOfDevice(s)
		return nil
	}
	return c.scheduler.EnableJobsOfDevice(s)
}

func (c *Controller) setTime(d device.Device, action device.Action, payload string) error {
	s, ok := d.(device.Schedulable)
	if !ok {
		return mismatch(d, action, "Schedulable")
	}
	if payload == "" {
		return fmt.Errorf("%w: empty payload", device.ErrInvalidTimeOfDay)
	}
	t, err := device.ParseTimeOfDay(payload)
	if err != nil {
		return err
	}

	on := action == device.ActionSetOnTime
	if on {
		s.SetOnTime(t)
	} else {
		s.SetOffTime(t)
	}

	var job device.Action
	switch d.(type) {
	case device.Switchable:
		job = device.ActionOff
		if on {
			job = device.ActionOn
		}
	case device.Shuttable:
		job = device.ActionClose
		if on {
			job = device.ActionOpen
		}
	default:
		c.log().Error("no job action for device", "device", d.ID(), "action", string(action))
		return nil
	}
	return c.scheduler.UpdateTrigger(s, job)
}

// record writes the audit entry. Failures are logged only.
func (c *Controller) record(ctx context.Context, cmd protocol.Command, d device.Device, source string, cmdErr error) {
	c.mu.RLock()
	rec := c.audit
	c.mu.RUnlock()
	if rec == nil {
		return
	}

	e := &audit.Entry{
		Action:     string(cmd.Action),
		DeviceType: string(cmd.DeviceType),
		Source:     source,
		Outcome:    audit.OutcomeOK,
	}
	if d != nil {
		e.DeviceID = d.ID()
	}
	details := map[string]any{"description": cmd.Description}
	if cmd.Payload != "" {
		details["payload"] = cmd.Payload
	}
	if cmdErr != nil {
		details["error"] = cmdErr.Error()
		e.Outcome = audit.OutcomeFailed
		if errors.Is(cmdErr, ErrDeviceNotFound) || errors.Is(cmdErr, ErrCapabilityMismatch) ||
			errors.Is(cmdErr, device.ErrInvalidTimeOfDay) {
			e.Outcome = audit.OutcomeRejected
		}
	}
	e.Details = details

	if err := rec.Create(ctx, e); err != nil {
		c.log().Warn("recording audit entry failed", "action", e.Action, "error", err)
	}
}

func mismatch(d device.Device, action device.Action, capability string) error {
	return fmt.Errorf("%w: %s does not implement %s required by %s", ErrCapabilityMismatch, d.ID(), capability, action)
}
