package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/almue/almue-core/internal/device"
)

// JobRunner executes a fired job.
type JobRunner interface {
	RunJob(ctx context.Context, d device.Device, action device.Action) error
}

// Logger defines the logging interface used by the scheduler.
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

// JobKey identifies a job: Group is the device type, Name is "<description>/<action>".
type JobKey struct {
	Group string
	Name  string
}

// String returns "<group>.<name>".
func (k JobKey) String() string {
	return k.Group + "." + k.Name
}

// KeyFor returns the key of the job that runs action on d.
func KeyFor(d device.Device, action device.Action) JobKey {
	return JobKey{Group: string(d.Type()), Name: d.Description() + "/" + string(action)}
}

// JobInfo describes a scheduled job.
type JobInfo struct {
	Key      string        `json:"key"`
	DeviceID string        `json:"device_id"`
	Action   device.Action `json:"action"`

	// Spec is the cron expression in UTC, e.g. "30 5 * * *".
	Spec string `json:"spec"`

	// Next is the next fire time, zero until the scheduler has started.
	Next time.Time `json:"next"`
}

type job struct {
	key     JobKey
	device  device.Schedulable
	action  device.Action
	spec    string
	entryID cron.EntryID
}

// Config holds optional scheduler settings.
type Config struct {
	// Location is the zone device times are expressed in. Defaults to time.Local.
	Location *time.Location

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Scheduler owns the cron table of device jobs.
//
// Enable/Disable/UpdateTrigger are synchronous: the cron table is updated
// when they return. All methods are safe for concurrent use.
type Scheduler struct {
	cron   *cron.Cron
	runner JobRunner
	loc    *time.Location
	now    func() time.Time
	logger Logger

	mu   sync.Mutex
	jobs map[JobKey]*job

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a stopped scheduler.
func New(runner JobRunner, cfg Config) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		runner: runner,
		loc:    cfg.Location,
		now:    cfg.Now,
		logger: noopLogger{},
		jobs:   make(map[JobKey]*job),
		ctx:    ctx,
		cancel: cancel,
	}
	s.cron = newCron(s)
	return s
}

func newCron(s *Scheduler) *cron.Cron {
	return cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cronLogger{s: s})),
	)
}

// SetLogger sets the logger for the scheduler.
func (s *Scheduler) SetLogger(logger Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// Start begins firing jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log().Info("scheduler started", "jobs", s.JobCount())
}

// Stop halts the cron table and waits for running jobs or ctx, whichever is first.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.cancel()
		s.log().Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

// EnableJobsOfDevice creates the daily jobs of d. It does nothing if the
// jobs already exist. Actions whose time cannot be resolved are skipped.
func (s *Scheduler) EnableJobsOfDevice(d device.Schedulable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.JobsCreated() {
		return nil
	}

	actions := actionsFor(d)
	if len(actions) == 0 {
		s.logger.Error("no schedulable actions for device", "device", d.ID())
		return fmt.Errorf("%w: %s", ErrNoActions, d.ID())
	}

	var errs []error
	created := 0
	for _, action := range actions {
		if err := s.addJobLocked(d, action); err != nil {
			s.logger.Warn("job not scheduled", "device", d.ID(), "action", string(action), "error", err)
			errs = append(errs, err)
			continue
		}
		created++
	}

	if created > 0 {
		d.SetJobsCreated(true)
	}
	return errors.Join(errs...)
}

// DisableJobsOfDevice deletes every job of d. It does nothing if none exist.
func (s *Scheduler) DisableJobsOfDevice(d device.Schedulable) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !d.JobsCreated() {
		return
	}

	for key, j := range s.jobs {
		if j.device.ID() != d.ID() {
			continue
		}
		s.cron.Remove(j.entryID)
		delete(s.jobs, key)
		s.logger.Info("job removed", "job", key.String())
	}
	d.SetJobsCreated(false)
}

// UpdateTrigger reschedules the job for (d, action) after a time change.
// It does nothing unless the device's jobs exist and include that action.
func (s *Scheduler) UpdateTrigger(d device.Schedulable, action device.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !d.JobsCreated() {
		return nil
	}
	j, ok := s.jobs[KeyFor(d, action)]
	if !ok {
		return nil
	}

	spec, err := s.specFor(d, action)
	if err != nil {
		return err
	}
	entryID, err := s.cron.AddFunc(spec, s.jobFunc(j))
	if err != nil {
		return fmt.Errorf("rescheduling %s: %w", j.key, err)
	}
	s.cron.Remove(j.entryID)
	j.entryID = entryID
	j.spec = spec

	s.logger.Info("job rescheduled", "job", j.key.String(), "spec", spec)
	return nil
}

// Jobs returns a snapshot of the scheduled jobs sorted by key.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, JobInfo{
			Key:      j.key.String(),
			DeviceID: j.device.ID(),
			Action:   j.action,
			Spec:     j.spec,
			Next:     s.cron.Entry(j.entryID).Next,
		})
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Key < out[k].Key })
	return out
}

// JobCount returns the number of scheduled jobs.
func (s *Scheduler) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *Scheduler) addJobLocked(d device.Schedulable, action device.Action) error {
	key := KeyFor(d, action)
	if _, exists := s.jobs[key]; exists {
		return nil
	}

	spec, err := s.specFor(d, action)
	if err != nil {
		return err
	}

	j := &job{key: key, device: d, action: action, spec: spec}
	entryID, err := s.cron.AddFunc(spec, s.jobFunc(j))
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", key, err)
	}
	j.entryID = entryID
	s.jobs[key] = j

	s.logger.Info("job scheduled", "job", key.String(), "spec", spec)
	return nil
}

// specFor converts the device's local time for action into a UTC cron spec.
func (s *Scheduler) specFor(d device.Schedulable, action device.Action) (string, error) {
	var tod device.TimeOfDay
	switch action {
	case device.ActionOpen, device.ActionOn:
		tod = d.OnTime()
	case device.ActionClose, device.ActionOff:
		tod = d.OffTime()
	default:
		return "", fmt.Errorf("scheduler: action %s cannot be scheduled", action)
	}
	if !tod.IsSet() {
		return "", fmt.Errorf("%w: %s %s", ErrTimeNotSet, d.ID(), action)
	}

	at := tod.On(s.now(), s.loc)
	return fmt.Sprintf("%d %d * * *", at.Minute(), at.Hour()), nil
}

func (s *Scheduler) jobFunc(j *job) func() {
	return func() {
		s.log().Info("job fired", "job", j.key.String())
		if err := s.runner.RunJob(s.ctx, j.device, j.action); err != nil {
			s.log().Error("job failed", "job", j.key.String(), "error", err)
		}
	}
}

func (s *Scheduler) log() Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logger
}

// actionsFor returns the daily actions of a device.
func actionsFor(d device.Device) []device.Action {
	switch d.(type) {
	case device.Shuttable:
		return []device.Action{device.ActionOpen, device.ActionClose}
	case device.Switchable:
		return []device.Action{device.ActionOn, device.ActionOff}
	default:
		return nil
	}
}

// cronLogger adapts Logger to cron.Logger for the Recover wrapper.
type cronLogger struct {
	s *Scheduler
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.log().Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.log().Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
