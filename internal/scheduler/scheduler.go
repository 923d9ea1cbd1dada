// internal/scheduler/scheduler.go
package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Job is one recurring task: a cron schedule plus the prompt injected
// into the job's session when it fires. Jobs come from configuration.
type Job struct {
	Name       string
	Schedule   string
	SessionKey string
	Prompt     string
	Enabled    bool
}

// Handler is the callback invoked when a scheduled job fires.
type Handler func(sessionKey, prompt string)

// Scheduler fires configured jobs through a handler callback. Typical
// jobs are periodic market reviews and news refreshes that feed turns
// into the gateway like any other surface.
type Scheduler struct {
	jobs    []Job
	handler Handler
	cron    *cron.Cron
}

// cronParser accepts both standard 5-field cron expressions and
// 6-field expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates a Scheduler over the given jobs. The handler is called
// each time a job fires.
func New(jobs []Job, handler Handler) *Scheduler {
	return &Scheduler{
		jobs:    jobs,
		handler: handler,
		cron:    cron.New(cron.WithParser(cronParser)),
	}
}

// AddFunc registers a named internal task, like the news refresh or
// the auto-dispatch sweep, alongside the configured jobs. Must be
// called before Start; Reload does not restore tasks added this way.
func (s *Scheduler) AddFunc(name, schedule string, fn func()) error {
	_, err := s.cron.AddFunc(schedule, func() {
		slog.Info("cron firing task", "name", name)
		fn()
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	slog.Info("scheduled task", "name", name, "schedule", schedule)
	return nil
}

// Start registers enabled jobs that have a schedule as cron entries
// and starts the cron ticker. Jobs with invalid schedules are logged
// and skipped.
func (s *Scheduler) Start() error {
	for _, job := range s.jobs {
		if job.Schedule == "" || !job.Enabled {
			continue
		}

		sessionKey := job.SessionKey
		prompt := job.Prompt
		schedule := job.Schedule
		name := job.Name

		_, err := s.cron.AddFunc(schedule, func() {
			slog.Info("cron firing job", "name", name, "session_key", sessionKey)
			s.handler(sessionKey, prompt)
		})
		if err != nil {
			slog.Error("invalid cron schedule", "name", name, "schedule", schedule, "error", err)
			continue
		}
		slog.Info("scheduled job", "name", name, "schedule", schedule)
	}

	s.cron.Start()
	return nil
}

// Reload stops the existing cron, creates a new one, and calls
// Start() again.
func (s *Scheduler) Reload(jobs []Job) error {
	s.cron.Stop()
	s.jobs = jobs
	s.cron = cron.New(cron.WithParser(cronParser))
	return s.Start()
}

// Stop stops the cron ticker.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
