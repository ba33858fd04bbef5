// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aristath/blendopt/pkg/logger"
)

// Job is a unit of scheduled work
type Job interface {
	Run() error
	Name() string
}

// parser accepts five or six fields (leading seconds optional) and
// descriptors such as @daily or @every 10m.
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler wraps a cron runner. Jobs are recovered from panics and a job
// still running when its next tick arrives is skipped for that tick.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates a scheduler that logs through log
func New(log zerolog.Logger) *Scheduler {
	log = logger.Component(log, "scheduler")
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log: log,
	}
}

// ValidateSchedule reports whether expr can be scheduled
func ValidateSchedule(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", s.Entries()).Msg("Scheduler started")
}

// Stop halts new ticks and blocks until in-flight jobs return
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers job under a cron expression, e.g. "*/15 * * * *",
// "30 0 6 * * *" or "@every 1h".
func (s *Scheduler) AddJob(schedule string, job Job) error {
	if _, err := s.cron.AddFunc(schedule, func() { s.execute(job) }); err != nil {
		return fmt.Errorf("failed to register job %s: %w", job.Name(), err)
	}
	s.log.Info().Str("job", job.Name()).Str("schedule", schedule).Msg("Job registered")
	return nil
}

// RunNow runs job synchronously, outside its schedule
func (s *Scheduler) RunNow(job Job) error {
	return s.execute(job)
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) execute(job Job) error {
	start := time.Now()
	err := job.Run()
	event := s.log.Debug()
	if err != nil {
		event = s.log.Error().Err(err)
	}
	event.Str("job", job.Name()).Dur("took", time.Since(start)).Msg("Job finished")
	return err
}

// cronLogger routes cron's internal logging into zerolog
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
