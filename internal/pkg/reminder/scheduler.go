package reminder

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron"

	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/env"
)

const DefaultSchedule = "0 8 * * *"

// Config selects when the daily pass runs. Spec is a standard five field
// cron expression.
type Config struct {
	Enabled bool
	Spec    string
	Timeout time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		Enabled: env.GetBool("REMINDER_ENABLED", true),
		Spec:    env.GetEnv("REMINDER_CRON", DefaultSchedule),
		Timeout: env.GetDuration("REMINDER_TIMEOUT", 5*time.Minute),
	}
}

// Scheduler runs a Reminder on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	reminder *Reminder
	timeout  time.Duration
}

func NewScheduler(cfg Config, r *Reminder) (*Scheduler, error) {
	sched, err := cron.ParseStandard(cfg.Spec)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{cron: cron.New(), reminder: r, timeout: cfg.Timeout}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Minute
	}
	s.cron.Schedule(sched, cron.FuncJob(s.runOnce))
	return s, nil
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	res, err := s.reminder.Run(ctx)
	if err != nil {
		log.Errorf("[Reminder] pass failed: %v", err)
		return
	}
	log.Infof("[Reminder] pass done: %d advanced, %d reminders to %d users", res.Advanced, res.Reminders, res.Users)
}

func (s *Scheduler) Start() {
	log.Info("[Reminder] scheduler started")
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Info("[Reminder] scheduler stopped")
}
