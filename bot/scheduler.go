package bot

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Job is a periodic housekeeping task run while the bot is online.
type Job struct {
	Name string
	Spec string
	Run  func()
}

// AddJob schedules a job. Jobs must be added before Start.
func (b *Bot) AddJob(job Job) {
	b.jobs = append(b.jobs, job)
}

// startScheduler starts the cron jobs.
func (b *Bot) startScheduler() error {
	logger := cron.PrintfLogger(&b.log)
	b.cron = cron.New(cron.WithChain(cron.Recover(logger)))

	for _, job := range b.jobs {
		job := job
		if _, err := b.cron.AddFunc(job.Spec, func() {
			b.log.Debug().Str("job", job.Name).Msg("running scheduled job")
			job.Run()
		}); err != nil {
			return fmt.Errorf("could not set up cron job %s: %w", job.Name, err)
		}
		b.log.Info().Str("job", job.Name).Str("spec", job.Spec).Msg("cron job scheduled")
	}
	b.cron.Start()
	return nil
}

// stopScheduler stops the cron jobs and waits for running ones.
func (b *Bot) stopScheduler() {
	if b.cron != nil {
		<-b.cron.Stop().Done()
		b.log.Info().Msg("scheduler stopped")
	}
}
