package jobs

import (
	"fmt"
	"log"
	"os"
	"time"

	service "github.com/taxdesk/docuchase/service"

	"github.com/robfig/cron/v3"
)

// ReminderScheduler fires the daily reminder check at 9 AM in the
// practice's civil timezone. The underlying cadence policy is a pure
// function of days-until-due, so an extra manual run on the same day is
// harmless.
type ReminderScheduler struct {
	cronScheduler  *cron.Cron
	reminders      *service.ReminderService
	runImmediately bool
	jobID          cron.EntryID
}

// NewReminderScheduler builds the scheduler in REMINDER_TZ (default
// Asia/Kolkata).
func NewReminderScheduler(reminders *service.ReminderService, runImmediately bool) (*ReminderScheduler, error) {
	tz := os.Getenv("REMINDER_TZ")
	if tz == "" {
		tz = "Asia/Kolkata"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_TZ %q: %w", tz, err)
	}
	return &ReminderScheduler{
		cronScheduler:  cron.New(cron.WithLocation(loc)),
		reminders:      reminders,
		runImmediately: runImmediately,
	}, nil
}

// Start registers the daily job and boots the cron loop.
func (s *ReminderScheduler) Start() error {
	var err error
	s.jobID, err = s.cronScheduler.AddFunc("0 9 * * *", func() {
		log.Println("Running scheduled daily reminder check")
		s.run()
	})
	if err != nil {
		return fmt.Errorf("error scheduling reminder job: %w", err)
	}

	s.cronScheduler.Start()
	log.Println("Reminder scheduler started - will run daily at 9:00 AM")

	if s.runImmediately {
		log.Println("Running initial reminder check")
		s.run()
	}
	return nil
}

// Stop terminates the scheduler.
func (s *ReminderScheduler) Stop() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
		log.Println("Reminder scheduler stopped")
	}
}

func (s *ReminderScheduler) run() {
	report, err := s.reminders.RunReminderCheck()
	if err != nil {
		log.Printf("Error in reminder check: %v", err)
		return
	}
	log.Printf("Reminder check complete: sent=%d errors=%d skipped=%d",
		report.Sent, report.Errors, report.Skipped)
}
