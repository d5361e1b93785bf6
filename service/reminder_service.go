package services

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	model "github.com/taxdesk/docuchase/models"
	"github.com/taxdesk/docuchase/notify"

	"gorm.io/gorm"
)

// ReminderService evaluates every active checklist against the due-date
// cadence policy and nudges clients whose documents are still outstanding.
// The policy is a pure function of days-until-due, so running the check
// twice on the same day selects the same candidates and is harmless.
type ReminderService struct {
	db       *gorm.DB
	notifier notify.Notifier

	batch int
	delay time.Duration
}

func NewReminderService(db *gorm.DB, notifier notify.Notifier) *ReminderService {
	return &ReminderService{
		db:       db,
		notifier: notifier,
		batch:    envInt("REMINDER_BATCH", 5),
		delay:    envDuration("REMINDER_BATCH_DELAY", 1*time.Second),
	}
}

// DaysUntilDue counts whole days between now and the due date, rounding up.
// Negative values mean overdue.
func DaysUntilDue(dueDate, now time.Time) int {
	return int(math.Ceil(dueDate.Sub(now).Hours() / 24))
}

// ShouldRemind is the cadence policy: 7/3/0 days before due, a first nudge
// 3 days overdue, then weekly while still outstanding.
func ShouldRemind(daysUntilDue int) bool {
	switch daysUntilDue {
	case 7, 3, 0, -3:
		return true
	}
	return daysUntilDue < -3 && daysUntilDue%7 == 0
}

// ReminderReport summarizes one scheduler run.
type ReminderReport struct {
	Sent    int `json:"sent"`
	Errors  int `json:"errors"`
	Skipped int `json:"skipped"`
}

type reminderCandidate struct {
	checklist    model.Checklist
	client       model.Client
	pendingItems []model.ChecklistItem
	daysUntilDue int
}

// RunReminderCheck walks all active checklists with a due date, applies the
// cadence policy and dispatches reminders in small batches. A failed
// delivery is counted and the run moves on.
func (s *ReminderService) RunReminderCheck() (*ReminderReport, error) {
	now := time.Now()
	report := &ReminderReport{}

	var checklists []model.Checklist
	if err := s.db.Where("status = ? AND due_date IS NOT NULL", model.ChecklistStatusActive).
		Find(&checklists).Error; err != nil {
		return nil, fmt.Errorf("failed to load active checklists: %w", err)
	}
	if len(checklists) == 0 {
		return report, nil
	}

	clientIDs := make([]string, 0, len(checklists))
	for _, c := range checklists {
		clientIDs = append(clientIDs, c.ClientID)
	}
	var clients []model.Client
	if err := s.db.Where("id IN ?", clientIDs).Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("failed to load clients: %w", err)
	}
	clientByID := make(map[string]model.Client, len(clients))
	for _, c := range clients {
		clientByID[c.ID] = c
	}

	var candidates []reminderCandidate
	for _, checklist := range checklists {
		items, err := checklist.ChecklistItems()
		if err != nil {
			log.Printf("[RunReminderCheck] Failed to decode items for checklist %s: %v", checklist.ID, err)
			report.Errors++
			continue
		}
		var pending []model.ChecklistItem
		for _, item := range items {
			if !model.ItemStatusSatisfied(item.Status) {
				pending = append(pending, item)
			}
		}
		if len(pending) == 0 {
			report.Skipped++
			continue
		}
		client, ok := clientByID[checklist.ClientID]
		if !ok || client.Phone == "" {
			report.Skipped++
			continue
		}
		days := DaysUntilDue(*checklist.DueDate, now)
		if !ShouldRemind(days) {
			continue
		}
		candidates = append(candidates, reminderCandidate{
			checklist:    checklist,
			client:       client,
			pendingItems: pending,
			daysUntilDue: days,
		})
	}

	if s.notifier == nil && len(candidates) > 0 {
		log.Printf("[RunReminderCheck] No notifier configured, %d reminders not sent", len(candidates))
		report.Errors += len(candidates)
		return report, nil
	}

	for start := 0; start < len(candidates); start += s.batch {
		end := start + s.batch
		if end > len(candidates) {
			end = len(candidates)
		}
		for _, cand := range candidates[start:end] {
			msg := buildReminderMessage(cand.client.Name, cand.checklist.Name, cand.pendingItems, cand.daysUntilDue)
			if err := s.notifier.Send(cand.client.Phone, msg); err != nil {
				log.Printf("[RunReminderCheck] Failed to remind client %s for checklist %s: %v",
					cand.client.Code, cand.checklist.ID, err)
				report.Errors++
				continue
			}
			report.Sent++
		}
		if end < len(candidates) && s.delay > 0 {
			time.Sleep(s.delay)
		}
	}

	log.Printf("[RunReminderCheck] Done: sent=%d errors=%d skipped=%d", report.Sent, report.Errors, report.Skipped)
	return report, nil
}

// buildReminderMessage tiers the tone by urgency: friendly while the due
// date is comfortably ahead, urgent in the last three days, explicit on the
// day itself and counting days once overdue.
func buildReminderMessage(clientName, checklistName string, pending []model.ChecklistItem, daysUntilDue int) string {
	var b strings.Builder
	switch {
	case daysUntilDue > 3:
		fmt.Fprintf(&b, "Hello %s, a gentle reminder about %s - due in %d days.\n", clientName, checklistName, daysUntilDue)
	case daysUntilDue > 0:
		fmt.Fprintf(&b, "Hello %s, %s is due in %d day(s). Please send the remaining documents soon.\n", clientName, checklistName, daysUntilDue)
	case daysUntilDue == 0:
		fmt.Fprintf(&b, "Hello %s, %s is due TODAY. Please send the remaining documents.\n", clientName, checklistName)
	default:
		fmt.Fprintf(&b, "Hello %s, %s is overdue by %d day(s). Please send the remaining documents immediately.\n", clientName, checklistName, -daysUntilDue)
	}
	b.WriteString("\nStill pending:\n")
	for i, item := range pending {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item.Label)
	}
	return b.String()
}
