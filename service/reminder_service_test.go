package services

import (
	"testing"
	"time"

	model "github.com/taxdesk/docuchase/models"

	"github.com/agiledragon/gomonkey/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestDaysUntilDue(t *testing.T) {
	tests := []struct {
		name string
		due  time.Time
		want int
	}{
		{"a week out", FixedTime.AddDate(0, 0, 7), 7},
		{"three days out", FixedTime.AddDate(0, 0, 3), 3},
		{"due now", FixedTime, 0},
		{"partial day rounds up", FixedTime.Add(36 * time.Hour), 2},
		{"overdue", FixedTime.AddDate(0, 0, -3), -3},
		{"long overdue", FixedTime.AddDate(0, 0, -14), -14},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysUntilDue(tt.due, FixedTime))
		})
	}
}

func TestShouldRemind(t *testing.T) {
	remindOn := map[int]bool{7: true, 3: true, 0: true, -3: true, -7: true, -14: true, -21: true, -28: true}
	for days := -30; days <= 10; days++ {
		assert.Equal(t, remindOn[days], ShouldRemind(days), "daysUntilDue=%d", days)
	}
}

// seedReminderChecklist inserts an active checklist directly with the given
// due date and item states.
func seedReminderChecklist(t *testing.T, db *gorm.DB, clientID, name string, due time.Time, itemStatuses []string) *model.Checklist {
	t.Helper()
	items := make([]model.ChecklistItem, 0, len(itemStatuses))
	for i, status := range itemStatuses {
		items = append(items, model.ChecklistItem{
			ID:       name + "-item-" + string(rune('a'+i)),
			Label:    "Document " + string(rune('A'+i)),
			Required: true,
			Status:   status,
		})
	}
	checklist := model.Checklist{
		ClientID:      clientID,
		Name:          name,
		FinancialYear: "2024-25",
		ServiceType:   model.ServiceTypeITR,
		Status:        model.ChecklistStatusActive,
		DueDate:       &due,
	}
	if err := checklist.SetChecklistItems(items); err != nil {
		t.Fatalf("failed to encode items: %v", err)
	}
	if err := db.Create(&checklist).Error; err != nil {
		t.Fatalf("failed to seed checklist: %v", err)
	}
	return &checklist
}

func TestRunReminderCheck(t *testing.T) {
	db := setupTestDB(t)
	notifier := newFakeNotifier()
	svc := NewReminderService(db, notifier)

	withPhone := createTestClient(t, db, "Acme Traders", "ACME01", "+911111111111")
	noPhone := createTestClient(t, db, "Bharat Mills", "BHRT02", "")
	failing := createTestClient(t, db, "Chandra & Co", "CHND03", "+913333333333")
	notifier.failFor[failing.Phone] = true

	pending := []string{model.ItemStatusPending, model.ItemStatusReceived}
	allDone := []string{model.ItemStatusReceived, model.ItemStatusVerified}

	// Due in 3 days with outstanding items: reminded.
	seedReminderChecklist(t, db, withPhone.ID, "itr-due-soon", FixedTime.AddDate(0, 0, 3), pending)
	// Due in 5 days: outside the cadence, silently left alone.
	seedReminderChecklist(t, db, withPhone.ID, "gst-off-cadence", FixedTime.AddDate(0, 0, 5), pending)
	// Everything already in: skipped.
	seedReminderChecklist(t, db, withPhone.ID, "audit-complete", FixedTime, allDone)
	// Client unreachable: skipped.
	seedReminderChecklist(t, db, noPhone.ID, "itr-no-phone", FixedTime, pending)
	// Delivery fails: counted as an error, run continues.
	seedReminderChecklist(t, db, failing.ID, "itr-gateway-down", FixedTime.AddDate(0, 0, 7), pending)

	patches := gomonkey.ApplyFunc(time.Now, func() time.Time { return FixedTime })
	defer patches.Reset()

	report, err := svc.RunReminderCheck()
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 2, report.Skipped)

	assert.Equal(t, []string{withPhone.Phone}, notifier.sent)
	assert.Contains(t, notifier.messages[0], "itr-due-soon")
	assert.Contains(t, notifier.messages[0], "due in 3 day(s)")
	assert.Contains(t, notifier.messages[0], "1. Document A")
	assert.NotContains(t, notifier.messages[0], "Document B", "satisfied items stay out of the reminder")
}

func TestRunReminderCheckIgnoresArchivedAndUndated(t *testing.T) {
	db := setupTestDB(t)
	notifier := newFakeNotifier()
	svc := NewReminderService(db, notifier)
	client := createTestClient(t, db, "Acme Traders", "ACME01", "+911111111111")

	archived := seedReminderChecklist(t, db, client.ID, "old-round", FixedTime, []string{model.ItemStatusPending})
	db.Model(archived).Update("status", model.ChecklistStatusArchived)

	undated := seedReminderChecklist(t, db, client.ID, "no-due-date", FixedTime, []string{model.ItemStatusPending})
	db.Model(undated).Update("due_date", nil)

	patches := gomonkey.ApplyFunc(time.Now, func() time.Time { return FixedTime })
	defer patches.Reset()

	report, err := svc.RunReminderCheck()
	assert.NoError(t, err)
	assert.Equal(t, &ReminderReport{}, report)
	assert.Empty(t, notifier.sent)
}

func TestRunReminderCheckWithoutNotifier(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReminderService(db, nil)
	client := createTestClient(t, db, "Acme Traders", "ACME01", "+911111111111")
	seedReminderChecklist(t, db, client.ID, "itr-due-today", FixedTime, []string{model.ItemStatusPending})

	patches := gomonkey.ApplyFunc(time.Now, func() time.Time { return FixedTime })
	defer patches.Reset()

	report, err := svc.RunReminderCheck()
	assert.NoError(t, err)
	assert.Equal(t, 0, report.Sent)
	assert.Equal(t, 1, report.Errors)
}

func TestBuildReminderMessage(t *testing.T) {
	pending := []model.ChecklistItem{
		{Label: "PAN Card"},
		{Label: "Form 16"},
	}
	tests := []struct {
		name         string
		daysUntilDue int
		wantPhrase   string
	}{
		{"comfortably ahead", 7, "due in 7 days"},
		{"last stretch", 3, "due in 3 day(s)"},
		{"due today", 0, "due TODAY"},
		{"first overdue nudge", -3, "overdue by 3 day(s)"},
		{"weekly overdue nudge", -14, "overdue by 14 day(s)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := buildReminderMessage("Acme Traders", "ITR Filing", pending, tt.daysUntilDue)
			assert.Contains(t, msg, "Acme Traders")
			assert.Contains(t, msg, "ITR Filing")
			assert.Contains(t, msg, tt.wantPhrase)
			assert.Contains(t, msg, "1. PAN Card")
			assert.Contains(t, msg, "2. Form 16")
		})
	}
}
