package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	model "github.com/taxdesk/docuchase/models"
	"github.com/taxdesk/docuchase/notify"

	"gorm.io/gorm"
)

// BulkIssueService fans one template out to many clients for a financial
// year, skipping clients that already hold a checklist for the same
// (year, service type) tuple.
type BulkIssueService struct {
	db         *gorm.DB
	checklists *ChecklistService
	notifier   notify.Notifier

	createBatch int
	notifyBatch int
	notifyDelay time.Duration
}

func NewBulkIssueService(db *gorm.DB, checklists *ChecklistService, notifier notify.Notifier) *BulkIssueService {
	return &BulkIssueService{
		db:          db,
		checklists:  checklists,
		notifier:    notifier,
		createBatch: envInt("BULK_CREATE_BATCH", 50),
		notifyBatch: envInt("NOTIFY_BATCH", 10),
		notifyDelay: envDuration("NOTIFY_BATCH_DELAY", 2*time.Second),
	}
}

// BulkCreateInput selects the template, the target clients (empty means all)
// and the financial year to issue for.
type BulkCreateInput struct {
	TemplateID    string     `json:"template_id" binding:"required"`
	ClientIDs     []string   `json:"client_ids"`
	FinancialYear string     `json:"financial_year" binding:"required"`
	DueDate       *time.Time `json:"due_date"`
	Notify        bool       `json:"notify"`
	CreatedBy     string     `json:"created_by"`
}

// BulkCreateResult reports what the fan-out did. WhatsappSent counts
// notification deliveries; failures there never fail the bulk operation.
type BulkCreateResult struct {
	Created      int `json:"created"`
	Skipped      int `json:"skipped"`
	Total        int `json:"total"`
	WhatsappSent int `json:"whatsapp_sent"`
}

// BulkCreate expands the template into one checklist per target client. The
// de-duplication set is computed up front, before any creation, so a single
// call can never issue duplicates; two operators racing across calls remains
// a known limitation.
func (s *BulkIssueService) BulkCreate(input BulkCreateInput) (*BulkCreateResult, error) {
	var tmpl model.ChecklistTemplate
	if err := s.db.First(&tmpl, "id = ?", input.TemplateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("template %s: %w", input.TemplateID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch template: %w", err)
	}
	defs, err := tmpl.TemplateItems()
	if err != nil {
		return nil, fmt.Errorf("failed to decode template items: %w", err)
	}

	clients, err := s.resolveTargets(input.ClientIDs)
	if err != nil {
		return nil, err
	}

	// One bulk lookup decides which (client, year, serviceType) tuples are
	// already covered before anything is written.
	targetIDs := make([]string, 0, len(clients))
	for _, c := range clients {
		targetIDs = append(targetIDs, c.ID)
	}
	var existingIDs []string
	if len(targetIDs) > 0 {
		if err := s.db.Model(&model.Checklist{}).
			Where("client_id IN ? AND financial_year = ? AND service_type = ?",
				targetIDs, input.FinancialYear, tmpl.ServiceType).
			Pluck("client_id", &existingIDs).Error; err != nil {
			return nil, fmt.Errorf("failed to check existing checklists: %w", err)
		}
	}
	existing := make(map[string]bool, len(existingIDs))
	for _, id := range existingIDs {
		existing[id] = true
	}

	var newClients []model.Client
	for _, c := range clients {
		if !existing[c.ID] {
			newClients = append(newClients, c)
		}
	}

	checklists := make([]model.Checklist, 0, len(newClients))
	for _, c := range newClients {
		checklist := model.Checklist{
			ClientID:      c.ID,
			TemplateID:    &tmpl.ID,
			Name:          tmpl.Name,
			FinancialYear: input.FinancialYear,
			ServiceType:   tmpl.ServiceType,
			Status:        model.ChecklistStatusActive,
			DueDate:       input.DueDate,
			CreatedBy:     input.CreatedBy,
		}
		if err := checklist.SetChecklistItems(model.ItemsFromTemplate(defs)); err != nil {
			return nil, fmt.Errorf("failed to encode checklist items: %w", err)
		}
		checklists = append(checklists, checklist)
	}
	if len(checklists) > 0 {
		if err := s.db.CreateInBatches(checklists, s.createBatch).Error; err != nil {
			log.Printf("[BulkCreate] Error creating checklists: %v", err)
			return nil, fmt.Errorf("failed to create checklists: %w", err)
		}
	}

	result := &BulkCreateResult{
		Created: len(checklists),
		Skipped: len(clients) - len(newClients),
		Total:   len(clients),
	}
	log.Printf("[BulkCreate] Template %s FY %s: created=%d skipped=%d total=%d",
		tmpl.Name, input.FinancialYear, result.Created, result.Skipped, result.Total)

	if input.Notify && len(newClients) > 0 {
		result.WhatsappSent = s.notifyIssued(newClients, &tmpl, defs, input.DueDate)
	}
	return result, nil
}

// resolveTargets loads the explicit client list, or every known client when
// none is given. Unknown ids in an explicit list fail the whole call.
func (s *BulkIssueService) resolveTargets(clientIDs []string) ([]model.Client, error) {
	var clients []model.Client
	query := s.db.Order("name ASC")
	if len(clientIDs) > 0 {
		query = query.Where("id IN ?", clientIDs)
	}
	if err := query.Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve target clients: %w", err)
	}
	if len(clientIDs) > 0 && len(clients) != len(clientIDs) {
		return nil, fmt.Errorf("one or more target clients do not exist: %w", ErrNotFound)
	}
	return clients, nil
}

// notifyIssued walks the freshly issued clients in small batches with a
// pause in between to stay under the gateway's rate limit. Failures are
// logged and swallowed; only successes are counted.
func (s *BulkIssueService) notifyIssued(clients []model.Client, tmpl *model.ChecklistTemplate, defs []model.TemplateItem, dueDate *time.Time) int {
	if s.notifier == nil {
		return 0
	}
	sent := 0
	for start := 0; start < len(clients); start += s.notifyBatch {
		end := start + s.notifyBatch
		if end > len(clients) {
			end = len(clients)
		}
		for _, c := range clients[start:end] {
			if c.Phone == "" {
				log.Printf("[notifyIssued] Client %s has no phone, skipping notification", c.Code)
				continue
			}
			if err := s.notifier.Send(c.Phone, buildIssueMessage(c.Name, tmpl.Name, defs, dueDate)); err != nil {
				log.Printf("[notifyIssued] Failed to notify client %s: %v", c.Code, err)
				continue
			}
			sent++
		}
		if end < len(clients) && s.notifyDelay > 0 {
			time.Sleep(s.notifyDelay)
		}
	}
	return sent
}

// buildIssueMessage composes the per-client notice listing the required
// documents and the due date.
func buildIssueMessage(clientName, checklistName string, defs []model.TemplateItem, dueDate *time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\nWe need the following documents for %s:\n", clientName, checklistName)
	n := 0
	for _, def := range defs {
		if !def.Required {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d. %s\n", n, def.Label)
	}
	if dueDate != nil {
		fmt.Fprintf(&b, "\nPlease share them by %s.", dueDate.Format("02 Jan 2006"))
	}
	b.WriteString("\n\nYou can reply here with photos or PDFs of each document.")
	return b.String()
}
