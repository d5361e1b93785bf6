package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	model "github.com/taxdesk/docuchase/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChecklistService owns the per-client checklist aggregate: creation from
// templates, the item state machine, progress recomputation and the
// auto-completion transition.
type ChecklistService struct {
	db       *gorm.DB
	esClient *elasticsearch.Client
}

// NewChecklistService wires the service to the database and, when
// ELASTICSEARCH_URL is configured, to the search index.
func NewChecklistService(db *gorm.DB) (*ChecklistService, error) {
	esURL := os.Getenv("ELASTICSEARCH_URL")
	var esClient *elasticsearch.Client
	if esURL != "" {
		var err error
		esClient, err = elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{esURL}})
		if err != nil {
			log.Printf("Warning: Failed to create Elasticsearch client: %v", err)
		}
	}
	return &ChecklistService{db: db, esClient: esClient}, nil
}

// CreateChecklistInput carries the fields accepted when materializing a new
// checklist, directly or from a template.
type CreateChecklistInput struct {
	ClientID      string     `json:"client_id" binding:"required"`
	TemplateID    string     `json:"template_id"`
	Name          string     `json:"name"`
	FinancialYear string     `json:"financial_year" binding:"required"`
	ServiceType   string     `json:"service_type"`
	DueDate       *time.Time `json:"due_date"`
	Notes         string     `json:"notes"`
	CreatedBy     string     `json:"created_by"`
}

// CreateChecklist materializes a checklist for one client. When a template
// is given its items are cloned with fresh identities, all pending; without
// one the checklist starts empty.
func (s *ChecklistService) CreateChecklist(input CreateChecklistInput) (*model.Checklist, error) {
	var client model.Client
	if err := s.db.First(&client, "id = ?", input.ClientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("client %s: %w", input.ClientID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch client: %w", err)
	}

	checklist := model.Checklist{
		ClientID:      input.ClientID,
		Name:          input.Name,
		FinancialYear: input.FinancialYear,
		ServiceType:   input.ServiceType,
		Status:        model.ChecklistStatusActive,
		DueDate:       input.DueDate,
		Notes:         input.Notes,
		CreatedBy:     input.CreatedBy,
	}

	var items []model.ChecklistItem
	if input.TemplateID != "" {
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
		items = model.ItemsFromTemplate(defs)
		checklist.TemplateID = &tmpl.ID
		if checklist.Name == "" {
			checklist.Name = tmpl.Name
		}
		if checklist.ServiceType == "" {
			checklist.ServiceType = tmpl.ServiceType
		}
	}
	if checklist.Name == "" {
		return nil, fmt.Errorf("checklist name is required: %w", ErrBadRequest)
	}
	if checklist.ServiceType == "" {
		checklist.ServiceType = model.ServiceTypeCustom
	}
	if err := checklist.SetChecklistItems(items); err != nil {
		return nil, fmt.Errorf("failed to encode checklist items: %w", err)
	}

	if err := s.db.Create(&checklist).Error; err != nil {
		log.Printf("[CreateChecklist] Error saving checklist: %v", err)
		return nil, fmt.Errorf("failed to save checklist: %w", err)
	}
	s.indexChecklist(&checklist)
	log.Printf("[CreateChecklist] Checklist %s created for client %s (%s %s)",
		checklist.ID, client.Code, checklist.ServiceType, checklist.FinancialYear)
	return &checklist, nil
}

// GetChecklist fetches one checklist aggregate by id.
func (s *ChecklistService) GetChecklist(id string) (*model.Checklist, error) {
	var checklist model.Checklist
	if err := s.db.First(&checklist, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("checklist %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch checklist: %w", err)
	}
	return &checklist, nil
}

// ChecklistFilter narrows ListChecklists. Zero values mean "any".
type ChecklistFilter struct {
	ClientID      string
	FinancialYear string
	ServiceType   string
	Status        string
}

// ListChecklists returns checklists matching the filter, newest first.
func (s *ChecklistService) ListChecklists(filter ChecklistFilter) ([]model.Checklist, error) {
	query := s.db.Order("created_at DESC")
	if filter.ClientID != "" {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.FinancialYear != "" {
		query = query.Where("financial_year = ?", filter.FinancialYear)
	}
	if filter.ServiceType != "" {
		query = query.Where("service_type = ?", filter.ServiceType)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	var checklists []model.Checklist
	if err := query.Find(&checklists).Error; err != nil {
		return nil, fmt.Errorf("failed to list checklists: %w", err)
	}
	return checklists, nil
}

// ItemStatusUpdate carries the mergeable payload of an item status change.
type ItemStatusUpdate struct {
	Status          string `json:"status" binding:"required"`
	FileID          string `json:"file_id"`
	FileName        string `json:"file_name"`
	S3Path          string `json:"s3_path"`
	RejectionReason string `json:"rejection_reason"`
	Notes           string `json:"notes"`
	UploadedVia     string `json:"uploaded_via"`
}

// UpdateItemStatus applies one status change to one item, stamps the
// received date on entry into uploaded/received, recomputes the aggregate
// and fires the auto-completion transition when everything required is in.
// Re-applying the same update is a no-op beyond recomputation.
func (s *ChecklistService) UpdateItemStatus(checklistID, itemID string, update ItemStatusUpdate) (*model.Checklist, error) {
	if !model.ValidItemStatus(update.Status) {
		return nil, fmt.Errorf("invalid item status %q: %w", update.Status, ErrBadRequest)
	}

	checklist, err := s.GetChecklist(checklistID)
	if err != nil {
		return nil, err
	}
	items, err := checklist.ChecklistItems()
	if err != nil {
		return nil, fmt.Errorf("failed to decode checklist items: %w", err)
	}

	found := false
	for i := range items {
		if items[i].ID != itemID {
			continue
		}
		applyItemUpdate(&items[i], update)
		found = true
		break
	}
	if !found {
		return nil, fmt.Errorf("item %s in checklist %s: %w", itemID, checklistID, ErrNotFound)
	}

	if err := s.saveAggregate(checklist, items); err != nil {
		return nil, err
	}
	return checklist, nil
}

// applyItemUpdate merges the payload into the item. The received date is
// only stamped when the item actually enters a received-equivalent state.
func applyItemUpdate(item *model.ChecklistItem, update ItemStatusUpdate) {
	entering := item.Status != update.Status &&
		(update.Status == model.ItemStatusUploaded || update.Status == model.ItemStatusReceived)
	item.Status = update.Status
	if entering {
		now := time.Now()
		item.ReceivedDate = &now
	}
	if update.FileID != "" {
		item.FileID = update.FileID
	}
	if update.FileName != "" {
		item.FileName = update.FileName
	}
	if update.S3Path != "" {
		item.S3Path = update.S3Path
	}
	if update.RejectionReason != "" {
		item.RejectionReason = update.RejectionReason
	}
	if update.Status != model.ItemStatusRejected {
		item.RejectionReason = ""
	}
	if update.Notes != "" {
		item.Notes = update.Notes
	}
	if update.UploadedVia != "" {
		item.UploadedVia = update.UploadedVia
	}
}

// ItemStatusChange is one entry of a bulk status update.
type ItemStatusChange struct {
	ItemID string `json:"item_id" binding:"required"`
	Status string `json:"status" binding:"required"`
}

// BulkUpdateItemStatus applies several status changes with a single
// aggregate recompute and write. Unknown item ids are skipped silently,
// matching the admin bulk-review behavior.
func (s *ChecklistService) BulkUpdateItemStatus(checklistID string, changes []ItemStatusChange) (*model.Checklist, error) {
	for _, change := range changes {
		if !model.ValidItemStatus(change.Status) {
			return nil, fmt.Errorf("invalid item status %q: %w", change.Status, ErrBadRequest)
		}
	}

	checklist, err := s.GetChecklist(checklistID)
	if err != nil {
		return nil, err
	}
	items, err := checklist.ChecklistItems()
	if err != nil {
		return nil, fmt.Errorf("failed to decode checklist items: %w", err)
	}

	byID := make(map[string]int, len(items))
	for i := range items {
		byID[items[i].ID] = i
	}
	for _, change := range changes {
		i, ok := byID[change.ItemID]
		if !ok {
			log.Printf("[BulkUpdateItemStatus] Unknown item %s in checklist %s, skipping", change.ItemID, checklistID)
			continue
		}
		applyItemUpdate(&items[i], ItemStatusUpdate{Status: change.Status})
	}

	if err := s.saveAggregate(checklist, items); err != nil {
		return nil, err
	}
	return checklist, nil
}

// AddItemInput describes an item appended to an existing checklist.
type AddItemInput struct {
	Label       string `json:"label" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Required    bool   `json:"required"`
}

// AddItem appends a fresh pending item and recomputes the aggregate.
func (s *ChecklistService) AddItem(checklistID string, input AddItemInput) (*model.Checklist, error) {
	checklist, err := s.GetChecklist(checklistID)
	if err != nil {
		return nil, err
	}
	items, err := checklist.ChecklistItems()
	if err != nil {
		return nil, fmt.Errorf("failed to decode checklist items: %w", err)
	}
	items = append(items, model.ChecklistItem{
		ID:          uuid.NewString(),
		Label:       input.Label,
		Description: input.Description,
		Category:    input.Category,
		Required:    input.Required,
		Status:      model.ItemStatusPending,
	})
	if err := s.saveAggregate(checklist, items); err != nil {
		return nil, err
	}
	return checklist, nil
}

// RemoveItem deletes an item from the checklist. Removing an unknown item
// fails, unlike the bulk update leniency.
func (s *ChecklistService) RemoveItem(checklistID, itemID string) (*model.Checklist, error) {
	checklist, err := s.GetChecklist(checklistID)
	if err != nil {
		return nil, err
	}
	items, err := checklist.ChecklistItems()
	if err != nil {
		return nil, fmt.Errorf("failed to decode checklist items: %w", err)
	}
	kept := make([]model.ChecklistItem, 0, len(items))
	found := false
	for _, item := range items {
		if item.ID == itemID {
			found = true
			continue
		}
		kept = append(kept, item)
	}
	if !found {
		return nil, fmt.Errorf("item %s in checklist %s: %w", itemID, checklistID, ErrNotFound)
	}
	if err := s.saveAggregate(checklist, kept); err != nil {
		return nil, err
	}
	return checklist, nil
}

// ArchiveChecklist parks a checklist out of the active set; archived
// checklists are excluded from reminders.
func (s *ChecklistService) ArchiveChecklist(id string) (*model.Checklist, error) {
	checklist, err := s.GetChecklist(id)
	if err != nil {
		return nil, err
	}
	checklist.Status = model.ChecklistStatusArchived
	if err := s.db.Save(checklist).Error; err != nil {
		return nil, fmt.Errorf("failed to archive checklist: %w", err)
	}
	s.indexChecklist(checklist)
	return checklist, nil
}

// DeleteChecklist soft-deletes the aggregate.
func (s *ChecklistService) DeleteChecklist(id string) error {
	result := s.db.Delete(&model.Checklist{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete checklist: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("checklist %s: %w", id, ErrNotFound)
	}
	return nil
}

// saveAggregate writes the item array plus the derived counters in one
// update and runs the completion transition.
func (s *ChecklistService) saveAggregate(checklist *model.Checklist, items []model.ChecklistItem) error {
	if err := checklist.SetChecklistItems(items); err != nil {
		return fmt.Errorf("failed to encode checklist items: %w", err)
	}

	complete := checklist.TotalItems > 0 &&
		checklist.Progress == 100 &&
		model.AllRequiredSatisfied(items)
	switch {
	case complete && checklist.Status == model.ChecklistStatusActive:
		now := time.Now()
		checklist.Status = model.ChecklistStatusCompleted
		checklist.CompletedAt = &now
		log.Printf("[saveAggregate] Checklist %s auto-completed", checklist.ID)
	case !complete && checklist.Status == model.ChecklistStatusCompleted:
		// A rejection after completion reopens the checklist.
		checklist.Status = model.ChecklistStatusActive
		checklist.CompletedAt = nil
	}

	if err := s.db.Save(checklist).Error; err != nil {
		log.Printf("[saveAggregate] Error saving checklist %s: %v", checklist.ID, err)
		return fmt.Errorf("failed to save checklist: %w", err)
	}
	s.indexChecklist(checklist)
	return nil
}

// indexChecklist pushes a checklist summary into Elasticsearch. Indexing is
// best effort and never breaks the workflow.
func (s *ChecklistService) indexChecklist(checklist *model.Checklist) {
	if s.esClient == nil {
		return
	}

	doc := map[string]interface{}{
		"checklist_id":   checklist.ID,
		"client_id":      checklist.ClientID,
		"name":           checklist.Name,
		"financial_year": checklist.FinancialYear,
		"service_type":   checklist.ServiceType,
		"status":         checklist.Status,
		"progress":       checklist.Progress,
		"timestamp":      time.Now().UTC(),
	}
	body, err := json.Marshal(doc)
	if err != nil {
		log.Printf("[indexChecklist] Failed to marshal checklist %s: %v", checklist.ID, err)
		return
	}

	res, err := s.esClient.Index(
		"checklists",
		bytes.NewReader(body),
		s.esClient.Index.WithDocumentID(checklist.ID),
		s.esClient.Index.WithContext(context.Background()),
	)
	if err != nil {
		log.Printf("[indexChecklist] Elasticsearch indexing error: %v", err)
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Printf("[indexChecklist] Elasticsearch indexing failed: %s", res.String())
	}
}

// SearchChecklists runs a full-text query over the checklist index.
func (s *ChecklistService) SearchChecklists(query string) ([]map[string]interface{}, error) {
	if s.esClient == nil {
		return nil, fmt.Errorf("elasticsearch client is not initialized")
	}

	searchQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"name", "financial_year", "service_type", "status"},
			},
		},
	}
	body, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := s.esClient.Search(
		s.esClient.Search.WithContext(context.Background()),
		s.esClient.Search.WithIndex("checklists"),
		s.esClient.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search failed: %s", res.String())
	}

	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hitsMap, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid hits structure in search response")
	}
	hitsArray, ok := hitsMap["hits"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid hits array in search response")
	}

	var summaries []map[string]interface{}
	for _, hit := range hitsArray {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}
		summaries = append(summaries, source)
	}
	return summaries, nil
}
