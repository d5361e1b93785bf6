package models

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Checklist lifecycle states.
const (
	ChecklistStatusActive    = "active"
	ChecklistStatusCompleted = "completed"
	ChecklistStatusArchived  = "archived"
)

// Item states. The admin review path speaks verified/rejected while the
// collection path speaks received/not_applicable; both vocabularies map onto
// this one closed set.
const (
	ItemStatusPending       = "pending"
	ItemStatusUploaded      = "uploaded"
	ItemStatusReceived      = "received"
	ItemStatusVerified      = "verified"
	ItemStatusRejected      = "rejected"
	ItemStatusNotApplicable = "not_applicable"
)

// Upload channels recorded against an item.
const (
	UploadedViaWhatsApp   = "whatsapp"
	UploadedViaUploadLink = "upload_link"
	UploadedViaAdmin      = "admin"
)

// ChecklistItem is a value object embedded in the checklist's JSON item
// array, not a row of its own. The whole array is rewritten on every
// mutation so the aggregate stays consistent.
type ChecklistItem struct {
	ID              string     `json:"id"`
	Label           string     `json:"label"`
	Description     string     `json:"description,omitempty"`
	Category        string     `json:"category,omitempty"`
	Required        bool       `json:"required"`
	Status          string     `json:"status"`
	ReceivedDate    *time.Time `json:"received_date,omitempty"`
	FileID          string     `json:"file_id,omitempty"`
	FileName        string     `json:"file_name,omitempty"`
	S3Path          string     `json:"s3_path,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	UploadedVia     string     `json:"uploaded_via,omitempty"`
}

// ItemStatusSatisfied reports whether a status counts toward progress and
// completion. Uploaded and verified are received-equivalents.
func ItemStatusSatisfied(status string) bool {
	switch status {
	case ItemStatusUploaded, ItemStatusReceived, ItemStatusVerified, ItemStatusNotApplicable:
		return true
	}
	return false
}

// ValidItemStatus reports whether status belongs to the closed item set.
func ValidItemStatus(status string) bool {
	switch status {
	case ItemStatusPending, ItemStatusUploaded, ItemStatusReceived,
		ItemStatusVerified, ItemStatusRejected, ItemStatusNotApplicable:
		return true
	}
	return false
}

// Checklist is the aggregate root: a per-client, per-financial-year instance
// of required documents. Items live in the Items JSON column and are updated
// and persisted together with the derived counters in one write.
type Checklist struct {
	ID            string  `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID      string  `gorm:"type:uuid;not null;index" json:"client_id"`
	TemplateID    *string `gorm:"type:uuid" json:"template_id,omitempty"`
	Name          string  `gorm:"not null" json:"name"`
	FinancialYear string  `gorm:"not null;index" json:"financial_year"`
	ServiceType   string  `gorm:"not null;index" json:"service_type"`

	// Items holds the ordered []ChecklistItem array.
	Items datatypes.JSON `json:"items"`

	// Derived counters, recomputed on every item mutation.
	Progress      float64 `json:"progress"`
	TotalItems    int     `json:"total_items"`
	ReceivedItems int     `json:"received_items"`

	Status      string         `gorm:"not null;default:active;index" json:"status"`
	DueDate     *time.Time     `json:"due_date,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	CreatedBy   string         `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Checklist) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// ChecklistItems decodes the embedded item array.
func (c *Checklist) ChecklistItems() ([]ChecklistItem, error) {
	if len(c.Items) == 0 {
		return nil, nil
	}
	var items []ChecklistItem
	if err := json.Unmarshal(c.Items, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// SetChecklistItems encodes the item array and recomputes the derived
// counters so the aggregate never persists stale progress.
func (c *Checklist) SetChecklistItems(items []ChecklistItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	c.Items = datatypes.JSON(raw)
	c.Recompute(items)
	return nil
}

// Recompute refreshes TotalItems, ReceivedItems and Progress from the given
// item slice. Progress is rounded to two decimals; an empty checklist is 0.
func (c *Checklist) Recompute(items []ChecklistItem) {
	received := 0
	for _, item := range items {
		if ItemStatusSatisfied(item.Status) {
			received++
		}
	}
	c.TotalItems = len(items)
	c.ReceivedItems = received
	if c.TotalItems == 0 {
		c.Progress = 0
		return
	}
	c.Progress = math.Round(float64(received)/float64(c.TotalItems)*10000) / 100
}

// AllRequiredSatisfied reports whether every required item has reached a
// satisfied state. Checklists with no required items complete on progress
// alone.
func AllRequiredSatisfied(items []ChecklistItem) bool {
	for _, item := range items {
		if item.Required && !ItemStatusSatisfied(item.Status) {
			return false
		}
	}
	return true
}

// ItemsFromTemplate clones template definitions into fresh pending items,
// each with its own identity.
func ItemsFromTemplate(defs []TemplateItem) []ChecklistItem {
	items := make([]ChecklistItem, 0, len(defs))
	for _, def := range defs {
		items = append(items, ChecklistItem{
			ID:          uuid.NewString(),
			Label:       def.Label,
			Description: def.Description,
			Category:    def.Category,
			Required:    def.Required,
			Status:      ItemStatusPending,
		})
	}
	return items
}
