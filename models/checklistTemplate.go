package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service types a template (and the checklists issued from it) can belong to.
const (
	ServiceTypeITR    = "itr"
	ServiceTypeGST    = "gst"
	ServiceTypeAudit  = "audit"
	ServiceTypeROC    = "roc"
	ServiceTypeTDS    = "tds"
	ServiceTypeCustom = "custom"
)

// TemplateItem is a single required-item definition inside a template.
// Items are cloned with fresh identities when a checklist is issued.
type TemplateItem struct {
	Label       string `json:"label" binding:"required"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Required    bool   `json:"required"`
}

// ChecklistTemplate is a reusable named set of item definitions for a
// service type. Default templates are seeded at first boot and cannot be
// edited or deleted.
type ChecklistTemplate struct {
	ID          string `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	ServiceType string `gorm:"not null;index" json:"service_type"`

	// Items holds the []TemplateItem definitions as a JSON array.
	Items datatypes.JSON `json:"items"`

	IsDefault bool      `gorm:"index" json:"is_default"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *ChecklistTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// TemplateItems decodes the embedded item definitions.
func (t *ChecklistTemplate) TemplateItems() ([]TemplateItem, error) {
	if len(t.Items) == 0 {
		return nil, nil
	}
	var items []TemplateItem
	if err := json.Unmarshal(t.Items, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// SetTemplateItems encodes the item definitions back into the JSON column.
func (t *ChecklistTemplate) SetTemplateItems(items []TemplateItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	t.Items = datatypes.JSON(raw)
	return nil
}
