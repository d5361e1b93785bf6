package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FolderNode is an index entry mirroring the storage folder layout
// (client -> financial year -> checklist). Nodes are created lazily on first
// upload; the unique composite index makes concurrent creation an upsert.
type FolderNode struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID      string    `gorm:"type:uuid;not null;uniqueIndex:idx_folder_path" json:"client_id"`
	FinancialYear string    `gorm:"not null;uniqueIndex:idx_folder_path" json:"financial_year"`
	Name          string    `gorm:"not null;uniqueIndex:idx_folder_path" json:"name"`
	CreatedAt     time.Time `json:"created_at"`
}

func (f *FolderNode) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
