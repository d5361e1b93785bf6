package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UploadToken grants an unauthenticated client time- and count-limited write
// access to one checklist. Tokens are never deleted; spent tokens remain as
// an audit trail of who was invited to upload what.
type UploadToken struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	Token       string    `gorm:"uniqueIndex;not null" json:"-"`
	ChecklistID string    `gorm:"type:uuid;not null;index" json:"checklist_id"`
	ClientID    string    `gorm:"type:uuid;not null" json:"client_id"`
	ExpiresAt   time.Time `gorm:"not null" json:"expires_at"`
	IsUsed      bool      `json:"is_used"`
	MaxUploads  int       `json:"max_uploads"`
	UploadCount int       `json:"upload_count"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func (t *UploadToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Expired reports whether the token can no longer be presented at all.
func (t *UploadToken) Expired(now time.Time) bool {
	return t.IsUsed || now.After(t.ExpiresAt)
}

// QuotaExhausted reports whether every allowed upload has been consumed.
func (t *UploadToken) QuotaExhausted() bool {
	return t.UploadCount >= t.MaxUploads
}
