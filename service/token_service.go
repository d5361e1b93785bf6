package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	model "github.com/taxdesk/docuchase/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxUploadSize caps a single uploaded file at 25 MB.
const maxUploadSize = 25 << 20

// fallbackMaxUploads applies when a checklist has no items yet at issue time.
const fallbackMaxUploads = 20

var allowedUploadExts = map[string]bool{
	".pdf": true, ".jpg": true, ".jpeg": true, ".png": true,
	".xlsx": true, ".xls": true, ".doc": true, ".docx": true,
	".csv": true, ".zip": true,
}

// UploadTokenService issues, validates and consumes the single-purpose
// tokens that let an unauthenticated client submit files against one
// checklist.
type UploadTokenService struct {
	db         *gorm.DB
	checklists *ChecklistService
	store      ObjectStore

	validity time.Duration
	baseURL  string
}

func NewUploadTokenService(db *gorm.DB, checklists *ChecklistService, store ObjectStore) *UploadTokenService {
	days := envInt("TOKEN_VALIDITY_DAYS", 7)
	baseURL := os.Getenv("UPLOAD_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080/upload"
	}
	return &UploadTokenService{
		db:         db,
		checklists: checklists,
		store:      store,
		validity:   time.Duration(days) * 24 * time.Hour,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// IssuedToken is what the admin hands to the client.
type IssuedToken struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issue mints a fresh token for a checklist. The upload quota defaults to
// the checklist's item count so one link covers one full submission round.
func (s *UploadTokenService) Issue(checklistID, issuerID string) (*IssuedToken, error) {
	checklist, err := s.checklists.GetChecklist(checklistID)
	if err != nil {
		return nil, err
	}

	secret, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	maxUploads := checklist.TotalItems
	if maxUploads == 0 {
		maxUploads = fallbackMaxUploads
	}
	token := model.UploadToken{
		Token:       secret,
		ChecklistID: checklist.ID,
		ClientID:    checklist.ClientID,
		ExpiresAt:   time.Now().Add(s.validity),
		MaxUploads:  maxUploads,
		CreatedBy:   issuerID,
	}
	if err := s.db.Create(&token).Error; err != nil {
		log.Printf("[Issue] Error saving upload token: %v", err)
		return nil, fmt.Errorf("failed to save upload token: %w", err)
	}
	log.Printf("[Issue] Upload token issued for checklist %s, expires %s", checklist.ID, token.ExpiresAt.Format(time.RFC3339))
	return &IssuedToken{
		Token:     secret,
		URL:       s.baseURL + "/" + secret,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

// randomToken returns 256 bits of hex-encoded entropy.
func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// TokenValidation is the read-only view rendered on the public upload page.
type TokenValidation struct {
	Checklist *model.Checklist      `json:"checklist"`
	Client    *model.Client         `json:"client"`
	Items     []model.ChecklistItem `json:"items"`
	Expired   bool                  `json:"expired"`
}

// Validate resolves a token into its checklist without mutating anything,
// so the upload page can call it as often as it likes.
func (s *UploadTokenService) Validate(secret string) (*TokenValidation, error) {
	token, err := s.findToken(secret)
	if err != nil {
		return nil, err
	}
	checklist, err := s.checklists.GetChecklist(token.ChecklistID)
	if err != nil {
		return nil, err
	}
	var client model.Client
	if err := s.db.First(&client, "id = ?", token.ClientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("client %s: %w", token.ClientID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch client: %w", err)
	}
	items, err := checklist.ChecklistItems()
	if err != nil {
		return nil, fmt.Errorf("failed to decode checklist items: %w", err)
	}
	return &TokenValidation{
		Checklist: checklist,
		Client:    &client,
		Items:     items,
		Expired:   token.Expired(time.Now()),
	}, nil
}

// ConsumeResult reports a successful anonymous upload.
type ConsumeResult struct {
	Checklist   *model.Checklist `json:"checklist"`
	S3Path      string           `json:"s3_path"`
	UploadCount int              `json:"upload_count"`
}

// Consume performs one anonymous upload: re-checks token validity, guards
// the file, writes it to object storage, files the item through the
// checklist engine and only then spends one unit of the token's quota. A
// failed storage write therefore never consumes quota.
func (s *UploadTokenService) Consume(secret, itemID string, file multipart.File, header *multipart.FileHeader) (*ConsumeResult, error) {
	token, err := s.findToken(secret)
	if err != nil {
		return nil, err
	}
	if token.Expired(time.Now()) {
		return nil, fmt.Errorf("upload token expired or already used: %w", ErrForbidden)
	}
	if token.QuotaExhausted() {
		return nil, fmt.Errorf("upload quota of %d exhausted: %w", token.MaxUploads, ErrBadRequest)
	}
	if err := checkUploadFile(header); err != nil {
		return nil, err
	}

	checklist, err := s.checklists.GetChecklist(token.ChecklistID)
	if err != nil {
		return nil, err
	}
	items, err := checklist.ChecklistItems()
	if err != nil {
		return nil, fmt.Errorf("failed to decode checklist items: %w", err)
	}
	var item *model.ChecklistItem
	for i := range items {
		if items[i].ID == itemID {
			item = &items[i]
			break
		}
	}
	if item == nil {
		return nil, fmt.Errorf("item %s is not on this checklist: %w", itemID, ErrBadRequest)
	}

	var client model.Client
	if err := s.db.First(&client, "id = ?", token.ClientID).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch client: %w", err)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("uploaded file is empty: %w", ErrBadRequest)
	}

	if err := EnsureFolders(s.db, client.ID, checklist.FinancialYear, checklist.Name); err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	key := ObjectKey(client.Code, checklist.FinancialYear, checklist.Name, item.Label, ext)
	if err := s.store.Put(key, data, header.Header.Get("Content-Type")); err != nil {
		return nil, err
	}

	updated, err := s.checklists.UpdateItemStatus(checklist.ID, itemID, ItemStatusUpdate{
		Status:      model.ItemStatusUploaded,
		FileID:      uuid.NewString(),
		FileName:    header.Filename,
		S3Path:      key,
		UploadedVia: model.UploadedViaUploadLink,
	})
	if err != nil {
		return nil, err
	}

	count, err := s.spendQuota(token)
	if err != nil {
		return nil, err
	}

	log.Printf("[Consume] Item %s on checklist %s uploaded via token, %d/%d uploads used",
		itemID, checklist.ID, count, token.MaxUploads)
	return &ConsumeResult{Checklist: updated, S3Path: key, UploadCount: count}, nil
}

// spendQuota atomically increments the token's upload count. The update is
// keyed on the count we read, so two racing uploads cannot both take the
// last slot; the loser re-reads and retries once.
func (s *UploadTokenService) spendQuota(token *model.UploadToken) (int, error) {
	for attempt := 0; attempt < 2; attempt++ {
		result := s.db.Model(&model.UploadToken{}).
			Where("id = ? AND upload_count = ?", token.ID, token.UploadCount).
			Update("upload_count", token.UploadCount+1)
		if result.Error != nil {
			return 0, fmt.Errorf("failed to update upload count: %w", result.Error)
		}
		if result.RowsAffected == 1 {
			return token.UploadCount + 1, nil
		}
		fresh, err := s.findToken(token.Token)
		if err != nil {
			return 0, err
		}
		if fresh.QuotaExhausted() {
			return 0, fmt.Errorf("upload quota of %d exhausted: %w", fresh.MaxUploads, ErrBadRequest)
		}
		token = fresh
	}
	return 0, fmt.Errorf("conflicting concurrent uploads on token: %w", ErrConflict)
}

func (s *UploadTokenService) findToken(secret string) (*model.UploadToken, error) {
	var token model.UploadToken
	if err := s.db.First(&token, "token = ?", secret).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("unknown upload token: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch upload token: %w", err)
	}
	return &token, nil
}

// checkUploadFile enforces the size and extension guards on an anonymous
// upload.
func checkUploadFile(header *multipart.FileHeader) error {
	if header.Size == 0 {
		return fmt.Errorf("uploaded file is empty: %w", ErrBadRequest)
	}
	if header.Size > maxUploadSize {
		return fmt.Errorf("file exceeds the %d MB limit: %w", maxUploadSize>>20, ErrBadRequest)
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedUploadExts[ext] {
		return fmt.Errorf("file type %q is not allowed: %w", ext, ErrBadRequest)
	}
	return nil
}

// SignedItemURL returns a short-lived download link for a filed item.
func (s *UploadTokenService) SignedItemURL(checklistID, itemID string) (string, error) {
	checklist, err := s.checklists.GetChecklist(checklistID)
	if err != nil {
		return "", err
	}
	items, err := checklist.ChecklistItems()
	if err != nil {
		return "", fmt.Errorf("failed to decode checklist items: %w", err)
	}
	for _, item := range items {
		if item.ID == itemID {
			if item.S3Path == "" {
				return "", fmt.Errorf("item %s has no uploaded file: %w", itemID, ErrNotFound)
			}
			return s.store.SignedURL(item.S3Path, 15*time.Minute)
		}
	}
	return "", fmt.Errorf("item %s in checklist %s: %w", itemID, checklistID, ErrNotFound)
}
