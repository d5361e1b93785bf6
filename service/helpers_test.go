package services

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sync"
	"testing"
	"time"

	model "github.com/taxdesk/docuchase/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// FixedTime pins the clock for date-driven tests.
var FixedTime = time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)

// setupTestDB opens a per-test in-memory sqlite database with the full
// schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&model.Client{},
		&model.ChecklistTemplate{},
		&model.Checklist{},
		&model.UploadToken{},
		&model.FolderNode{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func createTestClient(t *testing.T, db *gorm.DB, name, code, phone string) *model.Client {
	t.Helper()
	client := model.Client{Name: name, Code: code, Phone: phone}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("failed to create test client: %v", err)
	}
	return &client
}

func createTestTemplate(t *testing.T, db *gorm.DB, name, serviceType string, items []model.TemplateItem) *model.ChecklistTemplate {
	t.Helper()
	tmpl := model.ChecklistTemplate{Name: name, ServiceType: serviceType}
	if err := tmpl.SetTemplateItems(items); err != nil {
		t.Fatalf("failed to encode template items: %v", err)
	}
	if err := db.Create(&tmpl).Error; err != nil {
		t.Fatalf("failed to create test template: %v", err)
	}
	return &tmpl
}

func threeRequiredItems() []model.TemplateItem {
	return []model.TemplateItem{
		{Label: "PAN Card", Required: true},
		{Label: "Form 16", Required: true},
		{Label: "Bank Statements", Required: true},
	}
}

// fakeNotifier records sends and can fail specific recipients.
type fakeNotifier struct {
	mu       sync.Mutex
	sent     []string // recipients, in order
	messages []string
	failFor  map[string]bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{failFor: make(map[string]bool)}
}

func (f *fakeNotifier) Send(recipient, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[recipient] {
		return fmt.Errorf("gateway unreachable for %s", recipient)
	}
	f.sent = append(f.sent, recipient)
	f.messages = append(f.messages, text)
	return nil
}

// fakeStore is an in-memory ObjectStore.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Put(key string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return fmt.Errorf("simulated storage failure")
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStore) SignedURL(key string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[key]; !ok {
		return "", fmt.Errorf("no such object %s", key)
	}
	return "https://storage.test/" + key + "?signed=1", nil
}

func (f *fakeStore) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) List(prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for key := range f.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// memFile adapts a byte slice to multipart.File.
type memFile struct{ *bytes.Reader }

func (memFile) Close() error { return nil }

func testUpload(filename string, content []byte) (multipart.File, *multipart.FileHeader) {
	header := &multipart.FileHeader{
		Filename: filename,
		Size:     int64(len(content)),
		Header:   textproto.MIMEHeader{"Content-Type": []string{"application/octet-stream"}},
	}
	return memFile{bytes.NewReader(content)}, header
}
