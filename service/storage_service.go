package services

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	model "github.com/taxdesk/docuchase/models"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ObjectStore is the object-storage collaborator consumed by the upload
// workflow. StorageService implements it against S3; tests swap in a fake.
type ObjectStore interface {
	Put(key string, data []byte, contentType string) error
	SignedURL(key string, ttl time.Duration) (string, error)
	Delete(key string) error
	List(prefix string) ([]string, error)
}

// StorageService wraps the S3-compatible bucket holding uploaded client
// documents.
type StorageService struct {
	s3Client *s3.S3
	bucket   string
}

// NewStorageService initializes the S3 client from environment configuration.
func NewStorageService() (*StorageService, error) {
	region := os.Getenv("SUPABASE_REGION")
	endpoint := os.Getenv("SUPABASE_S3_ENDPOINT")
	accessKey := os.Getenv("SUPABASE_ACCESS_KEY")
	secretKey := os.Getenv("SUPABASE_SECRET_KEY")
	bucket := os.Getenv("SUPABASE_BUCKET")

	if region == "" || endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil, fmt.Errorf("missing required S3 configuration environment variables")
	}

	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String(region),
		Endpoint:         aws.String(endpoint),
		DisableSSL:       aws.Bool(false),
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{s3Client: s3.New(sess), bucket: bucket}, nil
}

func (s *StorageService) Put(key string, data []byte, contentType string) error {
	_, err := s.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		log.Printf("[StorageService] S3 upload error for %s: %v", key, err)
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return nil
}

func (s *StorageService) SignedURL(key string, ttl time.Duration) (string, error) {
	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	url, err := req.Presign(ttl)
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", key, err)
	}
	return url, nil
}

func (s *StorageService) Delete(key string) error {
	_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

func (s *StorageService) List(prefix string) ([]string, error) {
	out, err := s.s3Client.ListObjectsV2(&s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects under %s: %w", prefix, err)
	}
	keys := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		keys = append(keys, aws.StringValue(obj.Key))
	}
	return keys, nil
}

var (
	disallowedChars = regexp.MustCompile(`[^A-Za-z0-9_.\- ]+`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// SanitizeSegment strips characters unsafe for object keys and collapses
// whitespace runs to single underscores.
func SanitizeSegment(segment string) string {
	clean := disallowedChars.ReplaceAllString(segment, "")
	clean = strings.TrimSpace(clean)
	return whitespaceRuns.ReplaceAllString(clean, "_")
}

// ObjectKey derives the deterministic storage key for an uploaded item file:
// clients/{code}/{fy}/{checklist}/{label}{ext}. The same inputs always map
// to the same key, so a re-upload overwrites the previous file.
func ObjectKey(clientCode, financialYear, checklistName, itemLabel, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("clients/%s/%s/%s/%s%s",
		clientCode, financialYear, SanitizeSegment(checklistName), SanitizeSegment(itemLabel), strings.ToLower(ext))
}

// EnsureFolders lazily records the (client, year) and (client, year,
// checklist) folder nodes. Concurrent callers racing on the same path hit
// the unique index; ON CONFLICT DO NOTHING turns that into "already exists".
func EnsureFolders(db *gorm.DB, clientID, financialYear, checklistName string) error {
	nodes := []model.FolderNode{
		{ClientID: clientID, FinancialYear: financialYear, Name: ""},
		{ClientID: clientID, FinancialYear: financialYear, Name: SanitizeSegment(checklistName)},
	}
	for i := range nodes {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&nodes[i]).Error; err != nil {
			return fmt.Errorf("failed to ensure folder node: %w", err)
		}
	}
	return nil
}
