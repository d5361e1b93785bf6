package controller

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	model "github.com/taxdesk/docuchase/models"
	service "github.com/taxdesk/docuchase/service"

	"github.com/agiledragon/gomonkey/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func uploadRouter(c *UploadController) *gin.Engine {
	router := gin.New()
	router.GET("/upload/:token", c.ValidateToken)
	router.POST("/upload/:token/:itemId", c.UploadFile)
	return router
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("failed to build multipart body: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write multipart content: %v", err)
	}
	writer.Close()
	return &buf, writer.FormDataContentType()
}

func TestValidateTokenHandler(t *testing.T) {
	patches := gomonkey.ApplyMethod(reflect.TypeOf(&service.UploadTokenService{}), "Validate",
		func(_ *service.UploadTokenService, secret string) (*service.TokenValidation, error) {
			if secret != "good" {
				return nil, fmt.Errorf("unknown upload token: %w", service.ErrNotFound)
			}
			return &service.TokenValidation{
				Checklist: &model.Checklist{ID: "cl-1", Name: "ITR Filing"},
				Client:    &model.Client{ID: "cli-1", Name: "Acme Traders"},
				Expired:   false,
			}, nil
		})
	defer patches.Reset()

	router := uploadRouter(NewUploadController(&service.UploadTokenService{}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/upload/good", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Acme Traders")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/upload/bad", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadFileHandler(t *testing.T) {
	patches := gomonkey.ApplyMethod(reflect.TypeOf(&service.UploadTokenService{}), "Consume",
		func(_ *service.UploadTokenService, secret, itemID string, file multipart.File, header *multipart.FileHeader) (*service.ConsumeResult, error) {
			if secret == "expired" {
				return nil, fmt.Errorf("upload token expired or already used: %w", service.ErrForbidden)
			}
			return &service.ConsumeResult{
				Checklist:   &model.Checklist{ID: "cl-1", Progress: 33.33},
				S3Path:      "clients/ACME01/2024-25/ITR_Filing/PAN_Card.pdf",
				UploadCount: 1,
			}, nil
		})
	defer patches.Reset()

	router := uploadRouter(NewUploadController(&service.UploadTokenService{}))

	body, contentType := multipartBody(t, "file", "pan.pdf", []byte("%PDF-1.4"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/upload/good/it-1", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "PAN_Card.pdf")
	assert.Contains(t, w.Body.String(), `"upload_count":1`)

	// Expired tokens surface as forbidden.
	body, contentType = multipartBody(t, "file", "pan.pdf", []byte("%PDF-1.4"))
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/upload/expired/it-1", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// A request without a file part never reaches the service.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/upload/good/it-1", bytes.NewReader(nil))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
