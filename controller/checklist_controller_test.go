package controller

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	model "github.com/taxdesk/docuchase/models"
	service "github.com/taxdesk/docuchase/service"

	"github.com/agiledragon/gomonkey/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testRouter(c *ChecklistController) *gin.Engine {
	router := gin.New()
	router.POST("/checklists", c.CreateChecklist)
	router.GET("/checklists/:id", c.GetChecklist)
	router.PATCH("/checklists/:id/items/:itemId", c.UpdateItemStatus)
	router.POST("/checklists/bulk-create", c.BulkCreate)
	router.POST("/checklists/:id/upload-token", c.IssueUploadToken)
	return router
}

func TestGetChecklistHandler(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		patch      func() *gomonkey.Patches
		wantStatus int
		wantBody   string
	}{
		{
			name: "found",
			id:   "cl-1",
			patch: func() *gomonkey.Patches {
				return gomonkey.ApplyMethod(reflect.TypeOf(&service.ChecklistService{}), "GetChecklist",
					func(_ *service.ChecklistService, id string) (*model.Checklist, error) {
						return &model.Checklist{ID: id, Name: "ITR Filing", Status: model.ChecklistStatusActive}, nil
					})
			},
			wantStatus: http.StatusOK,
			wantBody:   "ITR Filing",
		},
		{
			name: "not found",
			id:   "missing",
			patch: func() *gomonkey.Patches {
				return gomonkey.ApplyMethod(reflect.TypeOf(&service.ChecklistService{}), "GetChecklist",
					func(_ *service.ChecklistService, id string) (*model.Checklist, error) {
						return nil, fmt.Errorf("checklist %s: %w", id, service.ErrNotFound)
					})
			},
			wantStatus: http.StatusNotFound,
			wantBody:   "not found",
		},
		{
			name: "storage failure",
			id:   "cl-1",
			patch: func() *gomonkey.Patches {
				return gomonkey.ApplyMethod(reflect.TypeOf(&service.ChecklistService{}), "GetChecklist",
					func(_ *service.ChecklistService, id string) (*model.Checklist, error) {
						return nil, fmt.Errorf("failed to fetch checklist: connection refused")
					})
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "connection refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patches := tt.patch()
			defer patches.Reset()

			router := testRouter(NewChecklistController(&service.ChecklistService{}, nil, nil))
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/checklists/"+tt.id, nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestCreateChecklistHandlerValidation(t *testing.T) {
	called := false
	patches := gomonkey.ApplyMethod(reflect.TypeOf(&service.ChecklistService{}), "CreateChecklist",
		func(_ *service.ChecklistService, input service.CreateChecklistInput) (*model.Checklist, error) {
			called = true
			return &model.Checklist{ID: "cl-1", ClientID: input.ClientID, Name: input.Name}, nil
		})
	defer patches.Reset()

	router := testRouter(NewChecklistController(&service.ChecklistService{}, nil, nil))

	// Missing required fields never reach the service.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checklists", strings.NewReader(`{"name":"Adhoc"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, called)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/checklists",
		strings.NewReader(`{"client_id":"cli-1","name":"Adhoc","financial_year":"2024-25"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, called)
}

func TestUpdateItemStatusHandler(t *testing.T) {
	patches := gomonkey.ApplyMethod(reflect.TypeOf(&service.ChecklistService{}), "UpdateItemStatus",
		func(_ *service.ChecklistService, checklistID, itemID string, update service.ItemStatusUpdate) (*model.Checklist, error) {
			if !model.ValidItemStatus(update.Status) {
				return nil, fmt.Errorf("invalid item status %q: %w", update.Status, service.ErrBadRequest)
			}
			return &model.Checklist{ID: checklistID, Progress: 33.33}, nil
		})
	defer patches.Reset()

	router := testRouter(NewChecklistController(&service.ChecklistService{}, nil, nil))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/checklists/cl-1/items/it-1",
		strings.NewReader(`{"status":"received"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "33.33")

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPatch, "/checklists/cl-1/items/it-1",
		strings.NewReader(`{"status":"approved"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBulkCreateHandler(t *testing.T) {
	patches := gomonkey.ApplyMethod(reflect.TypeOf(&service.BulkIssueService{}), "BulkCreate",
		func(_ *service.BulkIssueService, input service.BulkCreateInput) (*service.BulkCreateResult, error) {
			return &service.BulkCreateResult{Created: 2, Skipped: 1, Total: 3}, nil
		})
	defer patches.Reset()

	router := testRouter(NewChecklistController(nil, &service.BulkIssueService{}, nil))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checklists/bulk-create",
		strings.NewReader(`{"template_id":"tpl-1","financial_year":"2024-25"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"created":2`)
	assert.Contains(t, w.Body.String(), `"skipped":1`)
}

func TestIssueUploadTokenHandlerAllowsEmptyBody(t *testing.T) {
	patches := gomonkey.ApplyMethod(reflect.TypeOf(&service.UploadTokenService{}), "Issue",
		func(_ *service.UploadTokenService, checklistID, issuerID string) (*service.IssuedToken, error) {
			return &service.IssuedToken{Token: "tok", URL: "http://localhost:8080/upload/tok"}, nil
		})
	defer patches.Reset()

	router := testRouter(NewChecklistController(nil, nil, &service.UploadTokenService{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checklists/cl-1/upload-token", bytes.NewReader(nil))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "/upload/tok")
}

func TestRespondErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("checklist x: %w", service.ErrNotFound), http.StatusNotFound},
		{"bad request", fmt.Errorf("invalid status: %w", service.ErrBadRequest), http.StatusBadRequest},
		{"forbidden", fmt.Errorf("token expired: %w", service.ErrForbidden), http.StatusForbidden},
		{"conflict", fmt.Errorf("concurrent uploads: %w", service.ErrConflict), http.StatusConflict},
		{"unclassified", fmt.Errorf("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(w)
			respondError(ctx, tt.err)
			assert.Equal(t, tt.want, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}
