package services

import (
	"errors"
	"fmt"
	"log"

	model "github.com/taxdesk/docuchase/models"

	"gorm.io/gorm"
)

// TemplateService manages the catalog of checklist templates.
type TemplateService struct {
	db *gorm.DB
}

func NewTemplateService(db *gorm.DB) *TemplateService {
	return &TemplateService{db: db}
}

// CreateTemplateInput is the payload for a user-created template.
type CreateTemplateInput struct {
	Name        string               `json:"name" binding:"required"`
	ServiceType string               `json:"service_type" binding:"required"`
	Items       []model.TemplateItem `json:"items" binding:"required,min=1"`
	CreatedBy   string               `json:"created_by"`
}

// CreateTemplate stores a new user-defined template.
func (s *TemplateService) CreateTemplate(input CreateTemplateInput) (*model.ChecklistTemplate, error) {
	tmpl := model.ChecklistTemplate{
		Name:        input.Name,
		ServiceType: input.ServiceType,
		CreatedBy:   input.CreatedBy,
	}
	if err := tmpl.SetTemplateItems(input.Items); err != nil {
		return nil, fmt.Errorf("failed to encode template items: %w", err)
	}
	if err := s.db.Create(&tmpl).Error; err != nil {
		log.Printf("[CreateTemplate] Error saving template: %v", err)
		return nil, fmt.Errorf("failed to save template: %w", err)
	}
	log.Printf("[CreateTemplate] Template %s (%s) created", tmpl.Name, tmpl.ID)
	return &tmpl, nil
}

// GetTemplate fetches one template by id.
func (s *TemplateService) GetTemplate(id string) (*model.ChecklistTemplate, error) {
	var tmpl model.ChecklistTemplate
	if err := s.db.First(&tmpl, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch template: %w", err)
	}
	return &tmpl, nil
}

// GetAllTemplates lists the catalog, defaults first.
func (s *TemplateService) GetAllTemplates() ([]model.ChecklistTemplate, error) {
	var templates []model.ChecklistTemplate
	if err := s.db.Order("is_default DESC, name ASC").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

// DeleteTemplate removes a user-created template. Seeded defaults are
// immutable.
func (s *TemplateService) DeleteTemplate(id string) error {
	tmpl, err := s.GetTemplate(id)
	if err != nil {
		return err
	}
	if tmpl.IsDefault {
		return fmt.Errorf("default template %s cannot be deleted: %w", tmpl.Name, ErrForbidden)
	}
	if err := s.db.Delete(tmpl).Error; err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}
