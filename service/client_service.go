package services

import (
	"errors"
	"fmt"
	"log"

	model "github.com/taxdesk/docuchase/models"

	"gorm.io/gorm"
)

// ClientService manages the practice's client directory.
type ClientService struct {
	db *gorm.DB
}

func NewClientService(db *gorm.DB) *ClientService {
	return &ClientService{db: db}
}

type CreateClientInput struct {
	Name  string `json:"name" binding:"required"`
	Code  string `json:"code" binding:"required"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

func (s *ClientService) CreateClient(input CreateClientInput) (*model.Client, error) {
	client := model.Client{
		Name:  input.Name,
		Code:  input.Code,
		Phone: input.Phone,
		Email: input.Email,
	}
	if err := s.db.Create(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("client code %s already exists: %w", input.Code, ErrConflict)
		}
		log.Printf("[CreateClient] Error saving client: %v", err)
		return nil, fmt.Errorf("failed to save client: %w", err)
	}
	return &client, nil
}

func (s *ClientService) GetClient(id string) (*model.Client, error) {
	var client model.Client
	if err := s.db.First(&client, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("client %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch client: %w", err)
	}
	return &client, nil
}

func (s *ClientService) GetAllClients() ([]model.Client, error) {
	var clients []model.Client
	if err := s.db.Order("name ASC").Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}
