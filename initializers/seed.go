package initializers

import (
	"fmt"
	"log"

	model "github.com/taxdesk/docuchase/models"
)

// SeedDefaultTemplates installs the built-in template catalog on first boot.
// It is a no-op once any default template exists.
func SeedDefaultTemplates() error {
	var count int64
	if err := DB.Model(&model.ChecklistTemplate{}).Where("is_default = ?", true).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count default templates: %w", err)
	}
	if count > 0 {
		log.Println("Default templates already seeded, skipping")
		return nil
	}

	defaults := []struct {
		name        string
		serviceType string
		items       []model.TemplateItem
	}{
		{
			name:        "Income Tax Return Filing",
			serviceType: model.ServiceTypeITR,
			items: []model.TemplateItem{
				{Label: "PAN Card", Category: "identity", Required: true},
				{Label: "Aadhaar Card", Category: "identity", Required: true},
				{Label: "Form 16", Category: "income", Required: true},
				{Label: "Bank Statements (full FY)", Category: "income", Required: true},
				{Label: "Investment Proofs (80C)", Category: "deductions", Required: true},
				{Label: "Home Loan Interest Certificate", Category: "deductions", Required: false},
				{Label: "Capital Gains Statement", Category: "income", Required: false},
			},
		},
		{
			name:        "GST Registration",
			serviceType: model.ServiceTypeGST,
			items: []model.TemplateItem{
				{Label: "PAN Card", Category: "identity", Required: true},
				{Label: "Proof of Business Address", Category: "business", Required: true},
				{Label: "Bank Account Proof", Category: "business", Required: true},
				{Label: "Photograph of Proprietor", Category: "identity", Required: true},
				{Label: "Partnership Deed / MOA", Category: "business", Required: false},
			},
		},
		{
			name:        "Statutory Audit",
			serviceType: model.ServiceTypeAudit,
			items: []model.TemplateItem{
				{Label: "Financial Statements", Category: "accounts", Required: true},
				{Label: "Trial Balance", Category: "accounts", Required: true},
				{Label: "Bank Statements (full FY)", Category: "accounts", Required: true},
				{Label: "Fixed Asset Register", Category: "accounts", Required: true},
				{Label: "Loan Statements", Category: "accounts", Required: false},
				{Label: "Statutory Dues Challans", Category: "compliance", Required: true},
			},
		},
	}

	for _, def := range defaults {
		tmpl := model.ChecklistTemplate{
			Name:        def.name,
			ServiceType: def.serviceType,
			IsDefault:   true,
			CreatedBy:   "system",
		}
		if err := tmpl.SetTemplateItems(def.items); err != nil {
			return fmt.Errorf("failed to encode default template %s: %w", def.name, err)
		}
		if err := DB.Create(&tmpl).Error; err != nil {
			return fmt.Errorf("failed to seed template %s: %w", def.name, err)
		}
		log.Printf("Seeded default template: %s", def.name)
	}
	return nil
}
