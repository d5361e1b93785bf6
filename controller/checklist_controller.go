package controller

import (
	"log"
	"net/http"

	service "github.com/taxdesk/docuchase/service"

	"github.com/gin-gonic/gin"
)

// ChecklistController manages HTTP requests for checklists, bulk issuance
// and upload-token administration.
type ChecklistController struct {
	checklists *service.ChecklistService
	bulk       *service.BulkIssueService
	tokens     *service.UploadTokenService
}

func NewChecklistController(checklists *service.ChecklistService, bulk *service.BulkIssueService, tokens *service.UploadTokenService) *ChecklistController {
	return &ChecklistController{checklists: checklists, bulk: bulk, tokens: tokens}
}

// CreateChecklist creates one checklist, directly or from a template.
func (c *ChecklistController) CreateChecklist(ctx *gin.Context) {
	var input service.CreateChecklistInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	checklist, err := c.checklists.CreateChecklist(input)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, checklist)
}

func (c *ChecklistController) GetChecklist(ctx *gin.Context) {
	checklist, err := c.checklists.GetChecklist(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, checklist)
}

func (c *ChecklistController) ListChecklists(ctx *gin.Context) {
	checklists, err := c.checklists.ListChecklists(service.ChecklistFilter{
		ClientID:      ctx.Query("client_id"),
		FinancialYear: ctx.Query("financial_year"),
		ServiceType:   ctx.Query("service_type"),
		Status:        ctx.Query("status"),
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"checklists": checklists,
		"total":      len(checklists),
	})
}

// UpdateItemStatus applies a single item status change.
func (c *ChecklistController) UpdateItemStatus(ctx *gin.Context) {
	var update service.ItemStatusUpdate
	if err := ctx.ShouldBindJSON(&update); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	checklist, err := c.checklists.UpdateItemStatus(ctx.Param("id"), ctx.Param("itemId"), update)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, checklist)
}

// BulkUpdateItemStatus applies several item status changes in one write.
func (c *ChecklistController) BulkUpdateItemStatus(ctx *gin.Context) {
	var req struct {
		Updates []service.ItemStatusChange `json:"updates" binding:"required,min=1"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	checklist, err := c.checklists.BulkUpdateItemStatus(ctx.Param("id"), req.Updates)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, checklist)
}

func (c *ChecklistController) AddItem(ctx *gin.Context) {
	var input service.AddItemInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	checklist, err := c.checklists.AddItem(ctx.Param("id"), input)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, checklist)
}

func (c *ChecklistController) RemoveItem(ctx *gin.Context) {
	checklist, err := c.checklists.RemoveItem(ctx.Param("id"), ctx.Param("itemId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, checklist)
}

func (c *ChecklistController) ArchiveChecklist(ctx *gin.Context) {
	checklist, err := c.checklists.ArchiveChecklist(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, checklist)
}

func (c *ChecklistController) DeleteChecklist(ctx *gin.Context) {
	if err := c.checklists.DeleteChecklist(ctx.Param("id")); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Checklist deleted"})
}

// BulkCreate issues a template to many clients at once.
func (c *ChecklistController) BulkCreate(ctx *gin.Context) {
	var input service.BulkCreateInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := c.bulk.BulkCreate(input)
	if err != nil {
		log.Printf("[BulkCreate] Error issuing checklists: %v", err)
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// IssueUploadToken mints a time-limited upload link for a checklist.
func (c *ChecklistController) IssueUploadToken(ctx *gin.Context) {
	var req struct {
		IssuedBy string `json:"issued_by"`
	}
	// Body is optional; the issuer id is informational.
	_ = ctx.ShouldBindJSON(&req)

	issued, err := c.tokens.Issue(ctx.Param("id"), req.IssuedBy)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, issued)
}

// GetItemFileURL returns a short-lived signed download link for an item's
// uploaded file.
func (c *ChecklistController) GetItemFileURL(ctx *gin.Context) {
	url, err := c.tokens.SignedItemURL(ctx.Param("id"), ctx.Param("itemId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"url": url})
}

// SearchChecklists runs a full-text search over the checklist index.
func (c *ChecklistController) SearchChecklists(ctx *gin.Context) {
	query := ctx.Query("q")
	if query == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
		return
	}
	results, err := c.checklists.SearchChecklists(query)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"results": results,
		"total":   len(results),
	})
}
