package controller

import (
	"net/http"

	service "github.com/taxdesk/docuchase/service"

	"github.com/gin-gonic/gin"
)

// TemplateController manages the checklist template catalog.
type TemplateController struct {
	templates *service.TemplateService
}

func NewTemplateController(templates *service.TemplateService) *TemplateController {
	return &TemplateController{templates: templates}
}

func (c *TemplateController) CreateTemplate(ctx *gin.Context) {
	var input service.CreateTemplateInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tmpl, err := c.templates.CreateTemplate(input)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, tmpl)
}

func (c *TemplateController) GetAllTemplates(ctx *gin.Context) {
	templates, err := c.templates.GetAllTemplates()
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, templates)
}

func (c *TemplateController) GetTemplate(ctx *gin.Context) {
	tmpl, err := c.templates.GetTemplate(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, tmpl)
}

func (c *TemplateController) DeleteTemplate(ctx *gin.Context) {
	if err := c.templates.DeleteTemplate(ctx.Param("id")); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Template deleted"})
}
