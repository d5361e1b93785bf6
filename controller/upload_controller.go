package controller

import (
	"net/http"

	service "github.com/taxdesk/docuchase/service"

	"github.com/gin-gonic/gin"
)

// UploadController serves the public, unauthenticated upload surface. The
// token in the URL is the only credential.
type UploadController struct {
	tokens *service.UploadTokenService
}

func NewUploadController(tokens *service.UploadTokenService) *UploadController {
	return &UploadController{tokens: tokens}
}

// ValidateToken is the read-only probe the upload page renders from. It is
// safe to call repeatedly and never mutates the token.
func (c *UploadController) ValidateToken(ctx *gin.Context) {
	validation, err := c.tokens.Validate(ctx.Param("token"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, validation)
}

// UploadFile consumes one unit of the token's quota to file one item.
func (c *UploadController) UploadFile(ctx *gin.Context) {
	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Failed to get file from request"})
		return
	}
	defer file.Close()

	result, err := c.tokens.Consume(ctx.Param("token"), ctx.Param("itemId"), file, header)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message":      "Document uploaded successfully",
		"s3_path":      result.S3Path,
		"upload_count": result.UploadCount,
		"progress":     result.Checklist.Progress,
	})
}
