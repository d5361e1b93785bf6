package controller

import (
	"errors"
	"net/http"

	service "github.com/taxdesk/docuchase/service"

	"github.com/gin-gonic/gin"
)

// respondError maps the service error kinds onto HTTP statuses. Anything
// unrecognized is an internal error.
func respondError(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}
