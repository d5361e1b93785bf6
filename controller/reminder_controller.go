package controller

import (
	"log"
	"net/http"

	service "github.com/taxdesk/docuchase/service"

	"github.com/gin-gonic/gin"
)

// ReminderController exposes the on-demand reminder run next to the daily
// scheduled one.
type ReminderController struct {
	reminders *service.ReminderService
}

func NewReminderController(reminders *service.ReminderService) *ReminderController {
	return &ReminderController{reminders: reminders}
}

func (c *ReminderController) RunReminderCheck(ctx *gin.Context) {
	report, err := c.reminders.RunReminderCheck()
	if err != nil {
		log.Printf("[RunReminderCheck] Manual run failed: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, report)
}
