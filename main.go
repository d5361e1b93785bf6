package main

import (
	"log"
	"net/http"
	"os"

	controller "github.com/taxdesk/docuchase/controller"
	"github.com/taxdesk/docuchase/initializers"
	"github.com/taxdesk/docuchase/jobs"
	middleware "github.com/taxdesk/docuchase/middleware"
	"github.com/taxdesk/docuchase/notify"
	service "github.com/taxdesk/docuchase/service"

	"github.com/gin-gonic/gin"
)

func init() {
	if err := initializers.LoadEnv(); err != nil {
		log.Printf("No .env file loaded: continuing with process environment")
	}
	if err := initializers.ConnectDB(); err != nil {
		log.Fatalf("[CRITICAL] Failed to initialize database connection: %s", err)
	}
	if err := initializers.Migrate(); err != nil {
		log.Fatalf("[CRITICAL] Failed to run database migrations: %s", err)
	}
	if err := initializers.SeedDefaultTemplates(); err != nil {
		log.Fatalf("[CRITICAL] Failed to seed default templates: %s", err)
	}
}

func main() {
	checklistService, err := service.NewChecklistService(initializers.DB)
	if err != nil {
		log.Fatalf("Failed to initialize checklist service: %s", err)
	}
	storageService, err := service.NewStorageService()
	if err != nil {
		log.Fatalf("Failed to initialize storage service: %s", err)
	}

	var notifier notify.Notifier
	whatsapp, err := notify.NewWhatsAppClient()
	if err != nil {
		log.Printf("Warning: WhatsApp gateway not configured, notifications disabled: %v", err)
	} else {
		notifier = whatsapp
	}

	templateService := service.NewTemplateService(initializers.DB)
	clientService := service.NewClientService(initializers.DB)
	bulkService := service.NewBulkIssueService(initializers.DB, checklistService, notifier)
	tokenService := service.NewUploadTokenService(initializers.DB, checklistService, storageService)
	reminderService := service.NewReminderService(initializers.DB, notifier)

	checklistController := controller.NewChecklistController(checklistService, bulkService, tokenService)
	templateController := controller.NewTemplateController(templateService)
	clientController := controller.NewClientController(clientService)
	uploadController := controller.NewUploadController(tokenService)
	reminderController := controller.NewReminderController(reminderService)

	if notifier != nil {
		scheduler, err := jobs.NewReminderScheduler(reminderService, false)
		if err != nil {
			log.Fatalf("Failed to build reminder scheduler: %s", err)
		}
		if err := scheduler.Start(); err != nil {
			log.Fatalf("Failed to start reminder scheduler: %s", err)
		}
		defer scheduler.Stop()
	}

	router := gin.Default()
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.GlobalRateLimiter.Limit())

	// Client directory
	router.POST("/clients", middleware.StrictRateLimiter.Limit(), clientController.CreateClient)
	router.GET("/clients", clientController.GetAllClients)
	router.GET("/clients/:id", clientController.GetClient)

	// Template catalog
	router.POST("/templates", middleware.StrictRateLimiter.Limit(), templateController.CreateTemplate)
	router.GET("/templates", templateController.GetAllTemplates)
	router.GET("/templates/:id", templateController.GetTemplate)
	router.DELETE("/templates/:id", middleware.StrictRateLimiter.Limit(), templateController.DeleteTemplate)

	// Checklists
	router.POST("/checklists", checklistController.CreateChecklist)
	router.GET("/checklists", checklistController.ListChecklists)
	router.GET("/checklists/:id", checklistController.GetChecklist)
	router.DELETE("/checklists/:id", middleware.StrictRateLimiter.Limit(), checklistController.DeleteChecklist)
	router.POST("/checklists/:id/archive", checklistController.ArchiveChecklist)
	router.PUT("/checklists/:id/items/:itemId", checklistController.UpdateItemStatus)
	router.PUT("/checklists/:id/items", checklistController.BulkUpdateItemStatus)
	router.POST("/checklists/:id/items", checklistController.AddItem)
	router.DELETE("/checklists/:id/items/:itemId", checklistController.RemoveItem)
	router.POST("/checklists/bulk-create", middleware.StrictRateLimiter.Limit(), checklistController.BulkCreate)
	router.POST("/checklists/:id/upload-token", middleware.StrictRateLimiter.Limit(), checklistController.IssueUploadToken)
	router.GET("/checklists/:id/items/:itemId/url", checklistController.GetItemFileURL)
	router.GET("/search", checklistController.SearchChecklists)

	// Public upload surface: the token in the URL is the credential.
	router.GET("/upload/:token", middleware.PublicRateLimiter.Limit(), uploadController.ValidateToken)
	router.POST("/upload/:token/:itemId", middleware.PublicRateLimiter.Limit(), uploadController.UploadFile)

	// Reminders
	router.POST("/reminders/run", middleware.StrictRateLimiter.Limit(), reminderController.RunReminderCheck)

	// Healthcheck endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	router.Run(":" + port)
}
