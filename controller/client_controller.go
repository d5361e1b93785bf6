package controller

import (
	"net/http"

	service "github.com/taxdesk/docuchase/service"

	"github.com/gin-gonic/gin"
)

// ClientController manages the client directory endpoints.
type ClientController struct {
	clients *service.ClientService
}

func NewClientController(clients *service.ClientService) *ClientController {
	return &ClientController{clients: clients}
}

func (c *ClientController) CreateClient(ctx *gin.Context) {
	var input service.CreateClientInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	client, err := c.clients.CreateClient(input)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, client)
}

func (c *ClientController) GetAllClients(ctx *gin.Context) {
	clients, err := c.clients.GetAllClients()
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"clients": clients,
		"total":   len(clients),
	})
}

func (c *ClientController) GetClient(ctx *gin.Context) {
	client, err := c.clients.GetClient(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, client)
}
