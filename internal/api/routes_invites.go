package api

import (
	"github.com/gin-gonic/gin"

	"github.com/endorhq/endor/internal/handlers"
)

func registerInviteRoutes(api *gin.RouterGroup, handler *handlers.InviteHandler) {
	invites := api.Group("/invites")
	{
		invites.POST("", handler.Create)
		invites.GET("/:id", handler.Get)
		invites.PATCH("/:id", handler.Update)
	}
}

func registerToolRoutes(api *gin.RouterGroup, handler *handlers.ToolHandler) {
	tools := api.Group("/tools")
	{
		tools.GET("", handler.List)
		tools.GET("/:id", handler.Get)
	}
}

func registerIntegrationRoutes(api *gin.RouterGroup, handler *handlers.IntegrationHandler) {
	integrations := api.Group("/integrations")
	{
		integrations.GET("", handler.List)
		integrations.GET("/:provider/authorize", handler.Authorize)
		integrations.POST("/:provider/connect", handler.Connect)
		integrations.DELETE("/:provider", handler.Disconnect)
	}
}
