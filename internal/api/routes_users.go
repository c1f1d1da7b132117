package api

import (
	"github.com/gin-gonic/gin"

	"github.com/endorhq/endor/internal/handlers"
)

// Self-only restrictions on update, delete and invites are enforced by the handler.
func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler) {
	users := api.Group("/users")
	{
		users.GET("", handler.List)
		users.GET("/:id", handler.Get)
		users.PATCH("/:id", handler.Update)
		users.DELETE("/:id", handler.Delete)
		users.GET("/:id/projects/owned", handler.ProjectsOwned)
		users.GET("/:id/projects/contributed", handler.ProjectsContributed)
		users.GET("/:id/invites", handler.Invites)
	}
}
