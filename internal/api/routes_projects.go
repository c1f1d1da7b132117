package api

import (
	"github.com/gin-gonic/gin"

	"github.com/endorhq/endor/internal/handlers"
	"github.com/endorhq/endor/internal/middleware"
)

func registerProjectRoutes(api *gin.RouterGroup, handler *handlers.ProjectHandler, checker middleware.OwnershipChecker) {
	requireOwner := middleware.RequireProjectOwner(checker, "id")

	projects := api.Group("/projects")
	{
		projects.POST("", handler.Create)
		projects.GET("", handler.List)
		projects.GET("/:id", handler.Get)
		projects.PATCH("/:id", requireOwner, handler.Update)
		projects.DELETE("/:id", requireOwner, handler.Delete)

		projects.GET("/:id/owners", handler.ListOwners)
		projects.POST("/:id/owners", requireOwner, handler.AddOwner)
		projects.DELETE("/:id/owners/:user", requireOwner, handler.RemoveOwner)

		projects.GET("/:id/contributors", handler.ListContributors)
		projects.POST("/:id/contributors", requireOwner, handler.AddContributor)
		projects.DELETE("/:id/contributors/:user", requireOwner, handler.RemoveContributor)

		projects.GET("/:id/invites", requireOwner, handler.Invites)
	}
}
