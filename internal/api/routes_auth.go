package api

import (
	"github.com/gin-gonic/gin"

	"github.com/endorhq/endor/internal/handlers"
	"github.com/endorhq/endor/internal/middleware"
)

func registerAuthRoutes(api *gin.RouterGroup, handler *handlers.AuthHandler, opts Options) {
	store := opts.RateStore
	if store == nil {
		store = middleware.NewMemoryRateStore()
	}
	limit := opts.AuthRateLimit
	if limit <= 0 {
		limit = defaultAuthRateLimit
	}
	window := opts.AuthRateWindow
	if window <= 0 {
		window = defaultAuthRateWindow
	}

	auth := api.Group("/auth")
	auth.Use(middleware.RateLimit(store, limit, window))
	{
		auth.POST("/register", handler.Register)
		auth.POST("/login", handler.Login)
	}
}
