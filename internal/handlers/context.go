package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/endorhq/endor/internal/middleware"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// callerID is the authenticated user's id.
func callerID(c *gin.Context) string {
	return middleware.UserID(c)
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}
