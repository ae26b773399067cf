package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/teamdash/internal/middleware"
	appErrors "github.com/charlesng35/teamdash/pkg/errors"
	"github.com/charlesng35/teamdash/pkg/response"
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

// currentUserID returns the authenticated user or writes a 401.
func currentUserID(c *gin.Context) (uint, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return 0, false
	}
	return id, true
}

// uintParam parses a positive numeric path parameter or writes a 400.
func uintParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || value == 0 {
		response.Error(c, appErrors.NewBadRequest("invalid "+name))
		return 0, false
	}
	return uint(value), true
}
